// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/workd-cli/internal/config"
	"github.com/xkilldash9x/workd-cli/internal/portal"
)

const inputHeader = "username,fname_th,lname_th,fname_en,lname_en,tel,mobile,cid,secondary_email,note\n"

// resetForTest restores every package seam after the test.
func resetForTest(t *testing.T) {
	t.Helper()
	origLaunch, origPrompt, origRead := launchBrowser, credentialPrompt, readPassword
	t.Cleanup(func() {
		launchBrowser = origLaunch
		credentialPrompt = origPrompt
		readPassword = origRead
	})

	launchBrowser = func(context.Context, config.BrowserConfig, *zap.Logger) (portal.Page, func(), error) {
		t.Fatal("browser must not be launched")
		return nil, nil, nil
	}
	credentialPrompt = func(_ io.Reader, _ io.Writer) (portal.Credential, error) {
		return portal.Credential{Identifier: "admin", Secret: "s3cret"}, nil
	}
}

// runCommand executes the command tree with args and returns its stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// loginRejectingPage shows the login error marker right after submit.
type loginRejectingPage struct {
	mu     sync.Mutex
	closed bool
}

func (p *loginRejectingPage) Navigate(context.Context, string) error { return nil }
func (p *loginRejectingPage) WaitFor(context.Context, portal.Locator) error { return nil }
func (p *loginRejectingPage) Type(context.Context, portal.Locator, string) error { return nil }
func (p *loginRejectingPage) Click(context.Context, portal.Locator) error { return nil }
func (p *loginRejectingPage) Exists(context.Context, portal.Locator) (bool, error) { return false, nil }
func (p *loginRejectingPage) RemoveAll(context.Context, portal.Locator) error { return nil }
func (p *loginRejectingPage) ReadRows(context.Context, portal.Locator) ([][]string, error) {
	return nil, nil
}

func (p *loginRejectingPage) ReadText(ctx context.Context, loc portal.Locator) (string, error) {
	if loc.Query == "#errorText" {
		return "Incorrect user ID or password.", nil
	}
	<-ctx.Done()
	return "", ctx.Err()
}

func (p *loginRejectingPage) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *loginRejectingPage) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// scriptedPortal plays the portal screens the commands walk through: login
// always succeeds, the user table shows pages one at a time, and each
// creation succeeds with password "pw-<username>" unless the username is in
// rejections. onCreate runs on every submit with the username being created.
type scriptedPortal struct {
	mu sync.Mutex

	pages     [][][]string
	pageIdx   int
	rowsShown bool

	typed      map[string]string
	texts      map[string]string
	rejections map[string]string
	onCreate   func(username string)
	onLogin    func()
	closed     int
}

func newScriptedPortal(pages ...[][]string) *scriptedPortal {
	return &scriptedPortal{
		pages:      pages,
		rowsShown:  len(pages) > 0,
		typed:      map[string]string{},
		texts:      map[string]string{},
		rejections: map[string]string{},
	}
}

const (
	queryLoginSuccess  = `//div[contains(., "Web Portal")]`
	queryEmailField    = `//input[@name="email"]`
	querySearchField   = `//input[@name="search"]`
	queryCreateButton  = `//button[contains(., "สร้างผู้ใช้งาน")]`
	queryConfirmReset  = ".modal-body .btn-primary"
	queryDialogTitle   = ".dialog-title"
	queryDialogMessage = ".dialog-message"
	queryIssuedPass    = `//p[contains(., "รหัสผ่าน: ")]`
	queryTableRow      = "tr.table-body"
)

func pageControl(loc portal.Locator) (int, bool) {
	const prefix, suffix = `//div[text()="`, `"]`
	if !strings.HasPrefix(loc.Query, prefix) || !strings.HasSuffix(loc.Query, suffix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(loc.Query, prefix), suffix))
	return n, err == nil
}

func (p *scriptedPortal) Navigate(context.Context, string) error {
	p.mu.Lock()
	hook := p.onLogin
	p.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (p *scriptedPortal) WaitFor(context.Context, portal.Locator) error { return nil }

func (p *scriptedPortal) Type(_ context.Context, loc portal.Locator, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.typed[loc.Query] = value
	return nil
}

func (p *scriptedPortal) Click(_ context.Context, loc portal.Locator) error {
	p.mu.Lock()
	if n, ok := pageControl(loc); ok {
		p.pageIdx = n - 1
		p.rowsShown = true
		p.mu.Unlock()
		return nil
	}

	switch loc.Query {
	case queryCreateButton:
		user := p.typed[queryEmailField]
		hook := p.onCreate
		if msg, rejected := p.rejections[user]; rejected {
			p.texts[queryDialogTitle] = "ข้อผิดพลาด"
			p.texts[queryDialogMessage] = msg
		} else {
			p.texts[queryDialogTitle] = "สำเร็จ"
		}
		p.mu.Unlock()
		if hook != nil {
			hook(user)
		}
		return nil
	case queryConfirmReset:
		user := strings.TrimSuffix(p.typed[querySearchField], "@")
		p.texts[queryIssuedPass] = "รหัสผ่าน: pw-" + user
	}
	p.mu.Unlock()
	return nil
}

func (p *scriptedPortal) ReadText(ctx context.Context, loc portal.Locator) (string, error) {
	if loc.Query == queryLoginSuccess {
		return "Web Portal", nil
	}
	p.mu.Lock()
	text, ok := p.texts[loc.Query]
	p.mu.Unlock()
	if ok {
		return text, nil
	}
	<-ctx.Done()
	return "", ctx.Err()
}

func (p *scriptedPortal) Exists(_ context.Context, loc portal.Locator) (bool, error) {
	if n, ok := pageControl(loc); ok {
		return n <= len(p.pages), nil
	}
	return false, nil
}

func (p *scriptedPortal) ReadRows(context.Context, portal.Locator) ([][]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.rowsShown || len(p.pages) == 0 {
		return nil, nil
	}
	return p.pages[p.pageIdx], nil
}

func (p *scriptedPortal) RemoveAll(_ context.Context, loc portal.Locator) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if loc.Query == queryTableRow {
		p.rowsShown = false
	}
	return nil
}

func (p *scriptedPortal) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
}

func (p *scriptedPortal) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// useScriptedPortal makes launchBrowser hand out page.
func useScriptedPortal(t *testing.T, page *scriptedPortal) {
	t.Helper()
	launchBrowser = func(context.Context, config.BrowserConfig, *zap.Logger) (portal.Page, func(), error) {
		return page, page.close, nil
	}
}
