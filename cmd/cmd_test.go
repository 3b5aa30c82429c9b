// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/workd-cli/internal/config"
	"github.com/xkilldash9x/workd-cli/internal/portal"
	"github.com/xkilldash9x/workd-cli/internal/records"
)

func TestImport_ArgumentCount(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"none", []string{"import"}, "invalid argument(s) (expected 1 argument, got 0)"},
		{"two", []string{"import", "a.csv", "b.csv"}, "invalid argument(s) (expected 1 argument, got 2)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetForTest(t)
			_, err := runCommand(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, portal.KindArgument, portal.KindOf(err))
			assert.EqualError(t, reportError(err), tt.want)
		})
	}
}

func TestImport_RejectsNonCSV(t *testing.T) {
	resetForTest(t)
	path := writeFile(t, "users.txt", inputHeader)

	_, err := runCommand(t, "import", path)
	require.Error(t, err)
	assert.Equal(t, portal.KindArgument, portal.KindOf(err))
}

func TestImport_MalformedInputBeforeLaunch(t *testing.T) {
	resetForTest(t)
	path := writeFile(t, "users.csv", "username,lname_th\nalice,ใจดี\n")

	_, err := runCommand(t, "import", path)
	require.Error(t, err)
	assert.Equal(t, portal.KindMalformedInput, portal.KindOf(err))
	assert.Contains(t, reportError(err).Error(), "malformed input (")
}

func TestImport_DryRun(t *testing.T) {
	resetForTest(t)
	path := writeFile(t, "users.CSV", inputHeader+
		"alice@example.go.th,อลิซ,ใจดี,Alice,Jaidee,,,,,\n"+
		" bob ,บ็อบ,ใจดี,Bob,Jaidee,,,,,\n")

	out, err := runCommand(t, "import", path, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "alice\nbob\n")
	assert.Contains(t, out, "2 records would be imported into "+strings.TrimSuffix(path, ".CSV")+"_imported.csv")
}

func TestImport_ResumeSkipsImported(t *testing.T) {
	resetForTest(t)
	path := writeFile(t, "users.csv", inputHeader+
		"alice,อลิซ,ใจดี,Alice,Jaidee,,,,,\n"+
		"bob,บ็อบ,ใจดี,Bob,Jaidee,,,,,\n")

	var prev bytes.Buffer
	require.NoError(t, records.EncodeResults(&prev, []records.ProvisionResult{
		{ProvisionInput: records.ProvisionInput{Username: "alice"}, Password: "pw"},
	}))
	require.NoError(t, os.WriteFile(importOutputPath(path, "_imported.csv"), prev.Bytes(), 0o644))

	out, err := runCommand(t, "import", path, "--resume", "--dry-run")
	require.NoError(t, err)
	assert.NotContains(t, out, "alice")
	assert.Contains(t, out, "bob\n1 records would be imported")
}

func TestImport_LoginFailureClosesBrowser(t *testing.T) {
	resetForTest(t)
	path := writeFile(t, "users.csv", inputHeader+"alice,อลิซ,ใจดี,Alice,Jaidee,,,,,\n")

	page := &loginRejectingPage{}
	launched := 0
	launchBrowser = func(context.Context, config.BrowserConfig, *zap.Logger) (portal.Page, func(), error) {
		launched++
		return page, page.close, nil
	}

	_, err := runCommand(t, "import", path)
	require.Error(t, err)
	assert.Equal(t, portal.KindAuthentication, portal.KindOf(err))
	assert.EqualError(t, reportError(err), "workD login failure (Incorrect user ID or password.)")
	assert.Equal(t, 1, launched)
	assert.True(t, page.isClosed())

	_, statErr := os.Stat(importOutputPath(path, "_imported.csv"))
	assert.True(t, os.IsNotExist(statErr), "no result file before a successful login")
}

func TestImport_PromptErrorBeforeLaunch(t *testing.T) {
	resetForTest(t)
	path := writeFile(t, "users.csv", inputHeader+"alice,อลิซ,ใจดี,Alice,Jaidee,,,,,\n")
	credentialPrompt = func(io.Reader, io.Writer) (portal.Credential, error) {
		return portal.Credential{}, errors.New("stdin closed")
	}

	_, err := runCommand(t, "import", path)
	assert.EqualError(t, err, "stdin closed")
}

func TestList_Arguments(t *testing.T) {
	resetForTest(t)

	_, err := runCommand(t, "list", "a.csv", "b.csv")
	assert.Equal(t, portal.KindArgument, portal.KindOf(err))

	_, err = runCommand(t, "list", "users.xlsx")
	assert.Equal(t, portal.KindArgument, portal.KindOf(err))
}

func TestList_LaunchFailure(t *testing.T) {
	resetForTest(t)
	launchBrowser = func(context.Context, config.BrowserConfig, *zap.Logger) (portal.Page, func(), error) {
		return nil, nil, errors.New("chrome not found")
	}

	_, err := runCommand(t, "list", filepath.Join(t.TempDir(), "users.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chrome not found")
	assert.Equal(t, err, reportError(err))
}

func TestVersionCommand(t *testing.T) {
	resetForTest(t)
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("workd-cli %s\n", Version), out)
}

func TestReportError(t *testing.T) {
	plain := errors.New("disk full")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"argument", portal.ArgumentError("expected 1 argument, got 2"), "invalid argument(s) (expected 1 argument, got 2)"},
		{"authentication", portal.AuthenticationFailed("Incorrect user ID or password."), "workD login failure (Incorrect user ID or password.)"},
		{"rejected", portal.Rejected("bob -> exists"), "failed to create user (bob -> exists)"},
		{"quota", fmt.Errorf("run: %w", portal.QuotaExhausted("bob -> quota")), "insufficient quota"},
		{"malformed", &records.MalformedInputError{Line: 3, Column: "fname_en", Reason: "missing value"}, ""},
		{"unexpected ui", fmt.Errorf("alice: submit: %w", portal.UnexpectedUI("click", errors.New("detached"))), "unexpected portal state (click: detached)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reportError(tt.err)
			assert.ErrorIs(t, got, tt.err)
			if tt.want != "" {
				assert.EqualError(t, got, tt.want)
			} else {
				assert.True(t, strings.HasPrefix(got.Error(), "malformed input ("))
			}
		})
	}

	assert.Same(t, plain, reportError(plain))
	assert.NoError(t, reportError(nil))
	assert.ErrorIs(t, reportError(fmt.Errorf("wait: %w", context.Canceled)), context.Canceled)
}

func TestCSVPaths(t *testing.T) {
	assert.NoError(t, validateCSVPath("users.csv"))
	assert.NoError(t, validateCSVPath("dir/USERS.CSV"))
	assert.Error(t, validateCSVPath("users.csv.bak"))
	assert.Error(t, validateCSVPath("users"))

	assert.Equal(t, "users_imported.csv", importOutputPath("users.csv", "_imported.csv"))
	assert.Equal(t, "dir/Users_imported.csv", importOutputPath("dir/Users.CSV", "_imported.csv"))
	assert.Equal(t, "a.csv.b_imported.csv", importOutputPath("a.csv.b.csv", "_imported.csv"))
}

func TestPendingInputs(t *testing.T) {
	inputs := []records.ProvisionInput{{Username: "alice@example.go.th"}, {Username: "bob"}, {Username: " carol "}}
	done := []records.ProvisionResult{
		{ProvisionInput: records.ProvisionInput{Username: "alice"}},
		{ProvisionInput: records.ProvisionInput{Username: "carol"}},
	}

	pending, skipped := pendingInputs(inputs, done)
	assert.Equal(t, 2, skipped)
	require.Len(t, pending, 1)
	assert.Equal(t, "bob", pending[0].Username)
}

func TestReadCompleted(t *testing.T) {
	got, err := readCompleted(filepath.Join(t.TempDir(), "missing.csv"))
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = readCompleted(writeFile(t, "empty.csv", ""))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOpenResultSink_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users_imported.csv")
	first := records.ProvisionResult{ProvisionInput: records.ProvisionInput{Username: "alice"}, Password: "pw1"}
	second := records.ProvisionResult{ProvisionInput: records.ProvisionInput{Username: "bob"}, Password: "pw2"}

	f, sink, err := openResultSink(path, true)
	require.NoError(t, err)
	require.NoError(t, sink.Write(first))
	require.NoError(t, f.Close())

	f, sink, err = openResultSink(path, true)
	require.NoError(t, err)
	require.NoError(t, sink.Write(second))
	require.NoError(t, f.Close())

	data, err := os.Open(path)
	require.NoError(t, err)
	defer data.Close()
	got, err := records.DecodeResults(data)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "bob", got[1].Username)
	assert.Equal(t, "pw2", got[1].Password)
}

func TestPromptCredential(t *testing.T) {
	resetForTest(t)
	readPassword = func(int) ([]byte, error) { return []byte("s3cret"), nil }

	var out bytes.Buffer
	cred, err := promptCredential(strings.NewReader("  admin@example.go.th \n"), &out)
	require.NoError(t, err)
	assert.Equal(t, portal.Credential{Identifier: "admin@example.go.th", Secret: "s3cret"}, cred)
	assert.Contains(t, out.String(), "workD username: ")
	assert.Contains(t, out.String(), "workD password: ")
	assert.NotContains(t, out.String(), "s3cret")

	_, err = promptCredential(strings.NewReader("\n"), &out)
	assert.Equal(t, portal.KindArgument, portal.KindOf(err))

	readPassword = func(int) ([]byte, error) { return nil, errors.New("not a terminal") }
	_, err = promptCredential(strings.NewReader("admin"), &out)
	assert.ErrorContains(t, err, "not a terminal")
}

func TestWriteSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	started := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	sum := &portal.Summary{
		RunID:       "6f1c2a4e-0000-4000-8000-000000000000",
		Started:     started,
		Finished:    started.Add(time.Minute),
		Provisioned:    1,
		Rejected:       1,
		QuotaExhausted: 1,
		Outcomes: []portal.Outcome{
			{Index: 0, Username: "alice", Status: portal.StatusProvisioned},
			{Index: 1, Username: "bob", Status: portal.StatusRejected, Kind: "rejected", Reason: "bob -> exists"},
			{Index: 2, Username: "carol", Status: portal.StatusQuotaExhausted, Kind: "quota", Reason: "carol -> quota"},
		},
	}
	require.NoError(t, writeSummary(path, sum))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, sum.RunID, decoded["run_id"])
	assert.EqualValues(t, 1, decoded["rejected"])
	assert.EqualValues(t, 1, decoded["quota_exhausted"])
	outcomes := decoded["outcomes"].([]any)
	require.Len(t, outcomes, 3)
	assert.Equal(t, "bob -> exists", outcomes[1].(map[string]any)["reason"])
	assert.Equal(t, "quota_exhausted", outcomes[2].(map[string]any)["status"])
	assert.Equal(t, "quota", outcomes[2].(map[string]any)["kind"])
	assert.NotContains(t, string(data), "Password")
}

func TestApplyFlagOverrides(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().Bool("headless", true, "")
	cmd.Flags().Duration("slow-motion", 0, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--headless=false", "--slow-motion=250ms"}))

	cfg := config.NewDefaultConfig()
	applyFlagOverrides(cmd.Flags(), cfg)
	assert.False(t, cfg.Browser().Headless)
	assert.Equal(t, 250*time.Millisecond, cfg.Browser().SlowMotion)

	untouched := &cobra.Command{}
	untouched.Flags().Bool("headless", false, "")
	untouched.Flags().Duration("slow-motion", 0, "")
	cfg = config.NewDefaultConfig()
	applyFlagOverrides(untouched.Flags(), cfg)
	assert.True(t, cfg.Browser().Headless)
}

func TestConfigFromContext(t *testing.T) {
	_, err := configFromContext(context.Background())
	assert.Error(t, err)
}
