// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/workd-cli/internal/config"
)

// Manager owns the browser process. Every Page it hands out is a tab of
// that one process.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	// allocatorCtx manages the browser process. All tab contexts derive from it.
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
}

// NewManager launches the browser and confirms it responds before returning.
// Cancelling ctx terminates the browser.
func NewManager(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
	}
	if err := m.launchBrowser(ctx); err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return m, nil
}

func (m *Manager) launchBrowser(ctx context.Context) error {
	m.logger.Info("Launching browser", zap.Bool("headless", m.cfg.Headless))

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, DefaultAllocatorOptions(m.cfg)...)
	m.allocatorCtx = allocCtx
	m.allocatorCancel = cancel

	testCtx, cancelTest := context.WithTimeout(allocCtx, m.cfg.LaunchTimeout)
	defer cancelTest()
	testCtx, cancelTab := chromedp.NewContext(testCtx)
	defer cancelTab()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		m.allocatorCancel()
		return fmt.Errorf("browser failed to start or respond: %w", err)
	}

	m.logger.Debug("Browser is responsive")
	return nil
}

// DefaultAllocatorOptions assembles the launch options for cfg.
func DefaultAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for name, value := range allocatorFlags(cfg) {
		opts = append(opts, chromedp.Flag(name, value))
	}
	opts = append(opts, chromedp.WindowSize(1366, 900))
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// allocatorFlags returns the command line flags layered over chromedp's
// defaults. A false value removes a default flag.
func allocatorFlags(cfg config.BrowserConfig) map[string]any {
	flags := map[string]any{
		"enable-automation":      false,
		"headless":               cfg.Headless,
		"disable-gpu":            cfg.Headless,
		"disable-blink-features": "AutomationControlled",
		"disable-extensions":     true,
	}
	if cfg.IgnoreTLSErrors {
		flags["ignore-certificate-errors"] = true
	}

	// Containers usually lack the namespaces the sandbox needs.
	if runtime.GOOS == "linux" {
		flags["no-sandbox"] = true
		flags["disable-dev-shm-usage"] = true
	}

	for _, arg := range cfg.Args {
		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			flags[name] = value
		} else {
			flags[name] = true
		}
	}
	return flags
}

// NewPage opens a new tab.
func (m *Manager) NewPage() (*Page, error) {
	tabCtx, cancel := chromedp.NewContext(m.allocatorCtx)
	// The first Run attaches the tab.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	p := newPage(tabCtx, cancel, m.cfg, m.logger)
	chromedp.ListenTarget(tabCtx, p.handleEvent)
	return p, nil
}

// Close terminates the browser process and waits for it to exit.
func (m *Manager) Close() {
	if m.allocatorCancel == nil {
		return
	}
	m.logger.Info("Shutting down browser")
	m.allocatorCancel()
	<-m.allocatorCtx.Done()
}
