package cmd

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/xkilldash9x/workd-cli/internal/browser"
	"github.com/xkilldash9x/workd-cli/internal/config"
	"github.com/xkilldash9x/workd-cli/internal/portal"
)

// launchBrowser starts the browser and opens the tab every workflow runs in.
// The returned func closes both and is safe to defer.
var launchBrowser = func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (portal.Page, func(), error) {
	mgr, err := browser.NewManager(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	page, err := mgr.NewPage()
	if err != nil {
		mgr.Close()
		return nil, nil, err
	}
	return page, func() {
		page.Close()
		mgr.Close()
	}, nil
}

// credentialPrompt is a seam for promptCredential.
var credentialPrompt = promptCredential

// openSession prompts for the login, launches the browser and signs in.
// On success the caller must call the returned close func.
func openSession(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer, logger *zap.Logger) (*portal.Driver, func(), error) {
	cred, err := credentialPrompt(in, out)
	if err != nil {
		return nil, nil, err
	}

	page, closeBrowser, err := launchBrowser(ctx, cfg.Browser(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start browser: %w", err)
	}

	driver := portal.NewDriver(page, cfg.Portal().BaseURL, cfg.Browser().SlowMotion, logger)
	if err := driver.Login(ctx, cred); err != nil {
		closeBrowser()
		return nil, nil, err
	}
	return driver, closeBrowser, nil
}
