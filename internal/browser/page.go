// internal/browser/page.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/workd-cli/internal/config"
	"github.com/xkilldash9x/workd-cli/internal/portal"
)

// Page is a single browser tab driven over the DevTools protocol.
type Page struct {
	ctx    context.Context // tab context, carries the CDP target
	cancel context.CancelFunc
	logger *zap.Logger

	actionTimeout     time.Duration
	navigationTimeout time.Duration

	runActionsFunc func(ctx context.Context, actions ...chromedp.Action) error
}

var _ portal.Page = (*Page)(nil)

func newPage(tabCtx context.Context, cancel context.CancelFunc, cfg config.BrowserConfig, logger *zap.Logger) *Page {
	p := &Page{
		ctx:               tabCtx,
		cancel:            cancel,
		logger:            logger.Named("page"),
		actionTimeout:     cfg.ActionTimeout,
		navigationTimeout: cfg.NavigationTimeout,
	}
	p.runActionsFunc = p.runActions
	return p
}

// runActions runs actions on the tab, bounded by the caller's ctx.
func (p *Page) runActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(p.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// run applies timeout to ctx and runs actions, naming op in a timeout error.
func (p *Page) run(ctx context.Context, op string, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := p.runActionsFunc(opCtx, actions...)
	if err != nil && ctx.Err() == nil && errors.Is(opCtx.Err(), context.DeadlineExceeded) {
		p.logger.Debug("Action timed out", zap.String("op", op), zap.Duration("timeout", timeout))
		return fmt.Errorf("%s timed out after %v: %w", op, timeout, opCtx.Err())
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func queryOption(loc portal.Locator) chromedp.QueryOption {
	if loc.By == portal.ByXPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// Navigate loads url and waits until the document body is ready.
func (p *Page) Navigate(ctx context.Context, url string) error {
	p.logger.Debug("Navigating", zap.String("url", url))
	return p.run(ctx, "navigate", p.navigationTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// WaitFor blocks until loc matches a visible element.
func (p *Page) WaitFor(ctx context.Context, loc portal.Locator) error {
	return p.run(ctx, "wait for "+loc.String(), p.actionTimeout,
		chromedp.WaitVisible(loc.Query, queryOption(loc)),
	)
}

// Type waits for loc to be visible and sends value as key presses.
func (p *Page) Type(ctx context.Context, loc portal.Locator, value string) error {
	by := queryOption(loc)
	actions := []chromedp.Action{chromedp.WaitVisible(loc.Query, by)}
	if value != "" {
		actions = append(actions, chromedp.SendKeys(loc.Query, value, by, chromedp.NodeVisible))
	}
	return p.run(ctx, "type into "+loc.String(), p.actionTimeout, actions...)
}

// Click waits for loc to be visible and clicks the first match.
func (p *Page) Click(ctx context.Context, loc portal.Locator) error {
	return p.run(ctx, "click "+loc.String(), p.actionTimeout,
		chromedp.Click(loc.Query, queryOption(loc), chromedp.NodeVisible),
	)
}

// ReadText waits for loc to be visible and returns its text content.
func (p *Page) ReadText(ctx context.Context, loc portal.Locator) (string, error) {
	var text string
	err := p.run(ctx, "read "+loc.String(), p.actionTimeout,
		chromedp.TextContent(loc.Query, &text, queryOption(loc), chromedp.NodeVisible),
	)
	return text, err
}

// Exists reports whether loc matches anything right now.
func (p *Page) Exists(ctx context.Context, loc portal.Locator) (bool, error) {
	expr, err := existsExpr(loc)
	if err != nil {
		return false, err
	}
	var found bool
	err = p.run(ctx, "look up "+loc.String(), p.actionTimeout, chromedp.Evaluate(expr, &found))
	return found, err
}

// ReadRows returns the untrimmed text content of the cells of every element
// matching rows.
func (p *Page) ReadRows(ctx context.Context, rows portal.Locator) ([][]string, error) {
	expr, err := rowsExpr(rows)
	if err != nil {
		return nil, err
	}
	var out [][]string
	err = p.run(ctx, "read rows "+rows.String(), p.actionTimeout, chromedp.Evaluate(expr, &out))
	return out, err
}

// RemoveAll deletes every element matching loc from the document.
func (p *Page) RemoveAll(ctx context.Context, loc portal.Locator) error {
	expr, err := removeExpr(loc)
	if err != nil {
		return err
	}
	var removed int
	if err := p.run(ctx, "remove "+loc.String(), p.actionTimeout, chromedp.Evaluate(expr, &removed)); err != nil {
		return err
	}
	p.logger.Debug("Removed elements", zap.String("locator", loc.String()), zap.Int("count", removed))
	return nil
}

// handleEvent accepts native JavaScript dialogs. An open alert or confirm
// blocks every other command on the tab until it is handled.
func (p *Page) handleEvent(ev any) {
	e, ok := ev.(*page.EventJavascriptDialogOpening)
	if !ok {
		return
	}
	p.logger.Warn("Accepting native dialog", zap.String("type", e.Type.String()), zap.String("message", e.Message))
	// Event handlers must not block the event loop.
	go func() {
		if err := chromedp.Run(p.ctx, page.HandleJavaScriptDialog(true)); err != nil {
			p.logger.Debug("Failed to handle dialog", zap.Error(err))
		}
	}()
}

// Close closes the tab.
func (p *Page) Close() {
	if p.cancel != nil {
		p.cancel()
	}
}
