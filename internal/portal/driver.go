package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Driver owns the authenticated portal session on a single Page. It knows
// which screen is showing and paces every UI action it performs.
// A Driver is not safe for concurrent use.
type Driver struct {
	page    Page
	baseURL string
	logger  *zap.Logger
	limiter *rate.Limiter
	current Screen
}

// NewDriver returns a Driver for the portal at baseURL. When slowMotion is
// positive, consecutive UI actions are spaced at least that far apart.
func NewDriver(page Page, baseURL string, slowMotion time.Duration, logger *zap.Logger) *Driver {
	d := &Driver{
		page:    page,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.Named("session"),
	}
	if slowMotion > 0 {
		d.limiter = rate.NewLimiter(rate.Every(slowMotion), 1)
	}
	return d
}

// Current returns the last screen confirmed by its marker.
func (d *Driver) Current() Screen { return d.current }

// Require fails with an UnexpectedUI error unless the current screen is s.
func (d *Driver) Require(s Screen) error {
	if d.current != s {
		return UnexpectedUI(fmt.Sprintf("expected %s screen, on %s screen", s, d.current), nil)
	}
	return nil
}

// Login signs in and lands on the portal home screen. After submitting the
// form it races the home-screen marker against the login error marker; the
// first one to appear decides the outcome.
func (d *Driver) Login(ctx context.Context, cred Credential) error {
	d.logger.Info("Logging in", zap.String("identifier", cred.Identifier))
	d.current = ScreenUnknown

	if err := d.page.Navigate(ctx, d.baseURL+loginPath); err != nil {
		return classify(ctx, "open login page", err)
	}
	if err := d.typeInto(ctx, locUsernameField, cred.Identifier); err != nil {
		return err
	}
	if err := d.typeInto(ctx, locPasswordField, cred.Secret); err != nil {
		return err
	}
	if err := d.click(ctx, locLoginSubmit); err != nil {
		return err
	}

	winner, text, err := d.race(ctx, locLoginSuccess, locLoginError)
	if err != nil {
		return classify(ctx, "wait for login result", err)
	}
	if winner != 0 {
		return AuthenticationFailed(strings.TrimSpace(text))
	}

	d.current = ScreenPortal
	d.logger.Info("Logged in")
	return nil
}

// race waits for the first of markers to appear and returns its index and
// text. The waits still running are cancelled and joined before returning.
func (d *Driver) race(ctx context.Context, markers ...Locator) (int, string, error) {
	type hit struct {
		index int
		text  string
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	hits := make(chan hit, len(markers))
	g, gctx := errgroup.WithContext(raceCtx)
	for i, m := range markers {
		g.Go(func() error {
			text, err := d.page.ReadText(gctx, m)
			if err != nil {
				return fmt.Errorf("%s: %w", m, err)
			}
			hits <- hit{index: i, text: text}
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case h := <-hits:
		cancel()
		<-done
		return h.index, h.text, nil
	case err := <-done:
		// Every wait has returned; one may still have succeeded just before another failed.
		select {
		case h := <-hits:
			return h.index, h.text, nil
		default:
		}
		if err == nil {
			err = errors.New("no marker appeared")
		}
		return -1, "", err
	}
}

// NavigateTo moves to screen s and blocks until its marker appears.
func (d *Driver) NavigateTo(ctx context.Context, s Screen) error {
	switch s {
	case ScreenListing:
		if d.current == ScreenListing {
			return nil
		}
		if d.current == ScreenPortal {
			if err := d.click(ctx, locUserManagementCard); err != nil {
				return err
			}
		} else if err := d.click(ctx, locNavHome); err != nil {
			return err
		}
		if err := d.waitFor(ctx, locListingHeading); err != nil {
			return err
		}
	case ScreenCreation:
		if err := d.NavigateTo(ctx, ScreenListing); err != nil {
			return err
		}
		if err := d.click(ctx, locAddUserLink); err != nil {
			return err
		}
		if err := d.waitFor(ctx, locEmailField); err != nil {
			return err
		}
	default:
		return UnexpectedUI(fmt.Sprintf("cannot navigate to %s screen", s), nil)
	}

	d.current = s
	d.logger.Debug("Opened screen", zap.Stringer("screen", s))
	return nil
}

// ReturnToListing follows the navigation bar back to the user listing,
// whatever screen the session is on.
func (d *Driver) ReturnToListing(ctx context.Context) error {
	d.current = ScreenUnknown
	if err := d.click(ctx, locNavHome); err != nil {
		return err
	}
	if err := d.waitFor(ctx, locListingHeading); err != nil {
		return err
	}
	d.current = ScreenListing
	return nil
}

func (d *Driver) pace(ctx context.Context) error {
	if d.limiter == nil {
		return nil
	}
	return d.limiter.Wait(ctx)
}

func (d *Driver) waitFor(ctx context.Context, loc Locator) error {
	if err := d.pace(ctx); err != nil {
		return classify(ctx, "pace", err)
	}
	return classify(ctx, "wait for "+loc.String(), d.page.WaitFor(ctx, loc))
}

func (d *Driver) click(ctx context.Context, loc Locator) error {
	if err := d.pace(ctx); err != nil {
		return classify(ctx, "pace", err)
	}
	return classify(ctx, "click "+loc.String(), d.page.Click(ctx, loc))
}

func (d *Driver) typeInto(ctx context.Context, loc Locator, value string) error {
	if err := d.pace(ctx); err != nil {
		return classify(ctx, "pace", err)
	}
	return classify(ctx, "type into "+loc.String(), d.page.Type(ctx, loc, value))
}

func (d *Driver) readText(ctx context.Context, loc Locator) (string, error) {
	if err := d.pace(ctx); err != nil {
		return "", classify(ctx, "pace", err)
	}
	text, err := d.page.ReadText(ctx, loc)
	return text, classify(ctx, "read "+loc.String(), err)
}

func (d *Driver) exists(ctx context.Context, loc Locator) (bool, error) {
	ok, err := d.page.Exists(ctx, loc)
	return ok, classify(ctx, "look up "+loc.String(), err)
}

func (d *Driver) readRows(ctx context.Context, loc Locator) ([][]string, error) {
	rows, err := d.page.ReadRows(ctx, loc)
	return rows, classify(ctx, "read rows "+loc.String(), err)
}

func (d *Driver) removeAll(ctx context.Context, loc Locator) error {
	return classify(ctx, "remove "+loc.String(), d.page.RemoveAll(ctx, loc))
}
