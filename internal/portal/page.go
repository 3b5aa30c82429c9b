package portal

import "context"

// Strategy selects how a Locator's query is interpreted.
type Strategy int

const (
	ByCSS Strategy = iota
	ByXPath
)

// Locator names one element (or set of elements) on a portal screen.
type Locator struct {
	Query string
	By    Strategy
}

// CSS returns a locator for a CSS selector.
func CSS(query string) Locator { return Locator{Query: query, By: ByCSS} }

// XPath returns a locator for an XPath expression.
func XPath(query string) Locator { return Locator{Query: query, By: ByXPath} }

func (l Locator) String() string {
	if l.By == ByXPath {
		return "xpath:" + l.Query
	}
	return "css:" + l.Query
}

// Page is the single browser tab the workflows drive. Every method that
// waits for an element is bounded by the implementation's action timeout
// and returns an error when the element does not appear in time.
//
// Implementations need not be safe for concurrent use, except that
// ReadText may be called from several goroutines at once while racing
// markers against each other.
type Page interface {
	// Navigate loads url and waits for the document to be ready.
	Navigate(ctx context.Context, url string) error
	// WaitFor blocks until loc matches a visible element.
	WaitFor(ctx context.Context, loc Locator) error
	// Type waits for loc and sends value to it as key presses.
	Type(ctx context.Context, loc Locator, value string) error
	// Click waits for loc and clicks the first matching element.
	Click(ctx context.Context, loc Locator) error
	// ReadText waits for loc and returns the text content of the first match.
	ReadText(ctx context.Context, loc Locator) (string, error)
	// Exists reports whether loc currently matches anything, without waiting.
	Exists(ctx context.Context, loc Locator) (bool, error)
	// ReadRows returns the text of every cell of every element matching rows.
	ReadRows(ctx context.Context, rows Locator) ([][]string, error)
	// RemoveAll deletes every element matching loc from the live document.
	RemoveAll(ctx context.Context, loc Locator) error
}

// Credential is the operator's portal login. It is held only for the
// duration of Login and never written anywhere.
type Credential struct {
	Identifier string
	Secret     string
}

// Screen is a named portal screen with a marker unique to it.
type Screen int

const (
	ScreenUnknown Screen = iota
	ScreenPortal
	ScreenListing
	ScreenCreation
)

func (s Screen) String() string {
	switch s {
	case ScreenPortal:
		return "portal"
	case ScreenListing:
		return "listing"
	case ScreenCreation:
		return "creation"
	default:
		return "unknown"
	}
}
