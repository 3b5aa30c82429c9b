package portal

import (
	"context"
	"strconv"
	"strings"
	"sync"
)

// fakePage is a scripted Page. Locators are keyed by Locator.String().
//
// ReadText returns the scripted text, or blocks until ctx is done when none
// is set. WaitFor succeeds unless the locator is marked missing. When pages
// is set, it also simulates the paginated user table: rows are visible until
// RemoveAll, and clicking a page number control renders that page.
type fakePage struct {
	mu sync.Mutex

	texts    map[string]string
	failures map[string]error
	missing  map[string]bool
	present  map[string]bool
	onClick  map[string]func(p *fakePage)

	typed     map[string]string
	calls     []string
	navigated []string

	pages     [][][]string
	pageIdx   int
	rowsShown bool
}

func newFakePage() *fakePage {
	return &fakePage{
		texts:    map[string]string{},
		failures: map[string]error{},
		missing:  map[string]bool{},
		present:  map[string]bool{},
		onClick:  map[string]func(p *fakePage){},
		typed:    map[string]string{},
	}
}

func (p *fakePage) withTable(pages ...[][]string) *fakePage {
	p.pages = pages
	p.pageIdx = 0
	p.rowsShown = len(pages) > 0
	return p
}

func (p *fakePage) record(op string, loc Locator) {
	p.calls = append(p.calls, op+" "+loc.String())
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigated = append(p.navigated, url)
	return nil
}

func (p *fakePage) WaitFor(ctx context.Context, loc Locator) error {
	p.mu.Lock()
	p.record("wait", loc)
	if err := p.failures[loc.String()]; err != nil {
		p.mu.Unlock()
		return err
	}
	blocked := p.missing[loc.String()] || (p.pages != nil && loc == locTableRow && !p.rowsShown)
	p.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (p *fakePage) Type(_ context.Context, loc Locator, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("type", loc)
	if err := p.failures[loc.String()]; err != nil {
		return err
	}
	p.typed[loc.String()] = value
	return nil
}

func (p *fakePage) Click(_ context.Context, loc Locator) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("click", loc)
	if err := p.failures[loc.String()]; err != nil {
		return err
	}
	if n, ok := pageNumberOf(loc); ok && p.pages != nil {
		p.pageIdx = n - 1
		p.rowsShown = true
	}
	if hook := p.onClick[loc.String()]; hook != nil {
		hook(p)
	}
	return nil
}

func (p *fakePage) ReadText(ctx context.Context, loc Locator) (string, error) {
	p.mu.Lock()
	p.record("read", loc)
	if err := p.failures[loc.String()]; err != nil {
		p.mu.Unlock()
		return "", err
	}
	text, ok := p.texts[loc.String()]
	p.mu.Unlock()

	if ok {
		return text, nil
	}
	<-ctx.Done()
	return "", ctx.Err()
}

func (p *fakePage) Exists(_ context.Context, loc Locator) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("exists", loc)
	if n, ok := pageNumberOf(loc); ok && p.pages != nil {
		return n <= len(p.pages), nil
	}
	return p.present[loc.String()], nil
}

func (p *fakePage) ReadRows(_ context.Context, loc Locator) ([][]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("rows", loc)
	if err := p.failures[loc.String()]; err != nil {
		return nil, err
	}
	if p.pages == nil || !p.rowsShown {
		return nil, nil
	}
	return p.pages[p.pageIdx], nil
}

func (p *fakePage) RemoveAll(_ context.Context, loc Locator) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("remove", loc)
	if loc == locTableRow {
		p.rowsShown = false
	}
	return nil
}

func (p *fakePage) callLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakePage) countCalls(op string, loc Locator) int {
	want := op + " " + loc.String()
	n := 0
	for _, c := range p.callLog() {
		if c == want {
			n++
		}
	}
	return n
}

func pageNumberOf(loc Locator) (int, bool) {
	const prefix, suffix = `//div[text()="`, `"]`
	if loc.By != ByXPath || !strings.HasPrefix(loc.Query, prefix) || !strings.HasSuffix(loc.Query, suffix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(loc.Query, prefix), suffix))
	return n, err == nil
}
