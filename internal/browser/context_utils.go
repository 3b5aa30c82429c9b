// internal/browser/context_utils.go
package browser

import "context"

// CombineContext returns a context derived from ctx1 that is also cancelled
// when ctx2 is done. It carries ctx1's values, which is where chromedp keeps
// the tab a call is bound to, and ctx2's deadline in effect.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(ctx1)
	stop := context.AfterFunc(ctx2, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}
