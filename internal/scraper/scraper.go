package scraper

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a selector matches nothing.
	ErrNotFound = errors.New("element not found")
	// ErrWaitTimeout is returned by WaitUntil when the predicate never held.
	ErrWaitTimeout = errors.New("timed out waiting for condition")
)

// Page is the set of browser operations the extraction engine relies on.
// Any automation backend (rod, a static HTML document, a test fake) can
// satisfy it. None of the lookups wait; use WaitUntil for that.
type Page interface {
	// Text returns the rendered text of the first element matching selector.
	Text(selector string) (string, error)
	// HTML returns the outer markup of the first element matching selector.
	HTML(selector string) (string, error)
	// Attributes returns the named attribute of every match, in document order.
	// Elements without the attribute are skipped.
	Attributes(selector, name string) ([]string, error)
	// PageHTML returns the markup of the whole document.
	PageHTML() (string, error)
	// Has reports whether at least one element matches selector.
	Has(selector string) (bool, error)
	// Click scrolls the first match into view and clicks it.
	Click(selector string) error
	// ClickAll clicks every match in turn, pausing settle after each click,
	// and returns how many were clicked.
	ClickAll(ctx context.Context, selector string, settle time.Duration) (int, error)
	// ScrollIntoView scrolls the first match into the viewport.
	ScrollIntoView(selector string) error
	// ScrollBy scrolls the window down by dy pixels and reports whether the
	// bottom of the document has been reached.
	ScrollBy(dy int) (atBottom bool, err error)
}

// Tab is one browsing context of the session.
type Tab interface {
	Page
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error
	// Activate brings the tab to the foreground.
	Activate() error
	// Close destroys the tab.
	Close() error
}

// Session is the single browser session of a run.
type Session interface {
	// Main returns the tab the listing is browsed in.
	Main() Tab
	// NewTab opens a fresh tab configured with the session identity.
	NewTab(ctx context.Context) (Tab, error)
}

// WaitUntil polls cond every interval until it returns true, the timeout
// elapses, or ctx is done. Errors returned by cond count as "not yet".
func WaitUntil(ctx context.Context, timeout, interval time.Duration, cond func() (bool, error)) error {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ok, err := cond(); err == nil && ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return ErrWaitTimeout
		case <-ticker.C:
		}
	}
}

// Sleep pauses for d unless ctx is done first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
