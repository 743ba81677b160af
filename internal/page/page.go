// Package page defines the capability surface the funnel core needs from a
// browser page. The real implementation lives in internal/browser; tests use
// the fake in pagetest. Keeping the funnel behind this interface means none of
// the stage logic touches rod directly.
package page

import (
	"time"

	"github.com/ysmood/gson"
)

// Page is one open browser tab driven through a session.
type Page interface {
	// Navigate loads the URL and waits for the load event plus a bounded
	// network-idle window. The navigation timeout is owned by the
	// implementation.
	Navigate(url string) error

	// Status returns the HTTP status of the last top-level document
	// response, or 0 if none was observed.
	Status() int

	// URL returns the current page URL.
	URL() string

	// Element finds the first element matching the CSS selector within the
	// timeout.
	Element(selector string, timeout time.Duration) (Element, error)

	// ElementMatches finds the first element matching the CSS selector whose
	// visible text matches the regexp pattern, within the timeout.
	ElementMatches(selector, pattern string, timeout time.Duration) (Element, error)

	// Eval runs a JS function in the page and returns its value.
	Eval(js string, args ...any) (gson.JSON, error)

	// Screenshot captures the page as PNG bytes.
	Screenshot(fullPage bool) ([]byte, error)

	// Sleep pauses the session's control flow. Settle-waits go through here
	// so fakes can make them instant.
	Sleep(d time.Duration)

	// ConsoleErrors returns error-level console messages captured since the
	// page opened.
	ConsoleErrors() []string

	// FailedRequests returns descriptions of network requests that failed
	// since the page opened.
	FailedRequests() []string
}

// Element is a handle to one DOM element.
type Element interface {
	Visible() (bool, error)
	Disabled() (bool, error)
	ScrollIntoView() error
	Hover() error

	// Click performs a real mouse click, falling back to a scripted click
	// when pointer events are intercepted.
	Click() error

	// Eval runs a JS function with `this` bound to the element.
	Eval(js string, args ...any) (gson.JSON, error)
}
