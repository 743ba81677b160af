// Package pagetest provides in-memory fakes of the page interfaces so the
// resolver and funnel can be tested without a browser.
package pagetest

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"strings"
	"time"

	"github.com/ysmood/gson"

	"github.com/v0xg/funnelqa/internal/page"
)

// Element is a scriptable fake element. The zero value is invisible; use
// NewElement for a visible, enabled one.
type Element struct {
	VisibleVal  bool
	DisabledVal bool
	VisibleErr  error
	ClickErr    error
	HoverErr    error
	ScrollErr   error

	Clicks  int
	Hovers  int
	Scrolls int

	// OnClick runs after a successful click; tests use it to mutate page
	// state the way a real click would.
	OnClick func()

	// EvalFn overrides element-scoped Eval; defaults to a nil result.
	EvalFn func(js string, args ...any) (gson.JSON, error)
}

// NewElement returns a visible, enabled element.
func NewElement() *Element {
	return &Element{VisibleVal: true}
}

func (e *Element) Visible() (bool, error)  { return e.VisibleVal, e.VisibleErr }
func (e *Element) Disabled() (bool, error) { return e.DisabledVal, nil }

func (e *Element) ScrollIntoView() error {
	e.Scrolls++
	return e.ScrollErr
}

func (e *Element) Hover() error {
	e.Hovers++
	return e.HoverErr
}

func (e *Element) Click() error {
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.Clicks++
	if e.OnClick != nil {
		e.OnClick()
	}
	return nil
}

func (e *Element) Eval(js string, args ...any) (gson.JSON, error) {
	if e.EvalFn != nil {
		return e.EvalFn(js, args...)
	}
	return gson.New(nil), nil
}

// Page is a scriptable fake page. Elements are registered against the exact
// selector (and text pattern) a locator will use.
type Page struct {
	Elements map[string]page.Element

	// EvalFn overrides page-scoped Eval; the default answers the funnel's
	// probe scripts with empty-page results.
	EvalFn func(js string, args ...any) (gson.JSON, error)

	NavigateErr   error
	ScreenshotErr error
	StatusVal     int
	URLVal        string
	ConsoleErrs   []string
	FailedReqs    []string

	Navigations []string
	Lookups     []string
	Shots       int
	Slept       time.Duration
}

var _ page.Page = (*Page)(nil)

// New returns an empty page that answers every lookup with "not found" and
// every probe with empty-page results.
func New() *Page {
	return &Page{
		Elements:  map[string]page.Element{},
		StatusVal: 200,
	}
}

// Key builds the registration key for a locator's selector and optional text
// pattern.
func Key(selector, pattern string) string {
	if pattern == "" {
		return selector
	}
	return selector + "\x00" + pattern
}

// Add registers an element under a plain CSS selector.
func (p *Page) Add(selector string, el page.Element) {
	p.Elements[Key(selector, "")] = el
}

// AddText registers an element under a selector + text-pattern locator.
func (p *Page) AddText(selector, pattern string, el page.Element) {
	p.Elements[Key(selector, pattern)] = el
}

func (p *Page) Navigate(url string) error {
	p.Navigations = append(p.Navigations, url)
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	if p.URLVal == "" {
		p.URLVal = url
	}
	return nil
}

func (p *Page) Status() int { return p.StatusVal }
func (p *Page) URL() string { return p.URLVal }

func (p *Page) Element(selector string, timeout time.Duration) (page.Element, error) {
	return p.find(Key(selector, ""))
}

func (p *Page) ElementMatches(selector, pattern string, timeout time.Duration) (page.Element, error) {
	return p.find(Key(selector, pattern))
}

func (p *Page) find(key string) (page.Element, error) {
	p.Lookups = append(p.Lookups, key)
	el, ok := p.Elements[key]
	if !ok {
		return nil, errors.New("element not found")
	}
	return el, nil
}

func (p *Page) Eval(js string, args ...any) (gson.JSON, error) {
	if p.EvalFn != nil {
		return p.EvalFn(js, args...)
	}
	return DefaultEval(js, args...)
}

// DefaultEval answers the funnel's probe scripts the way an empty page
// would: no broken images, no seat inputs, nothing checked, no selects
// changed, no timing entry.
func DefaultEval(js string, args ...any) (gson.JSON, error) {
	switch {
	case strings.Contains(js, "el.checked"):
		return gson.New(false), nil
	case strings.Contains(js, "getEntriesByType"):
		return gson.New(nil), nil
	default:
		return gson.New(0), nil
	}
}

func (p *Page) Screenshot(fullPage bool) ([]byte, error) {
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	p.Shots++
	return tinyPNG()
}

func (p *Page) Sleep(d time.Duration) {
	p.Slept += d
}

func (p *Page) ConsoleErrors() []string  { return p.ConsoleErrs }
func (p *Page) FailedRequests() []string { return p.FailedReqs }

func tinyPNG() ([]byte, error) {
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
