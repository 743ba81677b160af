// Package resolver finds the first usable element among an ordered list of
// locator candidates. Real storefront markup varies by theme and render
// timing, so the candidate list encodes fallback preference and the first
// visible (and, when required, enabled) match wins outright. Lookup failures
// never propagate; each miss is recorded with its reason so callers can tell
// "didn't exist" from "existed but blocked".
package resolver

import (
	"fmt"
	"time"

	"github.com/v0xg/funnelqa/internal/page"
)

// Locator is one strategy for finding a target element. Selector is a CSS
// selector; when Text is set, the element's visible text must also match the
// regexp pattern.
type Locator struct {
	Selector string
	Text     string
}

func (l Locator) String() string {
	if l.Text != "" {
		return fmt.Sprintf("%s ~ /%s/", l.Selector, l.Text)
	}
	return l.Selector
}

// MissReason classifies why a candidate did not match.
type MissReason int

const (
	MissNotFound MissReason = iota
	MissNotVisible
	MissDisabled
)

func (r MissReason) String() string {
	switch r {
	case MissNotFound:
		return "not found"
	case MissNotVisible:
		return "not visible"
	case MissDisabled:
		return "disabled"
	}
	return "unknown"
}

// Miss records one candidate that was tried and rejected.
type Miss struct {
	Locator Locator
	Reason  MissReason
}

// Match is the winning candidate and its element.
type Match struct {
	Element page.Element
	Locator Locator
}

// Options bounds a resolution pass.
type Options struct {
	// Timeout applies per candidate lookup.
	Timeout time.Duration
	// RequireEnabled rejects elements with disabled=true (buttons, inputs).
	RequireEnabled bool
}

// First returns the first candidate, in list order, that is present and
// visible (and enabled when required). Later candidates are not consulted
// once one matches. Returns nil and the full miss list when nothing matched.
func First(p page.Page, candidates []Locator, opts Options) (*Match, []Miss) {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}

	var misses []Miss
	for _, c := range candidates {
		el, err := lookup(p, c, opts.Timeout)
		if err != nil || el == nil {
			misses = append(misses, Miss{Locator: c, Reason: MissNotFound})
			continue
		}

		visible, err := el.Visible()
		if err != nil || !visible {
			misses = append(misses, Miss{Locator: c, Reason: MissNotVisible})
			continue
		}

		if opts.RequireEnabled {
			disabled, err := el.Disabled()
			if err == nil && disabled {
				misses = append(misses, Miss{Locator: c, Reason: MissDisabled})
				continue
			}
		}

		return &Match{Element: el, Locator: c}, misses
	}

	return nil, misses
}

func lookup(p page.Page, c Locator, timeout time.Duration) (el page.Element, err error) {
	// rod panics on some malformed selectors; a bad candidate is a miss,
	// not a fault.
	defer func() {
		if r := recover(); r != nil {
			el, err = nil, fmt.Errorf("lookup panic: %v", r)
		}
	}()

	if c.Text != "" {
		return p.ElementMatches(c.Selector, c.Text, timeout)
	}
	return p.Element(c.Selector, timeout)
}
