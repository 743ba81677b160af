// Package funnel drives one browser session through a storefront purchase
// funnel: configure product options, add to cart, reach checkout. Each step
// is a declarative Stage interpreted by the generic runner in machine.go;
// failures become issue records, never propagated faults.
package funnel

import (
	"github.com/sirupsen/logrus"

	"github.com/v0xg/funnelqa/internal/page"
	"github.com/v0xg/funnelqa/internal/report"
	"github.com/v0xg/funnelqa/internal/resolver"
)

// Verification is an optional post-action probe. When Severity is set, a
// false probe result is recorded as an issue; otherwise the result is
// advisory and only logged.
type Verification struct {
	Probe    func(p page.Page) (bool, error)
	Severity report.Severity
	Category string
	Describe func(p page.Page) string
}

// Stage is one step of the funnel.
type Stage struct {
	// Name identifies the stage in outcomes and logs.
	Name string
	// Slug labels the stage's screenshots, e.g. "03_seats_selected".
	Slug string
	// Candidates are tried in order; the first visible (and enabled, when
	// required) match is acted on.
	Candidates []resolver.Locator
	// RequireEnabled rejects disabled matches during resolution.
	RequireEnabled bool

	// FailSeverity and Category describe the issue emitted when no
	// candidate could be resolved and clicked.
	FailSeverity report.Severity
	Category     string
	FailText     string

	// Fatal aborts forward progress for the session when the stage fails;
	// remaining stages are skipped but captured material is preserved.
	Fatal bool
	// MarksFailed flags the session as failed without stopping later stages
	// (they still run for diagnostic screenshot value).
	MarksFailed bool

	// Precondition, when it reports true, means the stage is already
	// satisfied and the click is skipped entirely.
	Precondition func(p page.Page) bool
	// Unlock runs after a first failed attempt; when it reports true the
	// stage is retried exactly once.
	Unlock func(p page.Page, log logrus.FieldLogger) bool
	// Verify runs after a successful click.
	Verify *Verification
}

// Outcome is the immutable record of one completed stage.
type Outcome struct {
	Stage       string   `json:"stage"`
	Succeeded   bool     `json:"succeeded"`
	Skipped     bool     `json:"skipped,omitempty"`
	UsedLocator string   `json:"usedLocator,omitempty"`
	Verified    *bool    `json:"verified,omitempty"`
	Screenshots []string `json:"screenshots,omitempty"`
}

// Stage names, referenced by tests and the session summary.
const (
	StageSeatUnlock = "advance to seat selection"
	StageSeatType   = "select seat type"
	StageColorCTA   = "advance to color selection"
	StageColorPick  = "select color"
	StageAddToCart  = "add to cart"
	StageCheckout   = "continue to checkout"
)

// DefaultStages returns the storefront funnel. Candidate lists encode the
// markup variants seen across themes; order is preference order.
func DefaultStages() []Stage {
	return []Stage{
		{
			Name: StageSeatUnlock,
			Slug: "02_choose_seats",
			Candidates: []resolver.Locator{
				{Selector: "button", Text: `Choose.*Seats?`},
				{Selector: "button", Text: `Select.*Seats?`},
				{Selector: `button[class*="seat"]`},
				{Selector: `a[href*="#seat"]`},
			},
			RequireEnabled: true,
			FailSeverity:   report.SeverityCritical,
			Category:       "Seat Stage Locked",
			FailText:       "Could not advance to seat selection; attribute unlock exhausted",
			Fatal:          true,
			Precondition:   SeatInputsPresent,
			Unlock:         UnlockVehicleAttributes,
		},
		{
			Name: StageSeatType,
			Slug: "03_seats_selected",
			Candidates: []resolver.Locator{
				{Selector: `input[type="radio"][value*="Front"][value*="Rear"]`},
				{Selector: `input[value*="Front & Rear"]`},
				{Selector: `input[value*="front-rear"]`},
				{Selector: `label`, Text: `Front\s*&\s*Rear`},
				{Selector: `input[id*="front-rear"]`},
				{Selector: `input[name*="seat"][value*="both"]`},
			},
			FailSeverity: report.SeverityHigh,
			Category:     "Element Not Found",
			FailText:     `Could not find "Front & Rear Seats" option`,
			Verify: &Verification{
				Probe: func(p page.Page) (bool, error) {
					return AnyChecked(p, `input[name*="seat"], input[value*="Front"]`)
				},
			},
		},
		{
			Name: StageColorCTA,
			Slug: "05_color_options_visible",
			Candidates: []resolver.Locator{
				{Selector: "button", Text: `Select Colou?r`},
				{Selector: "button", Text: `Choose Colou?r`},
				{Selector: "a", Text: `Select Colou?r`},
				{Selector: `button[class*="color"]`},
				{Selector: ".color-selector button"},
			},
			FailSeverity: report.SeverityHigh,
			Category:     "Color Stage",
			FailText:     "Color selection button not found or not clickable",
		},
		{
			Name: StageColorPick,
			Slug: "07_color_selected",
			Candidates: []resolver.Locator{
				{Selector: "button", Text: `^Black$`},
				{Selector: "label", Text: `^Black$`},
				{Selector: `input[value*="black"]`},
				{Selector: `div[data-color="black"]`},
				{Selector: `button[title*="Black"]`},
				{Selector: `button[class*="color-option"]:first-child`},
				{Selector: ".color-swatch:first-child"},
			},
			FailSeverity: report.SeverityMedium,
			Category:     "Color Selection",
			FailText:     "Could not select a color option",
			Verify: &Verification{
				Probe: func(p page.Page) (bool, error) {
					return AnyChecked(p, `input[name*="color"], input[value*="black"]`)
				},
			},
		},
		{
			Name: StageAddToCart,
			Slug: "09_added_to_cart",
			Candidates: []resolver.Locator{
				{Selector: "button", Text: `Add to Cart`},
				{Selector: `button[name="add"]`},
				{Selector: `button[type="submit"]`, Text: `Add`},
				{Selector: `input[type="submit"][value*="Add"]`},
				{Selector: "button.add-to-cart"},
				{Selector: `button[class*="add-cart"]`},
				{Selector: ".product-form__submit"},
			},
			RequireEnabled: true,
			FailSeverity:   report.SeverityCritical,
			Category:       "Add to Cart Failed",
			FailText:       "Could not add product to cart",
			MarksFailed:    true,
		},
		{
			Name: StageCheckout,
			Slug: "11_checkout",
			Candidates: []resolver.Locator{
				{Selector: "button", Text: `Continue to Checkout`},
				{Selector: "a", Text: `Continue to Checkout`},
				{Selector: "button", Text: `Checkout`},
				{Selector: "a", Text: `Checkout`},
				{Selector: `a[href*="checkout"]`},
				{Selector: `button[class*="checkout"]`},
				{Selector: "button.btn-checkout"},
			},
			FailSeverity: report.SeverityCritical,
			Category:     "Checkout Button Not Found",
			FailText:     "Could not find or click checkout button",
			MarksFailed:  true,
			Verify: &Verification{
				Probe:    func(p page.Page) (bool, error) { return CheckoutReached(p), nil },
				Severity: report.SeverityMedium,
				Category: "Checkout Navigation",
				Describe: func(p page.Page) string {
					return "Clicked checkout but URL is: " + p.URL()
				},
			},
		},
	}
}
