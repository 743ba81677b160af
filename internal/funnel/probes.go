package funnel

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/v0xg/funnelqa/internal/capture"
	"github.com/v0xg/funnelqa/internal/page"
)

// Anomaly probes. These inspect page state explicitly and report data; they
// never raise, so a broken page yields zero counts rather than a fault.

const brokenImagesJS = `() => Array.from(document.querySelectorAll('img'))
	.filter(img => !img.complete || img.naturalWidth === 0)
	.length`

// BrokenImages counts image elements whose load did not complete or resolved
// to zero natural width.
func BrokenImages(p page.Page) int {
	v, err := p.Eval(brokenImagesJS)
	if err != nil {
		return 0
	}
	return v.Int()
}

const seatInputsJS = `() => {
	const inputs = document.querySelectorAll(
		'input[name*="seat"], input[value*="Front"], input[id*="seat"]');
	let visible = 0;
	inputs.forEach(el => { if (el.offsetParent) visible++; });
	return visible;
}`

// SeatInputsPresent reports whether seat option inputs are already rendered,
// meaning the seat stage does not need its unlock CTA.
func SeatInputsPresent(p page.Page) bool {
	v, err := p.Eval(seatInputsJS)
	if err != nil {
		return false
	}
	return v.Int() > 0
}

const anyCheckedJS = `(sel) => {
	const inputs = document.querySelectorAll(sel);
	for (const el of inputs) {
		if (el.checked) return true;
	}
	return false;
}`

// AnyChecked reports whether any input matching the selector is checked.
func AnyChecked(p page.Page, selector string) (bool, error) {
	v, err := p.Eval(anyCheckedJS, selector)
	if err != nil {
		return false, err
	}
	return v.Bool(), nil
}

// unlockSelectsJS picks the first non-placeholder option of each matching
// select that still sits on its placeholder, then fires input/change so the
// theme's JS notices. Returns how many selects were changed.
const unlockSelectsJS = `(sel) => {
	let changed = 0;
	document.querySelectorAll(sel).forEach(select => {
		if (select.selectedIndex > 0 && select.value) return;
		for (let i = 0; i < select.options.length; i++) {
			const opt = select.options[i];
			if (!opt.value || opt.disabled) continue;
			select.value = opt.value;
			select.dispatchEvent(new Event('input', { bubbles: true }));
			select.dispatchEvent(new Event('change', { bubbles: true }));
			changed++;
			break;
		}
	});
	return changed;
}`

// vehicleAttributeSelects matches the required vehicle attribute dropdowns
// (trim, cab size) that gate the seat stage on some storefronts.
const vehicleAttributeSelects = `select[name*="trim" i], select[id*="trim" i],` +
	` select[name*="cab" i], select[id*="cab" i],` +
	` select[data-option*="trim" i], select[data-option*="cab" i]`

// UnlockVehicleAttributes applies a first valid choice to each required
// vehicle attribute select. Reports true when at least one selection was
// made, signalling the caller to retry the gated CTA once.
func UnlockVehicleAttributes(p page.Page, log logrus.FieldLogger) bool {
	v, err := p.Eval(unlockSelectsJS, vehicleAttributeSelects)
	if err != nil {
		log.WithError(err).Debug("vehicle attribute unlock failed")
		return false
	}
	n := v.Int()
	if n > 0 {
		log.WithField("selects", n).Info("applied vehicle attribute selections")
	}
	return n > 0
}

// CheckoutReached reports whether the current URL looks like a checkout or
// cart destination. Site-specific URL schemes make this a weak signal, which
// is why a mismatch is only a medium-severity issue.
func CheckoutReached(p page.Page) bool {
	u := strings.ToLower(p.URL())
	return strings.Contains(u, "checkout") || strings.Contains(u, "cart")
}

const timingJS = `() => {
	const nav = performance.getEntriesByType('navigation')[0];
	if (!nav) return null;
	return {
		responseEnd: Math.round(nav.responseEnd),
		domContentLoaded: Math.round(nav.domContentLoadedEventEnd),
		load: Math.round(nav.loadEventEnd),
	};
}`

// LoadTiming reads navigation timing milestones, or nil when unavailable.
func LoadTiming(p page.Page) *capture.Timing {
	v, err := p.Eval(timingJS)
	if err != nil || v.Nil() {
		return nil
	}
	return &capture.Timing{
		ResponseEnd:      int64(v.Get("responseEnd").Int()),
		DOMContentLoaded: int64(v.Get("domContentLoaded").Int()),
		Load:             int64(v.Get("load").Int()),
	}
}
