package funnel_test

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ysmood/gson"

	"github.com/v0xg/funnelqa/internal/capture"
	"github.com/v0xg/funnelqa/internal/funnel"
	"github.com/v0xg/funnelqa/internal/page"
	"github.com/v0xg/funnelqa/internal/page/pagetest"
	"github.com/v0xg/funnelqa/internal/report"
)

const productURL = "https://shop.example.com/products/seat-covers"

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newMachine(t *testing.T, p *pagetest.Page, stages []funnel.Stage) *funnel.Machine {
	t.Helper()
	log := discardLogger()
	cam, err := capture.NewCamera(t.TempDir(), "desktop", true, capture.NewCounter(), log)
	require.NoError(t, err)

	cfg := funnel.Config{LookupTimeout: 10 * time.Millisecond, Highlight: true}
	return funnel.New(p, cam, report.NewCollector(log), stages, cfg, productURL, "desktop", log)
}

// stagesNamed filters the default funnel down to the named stages.
func stagesNamed(t *testing.T, names ...string) []funnel.Stage {
	t.Helper()
	var out []funnel.Stage
	for _, st := range funnel.DefaultStages() {
		for _, n := range names {
			if st.Name == n {
				out = append(out, st)
			}
		}
	}
	require.Len(t, out, len(names))
	return out
}

// happyPage registers one working element for every default stage and moves
// the URL to checkout when the checkout button is clicked.
func happyPage() *pagetest.Page {
	p := pagetest.New()
	p.AddText("button", `Choose.*Seats?`, pagetest.NewElement())
	p.Add(`input[type="radio"][value*="Front"][value*="Rear"]`, pagetest.NewElement())
	p.AddText("button", `Select Colou?r`, pagetest.NewElement())
	p.AddText("button", `^Black$`, pagetest.NewElement())
	p.AddText("button", `Add to Cart`, pagetest.NewElement())

	checkout := pagetest.NewElement()
	checkout.OnClick = func() {
		p.URLVal = "https://shop.example.com/checkout"
	}
	p.AddText("button", `Continue to Checkout`, checkout)
	return p
}

func TestRunHappyPathCompletesAllStages(t *testing.T) {
	p := happyPage()
	sess := newMachine(t, p, funnel.DefaultStages()).Run()

	assert.False(t, sess.Failed)
	assert.Empty(t, sess.Issues)
	require.Len(t, sess.Outcomes, 6)
	for _, out := range sess.Outcomes {
		assert.True(t, out.Succeeded, "stage %q", out.Stage)
	}

	// Checkout verification saw the URL change.
	last := sess.Outcomes[len(sess.Outcomes)-1]
	assert.Equal(t, funnel.StageCheckout, last.Stage)
	require.NotNil(t, last.Verified)
	assert.True(t, *last.Verified)
}

func TestRunAllStagesMissingStillTerminates(t *testing.T) {
	sess := newMachine(t, pagetest.New(), funnel.DefaultStages()).Run()

	assert.True(t, sess.Failed)
	require.Len(t, sess.Outcomes, 6)

	// The seat stage is fatal; everything after is skipped, not attempted.
	assert.False(t, sess.Outcomes[0].Succeeded)
	for _, out := range sess.Outcomes[1:] {
		assert.True(t, out.Skipped, "stage %q", out.Stage)
		assert.False(t, out.Succeeded, "stage %q", out.Stage)
	}

	counts := report.CountBySeverity(sess.Issues)
	assert.Equal(t, 1, counts[report.SeverityCritical])

	// Initial and final screenshots are always taken.
	assert.GreaterOrEqual(t, len(sess.Screenshots), 2)
}

func TestRunSeatStageSkippedWhenInputsPresent(t *testing.T) {
	p := pagetest.New()
	p.EvalFn = func(js string, args ...any) (gson.JSON, error) {
		if strings.Contains(js, "offsetParent") {
			return gson.New(2), nil
		}
		return pagetest.DefaultEval(js, args...)
	}

	sess := newMachine(t, p, stagesNamed(t, funnel.StageSeatUnlock)).Run()

	require.Len(t, sess.Outcomes, 1)
	assert.True(t, sess.Outcomes[0].Succeeded)
	assert.True(t, sess.Outcomes[0].Skipped)
	assert.Empty(t, sess.Issues)
	assert.False(t, sess.Failed)
	// No candidate was ever looked up.
	assert.Empty(t, p.Lookups)
}

func TestRunAttributeUnlockRetriesOnce(t *testing.T) {
	p := pagetest.New()
	p.EvalFn = func(js string, args ...any) (gson.JSON, error) {
		if strings.Contains(js, "selectedIndex") {
			// Selecting the trim/cab attributes reveals the seat CTA.
			p.AddText("button", `Choose.*Seats?`, pagetest.NewElement())
			return gson.New(1), nil
		}
		return pagetest.DefaultEval(js, args...)
	}

	sess := newMachine(t, p, stagesNamed(t, funnel.StageSeatUnlock)).Run()

	require.Len(t, sess.Outcomes, 1)
	out := sess.Outcomes[0]
	assert.True(t, out.Succeeded)
	assert.False(t, out.Skipped)
	assert.Empty(t, sess.Issues)
	assert.False(t, sess.Failed)

	retried := false
	for _, shot := range out.Screenshots {
		if strings.Contains(shot, "_retry") {
			retried = true
		}
	}
	assert.True(t, retried, "expected retry screenshots, got %v", out.Screenshots)
}

func TestRunCheckoutURLMismatchIsMediumIssue(t *testing.T) {
	p := pagetest.New()
	// Button clicks fine but the URL never leaves the product page.
	p.AddText("button", `Continue to Checkout`, pagetest.NewElement())

	sess := newMachine(t, p, stagesNamed(t, funnel.StageCheckout)).Run()

	require.Len(t, sess.Outcomes, 1)
	assert.True(t, sess.Outcomes[0].Succeeded)
	assert.False(t, sess.Failed)

	require.Len(t, sess.Issues, 1)
	is := sess.Issues[0]
	assert.Equal(t, report.SeverityMedium, is.Severity)
	assert.Equal(t, "Checkout Navigation", is.Category)
	assert.Contains(t, is.Description, "Clicked checkout but URL is: "+productURL)
}

func TestRunDisabledAddToCartIsCriticalFailure(t *testing.T) {
	p := pagetest.New()
	btn := pagetest.NewElement()
	btn.DisabledVal = true
	p.AddText("button", `Add to Cart`, btn)

	sess := newMachine(t, p, stagesNamed(t, funnel.StageAddToCart)).Run()

	require.Len(t, sess.Outcomes, 1)
	assert.False(t, sess.Outcomes[0].Succeeded)
	assert.Equal(t, 0, btn.Clicks)
	assert.True(t, sess.Failed)

	require.Len(t, sess.Issues, 1)
	assert.Equal(t, report.SeverityCritical, sess.Issues[0].Severity)
	assert.Equal(t, "Add to Cart Failed", sess.Issues[0].Category)
}

func TestRunBrokenImagesAggregateIntoOneIssue(t *testing.T) {
	p := happyPage()
	p.EvalFn = func(js string, args ...any) (gson.JSON, error) {
		if strings.Contains(js, "naturalWidth") {
			return gson.New(3), nil
		}
		return pagetest.DefaultEval(js, args...)
	}

	sess := newMachine(t, p, funnel.DefaultStages()).Run()

	require.Len(t, sess.Issues, 1)
	is := sess.Issues[0]
	assert.Equal(t, report.SeverityHigh, is.Severity)
	assert.Equal(t, "Broken Images", is.Category)
	assert.Equal(t, "3 images failed to load", is.Description)
	assert.False(t, sess.Failed)
}

func TestRunNonOKStatusIsHighIssue(t *testing.T) {
	p := happyPage()
	p.StatusVal = 404

	sess := newMachine(t, p, funnel.DefaultStages()).Run()

	require.Len(t, sess.Issues, 1)
	assert.Equal(t, report.SeverityHigh, sess.Issues[0].Severity)
	assert.Equal(t, "HTTP Error", sess.Issues[0].Category)
	assert.Equal(t, "Page returned status 404", sess.Issues[0].Description)
}

func TestRunConsoleAndNetworkErrorsAggregate(t *testing.T) {
	p := happyPage()
	p.ConsoleErrs = []string{"TypeError: x is undefined", "TypeError: y is null"}
	p.FailedReqs = []string{"https://cdn.example.com/missing.js"}

	sess := newMachine(t, p, funnel.DefaultStages()).Run()

	counts := report.CountByCategory(sess.Issues)
	assert.Equal(t, 1, counts["JavaScript Errors"])
	assert.Equal(t, 1, counts["Network Errors"])

	for _, is := range sess.Issues {
		if is.Category == "JavaScript Errors" {
			assert.Equal(t, "Console errors: 2 errors detected", is.Description)
			assert.Equal(t, report.SeverityMedium, is.Severity)
		}
	}
}

func TestRunNavigationFailure(t *testing.T) {
	p := pagetest.New()
	p.NavigateErr = errors.New("net::ERR_NAME_NOT_RESOLVED")

	sess := newMachine(t, p, funnel.DefaultStages()).Run()

	assert.True(t, sess.Failed)
	assert.Empty(t, sess.Outcomes)
	require.Len(t, sess.Issues, 1)
	assert.Equal(t, report.SeverityCritical, sess.Issues[0].Severity)
	assert.Equal(t, "Test Failure", sess.Issues[0].Category)
	assert.Contains(t, sess.Issues[0].Description, "ERR_NAME_NOT_RESOLVED")
}

func TestRunRecoversFromPanics(t *testing.T) {
	boom := []funnel.Stage{{
		Name:         "boom",
		Slug:         "99_boom",
		Precondition: func(page.Page) bool { panic("detached frame") },
	}}

	sess := newMachine(t, pagetest.New(), boom).Run()

	// The recovered session must come back populated, not lost to the panic.
	require.NotNil(t, sess)
	assert.True(t, sess.Failed)
	assert.NotEmpty(t, sess.Screenshots)
	require.NotEmpty(t, sess.Issues)
	is := sess.Issues[len(sess.Issues)-1]
	assert.Equal(t, report.SeverityCritical, is.Severity)
	assert.Equal(t, "Test Failure", is.Category)
	assert.Contains(t, is.Description, "detached frame")
}

func TestRunRecordsLoadTiming(t *testing.T) {
	p := happyPage()
	p.EvalFn = func(js string, args ...any) (gson.JSON, error) {
		if strings.Contains(js, "getEntriesByType") {
			return gson.New(map[string]any{
				"responseEnd":      120,
				"domContentLoaded": 480,
				"load":             950,
			}), nil
		}
		return pagetest.DefaultEval(js, args...)
	}

	sess := newMachine(t, p, funnel.DefaultStages()).Run()

	require.NotNil(t, sess.Timing)
	assert.Equal(t, int64(120), sess.Timing.ResponseEnd)
	assert.Equal(t, int64(480), sess.Timing.DOMContentLoaded)
	assert.Equal(t, int64(950), sess.Timing.Load)
}

func TestRunIssuesCarrySessionContext(t *testing.T) {
	p := happyPage()
	p.StatusVal = 500

	sess := newMachine(t, p, funnel.DefaultStages()).Run()

	require.NotEmpty(t, sess.Issues)
	for _, is := range sess.Issues {
		assert.Equal(t, productURL, is.URL)
		assert.Equal(t, "desktop", is.Device)
		assert.False(t, is.Timestamp.IsZero())
	}
}

func TestDefaultStagesSeverityMapping(t *testing.T) {
	want := map[string]report.Severity{
		funnel.StageSeatUnlock: report.SeverityCritical,
		funnel.StageSeatType:   report.SeverityHigh,
		funnel.StageColorCTA:   report.SeverityHigh,
		funnel.StageColorPick:  report.SeverityMedium,
		funnel.StageAddToCart:  report.SeverityCritical,
		funnel.StageCheckout:   report.SeverityCritical,
	}

	stages := funnel.DefaultStages()
	require.Len(t, stages, len(want))
	for _, st := range stages {
		assert.Equal(t, want[st.Name], st.FailSeverity, "stage %q", st.Name)
		assert.NotEmpty(t, st.Candidates, "stage %q", st.Name)
		assert.NotEmpty(t, st.Slug, "stage %q", st.Name)
	}

	// Cart and checkout must flag the session; only the seat gate aborts it.
	for _, st := range stages {
		switch st.Name {
		case funnel.StageSeatUnlock:
			assert.True(t, st.Fatal)
		case funnel.StageAddToCart, funnel.StageCheckout:
			assert.True(t, st.MarksFailed)
			assert.False(t, st.Fatal)
		default:
			assert.False(t, st.Fatal)
			assert.False(t, st.MarksFailed)
		}
	}
}
