package funnel_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ysmood/gson"

	"github.com/v0xg/funnelqa/internal/funnel"
	"github.com/v0xg/funnelqa/internal/page/pagetest"
)

func TestDismissOverlaysOnEmptyPage(t *testing.T) {
	p := pagetest.New()

	// Must be a silent no-op, never a fault.
	funnel.DismissOverlays(p, discardLogger())

	assert.NotEmpty(t, p.Lookups)
}

func TestDismissOverlaysClicksCloseButton(t *testing.T) {
	p := pagetest.New()
	closeBtn := pagetest.NewElement()
	p.Add(`[aria-label="Close"]`, closeBtn)

	funnel.DismissOverlays(p, discardLogger())

	assert.Equal(t, 1, closeBtn.Clicks)
}

func TestDismissOverlaysSurvivesClickFailure(t *testing.T) {
	p := pagetest.New()
	stuck := pagetest.NewElement()
	stuck.ClickErr = assert.AnError
	p.Add(`[aria-label="Close"]`, stuck)

	working := pagetest.NewElement()
	p.Add(`.modal-close, .popup-close, .drawer__close`, working)

	funnel.DismissOverlays(p, discardLogger())

	// One failed close does not stop the remaining candidates.
	assert.Equal(t, 1, working.Clicks)
}

func TestDismissOverlaysHidesChatWidgets(t *testing.T) {
	p := pagetest.New()
	hidden := 0
	p.EvalFn = func(js string, args ...any) (gson.JSON, error) {
		if strings.Contains(js, "pointerEvents") {
			hidden++
			return gson.New(2), nil
		}
		return pagetest.DefaultEval(js, args...)
	}

	funnel.DismissOverlays(p, discardLogger())

	assert.Equal(t, 1, hidden)
}
