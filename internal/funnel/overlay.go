package funnel

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/v0xg/funnelqa/internal/page"
	"github.com/v0xg/funnelqa/internal/resolver"
)

// closeCandidates covers the usual modal close affordances. Each is tried
// with a short timeout; a miss costs little and a hit clears the click path.
var closeCandidates = []resolver.Locator{
	{Selector: `[aria-label="Close"]`},
	{Selector: `[aria-label="close"]`},
	{Selector: `[role="dialog"] [aria-label="Close"]`},
	{Selector: "button", Text: `^(Close|×|✕|X)$`},
	{Selector: `button[class*="modal"][class*="close"]`},
	{Selector: `.modal-close, .popup-close, .drawer__close`},
}

// hideChatWidgetsJS hides iframes and containers matching common chat-widget
// fingerprints so they cannot intercept clicks. Style-only mutation; nothing
// is removed from the DOM.
const hideChatWidgetsJS = `() => {
	const marks = ['chat', 'intercom', 'drift', 'tidio', 'gorgias', 'zendesk', 'tawk', 'crisp', 'messenger'];
	let hidden = 0;
	document.querySelectorAll('iframe, div').forEach(el => {
		const hint = ((el.src || '') + ' ' + (el.title || '') + ' ' + el.className + ' ' + el.id).toLowerCase();
		if (!marks.some(m => hint.includes(m))) return;
		el.style.visibility = 'hidden';
		el.style.pointerEvents = 'none';
		hidden++;
	});
	return hidden;
}`

// DismissOverlays best-effort closes modal and chat overlays that could
// intercept clicks. It swallows every failure and always returns; an empty
// page is a no-op. Called before each click-sensitive stage.
func DismissOverlays(p page.Page, log logrus.FieldLogger) {
	for _, c := range closeCandidates {
		match, _ := resolver.First(p, []resolver.Locator{c}, resolver.Options{Timeout: 500 * time.Millisecond})
		if match == nil {
			continue
		}
		if err := match.Element.Click(); err != nil {
			log.WithField("locator", c.String()).Debug("overlay close click failed")
			continue
		}
		log.WithField("locator", c.String()).Debug("dismissed overlay")
		p.Sleep(300 * time.Millisecond)
	}

	if v, err := p.Eval(hideChatWidgetsJS); err == nil && v.Int() > 0 {
		log.WithField("widgets", v.Int()).Debug("hid chat widgets")
	}
}
