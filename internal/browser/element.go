package browser

import (
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/v0xg/funnelqa/internal/page"
)

const clickTimeout = 10 * time.Second

// element adapts a rod element to page.Element.
type element struct {
	el *rod.Element
}

var _ page.Element = (*element)(nil)

func (e *element) Visible() (bool, error) {
	return e.el.Visible()
}

func (e *element) Disabled() (bool, error) {
	v, err := e.el.Property("disabled")
	if err != nil {
		return false, err
	}
	return v.Bool(), nil
}

func (e *element) ScrollIntoView() error {
	return e.el.ScrollIntoView()
}

func (e *element) Hover() error {
	return e.el.Timeout(clickTimeout).Hover()
}

// Click tries a real mouse click first; when pointer interception or overlay
// racing blocks it, falls back to a scripted click on the node itself.
func (e *element) Click() error {
	err := e.el.Timeout(clickTimeout).Click(proto.InputMouseButtonLeft, 1)
	if err == nil {
		return nil
	}
	if _, evalErr := e.el.Eval(`() => this.click()`); evalErr == nil {
		return nil
	}
	return err
}

func (e *element) Eval(js string, args ...any) (gson.JSON, error) {
	res, err := e.el.Eval(js, args...)
	if err != nil {
		return gson.New(nil), err
	}
	return res.Value, nil
}
