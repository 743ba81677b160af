package browser

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
	"github.com/ysmood/gson"

	"github.com/v0xg/funnelqa/internal/page"
)

// Handle adapts one rod page to the page.Page interface and captures the
// console/network events the anomaly probes consume.
type Handle struct {
	page       *rod.Page
	navTimeout time.Duration
	log        logrus.FieldLogger

	mu             sync.Mutex
	status         int
	consoleErrors  []string
	failedRequests []string
}

var _ page.Page = (*Handle)(nil)

func newHandle(p *rod.Page, navTimeout time.Duration, log logrus.FieldLogger) *Handle {
	h := &Handle{page: p, navTimeout: navTimeout, log: log}

	go p.EachEvent(
		func(e *proto.RuntimeConsoleAPICalled) {
			if e.Type != proto.RuntimeConsoleAPICalledTypeError {
				return
			}
			msg := consoleText(e)
			h.mu.Lock()
			h.consoleErrors = append(h.consoleErrors, msg)
			h.mu.Unlock()
		},
		func(e *proto.NetworkLoadingFailed) {
			h.mu.Lock()
			h.failedRequests = append(h.failedRequests, e.ErrorText)
			h.mu.Unlock()
		},
		func(e *proto.NetworkResponseReceived) {
			if e.Type != proto.NetworkResourceTypeDocument || e.Response == nil {
				return
			}
			h.mu.Lock()
			h.status = e.Response.Status
			h.mu.Unlock()
		},
	)()

	return h
}

// Navigate loads the URL, waits for the load event, then for a bounded
// network-idle window. Persistent connections (websockets, polling) make a
// plain idle wait hang, hence the outer timeout.
func (h *Handle) Navigate(url string) error {
	h.mu.Lock()
	h.status = 0
	h.mu.Unlock()

	p := h.page.Timeout(h.navTimeout)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	h.page.Timeout(5 * time.Second).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()
	return nil
}

func (h *Handle) Status() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

func (h *Handle) URL() string {
	info, err := h.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (h *Handle) Element(selector string, timeout time.Duration) (page.Element, error) {
	el, err := h.page.Timeout(timeout).Element(selector)
	if err != nil {
		return nil, err
	}
	return &element{el: el}, nil
}

func (h *Handle) ElementMatches(selector, pattern string, timeout time.Duration) (page.Element, error) {
	el, err := h.page.Timeout(timeout).ElementR(selector, pattern)
	if err != nil {
		return nil, err
	}
	return &element{el: el}, nil
}

func (h *Handle) Eval(js string, args ...any) (gson.JSON, error) {
	res, err := h.page.Eval(js, args...)
	if err != nil {
		return gson.New(nil), err
	}
	return res.Value, nil
}

func (h *Handle) Screenshot(fullPage bool) ([]byte, error) {
	return h.page.Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func (h *Handle) Sleep(d time.Duration) {
	time.Sleep(d)
}

func (h *Handle) ConsoleErrors() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.consoleErrors...)
}

func (h *Handle) FailedRequests() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.failedRequests...)
}

func consoleText(e *proto.RuntimeConsoleAPICalled) string {
	for _, arg := range e.Args {
		if arg.Value.Str() != "" {
			return arg.Value.Str()
		}
	}
	return "console error"
}
