// Package capture owns screenshot file naming and the per-run performance
// timing record. The counter is an explicit run-scoped object shared by every
// session's camera so filenames stay globally unique across the whole run.
package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/v0xg/funnelqa/internal/page"
)

// Counter issues strictly increasing screenshot sequence numbers. It never
// resets between stages or sessions.
type Counter struct {
	n uint64
}

// NewCounter returns a counter starting at zero.
func NewCounter() *Counter {
	return &Counter{}
}

// Next returns the next sequence number, starting at 1.
func (c *Counter) Next() uint64 {
	return atomic.AddUint64(&c.n, 1)
}

// Total returns how many numbers were issued so far.
func (c *Counter) Total() uint64 {
	return atomic.LoadUint64(&c.n)
}

// Camera captures labeled screenshots into a directory for one session.
type Camera struct {
	dir      string
	device   string
	fullPage bool
	counter  *Counter
	log      logrus.FieldLogger
}

// NewCamera creates a camera writing into dir. The directory is created if
// missing.
func NewCamera(dir, device string, fullPage bool, counter *Counter, log logrus.FieldLogger) (*Camera, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create screenshot dir: %w", err)
	}
	return &Camera{dir: dir, device: device, fullPage: fullPage, counter: counter, log: log}, nil
}

// Take captures the page and writes NNN_device_step_timestamp.png. It returns
// the file path, or an empty path with the error when the capture failed;
// callers treat a failed screenshot as missing evidence, not as a fault.
func (c *Camera) Take(p page.Page, step, description string) (string, error) {
	data, err := p.Screenshot(c.fullPage)
	if err != nil {
		c.log.WithError(err).WithField("step", step).Warn("screenshot failed")
		return "", err
	}

	n := c.counter.Next()
	stamp := time.Now().Format("20060102_150405")
	name := fmt.Sprintf("%03d_%s_%s_%s.png", n, c.device, step, stamp)
	path := filepath.Join(c.dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.log.WithError(err).WithField("step", step).Warn("screenshot write failed")
		return "", err
	}

	c.log.WithFields(logrus.Fields{"step": step, "file": name}).Debug(description)
	return path, nil
}

// Timing holds page load milestones in milliseconds relative to navigation
// start, as reported by the Navigation Timing API.
type Timing struct {
	ResponseEnd      int64 `json:"responseEndMs"`
	DOMContentLoaded int64 `json:"domContentLoadedMs"`
	Load             int64 `json:"loadMs"`
}
