// Package browser owns the rod browser lifecycle: launching headless Chrome,
// applying device profiles, and exposing an open tab through the page.Page
// interface the funnel consumes.
package browser

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/devices"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

// Device selects a viewport/user-agent profile.
type Device string

const (
	DeviceDesktop Device = "desktop"
	DeviceMobile  Device = "mobile"
)

// ParseDevices validates device names from config or flags.
func ParseDevices(names []string) ([]Device, error) {
	if len(names) == 0 {
		return []Device{DeviceDesktop, DeviceMobile}, nil
	}
	var out []Device
	for _, n := range names {
		switch Device(n) {
		case DeviceDesktop, DeviceMobile:
			out = append(out, Device(n))
		default:
			return nil, fmt.Errorf("unknown device %q (supported: desktop, mobile)", n)
		}
	}
	return out, nil
}

// Options configures a session's browser.
type Options struct {
	Headless   bool
	NavTimeout time.Duration
	// MobileTimezone is applied to the mobile profile so the storefront
	// renders localized content the way a shopper's phone would.
	MobileTimezone string
}

// Session is one launched browser with a single open tab. It must be closed
// on every exit path; many sessions run back to back in one process.
type Session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	handle   *Handle
}

// Open launches a browser, opens a blank tab, and applies the device profile.
func Open(device Device, opts Options, log logrus.FieldLogger) (*Session, error) {
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 45 * time.Second
	}

	path, _ := launcher.LookPath()
	l := launcher.New().Bin(path).Headless(opts.Headless).Leakless(true)
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	p, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		b.Close()
		l.Cleanup()
		return nil, fmt.Errorf("open page: %w", err)
	}

	if err := applyProfile(p, device, opts); err != nil {
		p.Close()
		b.Close()
		l.Cleanup()
		return nil, err
	}

	h := newHandle(p, opts.NavTimeout, log.WithField("device", string(device)))
	return &Session{launcher: l, browser: b, page: p, handle: h}, nil
}

// Handle returns the page capability for this session's tab.
func (s *Session) Handle() *Handle {
	return s.handle
}

// Close tears down the tab, browser, and launched process. Safe to call on a
// partially failed session.
func (s *Session) Close() {
	if s.page != nil {
		s.page.Close()
	}
	if s.browser != nil {
		s.browser.Close()
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
	}
}

func applyProfile(p *rod.Page, device Device, opts Options) error {
	switch device {
	case DeviceMobile:
		// iPhone X profile: 375x812, mobile UA, touch enabled.
		if err := p.Emulate(devices.IPhoneX); err != nil {
			return fmt.Errorf("emulate mobile device: %w", err)
		}
		tz := opts.MobileTimezone
		if tz == "" {
			tz = "America/New_York"
		}
		if err := (proto.EmulationSetTimezoneOverride{TimezoneID: tz}).Call(p); err != nil {
			return fmt.Errorf("set timezone: %w", err)
		}
	default:
		if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             1920,
			Height:            1080,
			DeviceScaleFactor: 1,
		}); err != nil {
			return fmt.Errorf("set viewport: %w", err)
		}
	}
	return nil
}
