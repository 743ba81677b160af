package funnel

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/v0xg/funnelqa/internal/capture"
	"github.com/v0xg/funnelqa/internal/page"
	"github.com/v0xg/funnelqa/internal/report"
	"github.com/v0xg/funnelqa/internal/resolver"
)

// Config bounds the machine's waits.
type Config struct {
	// LookupTimeout applies per locator candidate.
	LookupTimeout time.Duration
	// SettleShort follows scroll/hover, SettleLong follows clicks.
	SettleShort time.Duration
	SettleLong  time.Duration
	// LoadWait is the hold after navigation before the funnel starts;
	// storefront themes keep rendering well past the load event.
	LoadWait time.Duration
	// Highlight outlines the resolved element before the audit screenshot.
	Highlight bool
}

// DefaultConfig mirrors the waits the funnel was tuned with against live
// storefronts.
func DefaultConfig() Config {
	return Config{
		LookupTimeout: 5 * time.Second,
		SettleShort:   time.Second,
		SettleLong:    2 * time.Second,
		LoadWait:      15 * time.Second,
		Highlight:     true,
	}
}

// Session is the record of one (url, device) run: every stage outcome, every
// issue, every screenshot, in order.
type Session struct {
	URL         string          `json:"url"`
	Device      string          `json:"device"`
	Outcomes    []Outcome       `json:"outcomes"`
	Issues      []report.Issue  `json:"issues"`
	Screenshots []string        `json:"screenshots"`
	Timing      *capture.Timing `json:"timing,omitempty"`
	Failed      bool            `json:"failed"`

	lastShot string
}

// Machine sequences stages over one page session. It never returns an error:
// every failure mode ends up as data on the Session.
type Machine struct {
	page   page.Page
	camera *capture.Camera
	issues *report.Collector
	stages []Stage
	cfg    Config
	log    logrus.FieldLogger
	url    string
	device string
}

// New creates a machine for one (url, device) session.
func New(p page.Page, cam *capture.Camera, collector *report.Collector, stages []Stage, cfg Config, url, device string, log logrus.FieldLogger) *Machine {
	return &Machine{
		page:   p,
		camera: cam,
		issues: collector,
		stages: stages,
		cfg:    cfg,
		log:    log.WithFields(logrus.Fields{"url": url, "device": device}),
		url:    url,
		device: device,
	}
}

// Run drives the funnel to its terminal state. The session always completes:
// a fatal stage truncates the remaining stages but the session is still
// closed out with its diagnostics, and library panics are converted into a
// crash issue at this outermost scope.
func (m *Machine) Run() (s *Session) {
	s = &Session{URL: m.url, Device: m.device}

	defer func() {
		if r := recover(); r != nil {
			m.crash(s, fmt.Sprintf("Test failed: %v", r))
		}
	}()

	m.log.Info("loading page")
	if err := m.page.Navigate(m.url); err != nil {
		shot := m.shoot(s, "00_navigation_failed", "navigation failed")
		m.record(s, report.Issue{
			Severity:    report.SeverityCritical,
			Category:    "Test Failure",
			Description: fmt.Sprintf("Test failed: %v", err),
			Screenshot:  shot,
		})
		s.Failed = true
		m.collectErrorIssues(s)
		return s
	}

	m.page.Sleep(m.cfg.LoadWait)
	m.shoot(s, "01_page_loaded", "initial view")
	m.loadProbes(s)

	aborted := false
	for _, st := range m.stages {
		if aborted {
			s.Outcomes = append(s.Outcomes, Outcome{Stage: st.Name, Skipped: true})
			continue
		}

		out := m.runStage(s, st)
		s.Outcomes = append(s.Outcomes, out)

		if !out.Succeeded {
			if st.MarksFailed {
				s.Failed = true
			}
			if st.Fatal {
				s.Failed = true
				aborted = true
				m.log.WithField("stage", st.Name).Warn("fatal stage failed, skipping remaining stages")
			}
		}
	}

	m.shoot(s, "12_final_state", "final page state")
	m.collectErrorIssues(s)
	m.log.WithFields(logrus.Fields{
		"issues": len(s.Issues),
		"failed": s.Failed,
	}).Info("session done")
	return s
}

// loadProbes runs the post-navigation anomaly checks.
func (m *Machine) loadProbes(s *Session) {
	if status := m.page.Status(); status != 0 && status != 200 {
		m.record(s, report.Issue{
			Severity:    report.SeverityHigh,
			Category:    "HTTP Error",
			Description: fmt.Sprintf("Page returned status %d", status),
			Screenshot:  s.lastShot,
		})
	}

	if n := BrokenImages(m.page); n > 0 {
		m.record(s, report.Issue{
			Severity:    report.SeverityHigh,
			Category:    "Broken Images",
			Description: fmt.Sprintf("%d images failed to load", n),
			Screenshot:  s.lastShot,
		})
	}

	s.Timing = LoadTiming(m.page)
}

func (m *Machine) runStage(s *Session, st Stage) Outcome {
	out := Outcome{Stage: st.Name}
	log := m.log.WithField("stage", st.Name)

	if st.Precondition != nil && st.Precondition(m.page) {
		log.Info("stage already satisfied, skipping")
		out.Succeeded = true
		out.Skipped = true
		return out
	}

	DismissOverlays(m.page, log)

	ok, used := m.perform(s, st, &out, "")
	if !ok && st.Unlock != nil && st.Unlock(m.page, log) {
		m.page.Sleep(m.cfg.SettleLong)
		ok, used = m.perform(s, st, &out, "_retry")
	}

	out.Succeeded = ok
	out.UsedLocator = used

	if ok {
		log.WithField("locator", used).Info("stage succeeded")
		m.verify(s, st, &out, log)
		return out
	}

	m.record(s, report.Issue{
		Severity:    st.FailSeverity,
		Category:    st.Category,
		Description: st.FailText,
		Screenshot:  s.lastShot,
	})
	return out
}

// perform is the step action: resolve, scroll into view, hover, highlight,
// audit screenshot, click, settle. A false return is a stage failure, never
// a raised error, even when the element detaches between resolve and click.
func (m *Machine) perform(s *Session, st Stage, out *Outcome, suffix string) (bool, string) {
	log := m.log.WithField("stage", st.Name)

	match, misses := resolver.First(m.page, st.Candidates, resolver.Options{
		Timeout:        m.cfg.LookupTimeout,
		RequireEnabled: st.RequireEnabled,
	})
	for _, miss := range misses {
		log.WithFields(logrus.Fields{
			"locator": miss.Locator.String(),
			"reason":  miss.Reason.String(),
		}).Debug("candidate missed")
	}
	if match == nil {
		return false, ""
	}

	el := match.Element
	_ = el.ScrollIntoView()
	m.page.Sleep(m.cfg.SettleShort)
	_ = el.Hover()

	if m.cfg.Highlight {
		_, _ = el.Eval(`() => {
			this.style.outline = '3px solid #ff5722';
			this.style.outlineOffset = '2px';
		}`)
	}

	if shot := m.shoot(s, st.Slug+"_before"+suffix, "before "+st.Name); shot != "" {
		out.Screenshots = append(out.Screenshots, shot)
	}

	if err := el.Click(); err != nil {
		log.WithError(err).WithField("locator", match.Locator.String()).Warn("click failed")
		return false, ""
	}
	m.page.Sleep(m.cfg.SettleLong)

	if shot := m.shoot(s, st.Slug+suffix, "after "+st.Name); shot != "" {
		out.Screenshots = append(out.Screenshots, shot)
	}

	return true, match.Locator.String()
}

// verify runs the stage's post-action probe. Checked-state probes are
// advisory: a false result is logged, not gated on. Probes carrying their own
// severity (checkout URL verification) emit an issue on mismatch.
func (m *Machine) verify(s *Session, st Stage, out *Outcome, log logrus.FieldLogger) {
	if st.Verify == nil {
		return
	}

	v, err := st.Verify.Probe(m.page)
	if err != nil {
		log.WithError(err).Debug("verification probe failed")
		return
	}
	out.Verified = &v
	if v {
		return
	}

	if st.Verify.Severity == "" {
		log.Warn("verification probe reports no state change")
		return
	}

	desc := "verification failed after " + st.Name
	if st.Verify.Describe != nil {
		desc = st.Verify.Describe(m.page)
	}
	m.record(s, report.Issue{
		Severity:    st.Verify.Severity,
		Category:    st.Verify.Category,
		Description: desc,
		Screenshot:  s.lastShot,
	})
}

// crash handles a session-fatal panic: diagnostic screenshot, critical issue,
// control returned to the run loop.
func (m *Machine) crash(s *Session, desc string) {
	shot := m.shoot(s, "error", "crash state")
	m.record(s, report.Issue{
		Severity:    report.SeverityCritical,
		Category:    "Test Failure",
		Description: desc,
		Screenshot:  shot,
	})
	s.Failed = true
	s.Issues = append(s.Issues, m.issues.Drain()...)
}

// collectErrorIssues converts captured console and network errors into one
// aggregated issue each, then drains the collector into the session.
func (m *Machine) collectErrorIssues(s *Session) {
	if n := len(m.page.ConsoleErrors()); n > 0 {
		m.record(s, report.Issue{
			Severity:    report.SeverityMedium,
			Category:    "JavaScript Errors",
			Description: fmt.Sprintf("Console errors: %d errors detected", n),
			Screenshot:  s.lastShot,
		})
	}
	if n := len(m.page.FailedRequests()); n > 0 {
		m.record(s, report.Issue{
			Severity:    report.SeverityMedium,
			Category:    "Network Errors",
			Description: fmt.Sprintf("Failed to load %d resources", n),
			Screenshot:  s.lastShot,
		})
	}
	s.Issues = m.issues.Drain()
}

func (m *Machine) record(s *Session, is report.Issue) {
	is.URL = m.url
	is.Device = m.device
	m.issues.Record(is)
}

func (m *Machine) shoot(s *Session, step, desc string) string {
	path, err := m.camera.Take(m.page, step, desc)
	if err != nil {
		return ""
	}
	s.Screenshots = append(s.Screenshots, path)
	s.lastShot = path
	return path
}
