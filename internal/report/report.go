// Package report holds the issue model and the writers that turn a run's
// findings into files: the JSON issue list, the screenshot archive, and the
// PDF report document.
package report

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Severity classifies how badly an issue blocks the purchase funnel.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Issue is one detected defect or failure. Immutable once recorded.
type Issue struct {
	URL         string    `json:"url"`
	Device      string    `json:"device"`
	Severity    Severity  `json:"severity"`
	Category    string    `json:"category"`
	Description string    `json:"issue"`
	Screenshot  string    `json:"screenshot,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Collector accumulates issues for one session. No deduplication, no limit.
type Collector struct {
	log    logrus.FieldLogger
	issues []Issue
}

// NewCollector returns a collector that logs each recorded issue.
func NewCollector(log logrus.FieldLogger) *Collector {
	return &Collector{log: log}
}

// Record appends the issue and emits a human-readable line.
func (c *Collector) Record(is Issue) {
	if is.Timestamp.IsZero() {
		is.Timestamp = time.Now()
	}
	c.issues = append(c.issues, is)

	entry := c.log.WithFields(logrus.Fields{
		"severity": is.Severity,
		"category": is.Category,
		"device":   is.Device,
	})
	switch is.Severity {
	case SeverityCritical, SeverityHigh:
		entry.Error(is.Description)
	default:
		entry.Warn(is.Description)
	}
}

// Len reports how many issues were recorded.
func (c *Collector) Len() int {
	return len(c.issues)
}

// Drain returns the recorded issues in order and resets the collector.
func (c *Collector) Drain() []Issue {
	out := c.issues
	c.issues = nil
	return out
}

// CountBySeverity tallies issues per severity level.
func CountBySeverity(issues []Issue) map[Severity]int {
	counts := make(map[Severity]int)
	for _, is := range issues {
		counts[is.Severity]++
	}
	return counts
}

// CountByCategory tallies issues per category label.
func CountByCategory(issues []Issue) map[string]int {
	counts := make(map[string]int)
	for _, is := range issues {
		counts[is.Category]++
	}
	return counts
}
