package summary

import (
	"encoding/json"
	"fmt"

	"github.com/v0xg/funnelqa/internal/report"
)

const systemPrompt = `You are a QA lead reviewing automated storefront purchase-funnel test results.
You receive a JSON list of issues, each with severity (critical/high/medium/low),
category, affected URL, device, and description.

Write a concise digest for the engineering team:
- Lead with whether the purchase funnel is currently blocked (any critical issue on
  add-to-cart, checkout, or seat selection means blocked).
- Group related findings; do not restate every issue verbatim.
- Note device-specific failures (desktop vs mobile) explicitly.
- End with the two or three highest-value fixes.

Plain text only, under 250 words. No markdown headers.`

func buildUserPrompt(issues []report.Issue) (string, error) {
	data, err := json.MarshalIndent(issues, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal issues: %w", err)
	}

	counts := report.CountBySeverity(issues)
	return fmt.Sprintf(
		"Run results: %d issues (%d critical, %d high, %d medium, %d low).\n\nIssues:\n%s",
		len(issues),
		counts[report.SeverityCritical],
		counts[report.SeverityHigh],
		counts[report.SeverityMedium],
		counts[report.SeverityLow],
		string(data),
	), nil
}
