// Package summary turns a run's issue list into a short natural-language
// digest for the console and report. Optional; the run works without it.
package summary

import (
	"fmt"

	"github.com/v0xg/funnelqa/internal/report"
)

// Provider writes a digest of the run's findings.
type Provider interface {
	Summarize(issues []report.Issue) (string, error)
}

// NewProvider selects a provider by name.
func NewProvider(name, model string) (Provider, error) {
	switch name {
	case "claude", "anthropic":
		return NewClaudeProvider(model)
	case "openai", "gpt":
		return NewOpenAIProvider(model)
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: claude, openai)", name)
	}
}
