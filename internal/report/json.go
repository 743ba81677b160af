package report

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteJSON serializes the issue list to path, matching the layout consumed
// by downstream report tooling: a plain JSON array, indented.
func WriteJSON(issues []Issue, path string) error {
	if issues == nil {
		issues = []Issue{}
	}
	data, err := json.MarshalIndent(issues, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal issues: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
