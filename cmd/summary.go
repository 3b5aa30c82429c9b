package cmd

import (
	"fmt"
	"os"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/workd-cli/internal/portal"
)

func writeSummary(path string, summary *portal.Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
