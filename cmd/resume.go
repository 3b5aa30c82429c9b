package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/xkilldash9x/workd-cli/internal/records"
)

// readCompleted loads a previous result file. A missing file means nothing
// has been imported yet.
func readCompleted(path string) ([]records.ProvisionResult, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open previous results: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return nil, nil
	}
	return records.DecodeResults(f)
}

// pendingInputs drops inputs whose normalized username is already in done.
func pendingInputs(inputs []records.ProvisionInput, done []records.ProvisionResult) ([]records.ProvisionInput, int) {
	seen := make(map[string]struct{}, len(done))
	for _, r := range done {
		seen[records.NormalizeUsername(r.Username)] = struct{}{}
	}

	pending := make([]records.ProvisionInput, 0, len(inputs))
	for _, in := range inputs {
		if _, ok := seen[records.NormalizeUsername(in.Username)]; ok {
			continue
		}
		pending = append(pending, in)
	}
	return pending, len(inputs) - len(pending)
}
