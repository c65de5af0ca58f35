package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// EnsureSample writes a results file with the default header and one sample
// row when path does not exist yet. It reports whether a file was written.
func EnsureSample(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat results file: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("create results directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return false, fmt.Errorf("create results file: %w", err)
	}
	w := csv.NewWriter(f)
	header := append([]string{colID, colName}, DefaultSubjects...)
	sample := make([]string, len(header))
	copy(sample, []string{"STD001", "Abel Tesfaye", "95", "88", "92", "90", "87"})
	if err := w.WriteAll([][]string{header, sample}); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("write results file: %w", err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("close results file: %w", err)
	}
	return true, nil
}
