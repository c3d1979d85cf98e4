package collector

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gtapools-backend/lib/pool"
)

// WriteDataset replaces the output file wholesale with the run's
// dataset. There is no partial-output contract: a write failure is a
// run-level failure.
func WriteDataset(path string, ds pool.Dataset) error {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dataset: %w", err)
	}

	err = os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	err = os.WriteFile(path, data, 0644)
	if err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	return nil
}
