// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/ledger-migrate/pkg/types"
)

// spillSeparator splits the flush counter from the class name in spill
// file names.
const spillSeparator = "__"

// spillFileName builds a monotonically numbered spill file name. The
// counter is zero-padded so a lexicographic directory listing
// preserves flush order.
func spillFileName(counter int, class string) string {
	return fmt.Sprintf("%06d%s%s", counter, spillSeparator, class)
}

// SpillClass extracts the raw class name embedded in a spill file name.
func SpillClass(name string) (string, error) {
	_, class, ok := strings.Cut(name, spillSeparator)
	if !ok || class == "" {
		return "", fmt.Errorf("spill file %q has no class name suffix", name)
	}
	return class, nil
}

// PrepareSpillDir creates dir, clearing any leftover contents from a
// previous run. Spill directories are never reused across runs.
func PrepareSpillDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clearing spill directory %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating spill directory %s: %w", dir, err)
	}
	return nil
}

// ListSpillFiles returns the spill file names in dir sorted
// lexicographically, which is flush order.
func ListSpillFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading spill directory %s: %w", dir, err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// writeSpill writes one batch of raw records as a JSON array. Empty
// batches still produce a file: a class with zero entities leaves an
// empty spill behind as its extraction record.
func writeSpill(dir string, counter int, class string, records []types.EntityRecord) error {
	if records == nil {
		records = []types.EntityRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding spill for %s: %w", class, err)
	}
	path := filepath.Join(dir, spillFileName(counter, class))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing spill file %s: %w", path, err)
	}
	return nil
}

// ReadSpill loads one spill file's records.
func ReadSpill(dir, name string) ([]types.EntityRecord, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("reading spill file %s: %w", name, err)
	}
	var records []types.EntityRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding spill file %s: %w", name, err)
	}
	return records, nil
}
