// Package checkpoint persists scan progress as a human-readable YAML file
// so an interrupted scan can resume where it left off.
package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/git-pkgs/npmscan/internal/scan"
	"gopkg.in/yaml.v3"
)

// PathFor derives the checkpoint location from the input file's own path,
// so re-running against the same input discovers the prior checkpoint.
// The hash of the absolute path keeps same-named inputs in different
// directories apart.
func PathFor(inputPath string) string {
	abs, err := filepath.Abs(inputPath)
	if err != nil {
		abs = inputPath
	}
	sum := xxhash.Sum64String(abs)

	base := filepath.Base(inputPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(inputPath), fmt.Sprintf(".%s-progress-%016x.yaml", base, sum))
}

// Store reads and writes checkpoints at a fixed path. It never holds a
// live reference to scan state; it only serializes snapshots.
type Store struct {
	path string
}

// NewStore creates a Store for the given checkpoint path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the checkpoint location.
func (s *Store) Path() string {
	return s.path
}

// Save overwrites the checkpoint with a snapshot of state.
func (s *Store) Save(state *scan.ScanState) error {
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	return nil
}

// Load reads the checkpoint. A missing file returns (nil, nil). A
// malformed file returns an error the caller should report as a warning
// and then proceed as if no checkpoint existed.
func (s *Store) Load() (*scan.ScanState, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}

	var state scan.ScanState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing checkpoint %s: %w", s.path, err)
	}
	if state.Results == nil {
		state.Results = make(map[string]scan.PackageResult)
	}

	// Resolved names must be a subset of the package list; a checkpoint
	// that violates that is as malformed as one that fails to parse.
	known := make(map[string]bool, len(state.Packages))
	for _, name := range state.Packages {
		known[name] = true
	}
	for name := range state.Results {
		if !known[name] {
			return nil, fmt.Errorf("checkpoint %s: result for %q is not in the package list", s.path, name)
		}
	}
	for _, name := range state.Scanned {
		if !known[name] {
			return nil, fmt.Errorf("checkpoint %s: scanned package %q is not in the package list", s.path, name)
		}
	}
	return &state, nil
}

// Remove deletes the checkpoint. Removing a missing checkpoint is not an
// error.
func (s *Store) Remove() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
