// Package input reads the package list the scanner operates on.
package input

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/git-pkgs/purl"
)

// ReadList reads an ordered package list from a CSV file: first column,
// header row skipped, blank cells skipped, duplicates dropped. Entries may
// be package URLs (pkg:npm/@scope/name), which are normalized to registry
// names.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening package list: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading package list: %w", err)
	}

	var names []string
	seen := make(map[string]bool)
	for i, row := range rows {
		if i == 0 {
			// header row
			continue
		}
		if len(row) == 0 {
			continue
		}
		name := strings.TrimSpace(row[0])
		if name == "" {
			continue
		}
		if strings.HasPrefix(name, "pkg:") {
			name, err = normalizePURL(name)
			if err != nil {
				return nil, err
			}
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names, nil
}

// normalizePURL converts an npm package URL to the name the registry
// expects, joining scope and name the way npm does.
func normalizePURL(s string) (string, error) {
	p, err := purl.Parse(s)
	if err != nil {
		return "", fmt.Errorf("parsing %q: %w", s, err)
	}
	if p.Type != "npm" {
		return "", fmt.Errorf("unsupported purl type %q in %q", p.Type, s)
	}
	if p.Namespace != "" {
		return p.Namespace + "/" + p.Name, nil
	}
	return p.Name, nil
}
