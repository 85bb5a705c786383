// Package scan implements the version-window scan engine: the result
// model, the publish-window filter, and the bounded-concurrency
// coordinator that drives per-package registry lookups.
package scan

import "time"

// ResultStatus is the terminal state of a package lookup. A package with
// no entry in ScanState.Results has not been scanned yet.
type ResultStatus string

const (
	// StatusFound means the lookup succeeded; the version list may be empty.
	StatusFound ResultStatus = "found"
	// StatusFailed means the lookup failed and was not retried.
	StatusFailed ResultStatus = "failed"
)

// VersionRecord is one published release that fell inside the scan window.
// Published keeps the registry's raw timestamp string; PublishedAt is the
// parsed UTC instant.
type VersionRecord struct {
	Version      string    `yaml:"version"`
	Published    string    `yaml:"published"`
	PublishedAt  time.Time `yaml:"published_at"`
	Description  string    `yaml:"description,omitempty"`
	Author       string    `yaml:"author,omitempty"`
	Dependencies int       `yaml:"dependencies"`
}

// PackageResult is the outcome of scanning a single package.
type PackageResult struct {
	Status   ResultStatus    `yaml:"status"`
	Versions []VersionRecord `yaml:"versions,omitempty"`
	Err      string          `yaml:"error,omitempty"`
}

// Found returns a successful result carrying the filtered versions.
func Found(versions []VersionRecord) PackageResult {
	return PackageResult{Status: StatusFound, Versions: versions}
}

// LookupFailed returns a failed result with a human-readable cause.
func LookupFailed(cause string) PackageResult {
	return PackageResult{Status: StatusFailed, Err: cause}
}

// ScanState is the accumulated state of one scan over an input list.
// Packages holds the original input order, Scanned the completion order
// (for checkpoint determinism), Results the per-package outcomes.
// The coordinator's collection loop is the only mutator during a run.
type ScanState struct {
	Packages []string                 `yaml:"packages"`
	Scanned  []string                 `yaml:"scanned"`
	Results  map[string]PackageResult `yaml:"results"`
}

// NewState creates an empty state for the given input list.
func NewState(packages []string) *ScanState {
	return &ScanState{
		Packages: packages,
		Results:  make(map[string]PackageResult),
	}
}

// Resolved reports whether the package already has a result.
func (s *ScanState) Resolved(name string) bool {
	_, ok := s.Results[name]
	return ok
}

// Pending returns the input-ordered packages that have no result yet.
func (s *ScanState) Pending() []string {
	pending := make([]string, 0, max(0, len(s.Packages)-len(s.Results)))
	for _, name := range s.Packages {
		if !s.Resolved(name) {
			pending = append(pending, name)
		}
	}
	return pending
}

// Apply records a result for name exactly once. It returns false if the
// package is already resolved or is not part of the input list.
func (s *ScanState) Apply(name string, result PackageResult) bool {
	if s.Resolved(name) {
		return false
	}
	known := false
	for _, pkg := range s.Packages {
		if pkg == name {
			known = true
			break
		}
	}
	if !known {
		return false
	}
	if s.Results == nil {
		s.Results = make(map[string]PackageResult)
	}
	s.Results[name] = result
	s.Scanned = append(s.Scanned, name)
	return true
}

// Complete reports whether every input package has been resolved.
func (s *ScanState) Complete() bool {
	return len(s.Results) == len(s.Packages)
}

// Summary aggregates the counts reported at the end of a scan.
type Summary struct {
	Scanned  int
	Failed   int
	Versions int
}

// Summary returns the scan totals over all resolved packages.
func (s *ScanState) Summary() Summary {
	var sum Summary
	for _, result := range s.Results {
		sum.Scanned++
		if result.Status == StatusFailed {
			sum.Failed++
			continue
		}
		sum.Versions += len(result.Versions)
	}
	return sum
}
