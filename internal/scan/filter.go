package scan

import (
	"sort"
	"time"

	"github.com/git-pkgs/npmscan/internal/registry"
)

// FilterVersions returns the versions of meta whose publish timestamp
// falls inside window, newest first. A missing time map yields an empty
// result, not an error. Versions whose timestamp fails to parse are
// skipped; the created/modified sentinel keys are not versions.
func FilterVersions(meta *registry.Metadata, window Window) []VersionRecord {
	if meta == nil || len(meta.Time) == 0 {
		return nil
	}

	var records []VersionRecord
	for version, published := range meta.Time {
		if version == registry.TimeCreated || version == registry.TimeModified {
			continue
		}

		t, err := time.Parse(time.RFC3339, published)
		if err != nil {
			continue
		}
		if !window.Contains(t.UTC()) {
			continue
		}

		detail := meta.Versions[version]
		records = append(records, VersionRecord{
			Version:      version,
			Published:    published,
			PublishedAt:  t.UTC(),
			Description:  detail.Description,
			Author:       detail.AuthorName(),
			Dependencies: len(detail.Dependencies),
		})
	}

	// Descending by the raw timestamp string; for RFC 3339 UTC stamps this
	// is chronological order.
	sort.Slice(records, func(i, j int) bool {
		return records[i].Published > records[j].Published
	})
	return records
}
