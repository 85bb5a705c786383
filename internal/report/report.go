// Package report renders scan results: a detailed per-version listing, a
// per-package count summary, and a CSV export of the detail view.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/git-pkgs/npmscan/internal/scan"
	"github.com/jedib0t/go-pretty/v6/table"
)

var detailHeader = []string{"Package", "Version", "Published", "Description", "Author", "Dependencies"}

// OutputPath derives the default report location from the input file path.
func OutputPath(inputPath string) string {
	base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
	return base + "-report.csv"
}

// Detail renders one row per version record, in input order. Packages with
// no versions in the window and failed lookups get a single marker row.
func Detail(state *scan.ScanState) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)

	header := make(table.Row, len(detailHeader))
	for i, h := range detailHeader {
		header[i] = h
	}
	tbl.AppendHeader(header)

	for _, row := range detailRows(state) {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		tbl.AppendRow(r)
	}

	return tbl.Render()
}

// Summary renders the per-package version counts and the run totals.
func Summary(state *scan.ScanState) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Package", "Versions"})

	for _, name := range state.Packages {
		result, ok := state.Results[name]
		if !ok {
			tbl.AppendRow(table.Row{name, "not scanned"})
			continue
		}
		if result.Status == scan.StatusFailed {
			tbl.AppendRow(table.Row{name, "lookup failed"})
			continue
		}
		tbl.AppendRow(table.Row{name, len(result.Versions)})
	}

	sum := state.Summary()
	tbl.AppendFooter(table.Row{
		fmt.Sprintf("%d scanned, %d failed", sum.Scanned, sum.Failed),
		fmt.Sprintf("%d found", sum.Versions),
	})

	return tbl.Render()
}

// WriteCSV writes the detail view to path.
func WriteCSV(path string, state *scan.ScanState) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(detailHeader); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	for _, row := range detailRows(state) {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func detailRows(state *scan.ScanState) [][]string {
	var rows [][]string
	for _, name := range state.Packages {
		result, ok := state.Results[name]
		if !ok {
			continue
		}
		if result.Status == scan.StatusFailed {
			rows = append(rows, []string{name, "(lookup failed)", "", "", "", ""})
			continue
		}
		if len(result.Versions) == 0 {
			rows = append(rows, []string{name, "(no versions in window)", "", "", "", ""})
			continue
		}
		for _, v := range result.Versions {
			rows = append(rows, []string{
				name,
				v.Version,
				v.Published,
				v.Description,
				v.Author,
				strconv.Itoa(v.Dependencies),
			})
		}
	}
	return rows
}
