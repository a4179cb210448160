package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moodboxd/backend/internal/domain"
	"github.com/moodboxd/backend/internal/infrastructure/export"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderEntries(entries []domain.RawEntry) string {
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, []string{strconv.Itoa(i + 1), e.Title, e.Year.String(), formatRating(e.UserRating)})
	}
	return renderTable(
		[]string{"#", "Title", "Year", "Rating"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight},
	)
}

func renderRecords(records []domain.EnrichedRecord) string {
	rows := make([][]string, 0, len(records))
	for i, r := range records {
		status := r.ExternalID
		if !r.Succeeded() {
			status = "error: " + r.Error
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			r.Title,
			r.YearCanonical.String(),
			r.Genre,
			r.Country,
			status,
		})
	}
	return renderTable(
		[]string{"#", "Title", "Year", "Genre", "Country", "IMDb"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight},
	)
}

func renderSummary(s domain.Summary) string {
	return renderTable(
		[]string{"Total", "Succeeded", "Failed", "Skipped"},
		[][]string{{strconv.Itoa(s.Total), strconv.Itoa(s.Succeeded), strconv.Itoa(s.Failed), strconv.Itoa(s.Skipped)}},
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
	)
}

func formatRating(r *float64) string {
	if r == nil {
		return ""
	}
	return strconv.FormatFloat(*r, 'f', 1, 64)
}

func describeWalk(w io.Writer, walk *domain.CatalogWalk) {
	fmt.Fprintf(w, "%d entries from %d pages (stopped: %s)\n", len(walk.Entries), walk.PagesVisited, walk.StopReason)
	if walk.Partial() {
		fmt.Fprintf(w, "warning: catalog walk ended early: %v\n", walk.Err)
	}
	if walk.DiagnosticPath != "" {
		fmt.Fprintf(w, "page snapshot saved to %s\n", walk.DiagnosticPath)
	}
}

// resolveFormat picks the explicit format name, else the one implied by path
func resolveFormat(name, path string) (export.Format, error) {
	if strings.TrimSpace(name) != "" {
		return export.ParseFormat(name)
	}
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
		return export.ParseFormat(ext)
	}
	return export.FormatJSON, nil
}

// writeRecordsTo writes records to path, or to stdout when path is "-"
func writeRecordsTo(cmd *cobra.Command, path string, format export.Format, records []domain.EnrichedRecord) error {
	if path == "-" {
		return export.WriteRecords(cmd.OutOrStdout(), format, records)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := export.WriteRecords(f, format, records); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
