package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/moodboxd/backend/internal/domain"
)

// Format is an output encoding for catalog data
type Format string

const (
	FormatCSV    Format = "csv"
	FormatNDJSON Format = "ndjson"
	FormatJSON   Format = "json"
)

// ErrUnknownFormat is returned for unsupported format names
var ErrUnknownFormat = errors.New("unknown export format")

var entryColumns = []string{"title", "poster_url", "user_rating", "year"}

var recordColumns = append(append([]string{}, entryColumns...),
	"external_id", "title_canonical", "year_canonical", "country", "genre", "source_url", "error")

// ParseFormat resolves a format name; "jsonl" is accepted as NDJSON
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "csv":
		return FormatCSV, nil
	case "ndjson", "jsonl":
		return FormatNDJSON, nil
	case "json", "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// ContentType returns the HTTP media type for the format
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatNDJSON:
		return "application/x-ndjson"
	default:
		return "application/json; charset=utf-8"
	}
}

// Extension returns the conventional file extension
func (f Format) Extension() string {
	return "." + string(f)
}

// WriteRecords encodes enriched records in order
func WriteRecords(w io.Writer, format Format, records []domain.EnrichedRecord) error {
	switch format {
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(recordColumns); err != nil {
			return err
		}
		for _, r := range records {
			row := append(entryRow(r.RawEntry),
				r.ExternalID, r.TitleCanonical, r.YearCanonical.String(),
				r.Country, r.Genre, r.SourceURL, r.Error)
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case FormatNDJSON:
		return writeNDJSON(w, records)
	case FormatJSON:
		return writeJSON(w, records)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteEntries encodes raw scraped entries in order
func WriteEntries(w io.Writer, format Format, entries []domain.RawEntry) error {
	switch format {
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(entryColumns); err != nil {
			return err
		}
		for _, e := range entries {
			if err := cw.Write(entryRow(e)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case FormatNDJSON:
		return writeNDJSON(w, entries)
	case FormatJSON:
		return writeJSON(w, entries)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func entryRow(e domain.RawEntry) []string {
	rating := ""
	if e.UserRating != nil {
		rating = strconv.FormatFloat(*e.UserRating, 'f', -1, 64)
	}
	return []string{e.Title, e.PosterURL, rating, e.Year.String()}
}

func writeNDJSON[T any](w io.Writer, items []T) error {
	enc := json.NewEncoder(w)
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON[T any](w io.Writer, items []T) error {
	if items == nil {
		items = []T{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// ReadEntriesFile reads raw entries from a CSV (header with "title"), NDJSON
// or JSON array file. The extension picks the decoder; unknown extensions
// try CSV first, then NDJSON.
func ReadEntriesFile(path string) ([]domain.RawEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadEntries(f, FormatCSV)
	case ".ndjson", ".jsonl":
		return ReadEntries(f, FormatNDJSON)
	case ".json":
		return ReadEntries(f, FormatJSON)
	default:
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, err
		}
		if entries, err := ReadEntries(strings.NewReader(string(data)), FormatCSV); err == nil && len(entries) > 0 {
			return entries, nil
		}
		return ReadEntries(strings.NewReader(string(data)), FormatNDJSON)
	}
}

// ReadEntries decodes raw entries from r
func ReadEntries(r io.Reader, format Format) ([]domain.RawEntry, error) {
	switch format {
	case FormatCSV:
		return readCSV(r)
	case FormatNDJSON:
		return readNDJSON(r)
	case FormatJSON:
		var entries []domain.RawEntry
		if err := json.NewDecoder(r).Decode(&entries); err != nil {
			return nil, fmt.Errorf("decode json entries: %w", err)
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func readCSV(r io.Reader) ([]domain.RawEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("empty csv")
	}

	cols := map[string]int{}
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	titleCol, ok := cols["title"]
	if !ok {
		return nil, errors.New("csv must contain a 'title' header column")
	}

	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	entries := make([]domain.RawEntry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if titleCol >= len(row) {
			row = append(row, make([]string, titleCol-len(row)+1)...)
		}
		entry := domain.RawEntry{
			Title:     strings.TrimSpace(row[titleCol]),
			PosterURL: cell(row, "poster_url"),
			Year:      domain.ParseYear(cell(row, "year")),
		}
		if v := cell(row, "user_rating"); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 5 {
				entry.UserRating = &f
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func readNDJSON(r io.Reader) ([]domain.RawEntry, error) {
	var entries []domain.RawEntry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		// allow a bare title string or a full entry object
		if !strings.HasPrefix(text, "{") {
			entries = append(entries, domain.RawEntry{Title: strings.Trim(text, `"`)})
			continue
		}
		var e domain.RawEntry
		if err := json.Unmarshal([]byte(text), &e); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.New("no entries found in ndjson")
	}
	return entries, nil
}
