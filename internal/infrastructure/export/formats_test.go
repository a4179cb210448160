package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodboxd/backend/internal/domain"
)

func rating(v float64) *float64 { return &v }

func sampleRecords() []domain.EnrichedRecord {
	return []domain.EnrichedRecord{
		{
			RawEntry:       domain.RawEntry{Title: "Poster for Inception (2010)", PosterURL: "https://img/1.jpg", UserRating: rating(4.5)},
			ExternalID:     "tt1375666",
			TitleCanonical: "Inception",
			YearCanonical:  2010,
			Country:        "United States, United Kingdom",
			Genre:          "Action, Adventure, Sci-Fi",
			SourceURL:      "https://www.imdb.com/title/tt1375666/",
		},
		{
			RawEntry: domain.RawEntry{Title: "Mystery Podcast"},
			Error:    "No matching movie found",
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"csv": FormatCSV, "CSV": FormatCSV, "ndjson": FormatNDJSON, "jsonl": FormatNDJSON, "json": FormatJSON, "": FormatJSON}
	for name, want := range tests {
		got, err := ParseFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseFormat("xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFormatMetadata(t *testing.T) {
	assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
	assert.Equal(t, "application/x-ndjson", FormatNDJSON.ContentType())
	assert.Equal(t, ".csv", FormatCSV.Extension())
}

func TestWriteRecords_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRecords(&buf, FormatCSV, sampleRecords()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "title,poster_url,user_rating,year,external_id,title_canonical,year_canonical,country,genre,source_url,error", lines[0])
	assert.Equal(t, `Poster for Inception (2010),https://img/1.jpg,4.5,,tt1375666,Inception,2010,"United States, United Kingdom","Action, Adventure, Sci-Fi",https://www.imdb.com/title/tt1375666/,`, lines[1])
	assert.Equal(t, "Mystery Podcast,,,,,,,,,,No matching movie found", lines[2])
}

func TestWriteRecords_NDJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRecords(&buf, FormatNDJSON, sampleRecords()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"title":"Poster for Inception (2010)","poster_url":"https://img/1.jpg","user_rating":4.5,"external_id":"tt1375666","title_canonical":"Inception","year_canonical":2010,"country":"United States, United Kingdom","genre":"Action, Adventure, Sci-Fi","source_url":"https://www.imdb.com/title/tt1375666/"}`, lines[0])
	assert.JSONEq(t, `{"title":"Mystery Podcast","error":"No matching movie found"}`, lines[1])
}

func TestWriteEntries_JSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEntries(&buf, FormatJSON, nil))
	assert.JSONEq(t, `[]`, buf.String())
}

func TestEntriesRoundTrip(t *testing.T) {
	entries := []domain.RawEntry{
		{Title: "Heat", PosterURL: "https://img/heat.jpg", UserRating: rating(3.5), Year: 1995},
		{Title: "", PosterURL: "https://img/blank.jpg"},
		{Title: "Alien, the \"original\""},
	}

	for _, format := range []Format{FormatCSV, FormatNDJSON, FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteEntries(&buf, format, entries))

			got, err := ReadEntries(&buf, format)
			require.NoError(t, err)
			assert.Equal(t, entries, got)
		})
	}
}

func TestReadEntries_CSVLenient(t *testing.T) {
	input := "Year,Title,Letterboxd URI\n2010,Inception,https://boxd.it/1\nabc,Heat,\n"

	got, err := ReadEntries(strings.NewReader(input), FormatCSV)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.RawEntry{Title: "Inception", Year: 2010}, got[0])
	assert.Equal(t, domain.RawEntry{Title: "Heat"}, got[1])
}

func TestReadEntries_CSVWithoutTitle(t *testing.T) {
	_, err := ReadEntries(strings.NewReader("name\nHeat\n"), FormatCSV)
	assert.Error(t, err)
}

func TestReadEntries_NDJSONBareTitles(t *testing.T) {
	input := "Heat\n\n\"Alien\"\n{\"title\":\"Inception\",\"year\":\"2010\"}\n"

	got, err := ReadEntries(strings.NewReader(input), FormatNDJSON)

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Heat", got[0].Title)
	assert.Equal(t, "Alien", got[1].Title)
	assert.Equal(t, domain.Year(2010), got[2].Year)
}

func TestReadEntriesFile(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "films.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("title\nHeat\n"), 0o644))
	got, err := ReadEntriesFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, []domain.RawEntry{{Title: "Heat"}}, got)

	txtPath := filepath.Join(dir, "films.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("{\"title\":\"Alien\"}\n"), 0o644))
	got, err = ReadEntriesFile(txtPath)
	require.NoError(t, err)
	assert.Equal(t, []domain.RawEntry{{Title: "Alien"}}, got)

	_, err = ReadEntriesFile(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}
