package imdb

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/moodboxd/backend/internal/domain"
)

// SuggestionResponse is the payload of the suggestion endpoint
type SuggestionResponse struct {
	Query string       `json:"q"`
	Items []Suggestion `json:"d"`
}

// Suggestion is one ranked search hit
type Suggestion struct {
	ID       string      `json:"id"`
	Label    string      `json:"l"`
	Category string      `json:"q"`
	QID      string      `json:"qid"`
	Year     domain.Year `json:"y"`
	Stars    string      `json:"s"`
}

// qidKinds maps suggestion type ids to domain kinds
var qidKinds = map[string]domain.Kind{
	"movie":          domain.KindFilm,
	"tvSeries":       domain.KindTVSeries,
	"tvMiniSeries":   domain.KindTVMiniSeries,
	"tvEpisode":      domain.KindTVEpisode,
	"tvMovie":        domain.KindTVMovie,
	"tvSpecial":      domain.KindTVSpecial,
	"tvShort":        domain.KindShort,
	"short":          domain.KindShort,
	"video":          domain.KindVideo,
	"musicVideo":     domain.KindVideo,
	"videoGame":      domain.KindVideoGame,
	"podcastSeries":  domain.KindPodcast,
	"podcastEpisode": domain.KindPodcast,
}

// heroKinds maps the type label shown under a title page heading.
// Feature films carry no label.
var heroKinds = map[string]domain.Kind{
	"tv series":       domain.KindTVSeries,
	"tv mini series":  domain.KindTVMiniSeries,
	"tv episode":      domain.KindTVEpisode,
	"episode":         domain.KindTVEpisode,
	"tv movie":        domain.KindTVMovie,
	"tv special":      domain.KindTVSpecial,
	"tv short":        domain.KindShort,
	"short":           domain.KindShort,
	"video":           domain.KindVideo,
	"music video":     domain.KindVideo,
	"video game":      domain.KindVideoGame,
	"podcast series":  domain.KindPodcast,
	"podcast episode": domain.KindPodcast,
}

// ldKinds maps JSON-LD @type values
var ldKinds = map[string]domain.Kind{
	"Movie":          domain.KindFilm,
	"TVSeries":       domain.KindTVSeries,
	"TVEpisode":      domain.KindTVEpisode,
	"VideoGame":      domain.KindVideoGame,
	"PodcastSeries":  domain.KindPodcast,
	"PodcastEpisode": domain.KindPodcast,
	"VideoObject":    domain.KindVideo,
}

// KindFromQID converts a suggestion type id into a kind
func KindFromQID(qid string) domain.Kind {
	if kind, ok := qidKinds[qid]; ok {
		return kind
	}
	return domain.KindUnknown
}

// MapSuggestions converts suggestion hits to candidates, keeping order.
// Hits that are not titles (people, companies) are dropped.
func MapSuggestions(resp *SuggestionResponse) []domain.CandidateRecord {
	candidates := make([]domain.CandidateRecord, 0, len(resp.Items))
	for _, item := range resp.Items {
		if !strings.HasPrefix(item.ID, "tt") {
			continue
		}
		candidates = append(candidates, domain.CandidateRecord{
			ExternalID: item.ID,
			Title:      html.UnescapeString(item.Label),
			Kind:       KindFromQID(item.QID),
			Year:       item.Year,
		})
	}
	return candidates
}

// titleLD is the subset of the title page's JSON-LD block we read
type titleLD struct {
	Type          string          `json:"@type"`
	Name          string          `json:"name"`
	Genre         json.RawMessage `json:"genre"`
	DatePublished string          `json:"datePublished"`
}

// ParseTitlePage extracts a detail record from title page markup
func ParseTitlePage(id string, r io.Reader) (*domain.DetailRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	detail := &domain.DetailRecord{
		ExternalID: id,
		Kind:       domain.KindUnknown,
		Genres:     []string{},
		Countries:  []string{},
	}

	var ld titleLD
	foundLD := false
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if err := json.Unmarshal([]byte(s.Text()), &ld); err == nil && ld.Type != "" {
			foundLD = true
			return false
		}
		return true
	})

	if foundLD {
		detail.Title = html.UnescapeString(strings.TrimSpace(ld.Name))
		if kind, ok := ldKinds[ld.Type]; ok {
			detail.Kind = kind
		}
		if len(ld.DatePublished) >= 4 {
			detail.Year = domain.ParseYear(ld.DatePublished[:4])
		}
		detail.Genres = parseGenres(ld.Genre)
	}

	hero := doc.Find(`h1[data-testid="hero__pageTitle"]`).First()
	if detail.Title == "" {
		detail.Title = strings.TrimSpace(hero.Text())
	}

	// The metadata list under the heading reads e.g. "TV Mini Series · 2019 · TV-MA"
	for _, label := range heroMetadata(hero) {
		folded := strings.ToLower(label)
		if kind, ok := heroKinds[folded]; ok {
			detail.Kind = kind
			continue
		}
		if !detail.Year.Valid() {
			if y := domain.ParseYear(firstYear(label)); y.Valid() {
				detail.Year = y
			}
		}
	}
	if detail.Kind == domain.KindUnknown && foundLD {
		detail.Kind = domain.KindFilm
	}

	if len(detail.Genres) == 0 {
		doc.Find(`[data-testid="genres"] a, [data-testid="interests"] a`).Each(func(_ int, s *goquery.Selection) {
			if g := strings.TrimSpace(s.Text()); g != "" {
				detail.Genres = appendUnique(detail.Genres, g)
			}
		})
	}

	doc.Find(`li[data-testid="title-details-origin"] a`).Each(func(_ int, s *goquery.Selection) {
		if c := strings.TrimSpace(s.Text()); c != "" {
			detail.Countries = appendUnique(detail.Countries, c)
		}
	})

	if detail.Title == "" {
		return nil, errors.New("no title found on page")
	}
	return detail, nil
}

// heroMetadata returns the inline metadata labels following the page heading
func heroMetadata(hero *goquery.Selection) []string {
	if hero.Length() == 0 {
		return nil
	}
	var labels []string
	hero.NextAllFiltered("ul").First().Find("li").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			labels = append(labels, text)
		}
	})
	return labels
}

// parseGenres accepts the JSON-LD genre as a string or an array of strings
func parseGenres(raw json.RawMessage) []string {
	genres := []string{}
	if len(raw) == 0 {
		return genres
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		for _, g := range many {
			if g = strings.TrimSpace(html.UnescapeString(g)); g != "" {
				genres = appendUnique(genres, g)
			}
		}
		return genres
	}

	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		if one = strings.TrimSpace(html.UnescapeString(one)); one != "" {
			genres = append(genres, one)
		}
	}
	return genres
}

// firstYear returns the leading four digits of labels like "2019" or "2019–2023"
func firstYear(label string) string {
	if len(label) < 4 {
		return ""
	}
	head := label[:4]
	for _, r := range head {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return head
}

func appendUnique(values []string, v string) []string {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}

// describe formats a detail record for debug output
func describe(d *domain.DetailRecord) string {
	return fmt.Sprintf("%s %q (%s) %s", d.ExternalID, d.Title, d.Year, d.Kind)
}
