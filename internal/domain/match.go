package domain

// Matcher passes
const (
	PassExactYear = "exact_year"
	PassFirstFilm = "first_film"
)

// MatchResult represents the candidate picked for a scraped title
type MatchResult struct {
	Candidate CandidateRecord `json:"candidate"`
	Pass      string          `json:"pass"`
	Position  int             `json:"position"` // index in the unfiltered source order
	Rejected  int             `json:"rejected"` // candidates dropped by the filters
}
