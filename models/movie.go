package models

import "strings"

// PosterUnavailable is the sentinel the catalog returns when no artwork exists.
const PosterUnavailable = "N/A"

// MovieSummary is a single entry from a catalog search response.
type MovieSummary struct {
	ID     string `json:"imdbID"`
	Title  string `json:"title"`
	Year   string `json:"year"`
	Type   string `json:"type"`
	Poster string `json:"poster"`
}

// HasUsablePoster reports whether the summary carries real artwork rather
// than the catalog's unavailable sentinel or junk placeholder text.
func (m MovieSummary) HasUsablePoster() bool {
	poster := strings.TrimSpace(m.Poster)
	if poster == "" || poster == PosterUnavailable {
		return false
	}
	return poster != "null" && poster != "undefined"
}

// Rating is a single review source entry on a movie detail record.
type Rating struct {
	Source string `json:"source"`
	Value  string `json:"value"`
}

// MovieDetail is the full catalog record for a single title. Detail content
// for a given id does not change within a session, so records are safe to
// cache indefinitely keyed by id.
type MovieDetail struct {
	ID         string   `json:"imdbID"`
	Title      string   `json:"title"`
	Year       string   `json:"year"`
	Rated      string   `json:"rated"`
	Released   string   `json:"released"`
	Runtime    string   `json:"runtime"`
	Genre      string   `json:"genre"`
	Director   string   `json:"director"`
	Writer     string   `json:"writer"`
	Actors     string   `json:"actors"`
	Plot       string   `json:"plot"`
	Language   string   `json:"language"`
	Country    string   `json:"country"`
	Awards     string   `json:"awards"`
	Poster     string   `json:"poster"`
	Ratings    []Rating `json:"ratings,omitempty"`
	Metascore  string   `json:"metascore"`
	IMDBRating string   `json:"imdbRating"`
	IMDBVotes  string   `json:"imdbVotes"`
	Type       string   `json:"type"`
	BoxOffice  string   `json:"boxOffice,omitempty"`
	Production string   `json:"production,omitempty"`
	Website    string   `json:"website,omitempty"`
}

// MatchesLanguage reports whether the detail's language field contains the
// given value as a case-insensitive substring. The field is free text and
// may list several languages ("English, Spanish").
func (d MovieDetail) MatchesLanguage(language string) bool {
	language = strings.TrimSpace(language)
	if language == "" {
		return true
	}
	return strings.Contains(strings.ToLower(d.Language), strings.ToLower(language))
}

// SearchPage is one page of catalog search results.
type SearchPage struct {
	Items          []MovieSummary
	TotalAvailable int
	PageIndex      int
}
