package models

import "testing"

func TestHasUsablePoster(t *testing.T) {
	cases := []struct {
		poster string
		want   bool
	}{
		{"http://img/dune.jpg", true},
		{"N/A", false},
		{"", false},
		{"   ", false},
		{"null", false},
		{"undefined", false},
	}
	for _, tc := range cases {
		m := MovieSummary{Poster: tc.poster}
		if got := m.HasUsablePoster(); got != tc.want {
			t.Errorf("HasUsablePoster(%q) = %v, want %v", tc.poster, got, tc.want)
		}
	}
}

func TestMatchesLanguage(t *testing.T) {
	cases := []struct {
		field    string
		language string
		want     bool
	}{
		{"English", "English", true},
		{"English, Spanish", "spanish", true},
		{"English", "SPANISH", false},
		{"English", "", true},
		{"", "English", false},
		{"French, Japanese", "  japanese ", true},
	}
	for _, tc := range cases {
		d := MovieDetail{Language: tc.field}
		if got := d.MatchesLanguage(tc.language); got != tc.want {
			t.Errorf("MatchesLanguage(%q, %q) = %v, want %v", tc.field, tc.language, got, tc.want)
		}
	}
}
