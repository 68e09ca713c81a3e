package main

import (
	"strings"
	"testing"

	"moviebuzz/models"
)

func TestFormatDetailRendersFullRecord(t *testing.T) {
	out := formatDetail(models.MovieDetail{
		ID:         "tt1160419",
		Title:      "Dune",
		Year:       "2021",
		Rated:      "PG-13",
		Runtime:    "155 min",
		Genre:      "Adventure, Drama, Sci-Fi",
		Director:   "Denis Villeneuve",
		Actors:     "Timothée Chalamet, Rebecca Ferguson",
		Plot:       "A noble family becomes embroiled in a war.",
		Language:   "English",
		Country:    "United States",
		IMDBRating: "8.0",
		Metascore:  "74",
		Ratings: []models.Rating{
			{Source: "Rotten Tomatoes", Value: "83%"},
		},
	})

	for _, want := range []string{
		"Dune (2021)",
		"PG-13",
		"155 min",
		"Denis Villeneuve",
		"Timothée Chalamet",
		"Rotten Tomatoes",
		"83%",
		"8.0",
		"A noble family becomes embroiled in a war.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("detail output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatDetailSkipsBlankFields(t *testing.T) {
	out := formatDetail(models.MovieDetail{Title: "Dune", Year: "2021"})

	for _, label := range []string{"Metascore", "Awards", "Director"} {
		if strings.Contains(out, label) {
			t.Errorf("blank field %q should be omitted:\n%s", label, out)
		}
	}
	if !strings.Contains(out, "Dune (2021)") {
		t.Errorf("header missing:\n%s", out)
	}
}
