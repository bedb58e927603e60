// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

package filters

import (
	"reflect"
	"testing"

	"github.com/tomtom215/keepwatching/internal/models"
)

func movie(genres, services string) models.Movie {
	return models.Movie{Genres: genres, StreamingServices: services}
}

func TestGenreValues(t *testing.T) {
	tests := []struct {
		name  string
		items []models.Movie
		want  []string
	}{
		{
			name:  "empty input",
			items: []models.Movie{},
			want:  []string{},
		},
		{
			name: "dedup across items",
			items: []models.Movie{
				movie("Action, Drama", ""),
				movie("Comedy, Drama", ""),
				movie("Action, Thriller", ""),
			},
			want: []string{"Action", "Comedy", "Drama", "Thriller"},
		},
		{
			name: "whitespace trimmed before dedup",
			items: []models.Movie{
				movie(" Action , Drama ", ""),
				movie("Action,Drama", ""),
			},
			want: []string{"Action", "Drama"},
		},
		{
			name: "empty field contributes empty string member",
			items: []models.Movie{
				movie("", ""),
			},
			want: []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenreValues(tt.items)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("GenreValues() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenreValuesExampleVector(t *testing.T) {
	// All fields populated, so no empty-string member appears.
	items := []models.Movie{
		{Genres: "Action, Drama", StreamingServices: "Netflix"},
		{Genres: "Comedy, Drama", StreamingServices: "Netflix"},
		{Genres: "Action, Thriller", StreamingServices: "Netflix"},
	}

	want := []string{"Action", "Comedy", "Drama", "Thriller"}
	if got := GenreValues(items); !reflect.DeepEqual(got, want) {
		t.Errorf("GenreValues() = %v, want %v", got, want)
	}
}

func TestStreamingServiceValuesDedupAcrossItems(t *testing.T) {
	items := []models.Movie{
		movie("Action", "Netflix, Hulu, Netflix"),
		movie("Action", "Hulu"),
	}

	want := []string{"Hulu", "Netflix"}
	if got := StreamingServiceValues(items); !reflect.DeepEqual(got, want) {
		t.Errorf("StreamingServiceValues() = %v, want %v", got, want)
	}
}

func TestStreamingServiceValuesEmptyInput(t *testing.T) {
	if got := StreamingServiceValues([]models.Show{}); len(got) != 0 {
		t.Errorf("StreamingServiceValues() = %v, want empty", got)
	}
}

func TestDerivationOrderIndependent(t *testing.T) {
	forward := []models.Show{
		{Genres: "Drama", StreamingServices: "Max"},
		{Genres: "Sci-Fi, Drama", StreamingServices: "Hulu, Max"},
		{Genres: "Comedy", StreamingServices: "Netflix"},
	}
	reversed := []models.Show{forward[2], forward[1], forward[0]}

	if g1, g2 := GenreValues(forward), GenreValues(reversed); !reflect.DeepEqual(g1, g2) {
		t.Errorf("genre derivation order-dependent: %v vs %v", g1, g2)
	}
	if s1, s2 := StreamingServiceValues(forward), StreamingServiceValues(reversed); !reflect.DeepEqual(s1, s2) {
		t.Errorf("service derivation order-dependent: %v vs %v", s1, s2)
	}
}

func TestDerivationIdempotent(t *testing.T) {
	items := []models.Movie{
		movie("Action, Drama", "Netflix, Hulu"),
		movie("Drama", "Hulu"),
	}

	first := GenreValues(items)
	second := GenreValues(items)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated derivation differs: %v vs %v", first, second)
	}
}
