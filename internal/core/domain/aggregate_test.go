package domain

import (
	"math"
	"testing"
)

func TestAggregate(t *testing.T) {
	records := []TrackRecord{
		{Artist: "A", ArtistID: "a", Features: AudioFeatures{Danceability: 0.5, Loudness: -6, Energy: 0.4, Valence: 0.2, Tempo: 100}},
		{Artist: "A", ArtistID: "a", Features: AudioFeatures{Danceability: 0.7, Loudness: -8, Energy: 0.6, Valence: 0.4, Tempo: 120}},
		{Artist: "B", ArtistID: "b", Features: AudioFeatures{Danceability: 0.2, Loudness: -10, Energy: 0.9, Valence: 0.1, Tempo: 90}},
	}

	tests := []struct {
		name     string
		artists  []string
		wantRows []AggregateRow
	}{
		{
			name:    "explicit order",
			artists: []string{"A", "B"},
			wantRows: []AggregateRow{
				{Artist: "A", ArtistID: "a", Tracks: 2, Danceability: 0.6, Loudness: -7, Energy: 0.5, Valence: 0.3, Tempo: 110},
				{Artist: "B", ArtistID: "b", Tracks: 1, Danceability: 0.2, Loudness: -10, Energy: 0.9, Valence: 0.1, Tempo: 90},
			},
		},
		{
			name:    "first appearance order",
			artists: nil,
			wantRows: []AggregateRow{
				{Artist: "A", ArtistID: "a", Tracks: 2, Danceability: 0.6, Loudness: -7, Energy: 0.5, Valence: 0.3, Tempo: 110},
				{Artist: "B", ArtistID: "b", Tracks: 1, Danceability: 0.2, Loudness: -10, Energy: 0.9, Valence: 0.1, Tempo: 90},
			},
		},
		{
			name:    "reversed order",
			artists: []string{"B", "A"},
			wantRows: []AggregateRow{
				{Artist: "B", ArtistID: "b", Tracks: 1, Danceability: 0.2, Loudness: -10, Energy: 0.9, Valence: 0.1, Tempo: 90},
				{Artist: "A", ArtistID: "a", Tracks: 2, Danceability: 0.6, Loudness: -7, Energy: 0.5, Valence: 0.3, Tempo: 110},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(records, tt.artists...)
			if len(got) != len(tt.wantRows) {
				t.Fatalf("rows: got %d, want %d", len(got), len(tt.wantRows))
			}
			for i, want := range tt.wantRows {
				compareRows(t, got[i], want)
			}
		})
	}
}

func TestAggregate_EmptyGroupHasNoData(t *testing.T) {
	records := []TrackRecord{
		{Artist: "A", ArtistID: "a", Features: AudioFeatures{Danceability: 0.5}},
	}

	rows := Aggregate(records, "A", "Nobody")
	if len(rows) != 2 {
		t.Fatalf("rows: got %d, want 2", len(rows))
	}
	empty := rows[1]
	if !empty.NoData() {
		t.Fatalf("expected NoData for artist without tracks")
	}
	for _, feature := range NumericFeatures {
		if !math.IsNaN(empty.Mean(feature)) {
			t.Errorf("%s: got %v, want NaN", feature, empty.Mean(feature))
		}
	}
	if rows[0].NoData() {
		t.Errorf("artist with tracks reported NoData")
	}
}

func TestAggregate_NoRecords(t *testing.T) {
	if rows := Aggregate(nil); len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}

func TestAggregate_MissingFeaturesCountAsZero(t *testing.T) {
	records := []TrackRecord{
		{Artist: "A", Features: AudioFeatures{Danceability: 0.8, Tempo: 120}},
		{Artist: "A", Features: MissingFeatures()},
	}

	rows := Aggregate(records)
	if !approx(rows[0].Danceability, 0.4) {
		t.Errorf("danceability: got %v, want 0.4", rows[0].Danceability)
	}
	if !approx(rows[0].Tempo, 60) {
		t.Errorf("tempo: got %v, want 60", rows[0].Tempo)
	}
}

func compareRows(t *testing.T, got, want AggregateRow) {
	t.Helper()
	if got.Artist != want.Artist {
		t.Errorf("Artist: got %q, want %q", got.Artist, want.Artist)
	}
	if got.ArtistID != want.ArtistID {
		t.Errorf("ArtistID: got %q, want %q", got.ArtistID, want.ArtistID)
	}
	if got.Tracks != want.Tracks {
		t.Errorf("%s Tracks: got %d, want %d", want.Artist, got.Tracks, want.Tracks)
	}
	for _, feature := range NumericFeatures {
		if !approx(got.Mean(feature), want.Mean(feature)) {
			t.Errorf("%s %s: got %v, want %v", want.Artist, feature, got.Mean(feature), want.Mean(feature))
		}
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
