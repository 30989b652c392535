package domain

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// AggregateRow is the per-artist mean of the numeric audio features.
// A row built from zero tracks carries NaN means.
type AggregateRow struct {
	Artist       string  `json:"artist"`
	ArtistID     string  `json:"artist_id,omitempty"`
	Tracks       int     `json:"tracks"`
	Loudness     float64 `json:"loudness"`
	Danceability float64 `json:"danceability"`
	Energy       float64 `json:"energy"`
	Valence      float64 `json:"valence"`
	Tempo        float64 `json:"tempo"`
}

// NoData reports whether the row was built without any tracks.
func (r AggregateRow) NoData() bool {
	return r.Tracks == 0
}

// Mean returns the averaged value for a feature name.
func (r AggregateRow) Mean(feature string) float64 {
	switch feature {
	case FeatureLoudness:
		return r.Loudness
	case FeatureDanceability:
		return r.Danceability
	case FeatureEnergy:
		return r.Energy
	case FeatureValence:
		return r.Valence
	case FeatureTempo:
		return r.Tempo
	default:
		return math.NaN()
	}
}

// Aggregate groups records by artist display name and averages each numeric
// feature. Rows follow the order of artists; with no artists given, the order
// of first appearance in records is used. Requested artists without records
// produce a NoData row instead of a division by zero.
func Aggregate(records []TrackRecord, artists ...string) []AggregateRow {
	order := artists
	if len(order) == 0 {
		seen := make(map[string]struct{})
		for _, r := range records {
			if _, ok := seen[r.Artist]; ok {
				continue
			}
			seen[r.Artist] = struct{}{}
			order = append(order, r.Artist)
		}
	}

	rows := make([]AggregateRow, 0, len(order))
	for _, name := range order {
		group := FilterByArtist(records, name)
		row := AggregateRow{Artist: name, Tracks: len(group)}
		if len(group) > 0 {
			row.ArtistID = group[0].ArtistID
		}
		row.Loudness = meanOf(group, FeatureLoudness)
		row.Danceability = meanOf(group, FeatureDanceability)
		row.Energy = meanOf(group, FeatureEnergy)
		row.Valence = meanOf(group, FeatureValence)
		row.Tempo = meanOf(group, FeatureTempo)
		rows = append(rows, row)
	}
	return rows
}

func meanOf(group []TrackRecord, feature string) float64 {
	if len(group) == 0 {
		return math.NaN()
	}
	values := make([]float64, len(group))
	for i, r := range group {
		values[i] = r.Feature(feature)
	}
	return stat.Mean(values, nil)
}
