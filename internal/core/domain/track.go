package domain

// Feature names shared by the aggregator and the chart renderers.
const (
	FeatureDanceability = "danceability"
	FeatureLoudness     = "loudness"
	FeatureEnergy       = "energy"
	FeatureValence      = "valence"
	FeatureTempo        = "tempo"
)

// NumericFeatures lists the averaged columns in table order.
var NumericFeatures = []string{
	FeatureLoudness,
	FeatureDanceability,
	FeatureEnergy,
	FeatureValence,
	FeatureTempo,
}

// AudioFeatures holds the per-track descriptors computed by the catalog.
// When Missing is true the catalog had no data and every value is 0.
type AudioFeatures struct {
	Danceability float64 `json:"danceability"`
	Loudness     float64 `json:"loudness"`
	Energy       float64 `json:"energy"`
	Valence      float64 `json:"valence"`
	Tempo        float64 `json:"tempo"`
	Missing      bool    `json:"missing,omitempty"`
}

// MissingFeatures returns the zero-valued placeholder used when a lookup yields nothing.
func MissingFeatures() AudioFeatures {
	return AudioFeatures{Missing: true}
}

// Value returns the named feature. Unknown names report ok=false.
func (f AudioFeatures) Value(name string) (float64, bool) {
	switch name {
	case FeatureDanceability:
		return f.Danceability, true
	case FeatureLoudness:
		return f.Loudness, true
	case FeatureEnergy:
		return f.Energy, true
	case FeatureValence:
		return f.Valence, true
	case FeatureTempo:
		return f.Tempo, true
	default:
		return 0, false
	}
}

// TrackRecord is the flat per-track row built for one queried artist.
type TrackRecord struct {
	TrackID       string        `json:"track_id"`
	Name          string        `json:"name"`
	Album         string        `json:"album"`
	Artist        string        `json:"artist"`
	ReleaseDate   string        `json:"release_date"` // as returned by the API, not parsed
	Popularity    int           `json:"popularity"`
	AlbumCoverURL string        `json:"album_cover,omitempty"`
	Features      AudioFeatures `json:"features"`
	ArtistID      string        `json:"artist_id"`
	Performers    []string      `json:"performers,omitempty"`
}

// Feature returns the named audio feature, or 0 for unknown names.
func (r TrackRecord) Feature(name string) float64 {
	v, _ := r.Features.Value(name)
	return v
}

// TopTrack is a catalog top-track entry before features are attached.
type TopTrack struct {
	ID            string
	Name          string
	Album         string
	ReleaseDate   string
	Popularity    int
	AlbumCoverURL string
	Performers    []string
}

// NewTrackRecord joins a top track with its artist provenance and features.
func NewTrackRecord(artist ArtistProfile, t TopTrack, features AudioFeatures) TrackRecord {
	performers := make([]string, len(t.Performers))
	copy(performers, t.Performers)
	return TrackRecord{
		TrackID:       t.ID,
		Name:          t.Name,
		Album:         t.Album,
		Artist:        artist.Name,
		ReleaseDate:   t.ReleaseDate,
		Popularity:    t.Popularity,
		AlbumCoverURL: t.AlbumCoverURL,
		Features:      features,
		ArtistID:      artist.ID,
		Performers:    performers,
	}
}

// FilterByArtist returns the records whose display name equals name, in order.
func FilterByArtist(records []TrackRecord, name string) []TrackRecord {
	var out []TrackRecord
	for _, r := range records {
		if r.Artist == name {
			out = append(out, r)
		}
	}
	return out
}

// FeatureValues collects one feature column for the records matching name.
func FeatureValues(records []TrackRecord, name, feature string) []float64 {
	var out []float64
	for _, r := range records {
		if r.Artist != name {
			continue
		}
		out = append(out, r.Feature(feature))
	}
	return out
}

func (r TrackRecord) Danceability() float64 { return r.Features.Danceability }
func (r TrackRecord) Loudness() float64     { return r.Features.Loudness }
