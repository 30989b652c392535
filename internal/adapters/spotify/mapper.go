package spotify

import (
	spotifyapi "github.com/zmb3/spotify/v2"

	"github.com/ewilliams-labs/artistcompare/internal/core/domain"
)

// mapArtistToDomain keeps the first (largest) image as the avatar.
func mapArtistToDomain(a spotifyapi.FullArtist) domain.ArtistProfile {
	imageURL := ""
	if len(a.Images) > 0 {
		imageURL = a.Images[0].URL
	}

	genres := make([]string, len(a.Genres))
	copy(genres, a.Genres)

	return domain.ArtistProfile{
		ID:         string(a.ID),
		Name:       a.Name,
		Followers:  int(a.Followers.Count),
		Popularity: int(a.Popularity),
		Genres:     genres,
		ImageURL:   imageURL,
	}
}

// mapTrackToDomain flattens a top track. Release date stays as the API string.
func mapTrackToDomain(t spotifyapi.FullTrack) domain.TopTrack {
	performers := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		performers = append(performers, a.Name)
	}

	coverURL := ""
	if len(t.Album.Images) > 0 {
		coverURL = t.Album.Images[0].URL
	}

	return domain.TopTrack{
		ID:            string(t.ID),
		Name:          t.Name,
		Album:         t.Album.Name,
		ReleaseDate:   t.Album.ReleaseDate,
		Popularity:    int(t.Popularity),
		AlbumCoverURL: coverURL,
		Performers:    performers,
	}
}

// mapFeaturesToDomain turns a missing entry into zeroed features.
func mapFeaturesToDomain(f *spotifyapi.AudioFeatures) domain.AudioFeatures {
	if f == nil {
		return domain.MissingFeatures()
	}
	return domain.AudioFeatures{
		Danceability: float64(f.Danceability),
		Loudness:     float64(f.Loudness),
		Energy:       float64(f.Energy),
		Valence:      float64(f.Valence),
		Tempo:        float64(f.Tempo),
	}
}
