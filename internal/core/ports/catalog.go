package ports

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ewilliams-labs/artistcompare/internal/core/domain"
)

// ErrUpstream marks failures talking to the music catalog: transport, auth, or
// non-success API statuses.
var ErrUpstream = errors.New("upstream error")

// UpstreamError carries the HTTP status the catalog answered with, when known.
type UpstreamError struct {
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d (%s): %v", e.Op, e.Status, http.StatusText(e.Status), e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// CatalogProvider is the read-only view of the music catalog the pipeline needs.
type CatalogProvider interface {
	// SearchArtists returns up to limit artists matching name, in catalog order.
	SearchArtists(ctx context.Context, name string, limit int) ([]domain.ArtistProfile, error)
	// TopTracks returns the artist's top tracks for the configured market.
	TopTracks(ctx context.Context, artistID string) ([]domain.TopTrack, error)
	// AudioFeatures returns one entry per requested id. Ids without data map
	// to domain.MissingFeatures().
	AudioFeatures(ctx context.Context, trackIDs ...string) (map[string]domain.AudioFeatures, error)
}
