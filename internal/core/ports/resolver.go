package ports

import (
	"context"

	"github.com/ewilliams-labs/artistcompare/internal/core/domain"
)

// ArtistResolver maps a free-text artist name to a single catalog artist.
type ArtistResolver interface {
	Resolve(ctx context.Context, name string) (domain.ArtistProfile, error)
}
