package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/ewilliams-labs/artistcompare/internal/core/domain"
	"github.com/ewilliams-labs/artistcompare/internal/core/ports"
	"github.com/ewilliams-labs/artistcompare/internal/logging"
)

// Resolver strategy names accepted by NewResolver.
const (
	StrategyFirst      = "first"
	StrategySimilarity = "similarity"
)

var (
	_ ports.ArtistResolver = (*FirstResultResolver)(nil)
	_ ports.ArtistResolver = (*SimilarityResolver)(nil)
)

// FirstResultResolver takes the first artist the catalog search returns.
type FirstResultResolver struct {
	catalog ports.CatalogProvider
}

// NewFirstResultResolver constructs a FirstResultResolver.
func NewFirstResultResolver(catalog ports.CatalogProvider) *FirstResultResolver {
	return &FirstResultResolver{catalog: catalog}
}

// Resolve searches with a limit of one and returns the single hit.
func (r *FirstResultResolver) Resolve(ctx context.Context, name string) (domain.ArtistProfile, error) {
	artists, err := r.catalog.SearchArtists(ctx, name, 1)
	if err != nil {
		return domain.ArtistProfile{}, fmt.Errorf("service: search artist %q: %w", name, err)
	}
	if len(artists) == 0 {
		return domain.ArtistProfile{}, &domain.ArtistNotFoundError{Query: name}
	}
	return artists[0], nil
}

// SimilarityResolver inspects several candidates and keeps the one whose
// name is closest to the query.
type SimilarityResolver struct {
	catalog       ports.CatalogProvider
	candidates    int
	minSimilarity float64
	metric        *metrics.JaroWinkler
	logger        *slog.Logger
}

// NewSimilarityResolver constructs a SimilarityResolver. Candidates below one
// fall back to five; a nil logger discards output.
func NewSimilarityResolver(catalog ports.CatalogProvider, candidates int, minSimilarity float64, logger *slog.Logger) *SimilarityResolver {
	if candidates < 1 {
		candidates = 5
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	metric := metrics.NewJaroWinkler()
	metric.CaseSensitive = false
	return &SimilarityResolver{
		catalog:       catalog,
		candidates:    candidates,
		minSimilarity: minSimilarity,
		metric:        metric,
		logger:        logger.With("component", "service"),
	}
}

// Resolve scores every candidate against the query. Ties keep catalog order;
// when nothing reaches the minimum similarity the first candidate wins.
func (r *SimilarityResolver) Resolve(ctx context.Context, name string) (domain.ArtistProfile, error) {
	artists, err := r.catalog.SearchArtists(ctx, name, r.candidates)
	if err != nil {
		return domain.ArtistProfile{}, fmt.Errorf("service: search artist %q: %w", name, err)
	}
	if len(artists) == 0 {
		return domain.ArtistProfile{}, &domain.ArtistNotFoundError{Query: name}
	}

	query := normalizeArtistName(name)
	best, bestScore := 0, -1.0
	for i, a := range artists {
		score := strutil.Similarity(query, normalizeArtistName(a.Name), r.metric)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if bestScore < r.minSimilarity {
		r.logger.Debug("no candidate reached similarity threshold",
			"query", name, "best", artists[best].Name, "score", bestScore)
		return artists[0], nil
	}
	if best != 0 {
		r.logger.Debug("resolved artist past first result",
			"query", name, "picked", artists[best].Name, "first", artists[0].Name, "score", bestScore)
	}
	return artists[best], nil
}

// NewResolver builds the resolver named by strategy.
func NewResolver(strategy string, catalog ports.CatalogProvider, candidates int, minSimilarity float64, logger *slog.Logger) (ports.ArtistResolver, error) {
	switch strategy {
	case "", StrategyFirst:
		return NewFirstResultResolver(catalog), nil
	case StrategySimilarity:
		return NewSimilarityResolver(catalog, candidates, minSimilarity, logger), nil
	default:
		return nil, fmt.Errorf("service: unknown resolver strategy %q", strategy)
	}
}
