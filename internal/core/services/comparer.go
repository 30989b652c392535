package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ewilliams-labs/artistcompare/internal/core/domain"
	"github.com/ewilliams-labs/artistcompare/internal/core/ports"
	"github.com/ewilliams-labs/artistcompare/internal/logging"
)

// DefaultTrackLimit is how many top tracks per artist feed a comparison.
const DefaultTrackLimit = 10

// Comparer runs the two-artist comparison pipeline.
type Comparer struct {
	resolver   ports.ArtistResolver
	catalog    ports.CatalogProvider
	recorder   ports.ComparisonRecorder
	logger     *slog.Logger
	trackLimit int
	now        func() time.Time
}

// Option customizes a Comparer.
type Option func(*Comparer)

// WithRecorder hands every finished comparison to r.
func WithRecorder(r ports.ComparisonRecorder) Option {
	return func(c *Comparer) { c.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Comparer) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTrackLimit caps the number of top tracks used per artist.
func WithTrackLimit(n int) Option {
	return func(c *Comparer) {
		if n > 0 {
			c.trackLimit = n
		}
	}
}

// NewComparer constructs a Comparer.
func NewComparer(resolver ports.ArtistResolver, catalog ports.CatalogProvider, opts ...Option) *Comparer {
	c := &Comparer{
		resolver:   resolver,
		catalog:    catalog,
		logger:     logging.NewNop(),
		trackLimit: DefaultTrackLimit,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "service")
	return c
}

type side struct {
	artist  domain.ArtistProfile
	records []domain.TrackRecord
	missing int
}

// Compare resolves both names, fetches their top tracks and audio features
// and returns the joined records with per-artist averages. Names are checked
// before any catalog call. Any failure aborts the whole run.
func (c *Comparer) Compare(ctx context.Context, leftName, rightName string) (domain.Comparison, error) {
	left := strings.TrimSpace(leftName)
	right := strings.TrimSpace(rightName)

	var empty []string
	if left == "" {
		empty = append(empty, "artist1")
	}
	if right == "" {
		empty = append(empty, "artist2")
	}
	if len(empty) > 0 {
		return domain.Comparison{}, &domain.InputError{Fields: empty}
	}

	run := domain.Comparison{RunID: uuid.New(), StartedAt: c.now()}
	log := c.logger.With("run_id", run.RunID.String())
	log.Info("comparison started", "left", left, "right", right)

	memo := newFeatureMemo(c.catalog)
	var sides [2]side
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range []string{left, right} {
		g.Go(func() error {
			s, err := c.collect(gctx, name, memo, log)
			if err != nil {
				return err
			}
			sides[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn("comparison failed", "error", err)
		return domain.Comparison{}, err
	}

	run.Left = sides[0].artist
	run.Right = sides[1].artist
	run.Records = make([]domain.TrackRecord, 0, len(sides[0].records)+len(sides[1].records))
	run.Records = append(run.Records, sides[0].records...)
	run.Records = append(run.Records, sides[1].records...)
	run.MissingFeatures = sides[0].missing + sides[1].missing
	resolvedLeft, resolvedRight := run.Names()
	run.Aggregates = domain.Aggregate(run.Records, resolvedLeft, resolvedRight)
	run.FinishedAt = c.now()

	log.Info("comparison finished",
		"left", run.Left.Name,
		"right", run.Right.Name,
		"tracks", len(run.Records),
		"missing_features", run.MissingFeatures,
		"duration", run.FinishedAt.Sub(run.StartedAt))

	if c.recorder != nil {
		c.recorder.Record(run)
	}
	return run, nil
}

func (c *Comparer) collect(ctx context.Context, name string, memo *featureMemo, log *slog.Logger) (side, error) {
	artist, err := c.resolver.Resolve(ctx, name)
	if err != nil {
		return side{}, err
	}

	tracks, err := c.catalog.TopTracks(ctx, artist.ID)
	if err != nil {
		return side{}, fmt.Errorf("service: failed to fetch top tracks for %q: %w", artist.Name, err)
	}
	if len(tracks) > c.trackLimit {
		tracks = tracks[:c.trackLimit]
	}

	var features map[string]domain.AudioFeatures
	if len(tracks) > 0 {
		features, err = memo.lookup(ctx, trackIDs(tracks))
		if err != nil {
			return side{}, err
		}
	}

	records, missing := buildRecords(artist, tracks, features, log)
	return side{artist: artist, records: records, missing: missing}, nil
}
