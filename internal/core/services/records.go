package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ewilliams-labs/artistcompare/internal/core/domain"
	"github.com/ewilliams-labs/artistcompare/internal/core/ports"
)

// featureMemo caches audio features for the lifetime of one comparison run.
// Concurrent callers asking for an id that is already in flight wait for the
// owning request instead of issuing a second one.
type featureMemo struct {
	catalog ports.CatalogProvider

	mu      sync.Mutex
	done    map[string]domain.AudioFeatures
	pending map[string]chan struct{}
}

func newFeatureMemo(catalog ports.CatalogProvider) *featureMemo {
	return &featureMemo{
		catalog: catalog,
		done:    make(map[string]domain.AudioFeatures),
		pending: make(map[string]chan struct{}),
	}
}

// lookup returns features for every id, requesting only the ids that no
// earlier or concurrent caller has asked for.
func (m *featureMemo) lookup(ctx context.Context, ids []string) (map[string]domain.AudioFeatures, error) {
	var fetch []string
	var waits []chan struct{}
	seen := make(map[string]struct{}, len(ids))

	m.mu.Lock()
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := m.done[id]; ok {
			continue
		}
		if ch, ok := m.pending[id]; ok {
			waits = append(waits, ch)
			continue
		}
		fetch = append(fetch, id)
	}
	var owned chan struct{}
	if len(fetch) > 0 {
		owned = make(chan struct{})
		for _, id := range fetch {
			m.pending[id] = owned
		}
	}
	m.mu.Unlock()

	if owned != nil {
		got, err := m.catalog.AudioFeatures(ctx, fetch...)
		m.mu.Lock()
		for _, id := range fetch {
			delete(m.pending, id)
			if err != nil {
				continue
			}
			f, ok := got[id]
			if !ok {
				f = domain.MissingFeatures()
			}
			m.done[id] = f
		}
		m.mu.Unlock()
		close(owned)
		if err != nil {
			return nil, fmt.Errorf("service: failed to fetch audio features: %w", err)
		}
	}

	for _, ch := range waits {
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.AudioFeatures, len(seen))
	for id := range seen {
		f, ok := m.done[id]
		if !ok {
			return nil, fmt.Errorf("service: audio features for track %s unavailable", id)
		}
		out[id] = f
	}
	return out, nil
}

// buildRecords joins the artist with each top track and its features, in
// top-track order. It returns how many tracks had no feature data.
func buildRecords(artist domain.ArtistProfile, tracks []domain.TopTrack, features map[string]domain.AudioFeatures, logger *slog.Logger) ([]domain.TrackRecord, int) {
	records := make([]domain.TrackRecord, 0, len(tracks))
	missing := 0
	for _, t := range tracks {
		f, ok := features[t.ID]
		if !ok {
			f = domain.MissingFeatures()
		}
		if f.Missing {
			missing++
			logger.Warn("audio features missing, using zeros",
				"artist", artist.Name, "track", t.Name, "track_id", t.ID)
		}
		records = append(records, domain.NewTrackRecord(artist, t, f))
	}
	return records, missing
}

func trackIDs(tracks []domain.TopTrack) []string {
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		ids = append(ids, t.ID)
	}
	return ids
}
