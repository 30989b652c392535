package services

import (
	"context"
	"sync"

	"github.com/ewilliams-labs/artistcompare/internal/core/domain"
)

// --- Mocks ---

// mockCatalog is a goroutine-safe stand-in for the catalog provider.
type mockCatalog struct {
	artists  map[string][]domain.ArtistProfile
	tracks   map[string][]domain.TopTrack
	features map[string]domain.AudioFeatures

	searchErr   error
	tracksErr   error
	featuresErr error

	mu             sync.Mutex
	searches       []string
	searchLimits   []int
	trackCalls     []string
	featureBatches [][]string
}

func (m *mockCatalog) SearchArtists(ctx context.Context, name string, limit int) ([]domain.ArtistProfile, error) {
	m.mu.Lock()
	m.searches = append(m.searches, name)
	m.searchLimits = append(m.searchLimits, limit)
	m.mu.Unlock()
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	found := m.artists[name]
	if len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

func (m *mockCatalog) TopTracks(ctx context.Context, artistID string) ([]domain.TopTrack, error) {
	m.mu.Lock()
	m.trackCalls = append(m.trackCalls, artistID)
	m.mu.Unlock()
	if m.tracksErr != nil {
		return nil, m.tracksErr
	}
	return m.tracks[artistID], nil
}

func (m *mockCatalog) AudioFeatures(ctx context.Context, trackIDs ...string) (map[string]domain.AudioFeatures, error) {
	m.mu.Lock()
	m.featureBatches = append(m.featureBatches, append([]string(nil), trackIDs...))
	m.mu.Unlock()
	if m.featuresErr != nil {
		return nil, m.featuresErr
	}
	out := make(map[string]domain.AudioFeatures, len(trackIDs))
	for _, id := range trackIDs {
		if f, ok := m.features[id]; ok {
			out[id] = f
			continue
		}
		out[id] = domain.MissingFeatures()
	}
	return out, nil
}

func (m *mockCatalog) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.searches) + len(m.trackCalls) + len(m.featureBatches)
}

// featureRequests counts how often each track id was sent to AudioFeatures.
func (m *mockCatalog) featureRequests() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, batch := range m.featureBatches {
		for _, id := range batch {
			counts[id]++
		}
	}
	return counts
}

// mockRecorder captures recorded comparisons.
type mockRecorder struct {
	mu       sync.Mutex
	recorded []domain.Comparison
}

func (m *mockRecorder) Record(c domain.Comparison) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorded = append(m.recorded, c)
}

func makeTracks(prefix string, n int) []domain.TopTrack {
	tracks := make([]domain.TopTrack, n)
	for i := range tracks {
		tracks[i] = domain.TopTrack{
			ID:          prefix + "-" + string(rune('a'+i)),
			Name:        prefix + " song " + string(rune('A'+i)),
			Album:       prefix + " album",
			ReleaseDate: "2019",
			Popularity:  50 + i,
		}
	}
	return tracks
}
