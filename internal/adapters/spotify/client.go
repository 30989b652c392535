package spotify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	spotifyapi "github.com/zmb3/spotify/v2"

	"github.com/ewilliams-labs/artistcompare/internal/core/domain"
	"github.com/ewilliams-labs/artistcompare/internal/core/ports"
	"github.com/ewilliams-labs/artistcompare/internal/logging"
)

const (
	// DefaultBaseURL is the Web API root the client talks to.
	DefaultBaseURL        = "https://api.spotify.com/v1/"
	defaultMarket         = "US"
	defaultTopTracksLimit = 10
	featuresBatchSize     = 100
)

// Config holds the adapter settings. Zero values fall back to defaults.
type Config struct {
	ClientID          string
	ClientSecret      string
	BaseURL           string
	TokenURL          string
	Market            string
	TopTracksLimit    int
	Timeout           time.Duration
	MaxAttempts       int
	RetryBackoff      time.Duration
	RequestsPerSecond float64
	Logger            *slog.Logger
}

// Client reads artists, top tracks and audio features from the Web API.
type Client struct {
	api            *spotifyapi.Client
	market         string
	topTracksLimit int
	logger         *slog.Logger
}

// compile-time interface assertion
var _ ports.CatalogProvider = (*Client)(nil)

// NewClient wraps an already authenticated http client. The client's
// transport gets the adapter's rate limiter and attempt loop.
func NewClient(httpClient *http.Client, cfg Config) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With("component", "spotify adapter")

	wrapped := *httpClient
	wrapped.Transport = newTransport(httpClient.Transport, cfg.MaxAttempts, cfg.RetryBackoff, cfg.RequestsPerSecond, logger)
	if cfg.Timeout > 0 {
		wrapped.Timeout = cfg.Timeout
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	market := cfg.Market
	if market == "" {
		market = defaultMarket
	}
	limit := cfg.TopTracksLimit
	if limit <= 0 {
		limit = defaultTopTracksLimit
	}

	return &Client{
		api:            spotifyapi.New(&wrapped, spotifyapi.WithBaseURL(baseURL)),
		market:         market,
		topTracksLimit: limit,
		logger:         logger,
	}
}

// SearchArtists runs an artist-only search and returns results in API order.
func (c *Client) SearchArtists(ctx context.Context, name string, limit int) ([]domain.ArtistProfile, error) {
	if limit < 1 {
		limit = 1
	}
	res, err := c.api.Search(ctx, name, spotifyapi.SearchTypeArtist, spotifyapi.Limit(limit))
	if err != nil {
		return nil, upstream("search artists", err)
	}
	if res == nil || res.Artists == nil {
		return nil, nil
	}

	artists := make([]domain.ArtistProfile, 0, len(res.Artists.Artists))
	for _, a := range res.Artists.Artists {
		artists = append(artists, mapArtistToDomain(a))
	}
	c.logger.Debug("artist search", "query", name, "results", len(artists))
	return artists, nil
}

// TopTracks returns the artist's top tracks for the configured market,
// truncated to the configured limit. API order is kept.
func (c *Client) TopTracks(ctx context.Context, artistID string) ([]domain.TopTrack, error) {
	tracks, err := c.api.GetArtistsTopTracks(ctx, spotifyapi.ID(artistID), c.market)
	if err != nil {
		return nil, upstream("top tracks", err)
	}
	if len(tracks) > c.topTracksLimit {
		tracks = tracks[:c.topTracksLimit]
	}

	out := make([]domain.TopTrack, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, mapTrackToDomain(t))
	}
	return out, nil
}

// AudioFeatures fetches features in batches of up to 100 ids. Ids the API has
// no data for, including a 404 for the whole batch, map to zeroed features
// marked Missing.
func (c *Client) AudioFeatures(ctx context.Context, trackIDs ...string) (map[string]domain.AudioFeatures, error) {
	out := make(map[string]domain.AudioFeatures, len(trackIDs))
	for start := 0; start < len(trackIDs); start += featuresBatchSize {
		end := min(start+featuresBatchSize, len(trackIDs))
		batch := trackIDs[start:end]

		ids := make([]spotifyapi.ID, len(batch))
		for i, id := range batch {
			ids[i] = spotifyapi.ID(id)
		}

		features, err := c.api.GetAudioFeatures(ctx, ids...)
		if err != nil {
			if statusOf(err) == http.StatusNotFound {
				c.logger.Warn("audio features unavailable for batch", "tracks", len(batch))
				features = nil
			} else {
				return nil, upstream("audio features", err)
			}
		}

		for i, id := range batch {
			var f *spotifyapi.AudioFeatures
			if i < len(features) {
				f = features[i]
			}
			out[id] = mapFeaturesToDomain(f)
		}
	}
	return out, nil
}

func statusOf(err error) int {
	var apiErr spotifyapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func upstream(op string, err error) error {
	return fmt.Errorf("spotify adapter: %w", &ports.UpstreamError{Op: op, Status: statusOf(err), Err: err})
}
