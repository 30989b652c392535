package rest

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/ewilliams-labs/artistcompare/internal/charts"
	"github.com/ewilliams-labs/artistcompare/internal/core/domain"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

type compareRequest struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

type compareResponse struct {
	RunID           string               `json:"run_id"`
	Left            domain.ArtistProfile `json:"left"`
	Right           domain.ArtistProfile `json:"right"`
	Records         []domain.TrackRecord `json:"records"`
	Aggregates      []aggregateResponse  `json:"aggregates"`
	MissingFeatures int                  `json:"missing_features"`
	StartedAt       time.Time            `json:"started_at"`
	FinishedAt      time.Time            `json:"finished_at"`
}

// aggregateResponse carries null for means of artists without tracks;
// encoding/json rejects NaN.
type aggregateResponse struct {
	Artist       string   `json:"artist"`
	ArtistID     string   `json:"artist_id,omitempty"`
	Tracks       int      `json:"tracks"`
	Loudness     *float64 `json:"loudness"`
	Danceability *float64 `json:"danceability"`
	Energy       *float64 `json:"energy"`
	Valence      *float64 `json:"valence"`
	Tempo        *float64 `json:"tempo"`
}

type historyEntry struct {
	RunID           string              `json:"run_id"`
	Left            historyArtist       `json:"left"`
	Right           historyArtist       `json:"right"`
	MissingFeatures int                 `json:"missing_features"`
	Aggregates      []aggregateResponse `json:"aggregates"`
	CreatedAt       time.Time           `json:"created_at"`
}

type historyArtist struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Tracks int    `json:"tracks"`
}

// CompareJSON handles POST /api/compare
func (h *Handler) CompareJSON(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, "Invalid request body", errCodeInvalidInput)
		return
	}

	comparison, err := h.svc.Compare(r.Context(), req.Left, req.Right)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, compareResponse{
		RunID:           comparison.RunID.String(),
		Left:            comparison.Left,
		Right:           comparison.Right,
		Records:         comparison.Records,
		Aggregates:      toAggregateResponses(comparison.Aggregates),
		MissingFeatures: comparison.MissingFeatures,
		StartedAt:       comparison.StartedAt,
		FinishedAt:      comparison.FinishedAt,
	})
}

// Chart handles GET /api/charts/{kind}?left=..&right=..
func (h *Handler) Chart(w http.ResponseWriter, r *http.Request) {
	kind, err := charts.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeErrorWithCode(w, http.StatusNotFound, err.Error(), errCodeUnknownChart)
		return
	}

	q := r.URL.Query()
	comparison, err := h.svc.Compare(r.Context(), q.Get("left"), q.Get("right"))
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := charts.Render(kind, comparison, &buf); err != nil {
		h.logger.Error("chart rendering failed", "kind", string(kind), "run_id", comparison.RunID.String(), "error", err)
		writeErrorWithCode(w, http.StatusInternalServerError, "Failed to render chart", errCodeInternal)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// History handles GET /api/history?limit=N
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeErrorWithCode(w, http.StatusNotFound, "comparison history is disabled", errCodeHistoryDisabled)
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeErrorWithCode(w, http.StatusBadRequest, "limit must be a positive integer", errCodeInvalidInput)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	summaries, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to load history", "error", err)
		writeErrorWithCode(w, http.StatusInternalServerError, "Failed to load history", errCodeInternal)
		return
	}

	entries := make([]historyEntry, 0, len(summaries))
	for _, s := range summaries {
		entries = append(entries, historyEntry{
			RunID:           s.RunID,
			Left:            historyArtist{ID: s.LeftID, Name: s.LeftName, Tracks: s.LeftTracks},
			Right:           historyArtist{ID: s.RightID, Name: s.RightName, Tracks: s.RightTracks},
			MissingFeatures: s.MissingFeatures,
			Aggregates:      toAggregateResponses(s.Aggregates),
			CreatedAt:       s.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

func toAggregateResponses(rows []domain.AggregateRow) []aggregateResponse {
	out := make([]aggregateResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, aggregateResponse{
			Artist:       row.Artist,
			ArtistID:     row.ArtistID,
			Tracks:       row.Tracks,
			Loudness:     nullable(row.Loudness),
			Danceability: nullable(row.Danceability),
			Energy:       nullable(row.Energy),
			Valence:      nullable(row.Valence),
			Tempo:        nullable(row.Tempo),
		})
	}
	return out
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
