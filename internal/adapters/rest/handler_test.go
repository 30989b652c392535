package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ewilliams-labs/artistcompare/internal/adapters/sqlite"
	"github.com/ewilliams-labs/artistcompare/internal/core/domain"
	"github.com/ewilliams-labs/artistcompare/internal/core/ports"
	"github.com/ewilliams-labs/artistcompare/internal/core/services"
	"github.com/ewilliams-labs/artistcompare/internal/worker"
)

// --- Mocks ---

// The handler depends on the concrete *services.Comparer, so tests build a
// real one on top of a mock catalog.
type mockCatalog struct {
	artists   map[string]domain.ArtistProfile
	tracks    map[string][]domain.TopTrack
	features  map[string]domain.AudioFeatures
	searchErr error

	mu    sync.Mutex
	calls int
}

func (m *mockCatalog) SearchArtists(ctx context.Context, name string, limit int) ([]domain.ArtistProfile, error) {
	m.count()
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	a, ok := m.artists[name]
	if !ok {
		return nil, nil
	}
	return []domain.ArtistProfile{a}, nil
}

func (m *mockCatalog) TopTracks(ctx context.Context, artistID string) ([]domain.TopTrack, error) {
	m.count()
	return m.tracks[artistID], nil
}

func (m *mockCatalog) AudioFeatures(ctx context.Context, trackIDs ...string) (map[string]domain.AudioFeatures, error) {
	m.count()
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

func (m *mockCatalog) count() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

func (m *mockCatalog) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockHistory struct {
	summaries []domain.ComparisonSummary
	err       error
	limit     int
}

func (m *mockHistory) Save(ctx context.Context, c domain.Comparison) error {
	return nil
}

func (m *mockHistory) Recent(ctx context.Context, limit int) ([]domain.ComparisonSummary, error) {
	m.limit = limit
	return m.summaries, m.err
}

func newCatalog() *mockCatalog {
	return &mockCatalog{
		artists: map[string]domain.ArtistProfile{
			"Artist A": {ID: "a1", Name: "Artist A", Followers: 1234567, Popularity: 80, Genres: []string{"pop", "dance pop"}, ImageURL: "https://img.example/a.jpg"},
			"Artist B": {ID: "b1", Name: "Artist B", Followers: 999, Popularity: 40, Genres: []string{"rock"}},
			"Quiet":    {ID: "q1", Name: "Quiet"},
		},
		tracks: map[string][]domain.TopTrack{
			"a1": {
				{ID: "ta1", Name: "Song A1", Album: "Album A", ReleaseDate: "2020-01-01", Popularity: 70, Performers: []string{"Artist A"}},
				{ID: "ta2", Name: "Song A2", Album: "Album A", ReleaseDate: "2020-01-01", Popularity: 65, Performers: []string{"Artist A"}},
			},
			"b1": {
				{ID: "tb1", Name: "Song B1", Album: "Album B", ReleaseDate: "2019", Popularity: 50, Performers: []string{"Artist B"}},
				{ID: "tb2", Name: "Song B2", Album: "Album B", ReleaseDate: "2019", Popularity: 45, Performers: []string{"Artist B"}},
			},
		},
		features: map[string]domain.AudioFeatures{
			"ta1": {Danceability: 0.5, Loudness: -5, Energy: 0.8, Valence: 0.4, Tempo: 120},
			"ta2": {Danceability: 0.7, Loudness: -7, Energy: 0.6, Valence: 0.6, Tempo: 100},
			"tb1": {Danceability: 0.2, Loudness: -9, Energy: 0.9, Valence: 0.1, Tempo: 140},
		},
	}
}

func newTestHandler(catalog *mockCatalog, history ports.ComparisonRepository, opts ...services.Option) *Handler {
	svc := services.NewComparer(services.NewFirstResultResolver(catalog), catalog, opts...)
	return NewHandler(svc, history, nil)
}

func postForm(h http.Handler, artist1, artist2 string) *httptest.ResponseRecorder {
	form := url.Values{"artist1": {artist1}, "artist2": {artist2}}
	req := httptest.NewRequest(http.MethodPost, "/compare", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postJSON(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/compare", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestHandler_HealthCheck(t *testing.T) {
	h := newTestHandler(newCatalog(), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestHandler_Index(t *testing.T) {
	h := newTestHandler(newCatalog(), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`name="artist1"`, `name="artist2"`, "Compare"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected page to contain %q", want)
		}
	}
	if strings.Contains(body, "<figure") {
		t.Errorf("idle page should not contain charts")
	}
}

func TestHandler_CompareForm(t *testing.T) {
	tests := []struct {
		name           string
		artist1        string
		artist2        string
		searchErr      error
		expectedStatus int
		expectedBody   []string
		expectCharts   bool
		expectNoCalls  bool
	}{
		{
			name:           "Success: renders cards, averages and charts",
			artist1:        "Artist A",
			artist2:        "Artist B",
			expectedStatus: http.StatusOK,
			expectedBody: []string{
				"<strong>Name:</strong> Artist A",
				"<strong>Name:</strong> Artist B",
				"1,234,567",
				"pop, dance pop",
				"0.600", // mean danceability of Artist A
				"unavailable for 1 track(s)",
				`src="data:image/svg+xml;base64,`,
			},
			expectCharts: true,
		},
		{
			name:           "Bad Request: empty name makes no catalog call",
			artist1:        "Artist A",
			artist2:        "   ",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   []string{"Please enter the names of both artists."},
			expectNoCalls:  true,
		},
		{
			name:           "Not Found: unknown artist",
			artist1:        "Artist A",
			artist2:        "Nobody",
			expectedStatus: http.StatusNotFound,
			expectedBody:   []string{"Artist not found: Nobody"},
		},
		{
			name:           "Bad Gateway: catalog unavailable",
			artist1:        "Artist A",
			artist2:        "Artist B",
			searchErr:      &ports.UpstreamError{Op: "search", Status: http.StatusServiceUnavailable, Err: errors.New("unavailable")},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   []string{"Spotify could not be reached"},
		},
		{
			name:           "Success: artist without tracks shows no data",
			artist1:        "Artist A",
			artist2:        "Quiet",
			expectedStatus: http.StatusOK,
			expectedBody:   []string{"no data"},
			expectCharts:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := newCatalog()
			catalog.searchErr = tt.searchErr
			h := newTestHandler(catalog, nil)

			rec := postForm(h, tt.artist1, tt.artist2)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d, body: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			// html/template writes the "+" in data URIs as &#43;
			body := html.UnescapeString(rec.Body.String())
			for _, want := range tt.expectedBody {
				if !strings.Contains(body, want) {
					t.Errorf("expected body to contain %q", want)
				}
			}
			if got := strings.Count(body, `src="data:image/svg+xml;base64,`); tt.expectCharts && got != 3 {
				t.Errorf("expected 3 chart images, got %d", got)
			}
			if got := strings.Count(body, "<figure"); tt.expectCharts && got != 3 {
				t.Errorf("expected 3 charts, got %d", got)
			} else if !tt.expectCharts && got != 0 {
				t.Errorf("expected no charts on error, got %d", got)
			}
			if tt.expectNoCalls && catalog.callCount() != 0 {
				t.Errorf("expected no catalog calls, got %d", catalog.callCount())
			}
			// the form keeps what the user typed
			if tt.artist1 != "" && !strings.Contains(body, `value="`+tt.artist1+`"`) {
				t.Errorf("expected form to keep %q", tt.artist1)
			}
		})
	}
}

func TestHandler_CompareJSON(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		contentType    string
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "Success",
			body:           `{"left":"Artist A","right":"Artist B"}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Bad Request: missing right",
			body:           `{"left":"Artist A"}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   errCodeInvalidInput,
		},
		{
			name:           "Bad Request: malformed json",
			body:           `{invalid-json`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   errCodeInvalidInput,
		},
		{
			name:           "Not Found: unknown artist",
			body:           `{"left":"Nobody","right":"Artist B"}`,
			expectedStatus: http.StatusNotFound,
			expectedCode:   errCodeArtistNotFound,
		},
		{
			name:           "Unsupported Media Type",
			body:           `{"left":"Artist A","right":"Artist B"}`,
			contentType:    "text/plain",
			expectedStatus: http.StatusUnsupportedMediaType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(newCatalog(), nil)
			req := httptest.NewRequest(http.MethodPost, "/api/compare", bytes.NewBufferString(tt.body))
			ct := tt.contentType
			if ct == "" {
				ct = "application/json; charset=utf-8"
			}
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d, body: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedCode != "" && !strings.Contains(rec.Body.String(), `"code":"`+tt.expectedCode+`"`) {
				t.Errorf("expected code %s, got %s", tt.expectedCode, rec.Body.String())
			}
		})
	}
}

func TestHandler_CompareJSON_Payload(t *testing.T) {
	h := newTestHandler(newCatalog(), nil)
	rec := postJSON(h, `{"left":"Artist A","right":"Quiet"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		RunID      string               `json:"run_id"`
		Left       domain.ArtistProfile `json:"left"`
		Right      domain.ArtistProfile `json:"right"`
		Records    []domain.TrackRecord `json:"records"`
		Aggregates []struct {
			Artist       string   `json:"artist"`
			Tracks       int      `json:"tracks"`
			Danceability *float64 `json:"danceability"`
			Tempo        *float64 `json:"tempo"`
		} `json:"aggregates"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RunID == "" || resp.Left.Name != "Artist A" || resp.Right.Name != "Quiet" {
		t.Fatalf("unexpected header fields: %+v", resp)
	}
	if len(resp.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(resp.Records))
	}
	if len(resp.Aggregates) != 2 {
		t.Fatalf("expected 2 aggregate rows, got %d", len(resp.Aggregates))
	}
	left, right := resp.Aggregates[0], resp.Aggregates[1]
	if left.Danceability == nil || math.Abs(*left.Danceability-0.6) > 1e-9 {
		t.Errorf("left danceability: got %v", left.Danceability)
	}
	if right.Tracks != 0 || right.Danceability != nil || right.Tempo != nil {
		t.Errorf("expected null means for artist without tracks, got %+v", right)
	}
}

func TestHandler_Chart(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectSVG      bool
	}{
		{name: "scatter", path: "/api/charts/scatter?left=Artist+A&right=Artist+B", expectedStatus: http.StatusOK, expectSVG: true},
		{name: "boxplot", path: "/api/charts/boxplot?left=Artist+A&right=Artist+B", expectedStatus: http.StatusOK, expectSVG: true},
		{name: "violin", path: "/api/charts/violin?left=Artist+A&right=Artist+B", expectedStatus: http.StatusOK, expectSVG: true},
		{name: "unknown kind", path: "/api/charts/pie?left=Artist+A&right=Artist+B", expectedStatus: http.StatusNotFound},
		{name: "missing name", path: "/api/charts/scatter?left=Artist+A", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(newCatalog(), nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d, body: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if !tt.expectSVG {
				return
			}
			if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
				t.Errorf("content type: got %q", ct)
			}
			if !strings.Contains(rec.Body.String(), "<svg") {
				t.Errorf("expected svg document")
			}
		})
	}
}

func TestHandler_History(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	summaries := []domain.ComparisonSummary{{
		RunID:      "run-1",
		LeftName:   "Artist A",
		LeftID:     "a1",
		RightName:  "Quiet",
		RightID:    "q1",
		LeftTracks: 2,
		Aggregates: []domain.AggregateRow{
			{Artist: "Artist A", Tracks: 2, Danceability: 0.6, Loudness: -6, Energy: 0.7, Valence: 0.5, Tempo: 110},
			{Artist: "Quiet", Loudness: math.NaN(), Danceability: math.NaN(), Energy: math.NaN(), Valence: math.NaN(), Tempo: math.NaN()},
		},
		CreatedAt: created,
	}}

	tests := []struct {
		name           string
		history        *mockHistory
		query          string
		expectedStatus int
		expectedBody   string
		expectedLimit  int
	}{
		{
			name:           "Disabled storage",
			history:        nil,
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"code":"HISTORY_DISABLED"`,
		},
		{
			name:           "Default limit",
			history:        &mockHistory{summaries: summaries},
			expectedStatus: http.StatusOK,
			expectedBody:   `"danceability":null`,
			expectedLimit:  defaultHistoryLimit,
		},
		{
			name:           "Limit is capped",
			history:        &mockHistory{summaries: summaries},
			query:          "?limit=500",
			expectedStatus: http.StatusOK,
			expectedBody:   `"run_id":"run-1"`,
			expectedLimit:  maxHistoryLimit,
		},
		{
			name:           "Invalid limit",
			history:        &mockHistory{},
			query:          "?limit=abc",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"code":"INVALID_INPUT"`,
		},
		{
			name:           "Store failure",
			history:        &mockHistory{err: errors.New("db error")},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "Failed to load history",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h *Handler
			if tt.history == nil {
				h = newTestHandler(newCatalog(), nil)
			} else {
				h = newTestHandler(newCatalog(), tt.history)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history"+tt.query, nil))

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d, body: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.expectedBody) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedBody, rec.Body.String())
			}
			if tt.expectedLimit != 0 && tt.history.limit != tt.expectedLimit {
				t.Errorf("limit: got %d, want %d", tt.history.limit, tt.expectedLimit)
			}
		})
	}
}

func TestHandler_RecoversFromPanic(t *testing.T) {
	h := newTestHandler(newCatalog(), nil)
	panicky := h.recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	panicky.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestHandler_HistoryAfterCompare(t *testing.T) {
	repo, err := sqlite.NewAdapter(":memory:")
	if err != nil {
		t.Fatalf("failed to init sqlite: %v", err)
	}
	defer repo.Close()

	pool := worker.NewPool(repo, 1, 10, nil)
	pool.Start()
	defer pool.Stop()

	h := newTestHandler(newCatalog(), repo, services.WithRecorder(pool))

	rec := postJSON(h, `{"left":"Artist A","right":"Artist B"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("compare: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	// Stop drains the queue, so the run is stored once it returns.
	pool.Stop()

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("history: expected 200, got %d", rec.Code)
	}

	var entries []historyEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one stored run, got %d", len(entries))
	}
	e := entries[0]
	if e.Left.Name != "Artist A" || e.Right.Name != "Artist B" || e.Left.Tracks != 2 || e.Right.Tracks != 2 {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.MissingFeatures != 1 {
		t.Errorf("missing features: got %d, want 1", e.MissingFeatures)
	}
}
