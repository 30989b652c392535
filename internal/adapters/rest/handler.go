package rest

import (
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"mime"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/ewilliams-labs/artistcompare/internal/core/ports"
	"github.com/ewilliams-labs/artistcompare/internal/core/services"
	"github.com/ewilliams-labs/artistcompare/internal/logging"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html.tmpl"))

// Handler manages the HTTP interface for our application.
type Handler struct {
	svc     *services.Comparer         // Dependency on the Core Service
	history ports.ComparisonRepository // nil when storage is disabled
	router  *http.ServeMux             // Standard library router
	handler http.Handler
	logger  *slog.Logger
}

// NewHandler initializes the HTTP adapter and sets up routes. history may be
// nil, in which case the history endpoint answers 404.
func NewHandler(svc *services.Comparer, history ports.ComparisonRepository, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	h := &Handler{
		svc:     svc,
		history: history,
		logger:  logger.With("component", "rest"),
		router:  http.NewServeMux(),
	}

	// Register Routes
	h.routes()
	h.handler = h.recoverer(h.requestLogger(h.router))

	return h
}

// ServeHTTP satisfies the http.Handler interface.
// It acts as a proxy, passing the request through the middleware to our internal router.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

// routes defines the mapping between URLs and methods.
func (h *Handler) routes() {
	// Health Check
	h.router.HandleFunc("GET /health", h.HealthCheck)
	// Dashboard
	h.router.HandleFunc("GET /{$}", h.Index)
	h.router.HandleFunc("POST /compare", h.CompareForm)
	// JSON API
	h.router.HandleFunc("POST /api/compare", h.CompareJSON)
	h.router.HandleFunc("GET /api/charts/{kind}", h.Chart)
	h.router.HandleFunc("GET /api/history", h.History)
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "artistcompare is live"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		h.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", rec.bytes,
			"duration", time.Since(start))
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				h.logger.Error("panic serving request",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", err,
					"stack", string(debug.Stack()))
				writeError(w, http.StatusInternalServerError, "Internal Server Error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeErrorWithCode(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

func isJSONContentType(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}
