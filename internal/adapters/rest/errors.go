package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/ewilliams-labs/artistcompare/internal/core/domain"
	"github.com/ewilliams-labs/artistcompare/internal/core/ports"
)

const (
	errCodeInvalidInput    = "INVALID_INPUT"
	errCodeArtistNotFound  = "ARTIST_NOT_FOUND"
	errCodeUpstream        = "UPSTREAM_ERROR"
	errCodeTimeout         = "UPSTREAM_TIMEOUT"
	errCodeUnknownChart    = "UNKNOWN_CHART"
	errCodeHistoryDisabled = "HISTORY_DISABLED"
	errCodeInternal        = "INTERNAL"
)

const (
	msgInvalidInput = "Please enter the names of both artists."
	msgUpstream     = "Spotify could not be reached. Please try again."
	msgTimeout      = "Spotify took too long to answer. Please try again."
	msgInternal     = "Something went wrong while comparing the artists."
)

// apiError is the user-facing view of a pipeline failure.
type apiError struct {
	Status  int
	Code    string
	Message string
}

// classifyError maps pipeline errors to HTTP statuses and user messages.
func classifyError(err error) apiError {
	var notFound *domain.ArtistNotFoundError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return apiError{Status: http.StatusBadRequest, Code: errCodeInvalidInput, Message: msgInvalidInput}
	case errors.As(err, &notFound):
		return apiError{Status: http.StatusNotFound, Code: errCodeArtistNotFound, Message: "Artist not found: " + notFound.Query}
	case errors.Is(err, context.DeadlineExceeded):
		return apiError{Status: http.StatusGatewayTimeout, Code: errCodeTimeout, Message: msgTimeout}
	case errors.Is(err, ports.ErrUpstream):
		return apiError{Status: http.StatusBadGateway, Code: errCodeUpstream, Message: msgUpstream}
	default:
		return apiError{Status: http.StatusInternalServerError, Code: errCodeInternal, Message: msgInternal}
	}
}

func (h *Handler) writePipelineError(w http.ResponseWriter, err error) {
	e := classifyError(err)
	h.logPipelineError(e, err)
	writeErrorWithCode(w, e.Status, e.Message, e.Code)
}

func (h *Handler) logPipelineError(e apiError, err error) {
	if e.Status >= http.StatusInternalServerError {
		h.logger.Error("comparison failed", "code", e.Code, "error", err)
		return
	}
	h.logger.Info("comparison rejected", "code", e.Code, "error", err)
}
