package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a comparison request that failed the non-empty check.
	ErrInvalidInput = errors.New("domain: invalid input")
	// ErrArtistNotFound marks a name that resolved to zero catalog artists.
	ErrArtistNotFound = errors.New("domain: artist not found")
)

// InputError names the fields that were empty.
type InputError struct {
	Fields []string
}

func (e *InputError) Error() string {
	if len(e.Fields) == 0 {
		return ErrInvalidInput.Error()
	}
	return fmt.Sprintf("both artist names are required (missing: %v)", e.Fields)
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ArtistNotFoundError carries the query that produced no search results.
type ArtistNotFoundError struct {
	Query string
}

func (e *ArtistNotFoundError) Error() string {
	return fmt.Sprintf("artist not found: %q", e.Query)
}

func (e *ArtistNotFoundError) Is(target error) bool {
	return target == ErrArtistNotFound
}
