package domain

import (
	"time"

	"github.com/google/uuid"
)

// Comparison is the complete output of one pipeline run.
type Comparison struct {
	RunID           uuid.UUID      `json:"run_id"`
	Left            ArtistProfile  `json:"left"`
	Right           ArtistProfile  `json:"right"`
	Records         []TrackRecord  `json:"records"`
	Aggregates      []AggregateRow `json:"aggregates"`
	MissingFeatures int            `json:"missing_features"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      time.Time      `json:"finished_at"`
}

// Names returns the two artist display names in left, right order.
func (c Comparison) Names() (string, string) {
	return c.Left.Name, c.Right.Name
}

// TrackCount returns how many records belong to the given artist id.
func (c Comparison) TrackCount(artistID string) int {
	n := 0
	for _, r := range c.Records {
		if r.ArtistID == artistID {
			n++
		}
	}
	return n
}

// ComparisonSummary is the persisted history view of a run.
type ComparisonSummary struct {
	RunID           string
	LeftName        string
	LeftID          string
	RightName       string
	RightID         string
	LeftTracks      int
	RightTracks     int
	MissingFeatures int
	Aggregates      []AggregateRow
	CreatedAt       time.Time
}
