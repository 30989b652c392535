package ports

import (
	"context"

	"github.com/ewilliams-labs/artistcompare/internal/core/domain"
)

// ComparisonRepository stores finished runs for the history views.
type ComparisonRepository interface {
	Save(ctx context.Context, c domain.Comparison) error
	Recent(ctx context.Context, limit int) ([]domain.ComparisonSummary, error)
}

// ComparisonRecorder accepts finished runs without blocking the caller.
type ComparisonRecorder interface {
	Record(c domain.Comparison)
}
