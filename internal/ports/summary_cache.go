package ports

import (
	"context"
	"fleet-analytics-service/internal/domain"
)

// Optional read-through cache for the advisory optimization summary.
type SummaryCache interface {
	// Return the cached summary; ok=false on a miss.
	Get(ctx context.Context) (summary domain.OptimizationSummary, ok bool, err error)
	Put(ctx context.Context, summary domain.OptimizationSummary) error
	Invalidate(ctx context.Context) error
}
