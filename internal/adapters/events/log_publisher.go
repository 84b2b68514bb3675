package events

import (
	"context"
	"log/slog"

	"fleet-analytics-service/internal/domain"
)

// LogPublisher writes assignment events to the log. Used when no broker is configured.
type LogPublisher struct {
	Logger *slog.Logger
}

func (l LogPublisher) PublishAssignment(ctx context.Context, event domain.AssignmentEvent) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "assignment",
		"run_id", event.RunID,
		"vehicle_id", event.VehicleID,
		"store_id", event.StoreID,
		"orders", len(event.OrderIDs),
	)
	return nil
}
