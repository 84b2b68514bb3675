package ports

import (
	"context"
	"fleet-analytics-service/internal/domain"
)

// Port: outbound notification of vehicle assignments produced by one optimization run.
type EventPublisher interface {
	PublishAssignment(ctx context.Context, event domain.AssignmentEvent) error
}
