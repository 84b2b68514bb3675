package ports

import (
	"context"
	"fleet-analytics-service/internal/domain"
)

// Port: sink for the augmented training set assembled by the trainer.
type DatasetExporter interface {
	ExportTrainingSet(ctx context.Context, records []domain.OrderRecord) error
}
