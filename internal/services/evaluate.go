package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"fleet-analytics-service/internal/domain"
	"fleet-analytics-service/internal/ml"
	"fleet-analytics-service/internal/ports"
)

type EvaluateOptions struct {
	Now   time.Time
	Days  int
	Limit int
}

type EvaluationSample struct {
	OrderID   string  `json:"order_id"`
	StoreID   string  `json:"store_id"`
	OrderDate string  `json:"order_date"`
	Predicted float64 `json:"predicted"`
	Actual    float64 `json:"actual"`
	Error     float64 `json:"error"`
}

// Evaluation compares predictions with recent completed deliveries.
type Evaluation struct {
	Samples  []EvaluationSample `json:"samples"`
	MAE      float64            `json:"mae"`
	R2       float64            `json:"r2"`
	Accuracy float64            `json:"accuracy_pct"`
}

const recentDeliveriesQuery = `
SELECT
	order_id,
	CAST(order_date AS TEXT) AS order_date,
	CAST(order_time AS TEXT) AS order_time,
	CAST(pickup_time AS TEXT) AS pickup_time,
	store_id,
	vehicle_id,
	delivery_time,
	status
FROM delivery_log
WHERE delivery_time IS NOT NULL
	AND delivery_time > 0
	AND order_date >= ?
ORDER BY order_date DESC, order_time DESC, order_id
LIMIT ?;
`

// EvaluateRecent scores p against the latest completed deliveries.
func EvaluateRecent(ctx context.Context, repo ports.Repository, p *Predictor, opts EvaluateOptions) (*Evaluation, error) {
	if opts.Days <= 0 {
		opts.Days = 90
	}
	if opts.Limit <= 0 {
		opts.Limit = 15
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	if !p.IsTrained() {
		return nil, ErrNotTrained
	}

	since := now.AddDate(0, 0, -opts.Days).Format("2006-01-02")
	rows, err := repo.FetchAll(ctx, recentDeliveriesQuery, since, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("evaluate model: fetch deliveries: %w", err)
	}

	records := make([]domain.OrderRecord, 0, len(rows))
	for _, row := range rows {
		r := orderFromRow(row)
		if r.DeliveryMinutes == nil {
			continue
		}
		if prep, ok := prepMinutes(r.OrderTime, r.PickupTime); ok && prep <= MaxPrepMinutes {
			r.PrepMinutes = domain.Float(prep)
		}
		records = append(records, r)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("evaluate model: no completed deliveries since %s: %w", since, ErrInsufficientData)
	}

	preds, err := p.Predict(records)
	if err != nil {
		return nil, fmt.Errorf("evaluate model: %w", err)
	}

	actual := make([]float64, len(records))
	ev := &Evaluation{Samples: make([]EvaluationSample, len(records))}
	for i, r := range records {
		actual[i] = *r.DeliveryMinutes
		ev.Samples[i] = EvaluationSample{
			OrderID:   r.OrderID,
			StoreID:   r.StoreID,
			OrderDate: r.OrderDate,
			Predicted: preds[i],
			Actual:    actual[i],
			Error:     math.Abs(preds[i] - actual[i]),
		}
	}
	ev.MAE = ml.MAE(actual, preds)
	ev.R2 = ml.R2(actual, preds)
	ev.Accuracy = Accuracy(ev.MAE, ml.Mean(actual))
	return ev, nil
}

// Accuracy is 100·(1 − MAE/mean), floored at 0.
func Accuracy(mae, mean float64) float64 {
	if mean <= 0 {
		return 0
	}
	return math.Max(0, 100*(1-mae/mean))
}
