package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fleet-analytics-service/internal/domain"
	"fleet-analytics-service/internal/features"
	"fleet-analytics-service/internal/ml"
	"fleet-analytics-service/internal/platform/obs"
	"fleet-analytics-service/internal/ports"
)

// Training data selection limits.
const (
	MinTrainingRows     = 10
	MinDeliveryMinutes  = 20
	MaxDeliveryMinutes  = 400
	MaxPrepMinutes      = 120
	TrainingWindowMonth = 12
)

type TrainOptions struct {
	// Reference time for the trailing window. Zero means time.Now.
	Now time.Time
	// Optional sink for the augmented training set.
	Export ports.DatasetExporter
	Logger *slog.Logger
}

const historyQuery = `
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
	AND delivery_time BETWEEN ? AND ?
	AND pickup_time IS NOT NULL
	AND order_time IS NOT NULL
	AND order_date >= ?
ORDER BY order_date, order_time, order_id;
`

const storeStatsQuery = `
SELECT store_id, AVG(delivery_time) AS avg_time, COUNT(*) AS total
FROM delivery_log
WHERE delivery_time BETWEEN ? AND ?
GROUP BY store_id;
`

const vehicleStatsQuery = `
SELECT vehicle_id, AVG(delivery_time) AS avg_time, COUNT(*) AS total
FROM delivery_log
WHERE vehicle_id IS NOT NULL
	AND delivery_time BETWEEN ? AND ?
GROUP BY vehicle_id;
`

// TrainModel selects the trailing year of plausible deliveries, augments them with
// store and vehicle averages, trains p and saves it.
func TrainModel(ctx context.Context, repo ports.Repository, p *Predictor, opts TrainOptions) (_ *TrainingReport, err error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	defer obs.Time(ctx, logger, "model.train")(&err)

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	since := now.AddDate(0, -TrainingWindowMonth, 0).Format("2006-01-02")

	rows, err := repo.FetchAll(ctx, historyQuery, MinDeliveryMinutes, MaxDeliveryMinutes, since)
	if err != nil {
		return nil, fmt.Errorf("train model: fetch history: %w", err)
	}

	records := trainingRecords(rows)
	if len(records) < MinTrainingRows {
		return nil, fmt.Errorf("train model: %d valid rows, need %d: %w", len(records), MinTrainingRows, ErrInsufficientData)
	}

	stores, vehicles := fetchAverages(ctx, repo, logger)
	augment(records, stores, vehicles)

	report := p.TrainWithAverages(records, stores, vehicles)

	if opts.Export != nil {
		if err := opts.Export.ExportTrainingSet(ctx, records); err != nil {
			logger.Warn("export training set failed", "err", err)
		}
	}

	if err := p.Save(ctx); err != nil {
		return nil, fmt.Errorf("train model: %w", err)
	}
	return &report, nil
}

// trainingRecords coerces rows and keeps those with a plausible duration and
// preparation time.
func trainingRecords(rows []ports.Row) []domain.OrderRecord {
	out := make([]domain.OrderRecord, 0, len(rows))
	for _, row := range rows {
		r := orderFromRow(row)
		if r.DeliveryMinutes == nil {
			continue
		}
		if d := *r.DeliveryMinutes; d < MinDeliveryMinutes || d > MaxDeliveryMinutes {
			continue
		}

		prep, ok := prepMinutes(r.OrderTime, r.PickupTime)
		if !ok || prep < 0 || prep > MaxPrepMinutes {
			continue
		}
		r.PrepMinutes = domain.Float(prep)
		if h, ok := features.ParseHour(r.OrderTime); ok {
			r.OrderHour = domain.Float(float64(h))
		}
		if d, ok := r.Date(); ok {
			r.DayOfWeek = domain.Float(features.Weekday(d))
		}
		out = append(out, r)
	}
	return out
}

// fetchAverages runs the store and vehicle aggregate queries concurrently. A failed
// query yields an empty table.
func fetchAverages(ctx context.Context, repo ports.Repository, logger *slog.Logger) (domain.StoreAverages, domain.VehicleAverages) {
	stores := domain.StoreAverages{}
	vehicles := domain.VehicleAverages{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := repo.FetchAll(gctx, storeStatsQuery, MinDeliveryMinutes, MaxDeliveryMinutes)
		if err != nil {
			logger.Warn("store averages unavailable", "err", err)
			return nil
		}
		for _, row := range rows {
			id, ok := row.String("store_id")
			avg, okAvg := row.Float("avg_time")
			if !ok || !okAvg {
				continue
			}
			n, _ := row.Int("total")
			stores[id] = domain.StoreAverage{AvgMinutes: avg, AvgPrepMinutes: features.DefaultPrepMinutes, Count: n}
		}
		return nil
	})
	g.Go(func() error {
		rows, err := repo.FetchAll(gctx, vehicleStatsQuery, MinDeliveryMinutes, MaxDeliveryMinutes)
		if err != nil {
			logger.Warn("vehicle averages unavailable", "err", err)
			return nil
		}
		for _, row := range rows {
			id, ok := row.String("vehicle_id")
			avg, okAvg := row.Float("avg_time")
			if !ok || !okAvg {
				continue
			}
			n, _ := row.Int("total")
			vehicles[id] = domain.VehicleAverage{AvgMinutes: avg, Count: n}
		}
		return nil
	})
	_ = g.Wait()

	return stores, vehicles
}

// augment attaches per-store prep averages and the average columns to every record.
// Identifiers missing from the tables get the training-set mean duration.
func augment(records []domain.OrderRecord, stores domain.StoreAverages, vehicles domain.VehicleAverages) {
	durations := make([]float64, 0, len(records))
	prepSum := map[string]float64{}
	prepCount := map[string]int{}
	for _, r := range records {
		durations = append(durations, *r.DeliveryMinutes)
		if r.PrepMinutes != nil {
			prepSum[r.StoreID] += *r.PrepMinutes
			prepCount[r.StoreID]++
		}
	}
	mean := ml.Mean(durations)

	for id, n := range prepCount {
		s, ok := stores[id]
		if !ok {
			s = domain.StoreAverage{AvgMinutes: mean}
		}
		s.AvgPrepMinutes = prepSum[id] / float64(n)
		stores[id] = s
	}

	for i := range records {
		r := &records[i]

		storeAvg, storePrep := mean, float64(features.DefaultPrepMinutes)
		if s, ok := stores[r.StoreID]; ok {
			storeAvg, storePrep = s.AvgMinutes, s.AvgPrepMinutes
		}
		r.StoreAvgMinutes = domain.Float(storeAvg)
		r.StoreAvgPrepMinutes = domain.Float(storePrep)

		vehicleAvg := mean
		if v, ok := vehicles[r.VehicleID]; ok && r.VehicleID != "" {
			vehicleAvg = v.AvgMinutes
		}
		r.VehicleAvgMinutes = domain.Float(vehicleAvg)
	}
}
