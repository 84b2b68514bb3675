package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"fleet-analytics-service/internal/domain"
	"fleet-analytics-service/internal/ml"
)

// Route suggestion defaults and limits, in minutes.
const (
	DefaultPickupEstimate   = 30
	DefaultDeliveryEstimate = 45
	MinPickupEstimate       = 5
	MaxPickupEstimate       = 120
	// Deliveries a vehicle needs from the stores before it is recommended.
	MinVehicleHistory = 3
)

// SuggestRoute recommends the historically fastest vehicle for a set of stores and
// estimates pickup and delivery time. Query failures fall back to defaults.
func (o *RouteOptimizer) SuggestRoute(ctx context.Context, storeIDs []string) (domain.RouteSuggestion, error) {
	ids := make([]string, 0, len(storeIDs))
	seen := map[string]struct{}{}
	for _, id := range storeIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return domain.RouteSuggestion{}, errors.New("suggest route: at least one store id is required")
	}

	s := domain.RouteSuggestion{
		StoreIDs:            ids,
		PickupEstimateMin:   DefaultPickupEstimate,
		DeliveryEstimateMin: DefaultDeliveryEstimate,
	}

	in := placeholders(len(ids))
	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}

	vehicleQuery := fmt.Sprintf(`
	SELECT vehicle_id, AVG(delivery_time) AS avg_time, COUNT(*) AS total
	FROM delivery_log
	WHERE store_id IN (%s)
		AND vehicle_id IS NOT NULL
		AND delivery_time IS NOT NULL
	GROUP BY vehicle_id
	HAVING COUNT(*) >= ?
	ORDER BY avg_time, vehicle_id
	LIMIT 1;
	`, in)

	rows, err := o.repo.FetchAll(ctx, vehicleQuery, append(args, MinVehicleHistory)...)
	if err != nil {
		o.logger.WarnContext(ctx, "vehicle history query failed", "err", err)
	} else if len(rows) > 0 {
		if id, ok := rows[0].String("vehicle_id"); ok {
			s.VehicleFound = true
			s.VehicleID = id
			s.VehicleAvgMinutes, _ = rows[0].Float("avg_time")
		}
	}

	historyQuery := fmt.Sprintf(`
	SELECT
		CAST(order_time AS TEXT) AS order_time,
		CAST(pickup_time AS TEXT) AS pickup_time,
		delivery_time
	FROM delivery_log
	WHERE store_id IN (%s)
		AND delivery_time IS NOT NULL;
	`, in)

	rows, err = o.repo.FetchAll(ctx, historyQuery, args...)
	if err != nil {
		o.logger.WarnContext(ctx, "store history query failed", "err", err)
	} else {
		var preps, durations []float64
		for _, row := range rows {
			if d, ok := row.Float("delivery_time"); ok && d > 0 {
				durations = append(durations, d)
			}
			ot, _ := row.String("order_time")
			pt, _ := row.String("pickup_time")
			if prep, ok := prepMinutes(ot, pt); ok {
				preps = append(preps, prep)
			}
		}
		if len(preps) > 0 {
			s.PickupEstimateMin = clamp(int(math.Round(ml.Mean(preps))), MinPickupEstimate, MaxPickupEstimate)
		}
		if len(durations) > 0 {
			s.DeliveryEstimateMin = int(math.Round(ml.Mean(durations)))
		}
	}

	s.TotalEstimateMinutes = s.PickupEstimateMin + s.DeliveryEstimateMin
	return s, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
