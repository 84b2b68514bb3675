package services

import (
	"context"

	"fleet-analytics-service/internal/domain"
)

const pendingSummaryQuery = `
SELECT COUNT(*) AS pending, COUNT(DISTINCT store_id) AS stores
FROM delivery_log
WHERE pickup_time IS NULL
	AND delivery_time IS NULL
	AND order_date >= ?;
`

const availableCountQuery = `
SELECT COUNT(DISTINCT vehicle_id) AS vehicles
FROM vehicles
WHERE status IN (?, ?, ?);
`

// GetOptimizationSummary reports whether a run looks worthwhile. Query failures
// yield an Unknown summary, which is not cached.
func (o *RouteOptimizer) GetOptimizationSummary(ctx context.Context) domain.OptimizationSummary {
	if o.cache != nil {
		s, ok, err := o.cache.Get(ctx)
		if err != nil {
			o.logger.WarnContext(ctx, "summary cache read failed", "err", err)
		} else if ok {
			return s
		}
	}

	unknown := domain.OptimizationSummary{OptimizationPotential: domain.PotentialUnknown}

	today := o.now().Format("2006-01-02")
	rows, err := o.repo.FetchAll(ctx, pendingSummaryQuery, today)
	if err != nil {
		o.logger.WarnContext(ctx, "pending summary query failed", "err", err)
		return unknown
	}
	if len(rows) == 0 {
		return domain.OptimizationSummary{OptimizationPotential: domain.PotentialNone}
	}

	s := domain.OptimizationSummary{}
	s.PendingDeliveries, _ = rows[0].Int("pending")
	s.UniqueStores, _ = rows[0].Int("stores")

	vrows, err := o.repo.FetchAll(ctx, availableCountQuery, assignableStatuses...)
	if err != nil {
		o.logger.WarnContext(ctx, "vehicle summary query failed", "err", err)
		return unknown
	}
	if len(vrows) > 0 {
		s.VehiclesAvailable, _ = vrows[0].Int("vehicles")
	}
	s.OptimizationPotential = domain.PotentialFor(s.PendingDeliveries)

	if o.cache != nil {
		if err := o.cache.Put(ctx, s); err != nil {
			o.logger.WarnContext(ctx, "summary cache write failed", "err", err)
		}
	}
	return s
}
