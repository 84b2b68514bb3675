package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fleet-analytics-service/internal/domain"
	"fleet-analytics-service/internal/platform/obs"
	"fleet-analytics-service/internal/ports"
)

type OptimizerConfig struct {
	MaxPerVehicle           int
	MinutesSavedPerDelivery float64
}

func DefaultOptimizerConfig() OptimizerConfig {
	return OptimizerConfig{MaxPerVehicle: 10, MinutesSavedPerDelivery: 15}
}

// Vehicle statuses eligible for new work.
var assignableStatuses = []any{"idle", "available", "active"}

// RouteOptimizer batches pending deliveries by store and assigns them to vehicles.
type RouteOptimizer struct {
	repo      ports.Repository
	cfg       OptimizerConfig
	cache     ports.SummaryCache
	publisher ports.EventPublisher
	now       func() time.Time
	newRunID  func() string
	logger    *slog.Logger
}

type Option func(*RouteOptimizer)

func WithSummaryCache(c ports.SummaryCache) Option {
	return func(o *RouteOptimizer) { o.cache = c }
}

func WithEventPublisher(p ports.EventPublisher) Option {
	return func(o *RouteOptimizer) { o.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(o *RouteOptimizer) { o.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *RouteOptimizer) { o.logger = l }
}

func NewRouteOptimizer(repo ports.Repository, cfg OptimizerConfig, opts ...Option) *RouteOptimizer {
	if cfg.MaxPerVehicle <= 0 {
		cfg.MaxPerVehicle = DefaultOptimizerConfig().MaxPerVehicle
	}
	if cfg.MinutesSavedPerDelivery <= 0 {
		cfg.MinutesSavedPerDelivery = DefaultOptimizerConfig().MinutesSavedPerDelivery
	}

	o := &RouteOptimizer{
		repo:     repo,
		cfg:      cfg,
		now:      time.Now,
		newRunID: uuid.NewString,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

const pendingDeliveriesQuery = `
SELECT
	order_id,
	store_id,
	CAST(order_time AS TEXT) AS order_time,
	CAST(order_date AS TEXT) AS order_date
FROM delivery_log
WHERE pickup_time IS NULL
	AND delivery_time IS NULL
	AND order_date >= ?
ORDER BY order_date, order_time, order_id;
`

const availableVehiclesQuery = `
SELECT v.vehicle_id AS vehicle_id, v.status AS status, COUNT(d.order_id) AS current_load
FROM vehicles v
LEFT JOIN delivery_log d
	ON d.vehicle_id = v.vehicle_id
	AND d.pickup_time IS NOT NULL
	AND d.delivery_time IS NULL
WHERE v.status IN (?, ?, ?)
GROUP BY v.vehicle_id, v.status
HAVING COUNT(d.order_id) < ?
ORDER BY current_load, v.vehicle_id;
`

const logVehiclesQuery = `
SELECT DISTINCT vehicle_id
FROM delivery_log
WHERE vehicle_id IS NOT NULL
ORDER BY vehicle_id;
`

const assignVehicleStmt = `UPDATE delivery_log SET vehicle_id = ? WHERE order_id = ?;`

// OptimizeRoutes runs one assignment pass. maxPerVehicle <= 0 uses the configured cap.
// Failures are reported in the result, never returned.
func (o *RouteOptimizer) OptimizeRoutes(ctx context.Context, maxPerVehicle int) (res domain.OptimizationResult) {
	var err error
	defer obs.Time(ctx, o.logger, "optimizer.run")(&err)

	if maxPerVehicle <= 0 {
		maxPerVehicle = o.cfg.MaxPerVehicle
	}
	runID := o.newRunID()
	res = domain.OptimizationResult{RunID: runID, Assignments: []domain.Assignment{}}

	pending, err := o.pendingDeliveries(ctx)
	if err != nil {
		res.Message = fmt.Sprintf("Failed to load pending deliveries: %v", err)
		return res
	}
	if len(pending) == 0 {
		res.Message = "No pending deliveries to optimize"
		return res
	}

	vehicles := o.availableVehicles(ctx, maxPerVehicle)
	if len(vehicles) == 0 {
		res.Message = "No available vehicles for assignment"
		return res
	}

	fleet := make([]*domain.Vehicle, len(vehicles))
	for i, v := range vehicles {
		fleet[i] = domain.NewVehicle(v, maxPerVehicle)
	}

	clusters := ClusterByStore(pending)
	assignments, leftover, err := AssignClusters(clusters, fleet)
	if err != nil {
		res.Message = fmt.Sprintf("Optimization failed: %v", err)
		return res
	}
	if len(leftover) > 0 {
		o.logger.WarnContext(ctx, "vehicles full, deliveries left unassigned",
			"run_id", runID, "unassigned", len(leftover))
	}

	updated := o.persist(ctx, runID, assignments)

	used := map[string]struct{}{}
	assigned := 0
	for _, a := range assignments {
		used[a.VehicleID] = struct{}{}
		assigned += a.DeliveryCount
	}

	res.Success = true
	res.Assignments = assignments
	res.TotalDeliveries = updated
	res.VehiclesUsed = len(used)
	res.EstimatedTimeSaved = float64(assigned) * o.cfg.MinutesSavedPerDelivery
	res.Message = fmt.Sprintf("Optimized %d deliveries across %d vehicles", updated, len(used))

	if o.cache != nil {
		if err := o.cache.Invalidate(ctx); err != nil {
			o.logger.WarnContext(ctx, "invalidate summary cache failed", "err", err)
		}
	}
	o.publish(ctx, runID, assignments)

	o.logger.InfoContext(ctx, "optimization run complete",
		"run_id", runID,
		"clusters", len(clusters),
		"assignments", len(assignments),
		"deliveries", updated,
		"vehicles", len(used),
	)
	return res
}

func (o *RouteOptimizer) pendingDeliveries(ctx context.Context) ([]domain.PendingDelivery, error) {
	today := o.now().Format("2006-01-02")
	rows, err := o.repo.FetchAll(ctx, pendingDeliveriesQuery, today)
	if err != nil {
		return nil, fmt.Errorf("fetch pending deliveries: %w", err)
	}

	out := make([]domain.PendingDelivery, 0, len(rows))
	for _, row := range rows {
		id, ok := row.String("order_id")
		if !ok {
			continue
		}
		d := domain.PendingDelivery{OrderID: id}
		d.StoreID, _ = row.String("store_id")
		d.OrderTime, _ = row.String("order_time")
		d.OrderDate, _ = row.String("order_date")
		out = append(out, d)
	}
	return out, nil
}

// availableVehicles lists vehicles under the cap, or every vehicle seen in the log
// at zero load when the availability query fails.
func (o *RouteOptimizer) availableVehicles(ctx context.Context, maxPerVehicle int) []domain.VehicleLoad {
	args := append(append([]any{}, assignableStatuses...), maxPerVehicle)
	rows, err := o.repo.FetchAll(ctx, availableVehiclesQuery, args...)
	if err == nil {
		out := make([]domain.VehicleLoad, 0, len(rows))
		for _, row := range rows {
			id, ok := row.String("vehicle_id")
			if !ok {
				continue
			}
			status, _ := row.String("status")
			load, _ := row.Int("current_load")
			out = append(out, domain.VehicleLoad{VehicleID: id, Status: status, CurrentLoad: load})
		}
		return out
	}

	o.logger.WarnContext(ctx, "vehicle availability query failed, falling back to log vehicles", "err", err)
	rows, err = o.repo.FetchAll(ctx, logVehiclesQuery)
	if err != nil {
		o.logger.WarnContext(ctx, "fallback vehicle query failed", "err", err)
		return nil
	}
	out := make([]domain.VehicleLoad, 0, len(rows))
	for _, row := range rows {
		if id, ok := row.String("vehicle_id"); ok && id != "" {
			out = append(out, domain.VehicleLoad{VehicleID: id, Status: "unknown"})
		}
	}
	return out
}

// persist writes one vehicle assignment per delivery and returns how many stuck.
func (o *RouteOptimizer) persist(ctx context.Context, runID string, assignments []domain.Assignment) int {
	updated := 0
	for _, a := range assignments {
		for _, d := range a.Deliveries {
			n, err := o.repo.Execute(ctx, assignVehicleStmt, a.VehicleID, d.OrderID)
			if err != nil {
				o.logger.ErrorContext(ctx, "assign delivery failed",
					"run_id", runID, "order_id", d.OrderID, "vehicle_id", a.VehicleID, "err", err)
				continue
			}
			if n > 0 {
				updated++
			}
		}
	}
	return updated
}

func (o *RouteOptimizer) publish(ctx context.Context, runID string, assignments []domain.Assignment) {
	if o.publisher == nil {
		return
	}
	at := o.now().UTC()
	for _, a := range assignments {
		ids := make([]string, len(a.Deliveries))
		for i, d := range a.Deliveries {
			ids[i] = d.OrderID
		}
		err := o.publisher.PublishAssignment(ctx, domain.AssignmentEvent{
			RunID:      runID,
			VehicleID:  a.VehicleID,
			StoreID:    a.StoreID,
			OrderIDs:   ids,
			AssignedAt: at,
		})
		if err != nil {
			o.logger.WarnContext(ctx, "publish assignment failed",
				"run_id", runID, "vehicle_id", a.VehicleID, "err", err)
		}
	}
}
