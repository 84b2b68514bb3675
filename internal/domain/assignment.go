package domain

import "time"

// A batch of deliveries from one store placed on one vehicle.
type Assignment struct {
	VehicleID     string            `json:"vehicle_id"`
	StoreID       string            `json:"store_id"`
	Deliveries    []PendingDelivery `json:"deliveries"`
	DeliveryCount int               `json:"delivery_count"`
}

// OptimizationResult is the structured outcome of one optimization run.
// Success=false results never carry assignments.
type OptimizationResult struct {
	RunID              string       `json:"run_id,omitempty"`
	Success            bool         `json:"success"`
	Message            string       `json:"message"`
	Assignments        []Assignment `json:"optimized_routes"`
	TotalDeliveries    int          `json:"total_deliveries"`
	VehiclesUsed       int          `json:"vehicles_used"`
	EstimatedTimeSaved float64      `json:"estimated_time_saved"`
}

// Published once per assignment after the run has persisted it.
type AssignmentEvent struct {
	RunID      string    `json:"run_id"`
	VehicleID  string    `json:"vehicle_id"`
	StoreID    string    `json:"store_id"`
	OrderIDs   []string  `json:"order_ids"`
	AssignedAt time.Time `json:"assigned_at"`
}
