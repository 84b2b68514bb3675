package domain

// Coarse label of how much a fleet run could help.
type Potential string

const (
	PotentialHigh    Potential = "High"
	PotentialMedium  Potential = "Medium"
	PotentialLow     Potential = "Low"
	PotentialNone    Potential = "None"
	PotentialUnknown Potential = "Unknown"
)

// Classify a pending-delivery count: High above 20, Medium above 10, Low otherwise.
func PotentialFor(pending int) Potential {
	switch {
	case pending > 20:
		return PotentialHigh
	case pending > 10:
		return PotentialMedium
	default:
		return PotentialLow
	}
}

// Advisory snapshot used to decide whether an optimization run is worthwhile.
type OptimizationSummary struct {
	PendingDeliveries     int       `json:"pending_deliveries"`
	UniqueStores          int       `json:"unique_stores"`
	VehiclesAvailable     int       `json:"vehicles_available"`
	OptimizationPotential Potential `json:"optimization_potential"`
}

// Per-store recommendation for building a single route by hand.
type RouteSuggestion struct {
	StoreIDs             []string `json:"store_ids"`
	VehicleFound         bool     `json:"vehicle_found"`
	VehicleID            string   `json:"vehicle_id,omitempty"`
	VehicleAvgMinutes    float64  `json:"vehicle_avg_minutes,omitempty"`
	PickupEstimateMin    int      `json:"pickup_estimate_minutes"`
	DeliveryEstimateMin  int      `json:"delivery_estimate_minutes"`
	TotalEstimateMinutes int      `json:"total_estimate_minutes"`
}
