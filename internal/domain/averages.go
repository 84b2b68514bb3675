package domain

// Historical performance of one store.
type StoreAverage struct {
	AvgMinutes     float64 `json:"avg_time"`
	AvgPrepMinutes float64 `json:"avg_prep"`
	Count          int     `json:"total"`
}

// Historical performance of one vehicle.
type VehicleAverage struct {
	AvgMinutes float64 `json:"avg_time"`
	Count      int     `json:"total"`
}

type StoreAverages map[string]StoreAverage

type VehicleAverages map[string]VehicleAverage
