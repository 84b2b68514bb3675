package dto

import "fleet-analytics-service/internal/domain"

// OrderInput is one order to forecast. Optional numbers override derived features.
type OrderInput struct {
	OrderID     string   `json:"order_id"`
	OrderTime   string   `json:"order_time"`
	OrderDate   string   `json:"order_date"`
	StoreID     string   `json:"store_id"`
	VehicleID   string   `json:"vehicle_id"`
	OrderHour   *float64 `json:"order_hour"`
	DayOfWeek   *float64 `json:"day_of_week"`
	PrepMinutes *float64 `json:"prep_minutes"`
}

func (o OrderInput) Record() domain.OrderRecord {
	return domain.OrderRecord{
		OrderID:     o.OrderID,
		OrderTime:   o.OrderTime,
		OrderDate:   o.OrderDate,
		StoreID:     o.StoreID,
		VehicleID:   o.VehicleID,
		OrderHour:   o.OrderHour,
		DayOfWeek:   o.DayOfWeek,
		PrepMinutes: o.PrepMinutes,
	}
}

type PredictionRequest struct {
	Orders []OrderInput `json:"orders"`
}

type PredictionItem struct {
	OrderID    string  `json:"order_id,omitempty"`
	Minutes    float64 `json:"predicted_minutes"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
}

type PredictionResponse struct {
	Predictions []PredictionItem `json:"predictions"`
	Confidence  float64          `json:"confidence"`
}
