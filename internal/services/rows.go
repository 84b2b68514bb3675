package services

import (
	"fleet-analytics-service/internal/domain"
	"fleet-analytics-service/internal/features"
	"fleet-analytics-service/internal/ports"
)

// Minutes added when pickup falls after midnight and the order before it.
const minutesPerDay = 1440

// Coerce a delivery_log row into an order record. Unparseable numbers become nil.
func orderFromRow(r ports.Row) domain.OrderRecord {
	o := domain.OrderRecord{}
	o.OrderID, _ = r.String("order_id")
	o.OrderTime, _ = r.String("order_time")
	o.OrderDate, _ = r.String("order_date")
	o.VehicleID, _ = r.String("vehicle_id")
	o.StoreID, _ = r.String("store_id")
	o.PickupTime, _ = r.String("pickup_time")
	o.Status, _ = r.String("status")

	if v, ok := r.Float("delivery_time"); ok {
		o.DeliveryMinutes = domain.Float(v)
	}
	return o
}

// prepMinutes derives preparation time from order and pickup times of day,
// wrapping pickups past midnight. ok=false when either time is unparseable.
func prepMinutes(orderTime, pickupTime string) (float64, bool) {
	ordered, ok := features.ParseMinutes(orderTime)
	if !ok {
		return 0, false
	}
	picked, ok := features.ParseMinutes(pickupTime)
	if !ok {
		return 0, false
	}

	prep := picked - ordered
	if prep < 0 {
		prep += minutesPerDay
	}
	return float64(prep), true
}
