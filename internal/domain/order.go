package domain

import "time"

// Represents one row of the delivery log as seen by the analytical components.
// Text fields are empty when the source value is NULL. DeliveryMinutes is nil until
// the order has been delivered.
//
// The optional override fields carry values derived upstream (for example by the
// trainer); when nil the feature builder derives or defaults them.
type OrderRecord struct {
	OrderID         string
	OrderTime       string // time of day, "HH:MM" or "HH:MM:SS"
	OrderDate       string // "YYYY-MM-DD"
	VehicleID       string
	StoreID         string
	PickupTime      string
	DeliveryMinutes *float64
	Status          string

	OrderHour           *float64
	DayOfWeek           *float64
	PrepMinutes         *float64
	StoreAvgMinutes     *float64
	StoreAvgPrepMinutes *float64
	VehicleAvgMinutes   *float64
}

// Parse OrderDate; ok=false when empty or malformed.
func (o OrderRecord) Date() (time.Time, bool) {
	if o.OrderDate == "" {
		return time.Time{}, false
	}
	s := o.OrderDate
	if len(s) > 10 {
		s = s[:10]
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// Float returns a pointer to v, for populating the optional fields.
func Float(v float64) *float64 { return &v }
