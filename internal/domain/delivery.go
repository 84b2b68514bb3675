package domain

// A delivery that has neither been picked up nor delivered.
type PendingDelivery struct {
	OrderID   string `json:"order_id"`
	StoreID   string `json:"store_id"`
	OrderTime string `json:"order_time,omitempty"`
	OrderDate string `json:"order_date,omitempty"`
}

// A vehicle eligible for assignment and the number of in-flight deliveries it carries.
type VehicleLoad struct {
	VehicleID   string
	Status      string
	CurrentLoad int
}

// Pending deliveries sharing one store, kept together on one vehicle where possible.
type Cluster struct {
	StoreID    string
	Deliveries []PendingDelivery
}

func (c Cluster) Size() int { return len(c.Deliveries) }
