package domain

import "fmt"

// Vehicle aggregate tracking assigned load against a per-run capacity.
// Load starts at the vehicle's in-flight count and only grows during one run.
type Vehicle struct {
	VehicleID string
	Capacity  int
	Load      int
}

func NewVehicle(v VehicleLoad, capacity int) *Vehicle {
	return &Vehicle{
		VehicleID: v.VehicleID,
		Capacity:  capacity,
		Load:      v.CurrentLoad,
	}
}

// Spare capacity, never negative.
func (v *Vehicle) Remaining() int {
	if r := v.Capacity - v.Load; r > 0 {
		return r
	}
	return 0
}

// Report whether n more deliveries fit without exceeding capacity.
func (v *Vehicle) Fits(n int) bool {
	return v.Load+n <= v.Capacity
}

// Take n deliveries onto the vehicle.
func (v *Vehicle) Take(n int) error {
	if n < 0 {
		return fmt.Errorf("load vehicle: vehicle %s: negative count %d", v.VehicleID, n)
	}
	if !v.Fits(n) {
		return fmt.Errorf(
			"load vehicle: vehicle %s cannot take %d (load=%d, capacity=%d)",
			v.VehicleID, n, v.Load, v.Capacity,
		)
	}
	v.Load += n
	return nil
}
