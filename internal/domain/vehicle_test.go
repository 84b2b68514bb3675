package domain

import "testing"

func TestVehicleTake(t *testing.T) {
	v := NewVehicle(VehicleLoad{VehicleID: "V1", CurrentLoad: 3}, 5)

	if got := v.Remaining(); got != 2 {
		t.Fatalf("remaining = %d, want 2", got)
	}

	if err := v.Take(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Load != 5 {
		t.Fatalf("load = %d, want 5", v.Load)
	}

	if err := v.Take(1); err == nil {
		t.Fatal("expected capacity error, got nil")
	}
	if v.Load != 5 {
		t.Errorf("load changed on failed take: %d", v.Load)
	}

	if err := v.Take(-1); err == nil {
		t.Error("expected error for negative count")
	}
}

func TestVehicleRemainingNeverNegative(t *testing.T) {
	v := NewVehicle(VehicleLoad{VehicleID: "V2", CurrentLoad: 12}, 10)
	if got := v.Remaining(); got != 0 {
		t.Fatalf("remaining = %d, want 0", got)
	}
	if v.Fits(0) {
		t.Error("overloaded vehicle should not fit even zero deliveries")
	}
}

func TestPotentialFor(t *testing.T) {
	cases := []struct {
		pending int
		want    Potential
	}{
		{0, PotentialLow},
		{10, PotentialLow},
		{11, PotentialMedium},
		{20, PotentialMedium},
		{21, PotentialHigh},
	}
	for _, c := range cases {
		if got := PotentialFor(c.pending); got != c.want {
			t.Errorf("PotentialFor(%d) = %s, want %s", c.pending, got, c.want)
		}
	}
}

func TestOrderRecordDate(t *testing.T) {
	o := OrderRecord{OrderDate: "2026-03-14T00:00:00Z"}
	d, ok := o.Date()
	if !ok {
		t.Fatal("expected date to parse")
	}
	if d.Month() != 3 || d.Day() != 14 {
		t.Errorf("date = %v, want 2026-03-14", d)
	}

	if _, ok := (OrderRecord{OrderDate: "not a date"}).Date(); ok {
		t.Error("expected malformed date to fail")
	}
}
