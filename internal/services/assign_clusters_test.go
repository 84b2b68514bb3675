package services

import (
	"errors"
	"fmt"
	"testing"

	"fleet-analytics-service/internal/domain"
)

func deliveries(store string, n int) []domain.PendingDelivery {
	out := make([]domain.PendingDelivery, n)
	for i := range out {
		out[i] = domain.PendingDelivery{OrderID: fmt.Sprintf("%s-%d", store, i), StoreID: store}
	}
	return out
}

func fleet(capacity int, loads ...int) []*domain.Vehicle {
	out := make([]*domain.Vehicle, len(loads))
	for i, l := range loads {
		out[i] = &domain.Vehicle{VehicleID: fmt.Sprintf("V%d", i+1), Capacity: capacity, Load: l}
	}
	return out
}

func TestClusterByStoreOrdersBySize(t *testing.T) {
	pending := append(append(deliveries("A", 1), deliveries("B", 3)...), deliveries("C", 1)...)
	pending = append(pending, deliveries("B", 1)[0])

	clusters := ClusterByStore(pending)
	if len(clusters) != 3 {
		t.Fatalf("clusters = %d, want 3", len(clusters))
	}
	if clusters[0].StoreID != "B" || clusters[0].Size() != 4 {
		t.Errorf("first cluster = %s/%d, want B/4", clusters[0].StoreID, clusters[0].Size())
	}
	if clusters[1].StoreID != "A" || clusters[2].StoreID != "C" {
		t.Errorf("ties should keep first-appearance order, got %s, %s", clusters[1].StoreID, clusters[2].StoreID)
	}
}

func TestAssignClustersKeepsClustersWhole(t *testing.T) {
	clusters := ClusterByStore(append(deliveries("A", 3), deliveries("B", 2)...))
	vehicles := fleet(10, 0, 0)

	got, leftover, err := AssignClusters(clusters, vehicles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(leftover) != 0 {
		t.Fatalf("leftover = %d, want 0", len(leftover))
	}
	if len(got) != 2 {
		t.Fatalf("assignments = %d, want 2", len(got))
	}
	if got[0].VehicleID != "V1" || got[0].StoreID != "A" || got[0].DeliveryCount != 3 {
		t.Errorf("first assignment = %+v", got[0])
	}
	if got[1].VehicleID != "V2" || got[1].StoreID != "B" || got[1].DeliveryCount != 2 {
		t.Errorf("second assignment = %+v", got[1])
	}
}

func TestAssignClustersPicksLeastLoaded(t *testing.T) {
	vehicles := fleet(10, 4, 2, 2)
	got, _, err := AssignClusters(ClusterByStore(deliveries("A", 5)), vehicles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].VehicleID != "V2" {
		t.Fatalf("assignments = %+v, want whole cluster on V2", got)
	}
	if vehicles[1].Load != 7 {
		t.Errorf("V2 load = %d, want 7", vehicles[1].Load)
	}
}

func TestAssignClustersSplitsOverflow(t *testing.T) {
	vehicles := fleet(5, 2, 1)
	got, leftover, err := AssignClusters(ClusterByStore(deliveries("A", 6)), vehicles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(leftover) != 0 {
		t.Fatalf("leftover = %d, want 0", len(leftover))
	}
	if len(got) != 2 {
		t.Fatalf("assignments = %d, want 2", len(got))
	}
	if got[0].VehicleID != "V2" || got[0].DeliveryCount != 4 {
		t.Errorf("first split = %s/%d, want V2/4", got[0].VehicleID, got[0].DeliveryCount)
	}
	if got[1].VehicleID != "V1" || got[1].DeliveryCount != 2 {
		t.Errorf("second split = %s/%d, want V1/2", got[1].VehicleID, got[1].DeliveryCount)
	}
}

func TestAssignClustersLeavesOverflowWhenFull(t *testing.T) {
	vehicles := fleet(3, 1)
	got, leftover, err := AssignClusters(ClusterByStore(deliveries("A", 4)), vehicles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].DeliveryCount != 2 {
		t.Fatalf("assignments = %+v, want one of 2", got)
	}
	if len(leftover) != 2 {
		t.Errorf("leftover = %d, want 2", len(leftover))
	}
}

func TestAssignClustersNeverExceedsCapacity(t *testing.T) {
	sizes := [][]int{{1}, {12}, {3, 3, 3, 3}, {7, 5, 2}, {10, 10, 10}, {4, 9, 1, 6}}
	loads := [][]int{{0}, {0, 0}, {9, 0, 5}, {2, 2}, {0, 0, 0, 0}}

	for _, sz := range sizes {
		for _, ld := range loads {
			var pending []domain.PendingDelivery
			total := 0
			for i, n := range sz {
				pending = append(pending, deliveries(fmt.Sprintf("S%d", i), n)...)
				total += n
			}
			vehicles := fleet(10, ld...)
			start := map[string]int{}
			for _, v := range vehicles {
				start[v.VehicleID] = v.Load
			}

			got, leftover, err := AssignClusters(ClusterByStore(pending), vehicles)
			if err != nil {
				t.Fatalf("sizes %v loads %v: %v", sz, ld, err)
			}

			added := map[string]int{}
			assigned := 0
			for _, a := range got {
				added[a.VehicleID] += a.DeliveryCount
				assigned += a.DeliveryCount
			}
			for _, v := range vehicles {
				if v.Load > 10 {
					t.Errorf("sizes %v loads %v: %s load %d exceeds 10", sz, ld, v.VehicleID, v.Load)
				}
				if start[v.VehicleID]+added[v.VehicleID] != v.Load {
					t.Errorf("sizes %v loads %v: %s load not tracked", sz, ld, v.VehicleID)
				}
			}
			if assigned+len(leftover) != total {
				t.Errorf("sizes %v loads %v: %d assigned + %d leftover != %d", sz, ld, assigned, len(leftover), total)
			}
		}
	}
}

func TestAssignClustersRejectsZeroCapacity(t *testing.T) {
	_, _, err := AssignClusters(ClusterByStore(deliveries("A", 1)), fleet(0, 0))
	if !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("err = %v, want ErrInvalidCapacity", err)
	}
}

func TestAssignClustersRequiresVehicles(t *testing.T) {
	if _, _, err := AssignClusters(ClusterByStore(deliveries("A", 1)), nil); err == nil {
		t.Error("expected error for empty fleet")
	}
}
