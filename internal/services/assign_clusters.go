package services

import (
	"errors"
	"fmt"
	"slices"

	"fleet-analytics-service/internal/domain"
)

// ClusterByStore groups pending deliveries by store, largest cluster first.
// Equal-sized clusters keep the order in which their store first appeared.
func ClusterByStore(pending []domain.PendingDelivery) []domain.Cluster {
	index := map[string]int{}
	clusters := make([]domain.Cluster, 0, 8)
	for _, d := range pending {
		i, ok := index[d.StoreID]
		if !ok {
			i = len(clusters)
			index[d.StoreID] = i
			clusters = append(clusters, domain.Cluster{StoreID: d.StoreID})
		}
		clusters[i].Deliveries = append(clusters[i].Deliveries, d)
	}

	slices.SortStableFunc(clusters, func(a, b domain.Cluster) int {
		return b.Size() - a.Size()
	})
	return clusters
}

// AssignClusters places clusters onto vehicles greedily.
//
// A cluster goes whole to the least-loaded vehicle that can take it; the first
// such vehicle wins ties. A cluster no vehicle can take whole is split across the
// vehicles with the most spare capacity. Deliveries that fit nowhere are returned
// as leftover. Vehicle loads are updated in place.
func AssignClusters(clusters []domain.Cluster, vehicles []*domain.Vehicle) ([]domain.Assignment, []domain.PendingDelivery, error) {
	if len(vehicles) == 0 {
		return nil, nil, errors.New("assign clusters: vehicle list must not be empty")
	}
	for _, v := range vehicles {
		if v.Capacity < 1 {
			return nil, nil, fmt.Errorf("assign clusters: vehicle %s: %w", v.VehicleID, ErrInvalidCapacity)
		}
	}

	assignments := make([]domain.Assignment, 0, len(clusters))
	var leftover []domain.PendingDelivery

	for _, c := range clusters {
		if c.Size() == 0 {
			continue
		}

		if v := leastLoadedFitting(vehicles, c.Size()); v != nil {
			if err := v.Take(c.Size()); err != nil {
				return nil, nil, fmt.Errorf("assign clusters: store %s: %w", c.StoreID, err)
			}
			assignments = append(assignments, newAssignment(v.VehicleID, c.StoreID, c.Deliveries))
			continue
		}

		queue := c.Deliveries
		for len(queue) > 0 {
			v := mostRemaining(vehicles)
			if v == nil {
				leftover = append(leftover, queue...)
				break
			}

			n := min(v.Remaining(), len(queue))
			if err := v.Take(n); err != nil {
				return nil, nil, fmt.Errorf("assign clusters: split store %s: %w", c.StoreID, err)
			}
			assignments = append(assignments, newAssignment(v.VehicleID, c.StoreID, queue[:n]))
			queue = queue[n:]
		}
	}

	return assignments, leftover, nil
}

func leastLoadedFitting(vehicles []*domain.Vehicle, size int) *domain.Vehicle {
	var best *domain.Vehicle
	for _, v := range vehicles {
		if !v.Fits(size) {
			continue
		}
		if best == nil || v.Load < best.Load {
			best = v
		}
	}
	return best
}

// Vehicle with the largest spare capacity, or nil when every vehicle is full.
func mostRemaining(vehicles []*domain.Vehicle) *domain.Vehicle {
	var best *domain.Vehicle
	for _, v := range vehicles {
		if v.Remaining() == 0 {
			continue
		}
		if best == nil || v.Remaining() > best.Remaining() {
			best = v
		}
	}
	return best
}

func newAssignment(vehicleID, storeID string, deliveries []domain.PendingDelivery) domain.Assignment {
	d := make([]domain.PendingDelivery, len(deliveries))
	copy(d, deliveries)
	return domain.Assignment{
		VehicleID:     vehicleID,
		StoreID:       storeID,
		Deliveries:    d,
		DeliveryCount: len(d),
	}
}
