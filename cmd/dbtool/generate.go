package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/jaswdr/faker"
	"github.com/lucsky/cuid"

	"fleet-analytics-service/internal/adapters/repositories"
)

type GenerateOptions struct {
	Now          time.Time
	Seed         int64
	Vehicles     int
	Stores       int
	Days         int
	OrdersPerDay int
	Pending      int
}

var vehicleStatuses = []string{"available", "available", "idle", "active", "maintenance"}

// Generate builds a synthetic fleet: completed deliveries over the last Days days
// and Pending unassigned orders dated Now. Delivery time grows with the order's
// prep time, its hour and a per-store and per-vehicle offset, so trained models
// have a signal to find.
func Generate(opts GenerateOptions) repositories.Seed {
	rng := rand.New(rand.NewSource(opts.Seed))
	fake := faker.NewWithSeed(rand.NewSource(opts.Seed))

	var seed repositories.Seed

	vehicleOffset := make([]int, opts.Vehicles)
	for i := 0; i < opts.Vehicles; i++ {
		seed.Vehicles = append(seed.Vehicles, repositories.VehicleSeed{
			VehicleID: fmt.Sprintf("V%03d", i+1),
			Status:    vehicleStatuses[i%len(vehicleStatuses)],
			Model:     fake.Car().Model(),
			Year:      fake.IntBetween(2015, 2025),
		})
		vehicleOffset[i] = fake.IntBetween(-10, 15)
	}

	storeOffset := make([]int, opts.Stores)
	for i := range storeOffset {
		storeOffset[i] = fake.IntBetween(0, 40)
	}

	for d := opts.Days; d >= 1; d-- {
		date := opts.Now.AddDate(0, 0, -d).Format("2006-01-02")
		for n := 0; n < opts.OrdersPerDay; n++ {
			hour := 9 + rng.Intn(13)
			minute := rng.Intn(60)
			prep := 5 + rng.Intn(30)
			store := rng.Intn(opts.Stores)
			vehicle := rng.Intn(max(opts.Vehicles, 1))

			pickup := time.Date(2000, 1, 1, hour, minute, 0, 0, time.UTC).Add(time.Duration(prep) * time.Minute)
			delivery := 40 + 2*prep + storeOffset[store] + rng.Intn(20)
			if hour >= 17 {
				delivery += 20
			}
			if opts.Vehicles > 0 {
				delivery += vehicleOffset[vehicle]
			}

			o := repositories.OrderSeed{
				OrderID:      cuid.New(),
				OrderDate:    date,
				OrderTime:    fmt.Sprintf("%02d:%02d:00", hour, minute),
				StoreID:      storeID(store),
				PickupTime:   pickup.Format("15:04:05"),
				DeliveryTime: &delivery,
				Status:       "delivered",
			}
			if opts.Vehicles > 0 {
				o.VehicleID = seed.Vehicles[vehicle].VehicleID
			}
			seed.Orders = append(seed.Orders, o)
		}
	}

	today := opts.Now.Format("2006-01-02")
	for n := 0; n < opts.Pending; n++ {
		seed.Orders = append(seed.Orders, repositories.OrderSeed{
			OrderID:   cuid.New(),
			OrderDate: today,
			OrderTime: fmt.Sprintf("%02d:%02d:00", 8+rng.Intn(4), rng.Intn(60)),
			// Skew towards a few busy stores so clusters form.
			StoreID: storeID(rng.Intn(max(opts.Stores/3, 1))),
			Status:  "pending",
		})
	}

	return seed
}

func storeID(i int) string { return fmt.Sprintf("S%03d", i+1) }
