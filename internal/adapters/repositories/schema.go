package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Initialize the delivery schema. Statements are portable between SQLite and Postgres.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createVehiclesQuery := `
	CREATE TABLE IF NOT EXISTS vehicles (
		vehicle_id TEXT PRIMARY KEY,
		status TEXT NOT NULL DEFAULT 'idle',
		model TEXT,
		year INTEGER
	);
	`

	createDeliveryLogQuery := `
	CREATE TABLE IF NOT EXISTS delivery_log (
		order_id TEXT PRIMARY KEY,
		order_date DATE NOT NULL,
		order_time TIME,
		store_id TEXT NOT NULL,
		vehicle_id TEXT,
		pickup_time TIME,
		delivery_time INTEGER,
		status TEXT NOT NULL DEFAULT 'pending'
	);
	`

	createPendingIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_delivery_log_order_date
	ON delivery_log(order_date);
	`

	createVehicleIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_delivery_log_vehicle
	ON delivery_log(vehicle_id);
	`

	statements := []string{
		createVehiclesQuery,
		createDeliveryLogQuery,
		createPendingIndexQuery,
		createVehicleIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type VehicleSeed struct {
	VehicleID string `json:"vehicle_id"`
	Status    string `json:"status"`
	Model     string `json:"model"`
	Year      int    `json:"year"`
}

type OrderSeed struct {
	OrderID      string `json:"order_id"`
	OrderDate    string `json:"order_date"`
	OrderTime    string `json:"order_time"`
	StoreID      string `json:"store_id"`
	VehicleID    string `json:"vehicle_id,omitempty"`
	PickupTime   string `json:"pickup_time,omitempty"`
	DeliveryTime *int   `json:"delivery_time,omitempty"`
	Status       string `json:"status"`
}

type Seed struct {
	Vehicles []VehicleSeed `json:"vehicles"`
	Orders   []OrderSeed   `json:"orders"`
}

// Populate the database from a JSON seed file.
func SeedFromJSON(db *sql.DB, dialect Dialect, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed: read %q: %w", jsonPath, err)
	}

	var data Seed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed: parse json: %w", err)
	}

	return InsertSeed(context.Background(), db, dialect, data, nil)
}

// InsertSeed upserts vehicles and orders in one transaction. progress, when set,
// is called once per inserted row.
func InsertSeed(ctx context.Context, db *sql.DB, dialect Dialect, data Seed, progress func()) error {
	for i, v := range data.Vehicles {
		if strings.TrimSpace(v.VehicleID) == "" {
			return fmt.Errorf("seed: vehicle at index %d: vehicle_id cannot be empty", i+1)
		}
	}
	for i, o := range data.Orders {
		if strings.TrimSpace(o.OrderID) == "" || strings.TrimSpace(o.StoreID) == "" {
			return fmt.Errorf("seed: order at index %d: order_id and store_id are required", i+1)
		}
		if strings.TrimSpace(o.OrderDate) == "" {
			return fmt.Errorf("seed: order %s: order_date is required", o.OrderID)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	vehicleStmt, err := tx.PrepareContext(ctx, Rebind(dialect, `
	INSERT INTO vehicles (vehicle_id, status, model, year)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (vehicle_id) DO UPDATE
	SET status = EXCLUDED.status, model = EXCLUDED.model, year = EXCLUDED.year;
	`))
	if err != nil {
		return fmt.Errorf("seed: prepare vehicle insert: %w", err)
	}
	defer vehicleStmt.Close()

	for _, v := range data.Vehicles {
		status := v.Status
		if status == "" {
			status = "idle"
		}
		if _, err := vehicleStmt.ExecContext(ctx, v.VehicleID, status, v.Model, v.Year); err != nil {
			return fmt.Errorf("seed: insert vehicle_id=%s: %w", v.VehicleID, err)
		}
		if progress != nil {
			progress()
		}
	}

	orderStmt, err := tx.PrepareContext(ctx, Rebind(dialect, `
	INSERT INTO delivery_log (
		order_id, order_date, order_time, store_id, vehicle_id,
		pickup_time, delivery_time, status
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (order_id) DO UPDATE
	SET vehicle_id = EXCLUDED.vehicle_id,
		pickup_time = EXCLUDED.pickup_time,
		delivery_time = EXCLUDED.delivery_time,
		status = EXCLUDED.status;
	`))
	if err != nil {
		return fmt.Errorf("seed: prepare order insert: %w", err)
	}
	defer orderStmt.Close()

	for _, o := range data.Orders {
		status := o.Status
		if status == "" {
			status = "pending"
		}
		_, err := orderStmt.ExecContext(ctx,
			o.OrderID,
			o.OrderDate,
			nullable(o.OrderTime),
			o.StoreID,
			nullable(o.VehicleID),
			nullable(o.PickupTime),
			nullableInt(o.DeliveryTime),
			status,
		)
		if err != nil {
			return fmt.Errorf("seed: insert order_id=%s: %w", o.OrderID, err)
		}
		if progress != nil {
			progress()
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}

	return nil
}

func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
