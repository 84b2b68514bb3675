package repositories

import (
	"context"
	"database/sql"
	"testing"

	"fleet-analytics-service/internal/platform/db"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := InitSchema(conn); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return conn
}

func intPtr(v int) *int { return &v }

func TestRebind(t *testing.T) {
	q := "SELECT * FROM t WHERE a = ? AND b = '?' AND c IN (?, ?)"
	got := Rebind(DialectDollar, q)
	want := "SELECT * FROM t WHERE a = $1 AND b = '?' AND c IN ($2, $3)"
	if got != want {
		t.Errorf("Rebind = %q, want %q", got, want)
	}
	if Rebind(DialectQuestion, q) != q {
		t.Error("question dialect should leave the query unchanged")
	}
}

func TestDialectFor(t *testing.T) {
	if DialectFor("pgx") != DialectDollar || DialectFor("sqlite") != DialectQuestion {
		t.Error("unexpected dialect mapping")
	}
}

func TestFetchAllAndExecute(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	seed := Seed{
		Vehicles: []VehicleSeed{{VehicleID: "V1", Status: "active"}, {VehicleID: "V2"}},
		Orders: []OrderSeed{
			{OrderID: "O1", OrderDate: "2026-03-01", OrderTime: "12:30:00", StoreID: "S1"},
			{OrderID: "O2", OrderDate: "2026-03-01", OrderTime: "13:00:00", StoreID: "S1", VehicleID: "V1", DeliveryTime: intPtr(95), Status: "delivered"},
		},
	}
	count := 0
	if err := InsertSeed(ctx, conn, DialectQuestion, seed, func() { count++ }); err != nil {
		t.Fatalf("InsertSeed: %v", err)
	}
	if count != 4 {
		t.Errorf("progress calls = %d, want 4", count)
	}

	repo := NewSqlRepository(conn, DialectQuestion)

	rows, err := repo.FetchAll(ctx, `
	SELECT order_id AS Order_ID, CAST(order_date AS TEXT) AS order_date, delivery_time
	FROM delivery_log WHERE store_id = ? ORDER BY order_id`, "S1")
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if id, _ := rows[0].String("order_id"); id != "O1" {
		t.Errorf("column names should be lower-cased, got row %v", rows[0])
	}
	if d, _ := rows[0].String("order_date"); d != "2026-03-01" {
		t.Errorf("order_date = %q", d)
	}
	if _, ok := rows[0].Float("delivery_time"); ok {
		t.Error("NULL delivery_time should not coerce")
	}
	if v, ok := rows[1].Float("delivery_time"); !ok || v != 95 {
		t.Errorf("delivery_time = %v,%v want 95", v, ok)
	}

	n, err := repo.Execute(ctx, "UPDATE delivery_log SET vehicle_id = ? WHERE vehicle_id IS NULL", "V2")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if n != 1 {
		t.Errorf("rows affected = %d, want 1", n)
	}
}

func TestInsertSeedRejectsMissingIDs(t *testing.T) {
	conn := openTestDB(t)
	err := InsertSeed(context.Background(), conn, DialectQuestion, Seed{
		Orders: []OrderSeed{{OrderID: "O1", OrderDate: "2026-03-01"}},
	}, nil)
	if err == nil {
		t.Fatal("expected error for order without store_id")
	}
}

func TestNilDB(t *testing.T) {
	repo := &SqlRepository{}
	if _, err := repo.FetchAll(context.Background(), "SELECT 1"); err == nil {
		t.Error("expected error for nil DB")
	}
	if _, err := repo.Execute(context.Background(), "SELECT 1"); err == nil {
		t.Error("expected error for nil DB")
	}
}
