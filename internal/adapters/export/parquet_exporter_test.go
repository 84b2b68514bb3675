package export

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"fleet-analytics-service/internal/domain"
)

func TestExportTrainingSetWritesReadableParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export", "training.parquet")
	records := []domain.OrderRecord{
		{OrderID: "O1", OrderDate: "2026-03-01", StoreID: "S1", DeliveryMinutes: domain.Float(95), PrepMinutes: domain.Float(12),
			OrderHour: domain.Float(0), DayOfWeek: domain.Float(6)},
		{OrderID: "O2", OrderDate: "2026-03-02", StoreID: "S2", DeliveryMinutes: domain.Float(130)},
	}

	if err := NewParquetExporter(path).ExportTrainingSet(context.Background(), records); err != nil {
		t.Fatalf("ExportTrainingSet: %v", err)
	}

	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(TrainingRow), 1)
	if err != nil {
		t.Fatalf("parquet reader: %v", err)
	}
	defer pr.ReadStop()

	if n := pr.GetNumRows(); n != 2 {
		t.Fatalf("rows = %d, want 2", n)
	}
	rows := make([]TrainingRow, 2)
	if err := pr.Read(&rows); err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if rows[0].OrderID != "O1" || rows[0].DeliveryMinutes != 95 || rows[0].PrepMinutes != 12 {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[0].OrderHour == nil || *rows[0].OrderHour != 0 || rows[0].DayOfWeek == nil || *rows[0].DayOfWeek != 6 {
		t.Errorf("row 0 hour/day = %v/%v, want 0/6", rows[0].OrderHour, rows[0].DayOfWeek)
	}
	if rows[1].StoreID != "S2" || rows[1].PrepMinutes != 0 {
		t.Errorf("row 1 = %+v", rows[1])
	}
	if rows[1].OrderHour != nil || rows[1].DayOfWeek != nil {
		t.Errorf("row 1 hour/day = %v/%v, want null", rows[1].OrderHour, rows[1].DayOfWeek)
	}
}
