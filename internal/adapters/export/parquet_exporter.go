package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"

	"fleet-analytics-service/internal/domain"
)

// One row of the exported training set.
type TrainingRow struct {
	OrderID         string   `parquet:"name=order_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	OrderDate       string   `parquet:"name=order_date, type=BYTE_ARRAY, convertedtype=UTF8"`
	OrderTime       string   `parquet:"name=order_time, type=BYTE_ARRAY, convertedtype=UTF8"`
	StoreID         string   `parquet:"name=store_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	VehicleID       string   `parquet:"name=vehicle_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	DeliveryMinutes float64  `parquet:"name=delivery_minutes, type=DOUBLE"`
	// Null when the order time or date could not be read; 0 is a real hour and Monday.
	OrderHour       *float64 `parquet:"name=order_hour, type=DOUBLE, repetitiontype=OPTIONAL"`
	DayOfWeek       *float64 `parquet:"name=day_of_week, type=DOUBLE, repetitiontype=OPTIONAL"`
	PrepMinutes     float64  `parquet:"name=prep_minutes, type=DOUBLE"`
	StoreAvgMinutes float64  `parquet:"name=store_avg_minutes, type=DOUBLE"`
	StoreAvgPrep    float64  `parquet:"name=store_avg_prep, type=DOUBLE"`
	VehicleAvg      float64  `parquet:"name=vehicle_avg_minutes, type=DOUBLE"`
}

// ParquetExporter writes the augmented training set to a local parquet file,
// replacing any previous export.
type ParquetExporter struct {
	Path string
}

func NewParquetExporter(path string) *ParquetExporter {
	return &ParquetExporter{Path: path}
}

func (p *ParquetExporter) ExportTrainingSet(ctx context.Context, records []domain.OrderRecord) (err error) {
	if dir := filepath.Dir(p.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("export training set: create directory %q: %w", dir, err)
		}
	}

	fw, err := local.NewLocalFileWriter(p.Path)
	if err != nil {
		return fmt.Errorf("export training set: create file writer: %w", err)
	}
	defer func() {
		if cerr := fw.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("export training set: close file: %w", cerr)
		}
	}()

	pw, err := writer.NewParquetWriter(fw, new(TrainingRow), 4)
	if err != nil {
		return fmt.Errorf("export training set: create parquet writer: %w", err)
	}

	for i, r := range records {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("export training set: %w", err)
		}
		if err := pw.Write(toRow(r)); err != nil {
			return fmt.Errorf("export training set: write row %d: %w", i, err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("export training set: flush: %w", err)
	}
	return nil
}

func toRow(r domain.OrderRecord) TrainingRow {
	return TrainingRow{
		OrderID:         r.OrderID,
		OrderDate:       r.OrderDate,
		OrderTime:       r.OrderTime,
		StoreID:         r.StoreID,
		VehicleID:       r.VehicleID,
		DeliveryMinutes: deref(r.DeliveryMinutes),
		OrderHour:       r.OrderHour,
		DayOfWeek:       r.DayOfWeek,
		PrepMinutes:     deref(r.PrepMinutes),
		StoreAvgMinutes: deref(r.StoreAvgMinutes),
		StoreAvgPrep:    deref(r.StoreAvgPrepMinutes),
		VehicleAvg:      deref(r.VehicleAvgMinutes),
	}
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
