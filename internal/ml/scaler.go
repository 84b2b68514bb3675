// Package ml holds the small regression toolkit behind the delivery-time predictor:
// standard scaling, ridge regression, a bagged regression-tree ensemble, and
// the split and scoring helpers used for model selection.
package ml

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler centers each column and divides by its population standard
// deviation. Constant columns are only centered.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler learns column statistics from x.
func FitScaler(x [][]float64) (*StandardScaler, error) {
	if len(x) == 0 {
		return nil, errors.New("fit scaler: no rows")
	}
	cols := len(x[0])
	if cols == 0 {
		return nil, errors.New("fit scaler: no columns")
	}

	s := &StandardScaler{Mean: make([]float64, cols), Scale: make([]float64, cols)}
	col := make([]float64, len(x))
	for j := 0; j < cols; j++ {
		for i, row := range x {
			if len(row) != cols {
				return nil, fmt.Errorf("fit scaler: ragged row of width %d, want %d", len(row), cols)
			}
			col[i] = row[j]
		}
		mean, sd := stat.PopMeanStdDev(col, nil)
		if sd == 0 || math.IsNaN(sd) {
			sd = 1
		}
		s.Mean[j], s.Scale[j] = mean, sd
	}

	return s, nil
}

// Transform returns a scaled copy of x.
func (s *StandardScaler) Transform(x [][]float64) ([][]float64, error) {
	out := make([][]float64, len(x))
	for i, row := range x {
		if len(row) != len(s.Mean) {
			return nil, fmt.Errorf("scale features: row %d has width %d, want %d", i, len(row), len(s.Mean))
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Mean[j]) / s.Scale[j]
		}
		out[i] = scaled
	}
	return out, nil
}

// Check reports whether s can scale rows of width cols.
func (s *StandardScaler) Check(cols int) error {
	if len(s.Mean) != cols || len(s.Scale) != cols {
		return fmt.Errorf("scaler: %d means and %d scales, want %d", len(s.Mean), len(s.Scale), cols)
	}
	for j := range s.Mean {
		if math.IsNaN(s.Mean[j]) || math.IsInf(s.Mean[j], 0) {
			return fmt.Errorf("scaler: column %d has non-finite mean", j)
		}
		if sc := s.Scale[j]; sc == 0 || math.IsNaN(sc) || math.IsInf(sc, 0) {
			return fmt.Errorf("scaler: column %d has unusable scale %v", j, sc)
		}
	}
	return nil
}
