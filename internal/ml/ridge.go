package ml

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Ridge is an L2-regularized linear regression with an unpenalized intercept.
type Ridge struct {
	Alpha     float64   `json:"alpha"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

// FitRidge solves (XcᵀXc + αI)w = Xcᵀyc on centered data.
func FitRidge(x [][]float64, y []float64, alpha float64) (*Ridge, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("fit ridge: %d rows for %d targets", len(x), len(y))
	}
	if alpha <= 0 {
		return nil, errors.New("fit ridge: alpha must be positive")
	}

	n, p := len(x), len(x[0])
	xMean := make([]float64, p)
	for _, row := range x {
		for j, v := range row {
			xMean[j] += v
		}
	}
	for j := range xMean {
		xMean[j] /= float64(n)
	}
	yMean := Mean(y)

	xc := mat.NewDense(n, p, nil)
	yc := mat.NewVecDense(n, nil)
	for i, row := range x {
		for j, v := range row {
			xc.Set(i, j, v-xMean[j])
		}
		yc.SetVec(i, y[i]-yMean)
	}

	var a mat.SymDense
	a.SymOuterK(1, xc.T())
	for j := 0; j < p; j++ {
		a.SetSym(j, j, a.At(j, j)+alpha)
	}

	var b mat.VecDense
	b.MulVec(xc.T(), yc)

	var chol mat.Cholesky
	if ok := chol.Factorize(&a); !ok {
		return nil, errors.New("fit ridge: normal equations are not positive definite")
	}

	var w mat.VecDense
	if err := chol.SolveVecTo(&w, &b); err != nil {
		return nil, fmt.Errorf("fit ridge: solve: %w", err)
	}

	coef := make([]float64, p)
	intercept := yMean
	for j := range coef {
		coef[j] = w.AtVec(j)
		intercept -= coef[j] * xMean[j]
	}

	return &Ridge{Alpha: alpha, Coef: coef, Intercept: intercept}, nil
}

func (r *Ridge) Predict(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		v := r.Intercept
		for j, c := range r.Coef {
			if j < len(row) {
				v += c * row[j]
			}
		}
		out[i] = v
	}
	return out
}
