package linear_model

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func TestLinearRegression_Fit(t *testing.T) {
	tests := []struct {
		name          string
		X             *mat.Dense
		y             *mat.Dense
		wantCoef      []float64
		wantIntercept float64
	}{
		{
			name:          "simple 1D",
			X:             mat.NewDense(4, 1, []float64{1, 2, 3, 4}),
			y:             mat.NewDense(4, 1, []float64{3, 5, 7, 9}),
			wantCoef:      []float64{2},
			wantIntercept: 1,
		},
		{
			name: "two features",
			X: mat.NewDense(5, 2, []float64{
				1, 0,
				0, 1,
				1, 1,
				2, 1,
				1, 3,
			}),
			// y = 3*x1 - 2*x2 + 0.5
			y:             mat.NewDense(5, 1, []float64{3.5, -1.5, 1.5, 4.5, -2.5}),
			wantCoef:      []float64{3, -2},
			wantIntercept: 0.5,
		},
		{
			// 重複列はランク落ち: 最小ノルム解は係数を等分する
			name: "duplicated column",
			X: mat.NewDense(4, 2, []float64{
				1, 1,
				2, 2,
				3, 3,
				4, 4,
			}),
			y:             mat.NewDense(4, 1, []float64{2, 4, 6, 8}),
			wantCoef:      []float64{1, 1},
			wantIntercept: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := NewLinearRegression()
			if err := lr.Fit(tt.X, tt.y); err != nil {
				t.Fatalf("Fit() error = %v", err)
			}
			for i, w := range lr.Coef() {
				if math.Abs(w-tt.wantCoef[i]) > 1e-8 {
					t.Errorf("Coef()[%d] = %v, want %v", i, w, tt.wantCoef[i])
				}
			}
			if math.Abs(lr.Intercept()-tt.wantIntercept) > 1e-8 {
				t.Errorf("Intercept() = %v, want %v", lr.Intercept(), tt.wantIntercept)
			}
			score, err := lr.Score(tt.X, tt.y)
			if err != nil {
				t.Fatalf("Score() error = %v", err)
			}
			if math.Abs(score-1) > 1e-8 {
				t.Errorf("Score() = %v, want 1", score)
			}
		})
	}
}

func TestLinearRegression_Errors(t *testing.T) {
	lr := NewLinearRegression()

	_, err := lr.Predict(mat.NewDense(1, 1, []float64{1}))
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Errorf("Predict before Fit: got %v, want NotFittedError", err)
	}

	err = lr.Fit(mat.NewDense(2, 1, []float64{1, math.NaN()}), mat.NewDense(2, 1, []float64{1, 2}))
	var ve *errors.ValueError
	if !errors.As(err, &ve) {
		t.Errorf("Fit with NaN: got %v, want ValueError", err)
	}

	if err := lr.Fit(mat.NewDense(2, 1, []float64{1, 2}), mat.NewDense(2, 1, []float64{1, 2})); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	_, err = lr.Predict(mat.NewDense(1, 2, []float64{1, 2}))
	var de *errors.DimensionError
	if !errors.As(err, &de) {
		t.Errorf("Predict with wrong width: got %v, want DimensionError", err)
	}
}
