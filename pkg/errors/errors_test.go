package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not fitted", NewNotFittedError("LinearRegression", "Predict"), "automl: LinearRegression.Predict called before Fit"},
		{"rows", NewDimensionError("Fit", 10, 8, 0), "automl: Fit: expected 10 rows, got 8"},
		{"features", NewDimensionError("Predict", 3, 4, 1), "automl: Predict: expected 3 features, got 4"},
		{"validation", NewValidationError("test size", "must be in [10, 50]", 70), "automl: invalid test size: must be in [10, 50] (got 70)"},
		{"key", NewKeyError("Frame.Drop", "age", "city"), `automl: Frame.Drop: ["age" "city"] not found in axis`},
		{"model", NewModelError("PCA.Fit", "SVD did not converge", ErrSingularMatrix), "automl: PCA.Fit: SVD did not converge: singular matrix"},
		{"model without cause", NewModelError("Predict", "not fitted", nil), "automl: Predict: not fitted"},
		{"instability", NewNumericalInstabilityError("GBDT.Fit", []float64{1, 2, 3, 4, 5, 6}, 7), "automl: GBDT.Fit: non-finite values at iteration 7: [1, 2, 3, 4, 5, ...]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			// 生成箇所のスタックが付いている
			if !strings.Contains(fmt.Sprintf("%+v", tt.err), "errors_test.go") {
				t.Error("missing stack trace")
			}
		})
	}
}

func TestAsAndIs(t *testing.T) {
	err := Wrapf(NewKeyError("Frame.Column", "x"), "stage %s", "clean")
	var ke *KeyError
	if !As(err, &ke) || ke.Keys[0] != "x" {
		t.Errorf("As(*KeyError) failed for %v", err)
	}

	err = NewModelError("Fit", "failed", ErrEmptyData)
	if !Is(err, ErrEmptyData) {
		t.Error("ModelError should unwrap to its cause")
	}
	if !strings.Contains(Wrap(err, "train").Error(), "train: automl: Fit") {
		t.Errorf("Wrap() = %v", Wrap(err, "train"))
	}
}

func TestWarnings(t *testing.T) {
	if got := NewConvergenceWarning("lbfgs", 10, "").Error(); got != "lbfgs did not converge in 10 iterations: increase max_iter" {
		t.Errorf("ConvergenceWarning = %q", got)
	}
	if got := NewUndefinedMetricWarning("precision", "no predicted samples", 0).Error(); got != "precision is undefined (no predicted samples); using 0" {
		t.Errorf("UndefinedMetricWarning = %q", got)
	}

	var viaHandler, viaZerolog []error
	SetWarningHandler(func(w error) { viaHandler = append(viaHandler, w) })
	defer SetWarningHandler(nil)

	Warn(NewConvergenceWarning("lbfgs", 10, ""))
	if len(viaHandler) != 1 {
		t.Fatalf("handler received %d warnings, want 1", len(viaHandler))
	}

	SetZerologWarnFunc(func(w error) { viaZerolog = append(viaZerolog, w) })
	defer SetZerologWarnFunc(nil)

	Warn(NewUndefinedMetricWarning("recall", "no true samples", 0))
	if len(viaZerolog) != 1 || len(viaHandler) != 1 {
		t.Errorf("zerolog func should take precedence: handler=%d zerolog=%d", len(viaHandler), len(viaZerolog))
	}
}

func TestCheckFinite(t *testing.T) {
	tests := []struct {
		name    string
		data    []float64
		wantMsg string
	}{
		{"finite", []float64{1, 2, 3, 4}, ""},
		{"nan", []float64{1, math.NaN(), 3, 4}, "NaN at row 0, column 1"},
		{"inf", []float64{1, 2, math.Inf(-1), 4}, "infinity at row 1, column 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckFinite("Fit", "X", mat.NewDense(2, 2, tt.data))
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("CheckFinite() = %v", err)
				}
				return
			}
			var ve *ValueError
			if !As(err, &ve) || !strings.Contains(ve.Message, tt.wantMsg) {
				t.Errorf("CheckFinite() = %v, want ValueError containing %q", err, tt.wantMsg)
			}
		})
	}

	if err := CheckScalar("loss", math.NaN(), 3); err == nil {
		t.Error("CheckScalar(NaN) = nil")
	}
}

func TestNumericHelpers(t *testing.T) {
	dst := make([]float64, 3)
	Softmax(dst, []float64{1000, 1000, 1000})
	for i, p := range dst {
		if math.Abs(p-1.0/3.0) > 1e-12 {
			t.Errorf("softmax[%d] = %v, want 1/3", i, p)
		}
	}
	if got := LogSumExp([]float64{0, 0}); math.Abs(got-math.Ln2) > 1e-12 {
		t.Errorf("LogSumExp = %v, want ln 2", got)
	}
	if got := Sigmoid(-800); math.IsNaN(got) || got < 0 {
		t.Errorf("Sigmoid(-800) = %v", got)
	}
	if got := Sigmoid(0); got != 0.5 {
		t.Errorf("Sigmoid(0) = %v, want 0.5", got)
	}
	if got := ClipValue(2, 0, 1); got != 1 {
		t.Errorf("ClipValue = %v, want 1", got)
	}
	if got := SafeDivide(1, 0); got != 0 {
		t.Errorf("SafeDivide(1, 0) = %v, want 0", got)
	}
}
