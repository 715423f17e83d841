package tree

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// quadrants returns two well separated groups in the lower-left and upper-right
// corners, labelled lo and hi.
func quadrants(lo, hi float64) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(8, 2, []float64{
		0, 0, 0, 1, 1, 0, 1, 1,
		3, 3, 3, 4, 4, 3, 4, 4,
	})
	y := mat.NewDense(8, 1, []float64{lo, lo, lo, lo, hi, hi, hi, hi})
	return X, y
}

// stripes returns three classes that depend only on feature 0; feature 1 is noise.
func stripes() (*mat.Dense, *mat.Dense) {
	const n = 30
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64((i*7)%5))
		y.Set(i, 0, float64(i/10)*10+5) // 5, 15, 25
	}
	return X, y
}

func TestDecisionTreeClassifier_Separable(t *testing.T) {
	tests := []struct {
		name      string
		criterion string
		lo, hi    float64
	}{
		{"gini 0/1", "gini", 0, 1},
		{"entropy 0/1", "entropy", 0, 1},
		{"gini negative labels", "gini", -3, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			X, y := quadrants(tt.lo, tt.hi)
			dt := NewDecisionTreeClassifier(WithCriterion(tt.criterion), WithMaxDepth(5))
			if err := dt.Fit(X, y); err != nil {
				t.Fatalf("Fit() error = %v", err)
			}
			if got := dt.Score(X, y); got != 1 {
				t.Errorf("Score() = %v, want 1", got)
			}

			pred, err := dt.Predict(mat.NewDense(2, 2, []float64{0.5, 0.5, 3.5, 3.5}))
			if err != nil {
				t.Fatalf("Predict() error = %v", err)
			}
			if pred.At(0, 0) != tt.lo || pred.At(1, 0) != tt.hi {
				t.Errorf("Predict() = [%v %v], want [%v %v]", pred.At(0, 0), pred.At(1, 0), tt.lo, tt.hi)
			}

			classes := dt.Classes()
			if len(classes) != 2 || classes[0] != tt.lo || classes[1] != tt.hi {
				t.Errorf("Classes() = %v, want [%v %v]", classes, tt.lo, tt.hi)
			}
			// a single split separates the groups
			if dt.GetDepth() != 1 || dt.GetNLeaves() != 2 {
				t.Errorf("depth=%d leaves=%d, want 1 and 2", dt.GetDepth(), dt.GetNLeaves())
			}
		})
	}
}

func TestDecisionTreeClassifier_PredictProba(t *testing.T) {
	X, y := stripes()
	dt := NewDecisionTreeClassifier(WithRandomState(1))
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	proba, err := dt.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba() error = %v", err)
	}
	r, c := proba.Dims()
	if r != 30 || c != 3 {
		t.Fatalf("PredictProba() dims = (%d, %d), want (30, 3)", r, c)
	}
	for i := 0; i < r; i++ {
		sum := 0.0
		for k := 0; k < c; k++ {
			p := proba.At(i, k)
			if p < 0 || p > 1 {
				t.Errorf("proba[%d][%d] = %v out of [0, 1]", i, k, p)
			}
			sum += p
		}
		if math.Abs(sum-1) > 1e-12 {
			t.Errorf("row %d sums to %v", i, sum)
		}
	}

	pred, _ := dt.Predict(X)
	for i := 0; i < r; i++ {
		if pred.At(i, 0) != y.At(i, 0) {
			t.Errorf("pred[%d] = %v, want %v", i, pred.At(i, 0), y.At(i, 0))
		}
	}
}

func TestDecisionTreeClassifier_FeatureImportances(t *testing.T) {
	X, y := stripes()
	dt := NewDecisionTreeClassifier(WithRandomState(0))
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	imp := dt.GetFeatureImportances()
	if len(imp) != 2 {
		t.Fatalf("len(importances) = %d, want 2", len(imp))
	}
	if math.Abs(imp[0]+imp[1]-1) > 1e-12 {
		t.Errorf("importances sum to %v, want 1", imp[0]+imp[1])
	}
	if imp[0] < 0.99 {
		t.Errorf("importance of the informative feature = %v, want ~1", imp[0])
	}
}

func TestDecisionTreeClassifier_GrowthLimits(t *testing.T) {
	X, y := stripes()
	tests := []struct {
		name       string
		opts       []Option
		maxDepth   int
		maxLeaves  int
		wantLeaves int
	}{
		{"stump", []Option{WithMaxDepth(1)}, 1, 2, 2},
		{"unlimited", nil, 2, 3, 3},
		{"large leaves", []Option{WithMinSamplesLeaf(15)}, 1, 2, 2},
		{"large split", []Option{WithMinSamplesSplit(31)}, 0, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dt := NewDecisionTreeClassifier(append(tt.opts, WithRandomState(0))...)
			if err := dt.Fit(X, y); err != nil {
				t.Fatalf("Fit() error = %v", err)
			}
			if d := dt.GetDepth(); d > tt.maxDepth {
				t.Errorf("GetDepth() = %d, want <= %d", d, tt.maxDepth)
			}
			if l := dt.GetNLeaves(); l != tt.wantLeaves {
				t.Errorf("GetNLeaves() = %d, want %d", l, tt.wantLeaves)
			}
		})
	}
}

func TestDecisionTreeClassifier_Params(t *testing.T) {
	dt := NewDecisionTreeClassifier()
	p := dt.GetParams()
	if p["criterion"] != "gini" || p["min_samples_split"] != 2 || p["min_samples_leaf"] != 1 {
		t.Errorf("default params = %v", p)
	}

	if err := dt.SetParams(map[string]interface{}{"criterion": "entropy", "max_depth": 3}); err != nil {
		t.Fatalf("SetParams() error = %v", err)
	}
	p = dt.GetParams()
	if p["criterion"] != "entropy" || p["max_depth"] != 3 {
		t.Errorf("params after SetParams = %v", p)
	}

	for _, bad := range []map[string]interface{}{
		{"n_estimators": 10},
		{"max_depth": "deep"},
		{"random_state": 1},
	} {
		if err := dt.SetParams(bad); err == nil {
			t.Errorf("SetParams(%v) = nil, want error", bad)
		}
	}
}

func TestDecisionTreeClassifier_Errors(t *testing.T) {
	X, y := quadrants(0, 1)

	t.Run("not fitted", func(t *testing.T) {
		dt := NewDecisionTreeClassifier()
		_, err := dt.Predict(X)
		var nf *errors.NotFittedError
		if !errors.As(err, &nf) {
			t.Errorf("Predict() error = %v, want NotFittedError", err)
		}
	})

	t.Run("feature mismatch", func(t *testing.T) {
		dt := NewDecisionTreeClassifier()
		if err := dt.Fit(X, y); err != nil {
			t.Fatal(err)
		}
		_, err := dt.PredictProba(mat.NewDense(1, 3, nil))
		var de *errors.DimensionError
		if !errors.As(err, &de) {
			t.Errorf("PredictProba() error = %v, want DimensionError", err)
		}
	})

	tests := []struct {
		name string
		dt   *DecisionTreeClassifier
		X, y mat.Matrix
	}{
		{"regression criterion", NewDecisionTreeClassifier(WithCriterion("squared_error")), X, y},
		{"unknown criterion", NewDecisionTreeClassifier(WithCriterion("gain")), X, y},
		{"negative depth", NewDecisionTreeClassifier(WithMaxDepth(-1)), X, y},
		{"row mismatch", NewDecisionTreeClassifier(), X, mat.NewDense(3, 1, nil)},
		{"NaN label", NewDecisionTreeClassifier(), X, mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, math.NaN()})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.dt.Fit(tt.X, tt.y); err == nil {
				t.Error("Fit() = nil, want error")
			}
		})
	}
}
