package ensemble

import (
	"bytes"
	"encoding/gob"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// blobs は2クラスの分離したデータを作る
func blobs(n int, seed int64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		class := float64(i % 2)
		X.Set(i, 0, class*4+rng.NormFloat64()*0.5)
		X.Set(i, 1, class*4+rng.NormFloat64()*0.5)
		X.Set(i, 2, rng.NormFloat64())
		y.Set(i, 0, class)
	}
	return X, y
}

func TestRandomForestClassifier_Fit(t *testing.T) {
	X, y := blobs(60, 1)

	rf := NewRandomForestClassifier(WithNEstimators(20), WithRandomState(0))
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if rf.NTrees() != 20 {
		t.Errorf("NTrees() = %d, want 20", rf.NTrees())
	}

	pred, err := rf.Predict(X)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	correct := 0
	for i := 0; i < 60; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	if acc := float64(correct) / 60; acc < 0.95 {
		t.Errorf("training accuracy = %v, want >= 0.95", acc)
	}

	proba, _ := rf.PredictProba(X)
	for i := 0; i < 60; i++ {
		if s := proba.At(i, 0) + proba.At(i, 1); math.Abs(s-1) > 1e-9 {
			t.Fatalf("row %d probabilities sum to %v", i, s)
		}
	}

	imp := rf.FeatureImportances()
	if imp[2] >= imp[0] && imp[2] >= imp[1] {
		t.Errorf("noise feature should not be the most important: %v", imp)
	}
}

func TestRandomForestClassifier_Deterministic(t *testing.T) {
	X, y := blobs(40, 2)

	fit := func(jobs int) mat.Matrix {
		rf := NewRandomForestClassifier(WithNEstimators(10), WithRandomState(7), WithNJobs(jobs))
		if err := rf.Fit(X, y); err != nil {
			t.Fatalf("Fit() error = %v", err)
		}
		p, _ := rf.PredictProba(X)
		return p
	}

	if !mat.Equal(fit(1), fit(4)) {
		t.Error("same seed should give the same forest regardless of parallelism")
	}
}

func TestRandomForestRegressor_Fit(t *testing.T) {
	n := 80
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x := float64(i) / 10
		X.Set(i, 0, x)
		X.Set(i, 1, float64(i%3))
		y.Set(i, 0, 3*x+1)
	}

	rf := NewRandomForestRegressor(WithNEstimators(25), WithRandomState(0))
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	pred, err := rf.Predict(X)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	mse := 0.0
	for i := 0; i < n; i++ {
		d := pred.At(i, 0) - y.At(i, 0)
		mse += d * d
	}
	mse /= float64(n)
	if mse > 0.5 {
		t.Errorf("training MSE = %v, want < 0.5", mse)
	}
}

func TestRandomForest_Errors(t *testing.T) {
	rf := NewRandomForestClassifier()
	if _, err := rf.Predict(mat.NewDense(1, 1, []float64{0})); err == nil {
		t.Error("expected NotFittedError")
	}

	bad := NewRandomForestClassifier(WithNEstimators(0))
	if err := bad.Fit(mat.NewDense(2, 1, []float64{0, 1}), mat.NewDense(2, 1, []float64{0, 1})); err == nil {
		t.Error("expected validation error for n_estimators = 0")
	}
}

func TestRandomForest_GobRoundTrip(t *testing.T) {
	X, y := blobs(30, 3)
	rf := NewRandomForestClassifier(WithNEstimators(5), WithRandomState(0))
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	restored := &RandomForestClassifier{}
	if err := gob.NewDecoder(&buf).Decode(restored); err != nil {
		t.Fatalf("decode: %v", err)
	}

	want, _ := rf.PredictProba(X)
	got, err := restored.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba() error = %v", err)
	}
	if !mat.Equal(want, got) {
		t.Error("probabilities differ after round trip")
	}
}
