package model_selection

import (
	"sort"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestShuffleSplit_Sizes(t *testing.T) {
	tests := []struct {
		n         int
		testSize  float64
		wantTest  int
		wantTrain int
	}{
		{100, 0.2, 20, 80},
		{100, 0.1, 10, 90},
		{100, 0.9, 90, 10},
		{10, 0.25, 3, 7}, // 切り上げ
		{7, 0.5, 4, 3},
	}

	for _, tt := range tests {
		s, err := ShuffleSplit(tt.n, tt.testSize, 42)
		if err != nil {
			t.Fatalf("ShuffleSplit(%d, %v) error = %v", tt.n, tt.testSize, err)
		}
		if len(s.Test) != tt.wantTest || len(s.Train) != tt.wantTrain {
			t.Errorf("ShuffleSplit(%d, %v) = %d/%d, want %d/%d",
				tt.n, tt.testSize, len(s.Train), len(s.Test), tt.wantTrain, tt.wantTest)
		}

		all := append(append([]int(nil), s.Train...), s.Test...)
		sort.Ints(all)
		for i, v := range all {
			if v != i {
				t.Fatalf("split is not a partition of 0..%d", tt.n-1)
			}
		}
	}
}

func TestShuffleSplit_Errors(t *testing.T) {
	for _, size := range []float64{0, 1, -0.1, 1.5} {
		if _, err := ShuffleSplit(10, size, 0); err == nil {
			t.Errorf("test_size=%v should fail", size)
		}
	}
	if _, err := ShuffleSplit(1, 0.5, 0); err == nil {
		t.Error("a single row cannot be split")
	}
}

func TestShuffleSplit_Seed(t *testing.T) {
	a, _ := ShuffleSplit(50, 0.3, 7)
	b, _ := ShuffleSplit(50, 0.3, 7)
	for i := range a.Test {
		if a.Test[i] != b.Test[i] {
			t.Fatal("same seed should give the same split")
		}
	}
}

func TestTrainTestSplit(t *testing.T) {
	X := mat.NewDense(10, 2, nil)
	y := mat.NewDense(10, 1, nil)
	for i := 0; i < 10; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i*10))
		y.Set(i, 0, float64(i))
	}

	XTrain, XTest, yTrain, yTest, split, err := TrainTestSplit(X, y, 0.2, 1)
	if err != nil {
		t.Fatalf("TrainTestSplit() error = %v", err)
	}
	if r, _ := XTest.Dims(); r != 2 {
		t.Errorf("XTest rows = %d, want 2", r)
	}
	if r, _ := XTrain.Dims(); r != 8 {
		t.Errorf("XTrain rows = %d, want 8", r)
	}
	for k, i := range split.Test {
		if XTest.At(k, 1) != float64(i*10) || yTest.At(k, 0) != float64(i) {
			t.Errorf("test row %d does not match source row %d", k, i)
		}
	}
	for k := range split.Train {
		if XTrain.At(k, 0) != yTrain.At(k, 0) {
			t.Errorf("train row %d: X and y are misaligned", k)
		}
	}

	if _, _, _, _, _, err := TrainTestSplit(X, mat.NewDense(9, 1, nil), 0.2, 1); err == nil {
		t.Error("mismatched rows should fail")
	}
}
