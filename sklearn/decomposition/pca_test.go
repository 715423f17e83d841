package decomposition

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func TestPCA_Line(t *testing.T) {
	// y = 2x 上の点は1成分で分散を全て説明できる
	X := mat.NewDense(5, 2, []float64{
		-2, -4,
		-1, -2,
		0, 0,
		1, 2,
		2, 4,
	})

	pca := NewPCA(1)
	Z, err := pca.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	r, c := Z.Dims()
	if r != 5 || c != 1 {
		t.Fatalf("Transform shape = (%d, %d), want (5, 1)", r, c)
	}

	want := []float64{1 / math.Sqrt(5), 2 / math.Sqrt(5)}
	for j, w := range want {
		if got := pca.Components.At(0, j); math.Abs(got-w) > 1e-9 {
			t.Errorf("Components[0][%d] = %v, want %v", j, got, w)
		}
	}
	if math.Abs(pca.ExplainedVarianceRatio[0]-1) > 1e-9 {
		t.Errorf("ExplainedVarianceRatio = %v, want 1", pca.ExplainedVarianceRatio)
	}
	// 分散は n-1 で割る: sum((x^2 + (2x)^2)) / 4 = 50/4
	if math.Abs(pca.ExplainedVariance[0]-12.5) > 1e-9 {
		t.Errorf("ExplainedVariance = %v, want 12.5", pca.ExplainedVariance[0])
	}
	if got, want := Z.At(4, 0), 2*math.Sqrt(5); math.Abs(got-want) > 1e-9 {
		t.Errorf("Z[4] = %v, want %v", got, want)
	}
}

func TestPCA_ComponentCount(t *testing.T) {
	X := mat.NewDense(6, 4, []float64{
		1, 2, 3, 4,
		2, 1, 0, 5,
		3, 5, 1, 2,
		4, 3, 2, 1,
		0, 1, 4, 3,
		5, 0, 2, 2,
	})

	for k := 1; k <= 4; k++ {
		Z, err := NewPCA(k).FitTransform(X)
		if err != nil {
			t.Fatalf("k=%d: FitTransform() error = %v", k, err)
		}
		if _, c := Z.Dims(); c != k {
			t.Errorf("k=%d: got %d columns", k, c)
		}
	}
}

func TestPCA_Errors(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 7})

	tests := []struct {
		name string
		k    int
		X    mat.Matrix
	}{
		{"too many components", 3, X},
		{"zero components", 0, X},
		{"NaN input", 1, mat.NewDense(2, 2, []float64{1, math.NaN(), 2, 3})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := NewPCA(tt.k).Fit(tt.X); err == nil {
				t.Error("Fit() should fail")
			}
		})
	}

	var nf *errors.NotFittedError
	if _, err := NewPCA(1).Transform(X); !errors.As(err, &nf) {
		t.Errorf("Transform before Fit: got %v, want NotFittedError", err)
	}
}
