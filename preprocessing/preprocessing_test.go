package preprocessing

import (
	"math"
	"strings"
	"testing"

	"github.com/YuminosukeSato/automl/dataframe"
	"gonum.org/v1/gonum/mat"
)

func TestStandardScaler_FitTransform(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})

	s := NewStandardScaler()
	out, err := s.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	if math.Abs(s.Mean[0]-2.5) > 1e-12 {
		t.Errorf("Mean[0] = %v, want 2.5", s.Mean[0])
	}
	if math.Abs(s.Scale[0]-math.Sqrt(1.25)) > 1e-12 {
		t.Errorf("Scale[0] = %v, want sqrt(1.25)", s.Scale[0])
	}
	// 分散0の列はスケール1のまま
	if s.Scale[1] != 1 {
		t.Errorf("Scale[1] = %v, want 1", s.Scale[1])
	}

	sum := 0.0
	for i := 0; i < 4; i++ {
		sum += out.At(i, 0)
	}
	if math.Abs(sum) > 1e-12 {
		t.Errorf("standardised column should have zero mean, sum = %v", sum)
	}

	back, err := s.InverseTransform(out)
	if err != nil {
		t.Fatalf("InverseTransform() error = %v", err)
	}
	if !mat.EqualApprox(back, X, 1e-12) {
		t.Error("InverseTransform should restore the input")
	}
}

func TestStandardScaler_Errors(t *testing.T) {
	s := NewStandardScaler()
	if _, err := s.Transform(mat.NewDense(1, 1, nil)); err == nil {
		t.Error("expected NotFittedError")
	}
	if err := s.Fit(mat.NewDense(2, 1, []float64{1, math.NaN()})); err == nil {
		t.Error("expected NaN input error")
	}
	if err := s.Fit(mat.NewDense(2, 2, nil)); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if _, err := s.Transform(mat.NewDense(1, 3, nil)); err == nil {
		t.Error("expected DimensionError")
	}
}

func TestOrdinalEncoder(t *testing.T) {
	f, err := dataframe.ReadCSV(strings.NewReader("size,color,score\n10,red,1.5\n2,blue,\n10,green,0.5\n33,red,1.5\n"))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}

	enc := NewOrdinalEncoder()
	out, err := enc.FitTransform(f)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	tests := []struct {
		column string
		want   []float64
	}{
		// 数値列は数値順 (2 < 10 < 33)
		{column: "size", want: []float64{1, 0, 1, 2}},
		// 文字列列は辞書順 (blue < green < red)
		{column: "color", want: []float64{2, 0, 1, 2}},
		{column: "score", want: []float64{1, math.NaN(), 0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			c, err := out.Column(tt.column)
			if err != nil {
				t.Fatalf("Column() error = %v", err)
			}
			for i, w := range tt.want {
				got := c.Floats[i]
				if math.IsNaN(w) {
					if !math.IsNaN(got) {
						t.Errorf("row %d = %v, want NaN", i, got)
					}
					continue
				}
				if got != w {
					t.Errorf("row %d = %v, want %v", i, got, w)
				}
			}
		})
	}

	unseen, _ := dataframe.ReadCSV(strings.NewReader("size,color,score\n10,purple,1.5\n"))
	if _, err := enc.Transform(unseen); err == nil {
		t.Error("expected unknown category error")
	}
}
