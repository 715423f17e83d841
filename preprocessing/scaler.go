// Package preprocessing provides the feature transforms used before fitting:
// standardisation for linear models and ordinal encoding of whole tables.
package preprocessing

import (
	"math"

	"github.com/YuminosukeSato/automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// minScale 未満の標準偏差は定数列とみなし、スケールを 1 にする
const minScale = 1e-8

// StandardScaler は列ごとに (x - Mean) / Scale を返す。
// Scale は母標準偏差。フィールドは gob で保存するため公開している。
type StandardScaler struct {
	Mean   []float64
	Scale  []float64
	Fitted bool
}

func NewStandardScaler() *StandardScaler { return &StandardScaler{} }

// Fit は X の列ごとの平均と標準偏差を記録する
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}
	if err := errors.CheckFinite("StandardScaler.Fit", "X", X); err != nil {
		return err
	}

	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)
	col := make([]float64, r)
	for j := range s.Mean {
		mat.Col(col, j, X)
		mean, variance := stat.PopMeanVariance(col, nil)
		s.Mean[j] = mean
		s.Scale[j] = 1
		if sd := math.Sqrt(variance); sd >= minScale {
			s.Scale[j] = sd
		}
	}
	s.Fitted = true
	return nil
}

func (s *StandardScaler) apply(method string, X mat.Matrix, f func(v float64, j int) float64) (mat.Matrix, error) {
	if !s.Fitted {
		return nil, errors.NewNotFittedError("StandardScaler", method)
	}
	r, c := X.Dims()
	if c != len(s.Mean) {
		return nil, errors.NewDimensionError("StandardScaler."+method, len(s.Mean), c, 1)
	}
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, j int, v float64) float64 { return f(v, j) }, X)
	return out, nil
}

func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	return s.apply("Transform", X, func(v float64, j int) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	})
}

func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	return s.apply("InverseTransform", X, func(v float64, j int) float64 {
		return v*s.Scale[j] + s.Mean[j]
	})
}

func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// GetParams は scikit-learn の名前で返す。どちらも常に有効。
func (s *StandardScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{"with_mean": true, "with_std": true}
}
