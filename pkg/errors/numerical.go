package errors

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// CheckScalar は学習途中の損失などが有限かを確認する
func CheckScalar(operation string, value float64, iteration int) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return NewNumericalInstabilityError(operation, []float64{value}, iteration)
	}
	return nil
}

// CheckFinite は入力行列に NaN や Inf があれば ValueError を返す。
// 欠損値は Cleaning で落とすか符号化してから学習に渡す必要がある。
func CheckFinite(operation, name string, m mat.Matrix) error {
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				continue
			}
			kind := "NaN"
			if math.IsInf(v, 0) {
				kind = "infinity"
			}
			return NewValueError(operation, fmt.Sprintf("input %s contains %s at row %d, column %d", name, kind, i, j))
		}
	}
	return nil
}

// SafeDivide は分母がほぼ 0 なら 0 を返す
func SafeDivide(numerator, denominator float64) float64 {
	if math.Abs(denominator) < 1e-10 {
		return 0
	}
	return numerator / denominator
}

// ClipValue は value を [lo, hi] に収める
func ClipValue(value, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, value))
}

// Sigmoid はオーバーフローしないロジスティック関数
func Sigmoid(z float64) float64 {
	if z < 0 {
		ez := math.Exp(z)
		return ez / (1 + ez)
	}
	return 1 / (1 + math.Exp(-z))
}

// LogSumExp は log(Σexp(v)) を返す。values は空でないこと。
func LogSumExp(values []float64) float64 {
	return floats.LogSumExp(values)
}

// Softmax は scores を確率にして dst に書く
func Softmax(dst, scores []float64) {
	lse := floats.LogSumExp(scores)
	for i, s := range scores {
		dst[i] = math.Exp(s - lse)
	}
}
