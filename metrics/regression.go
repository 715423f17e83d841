// Package metrics scores predictions: regression errors and classification
// counts in the scikit-learn conventions.
package metrics

import (
	"math"

	"github.com/YuminosukeSato/automl/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// residuals は入力を検証して yTrue - yPred を返す
func residuals(op string, yTrue, yPred *mat.VecDense) ([]float64, error) {
	if yTrue == nil || yPred == nil {
		return nil, errors.NewValueError(op, "nil vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return nil, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return nil, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	res := make([]float64, n)
	for i := range res {
		res[i] = yTrue.AtVec(i) - yPred.AtVec(i)
	}
	return res, nil
}

// MSE は平均二乗誤差
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	res, err := residuals("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return floats.Dot(res, res) / float64(len(res)), nil
}

// RMSE は MSE の平方根
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	res, err := residuals("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return floats.Norm(res, 1) / float64(len(res)), nil
}

// R2Score は決定係数 1 - RSS/TSS を返す。
//
// yTrue が定数 (TSS = 0) のときは scikit-learn と同じく完全一致なら 1、
// それ以外は 0 を返し UndefinedMetricWarning を出す。
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	res, err := residuals("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	rss := floats.Dot(res, res)

	y := yTrue.RawVector()
	truth := make([]float64, yTrue.Len())
	for i := range truth {
		truth[i] = y.Data[i*y.Inc]
	}
	mean := stat.Mean(truth, nil)
	var tss float64
	for _, v := range truth {
		tss += (v - mean) * (v - mean)
	}

	if tss == 0 {
		score := 0.0
		if rss == 0 {
			score = 1
		}
		errors.Warn(errors.NewUndefinedMetricWarning("R2Score", "constant yTrue", score))
		return score, nil
	}
	return 1 - rss/tss, nil
}

// VecFromMatrix は n×1 行列を VecDense に変換する
func VecFromMatrix(m mat.Matrix) (*mat.VecDense, error) {
	r, c := m.Dims()
	if c != 1 {
		return nil, errors.NewValueError("VecFromMatrix", "must be a column vector (n×1 matrix)")
	}
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v, nil
}

// RegressionScores は回帰モデル1つ分の評価結果
type RegressionScores struct {
	R2   float64
	MAE  float64
	MSE  float64
	RMSE float64
}

// RegressionReport は全ての回帰指標をまとめて計算する
func RegressionReport(yTrue, yPred *mat.VecDense) (*RegressionScores, error) {
	var (
		s   RegressionScores
		err error
	)
	if s.R2, err = R2Score(yTrue, yPred); err != nil {
		return nil, err
	}
	if s.MAE, err = MAE(yTrue, yPred); err != nil {
		return nil, err
	}
	if s.MSE, err = MSE(yTrue, yPred); err != nil {
		return nil, err
	}
	s.RMSE = math.Sqrt(s.MSE)
	return &s, nil
}
