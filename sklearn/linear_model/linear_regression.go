package linear_model

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/core/parallel"
	"github.com/YuminosukeSato/automl/metrics"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LinearRegression は最小二乗法による線形回帰モデル
// scikit-learn と同様に SVD ベースの lstsq を使うため、ランク落ちした計画行列でも
// 最小ノルム解を返す。
type LinearRegression struct {
	state *model.StateManager

	// ハイパーパラメータ
	fitIntercept bool
	rcond        float64

	// 学習済みパラメータ
	coef_      []float64
	intercept_ float64
	rank_      int
	nFeatures_ int
}

// LinearRegressionOption は設定オプション
type LinearRegressionOption func(*LinearRegression)

// NewLinearRegression は新しいLinearRegressionモデルを作成
func NewLinearRegression(options ...LinearRegressionOption) *LinearRegression {
	lr := &LinearRegression{
		state:        model.NewStateManager(),
		fitIntercept: true,
		rcond:        1e-12,
	}
	for _, opt := range options {
		opt(lr)
	}
	return lr
}

// WithLRFitIntercept は切片の学習有無を設定（LinearRegression用）
func WithLRFitIntercept(fit bool) LinearRegressionOption {
	return func(lr *LinearRegression) {
		lr.fitIntercept = fit
	}
}

// WithRcond は特異値を切り捨てる相対しきい値を設定
func WithRcond(rcond float64) LinearRegressionOption {
	return func(lr *LinearRegression) {
		lr.rcond = rcond
	}
}

// Fit はモデルを訓練データで学習
func (lr *LinearRegression) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LinearRegression.Fit")

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()

	if rows == 0 || cols == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if rows != yRows {
		return errors.NewDimensionError("LinearRegression.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("LinearRegression.Fit", 1, yCols, 1)
	}
	if err := errors.CheckFinite("LinearRegression.Fit", "X", X); err != nil {
		return err
	}
	if err := errors.CheckFinite("LinearRegression.Fit", "y", y); err != nil {
		return err
	}

	// 切片ありの場合は中心化してから解く
	xMean := make([]float64, cols)
	yMean := 0.0
	if lr.fitIntercept {
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				xMean[j] += X.At(i, j)
			}
			yMean += y.At(i, 0)
		}
		for j := range xMean {
			xMean[j] /= float64(rows)
		}
		yMean /= float64(rows)
	}

	Xc := mat.NewDense(rows, cols, nil)
	yc := mat.NewDense(rows, 1, nil)

	// 並列処理の閾値（この値以下の行数では逐次処理を使用）
	const parallelThreshold = 1000
	parallel.ParallelizeWithThreshold(rows, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < cols; j++ {
				Xc.Set(i, j, X.At(i, j)-xMean[j])
			}
			yc.Set(i, 0, y.At(i, 0)-yMean)
		}
	})

	var svd mat.SVD
	if ok := svd.Factorize(Xc, mat.SVDThin); !ok {
		return errors.NewModelError("LinearRegression.Fit", "SVD did not converge", errors.ErrSingularMatrix)
	}
	lr.rank_ = svd.Rank(lr.rcond)
	if lr.rank_ == 0 {
		// 全特徴量が定数: 係数0、切片は平均
		lr.coef_ = make([]float64, cols)
	} else {
		var coef mat.Dense
		svd.SolveTo(&coef, yc, lr.rank_)
		lr.coef_ = make([]float64, cols)
		for j := 0; j < cols; j++ {
			lr.coef_[j] = coef.At(j, 0)
		}
	}

	lr.intercept_ = 0
	if lr.fitIntercept {
		lr.intercept_ = yMean
		for j := 0; j < cols; j++ {
			lr.intercept_ -= xMean[j] * lr.coef_[j]
		}
	}

	lr.nFeatures_ = cols
	lr.state.SetFitted()
	lr.state.SetDimensions(cols, rows)
	return nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.state.RequireFitted("LinearRegression", "Predict"); err != nil {
		return nil, err
	}
	if err := lr.state.CheckFeatures("LinearRegression.Predict", X); err != nil {
		return nil, err
	}

	rows, cols := X.Dims()
	predictions := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		pred := lr.intercept_
		for j := 0; j < cols; j++ {
			pred += X.At(i, j) * lr.coef_[j]
		}
		predictions.Set(i, 0, pred)
	}
	return predictions, nil
}

// Score は決定係数 R² を返す
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	pred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	yTrue, err := metrics.VecFromMatrix(y)
	if err != nil {
		return 0, err
	}
	yPred, err := metrics.VecFromMatrix(pred)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(yTrue, yPred)
}

// Coef は学習された係数を返す
func (lr *LinearRegression) Coef() []float64 {
	return append([]float64(nil), lr.coef_...)
}

// Intercept は学習された切片を返す
func (lr *LinearRegression) Intercept() float64 {
	return lr.intercept_
}

// Rank は中心化後の計画行列の実効ランクを返す
func (lr *LinearRegression) Rank() int {
	return lr.rank_
}

// GetParams はハイパーパラメータを返す
func (lr *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"fit_intercept": lr.fitIntercept,
		"rcond":         lr.rcond,
	}
}

// SetParams はハイパーパラメータを設定
func (lr *LinearRegression) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var ok bool
		switch key {
		case "fit_intercept":
			lr.fitIntercept, ok = value.(bool)
		case "rcond":
			lr.rcond, ok = value.(float64)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if !ok {
			return errors.NewValidationError(key, "wrong type", value)
		}
	}
	return nil
}

func (lr *LinearRegression) String() string {
	if !lr.state.IsFitted() {
		return "LinearRegression(fit_intercept=" + fmt.Sprint(lr.fitIntercept) + ")"
	}
	return fmt.Sprintf("LinearRegression(fit_intercept=%t, n_features=%d, rank=%d)", lr.fitIntercept, lr.nFeatures_, lr.rank_)
}

type linearGob struct {
	FitIntercept bool
	Rcond        float64
	Coef         []float64
	Intercept    float64
	Rank         int
	NFeatures    int
	Fitted       bool
}

// GobEncode implements gob.GobEncoder
func (lr *LinearRegression) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(linearGob{
		FitIntercept: lr.fitIntercept,
		Rcond:        lr.rcond,
		Coef:         lr.coef_,
		Intercept:    lr.intercept_,
		Rank:         lr.rank_,
		NFeatures:    lr.nFeatures_,
		Fitted:       lr.state != nil && lr.state.IsFitted(),
	})
	return buf.Bytes(), err
}

// GobDecode implements gob.GobDecoder
func (lr *LinearRegression) GobDecode(data []byte) error {
	var g linearGob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&g); err != nil {
		return err
	}
	*lr = LinearRegression{
		state:        model.NewStateManager(),
		fitIntercept: g.FitIntercept,
		rcond:        g.Rcond,
		coef_:        g.Coef,
		intercept_:   g.Intercept,
		rank_:        g.Rank,
		nFeatures_:   g.NFeatures,
	}
	lr.state.SetDimensions(g.NFeatures, 0)
	if g.Fitted {
		lr.state.SetFitted()
	}
	return nil
}
