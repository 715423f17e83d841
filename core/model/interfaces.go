// Package model defines the estimator contracts shared by every learner in
// the workbench, the fitted-state bookkeeping and the artifact codec.
package model

import "gonum.org/v1/gonum/mat"

// Estimator は教師あり学習モデル。y と予測はどちらも n×1。
type Estimator interface {
	Fit(X, y mat.Matrix) error
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Classifier は確率を出せる分類器。PredictProba の列は Classes() の順 (昇順)。
type Classifier interface {
	Estimator
	PredictProba(X mat.Matrix) (mat.Matrix, error)
	Classes() []float64
}

// ParameterGetter はハイパーパラメータを scikit-learn の名前で返す。
// ダウンロードする Bundle の Params に記録される。
type ParameterGetter interface {
	GetParams() map[string]interface{}
}
