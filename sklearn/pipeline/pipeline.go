// Package pipeline は標準化と推定器をつなぐパイプラインを提供します。
package pipeline

import (
	"encoding/gob"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/preprocessing"
	"gonum.org/v1/gonum/mat"
)

func init() {
	gob.Register(&Pipeline{})
}

// Pipeline は make_pipeline(StandardScaler(), estimator) に相当する
//
// フィールドは gob で保存するために公開している。
type Pipeline struct {
	Scaler    *preprocessing.StandardScaler
	Estimator model.Estimator
}

// New は標準化してから estimator に渡すパイプラインを作成する
func New(estimator model.Estimator) *Pipeline {
	return &Pipeline{
		Scaler:    preprocessing.NewStandardScaler(),
		Estimator: estimator,
	}
}

// Fit はスケーラーを学習し、変換したデータで推定器を学習する
func (p *Pipeline) Fit(X, y mat.Matrix) error {
	Xs, err := p.Scaler.FitTransform(X)
	if err != nil {
		return errors.Wrap(err, "pipeline: scaler")
	}
	return p.Estimator.Fit(Xs, y)
}

// Predict は変換してから予測する
func (p *Pipeline) Predict(X mat.Matrix) (mat.Matrix, error) {
	Xs, err := p.Scaler.Transform(X)
	if err != nil {
		return nil, err
	}
	return p.Estimator.Predict(Xs)
}

func (p *Pipeline) classifier() (model.Classifier, error) {
	c, ok := p.Estimator.(model.Classifier)
	if !ok {
		return nil, errors.Newf("pipeline: final step %T is not a classifier", p.Estimator)
	}
	return c, nil
}

// PredictProba は最終段が分類器のときクラス確率を返す
func (p *Pipeline) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	c, err := p.classifier()
	if err != nil {
		return nil, err
	}
	Xs, err := p.Scaler.Transform(X)
	if err != nil {
		return nil, err
	}
	return c.PredictProba(Xs)
}

// Classes は最終段が分類器のときクラスラベルを返す
func (p *Pipeline) Classes() []float64 {
	if c, err := p.classifier(); err == nil {
		return c.Classes()
	}
	return nil
}

// GetParams は各段のパラメータを "scaler__" / "estimator__" 接頭辞付きで返す
func (p *Pipeline) GetParams() map[string]interface{} {
	params := make(map[string]interface{})
	for k, v := range p.Scaler.GetParams() {
		params["scaler__"+k] = v
	}
	if g, ok := p.Estimator.(model.ParameterGetter); ok {
		for k, v := range g.GetParams() {
			params["estimator__"+k] = v
		}
	}
	return params
}
