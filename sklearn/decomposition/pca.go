// Package decomposition は主成分分析 (PCA) を提供します。
package decomposition

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// PCA は scikit-learn 互換の主成分分析 (svd_solver="full")
//
// 主成分の符号は、各成分で絶対値最大の係数が正になるように揃える。
type PCA struct {
	NComponents int

	// Mean は学習データの列平均
	Mean []float64

	// Components は k×d の主成分 (行が成分)
	Components *mat.Dense

	// ExplainedVariance は各成分の分散 (n-1 で割る)
	ExplainedVariance []float64

	// ExplainedVarianceRatio は全分散に対する割合
	ExplainedVarianceRatio []float64

	state *model.StateManager
}

// NewPCA は k 成分の PCA を作成する
func NewPCA(nComponents int) *PCA {
	return &PCA{NComponents: nComponents, state: model.NewStateManager()}
}

// Fit は主成分を計算する
func (p *PCA) Fit(X mat.Matrix) (err error) {
	defer errors.Recover(&err, "PCA.Fit")

	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("PCA.Fit", "empty data", errors.ErrEmptyData)
	}
	if p.NComponents < 1 {
		return errors.NewValidationError("n_components", "must be >= 1", p.NComponents)
	}
	if limit := min(r, c); p.NComponents > limit {
		return errors.NewValueError("PCA.Fit", fmt.Sprintf(
			"n_components=%d must be between 0 and min(n_samples, n_features)=%d with svd_solver='full'",
			p.NComponents, limit))
	}
	if err := errors.CheckFinite("PCA.Fit", "X", X); err != nil {
		return err
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(X, nil); !ok {
		return errors.NewModelError("PCA.Fit", "SVD did not converge", errors.ErrSingularMatrix)
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	vars := pc.VarsTo(nil)

	k := p.NComponents
	p.Mean = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		p.Mean[j] = stat.Mean(col, nil)
	}

	p.Components = mat.NewDense(k, c, nil)
	for i := 0; i < k; i++ {
		// 絶対値最大の係数を正にする
		maxAbs, sign := 0.0, 1.0
		for j := 0; j < c; j++ {
			if v := vecs.At(j, i); math.Abs(v) > maxAbs {
				maxAbs = math.Abs(v)
				sign = math.Copysign(1, v)
			}
		}
		for j := 0; j < c; j++ {
			p.Components.Set(i, j, sign*vecs.At(j, i))
		}
	}

	total := 0.0
	for _, v := range vars {
		total += v
	}
	p.ExplainedVariance = make([]float64, k)
	p.ExplainedVarianceRatio = make([]float64, k)
	for i := 0; i < k; i++ {
		p.ExplainedVariance[i] = vars[i]
		p.ExplainedVarianceRatio[i] = errors.SafeDivide(vars[i], total)
	}

	p.state.SetFitted()
	p.state.SetDimensions(c, r)

	log.GetLoggerWithName("decomposition").Debug("PCA fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, r,
		log.FeaturesKey, c,
		"pca.n_components", k,
	)
	return nil
}

// Transform は X を主成分空間に射影する (n×k)
func (p *PCA) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := p.state.RequireFitted("PCA", "Transform"); err != nil {
		return nil, err
	}
	if err := p.state.CheckFeatures("PCA.Transform", X); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	centered := mat.NewDense(r, c, nil)
	centered.Apply(func(i, j int, v float64) float64 {
		return v - p.Mean[j]
	}, X)

	var out mat.Dense
	out.Mul(centered, p.Components.T())
	return &out, nil
}

// FitTransform は Fit と Transform を続けて行う
func (p *PCA) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := p.Fit(X); err != nil {
		return nil, err
	}
	return p.Transform(X)
}

// GetParams はハイパーパラメータを返す
func (p *PCA) GetParams() map[string]interface{} {
	return map[string]interface{}{"n_components": p.NComponents}
}
