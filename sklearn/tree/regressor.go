package tree

import (
	"bytes"
	"encoding/gob"
	"math"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DecisionTreeRegressor は二乗誤差を最小化する CART 回帰木
type DecisionTreeRegressor struct {
	treeParams
	state *model.StateManager

	tree         *Tree
	importances_ []float64
}

// NewDecisionTreeRegressor は新しい回帰木を作成する
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	dt := &DecisionTreeRegressor{
		treeParams: treeParams{
			criterion:       "squared_error",
			minSamplesSplit: 2,
			minSamplesLeaf:  1,
			randomState:     -1,
		},
		state: model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(&dt.treeParams)
	}
	return dt
}

// TargetOf は y を1次元スライスにする。NaN はエラー。
func TargetOf(op string, y mat.Matrix) ([]float64, error) {
	n, _ := y.Dims()
	out := make([]float64, n)
	for i := range out {
		v := y.At(i, 0)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.NewValueError(op, "Input y contains NaN or infinity")
		}
		out[i] = v
	}
	return out, nil
}

// Fit は回帰木を学習する
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "DecisionTreeRegressor.Fit")

	if err := CheckXY("DecisionTreeRegressor.Fit", X, y); err != nil {
		return err
	}
	target, err := TargetOf("DecisionTreeRegressor.Fit", y)
	if err != nil {
		return err
	}

	r, c := X.Dims()
	samples := make([]int, r)
	for i := range samples {
		samples[i] = i
	}
	importances := make([]float64, c)
	t, err := Build(&Dataset{Columns: ColumnsOf(X), Target: target}, samples, dt.params(), dt.rng(), importances)
	if err != nil {
		return err
	}

	dt.tree = t
	dt.importances_ = NormalizeImportances(importances)
	dt.state.SetFitted()
	dt.state.SetDimensions(c, r)
	return nil
}

// Predict は葉の平均値を返す
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.RequireFitted("DecisionTreeRegressor", "Predict"); err != nil {
		return nil, err
	}
	if err := dt.state.CheckFeatures("DecisionTreeRegressor.Predict", X); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	out := mat.NewDense(r, 1, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		out.Set(i, 0, dt.tree.Value(row)[0])
	}
	return out, nil
}

// GetFeatureImportances は正規化された不純度減少量を返す
func (dt *DecisionTreeRegressor) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.importances_...)
}

// GetDepth は木の深さを返す
func (dt *DecisionTreeRegressor) GetDepth() int {
	if dt.tree == nil {
		return 0
	}
	return dt.tree.Depth()
}

// GetNLeaves は葉の数を返す
func (dt *DecisionTreeRegressor) GetNLeaves() int {
	if dt.tree == nil {
		return 0
	}
	return dt.tree.NLeaves()
}

// GetParams はハイパーパラメータを返す
func (dt *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return dt.getParams()
}

// SetParams はハイパーパラメータを設定する
func (dt *DecisionTreeRegressor) SetParams(params map[string]interface{}) error {
	return dt.setParams(params)
}

// GobEncode implements gob.GobEncoder
func (dt *DecisionTreeRegressor) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(dt.toGob(dt.state, dt.tree, nil, dt.importances_))
	return buf.Bytes(), err
}

// GobDecode implements gob.GobDecoder
func (dt *DecisionTreeRegressor) GobDecode(data []byte) error {
	var g treeGob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&g); err != nil {
		return err
	}
	params, state := g.restore()
	*dt = DecisionTreeRegressor{
		treeParams:   params,
		state:        state,
		tree:         g.Tree,
		importances_: g.Importances,
	}
	return nil
}
