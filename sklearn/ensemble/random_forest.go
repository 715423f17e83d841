package ensemble

import (
	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/sklearn/tree"
	"gonum.org/v1/gonum/mat"
)

// RandomForestClassifier は gini 分割・sqrt 特徴量サンプリングの分類フォレスト
type RandomForestClassifier struct {
	forestParams
	state *model.StateManager

	trees        []*tree.Tree
	classes_     []float64
	importances_ []float64
}

// NewRandomForestClassifier は新しい分類フォレストを作成する
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		forestParams: forestParams{
			nEstimators:     100,
			criterion:       "gini",
			minSamplesSplit: 2,
			minSamplesLeaf:  1,
			maxFeatures:     "sqrt",
			bootstrap:       true,
			randomState:     -1,
		},
		state: model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(&rf.forestParams)
	}
	return rf
}

// Fit はフォレストを学習する
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestClassifier.Fit")

	if err := tree.CheckXY("RandomForestClassifier.Fit", X, y); err != nil {
		return err
	}
	classes, codes, err := tree.EncodeClasses("RandomForestClassifier.Fit", y)
	if err != nil {
		return err
	}
	r, c := X.Dims()
	data := &tree.Dataset{Columns: tree.ColumnsOf(X), Target: codes, NClasses: len(classes)}

	trees, imp, err := rf.fitTrees(data, r)
	if err != nil {
		return err
	}
	rf.trees = trees
	rf.classes_ = classes
	rf.importances_ = imp
	rf.state.SetFitted()
	rf.state.SetDimensions(c, r)
	return nil
}

// PredictProba は木ごとのクラス割合の平均を返す
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := checkInput("RandomForestClassifier", rf.state, X); err != nil {
		return nil, err
	}
	return average(rf.trees, X, len(rf.classes_)), nil
}

// Predict は平均確率が最大のクラスを返す
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return tree.ArgmaxClasses(proba, rf.classes_), nil
}

// Classes は学習時のクラスラベルを返す
func (rf *RandomForestClassifier) Classes() []float64 {
	return append([]float64(nil), rf.classes_...)
}

// FeatureImportances は木ごとの重要度の平均を返す
func (rf *RandomForestClassifier) FeatureImportances() []float64 {
	return append([]float64(nil), rf.importances_...)
}

// NTrees は学習済みの木の本数を返す
func (rf *RandomForestClassifier) NTrees() int {
	return len(rf.trees)
}

// GetParams はハイパーパラメータを返す
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	return rf.getParams()
}

// GobEncode implements gob.GobEncoder
func (rf *RandomForestClassifier) GobEncode() ([]byte, error) {
	return rf.toGob(rf.state, rf.trees, rf.classes_, rf.importances_)
}

// GobDecode implements gob.GobDecoder
func (rf *RandomForestClassifier) GobDecode(data []byte) error {
	g, params, state, err := decodeForest(data)
	if err != nil {
		return err
	}
	*rf = RandomForestClassifier{
		forestParams: params,
		state:        state,
		trees:        g.Trees,
		classes_:     g.Classes,
		importances_: g.Importances,
	}
	return nil
}

// RandomForestRegressor は二乗誤差・全特徴量の回帰フォレスト
type RandomForestRegressor struct {
	forestParams
	state *model.StateManager

	trees        []*tree.Tree
	importances_ []float64
}

// NewRandomForestRegressor は新しい回帰フォレストを作成する
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	rf := &RandomForestRegressor{
		forestParams: forestParams{
			nEstimators:     100,
			criterion:       "squared_error",
			minSamplesSplit: 2,
			minSamplesLeaf:  1,
			maxFeatures:     "all",
			bootstrap:       true,
			randomState:     -1,
		},
		state: model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(&rf.forestParams)
	}
	return rf
}

// Fit はフォレストを学習する
func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestRegressor.Fit")

	if err := tree.CheckXY("RandomForestRegressor.Fit", X, y); err != nil {
		return err
	}
	target, err := tree.TargetOf("RandomForestRegressor.Fit", y)
	if err != nil {
		return err
	}
	r, c := X.Dims()

	trees, imp, err := rf.fitTrees(&tree.Dataset{Columns: tree.ColumnsOf(X), Target: target}, r)
	if err != nil {
		return err
	}
	rf.trees = trees
	rf.importances_ = imp
	rf.state.SetFitted()
	rf.state.SetDimensions(c, r)
	return nil
}

// Predict は木ごとの予測の平均を返す
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := checkInput("RandomForestRegressor", rf.state, X); err != nil {
		return nil, err
	}
	return average(rf.trees, X, 1), nil
}

// FeatureImportances は木ごとの重要度の平均を返す
func (rf *RandomForestRegressor) FeatureImportances() []float64 {
	return append([]float64(nil), rf.importances_...)
}

// NTrees は学習済みの木の本数を返す
func (rf *RandomForestRegressor) NTrees() int {
	return len(rf.trees)
}

// GetParams はハイパーパラメータを返す
func (rf *RandomForestRegressor) GetParams() map[string]interface{} {
	return rf.getParams()
}

// GobEncode implements gob.GobEncoder
func (rf *RandomForestRegressor) GobEncode() ([]byte, error) {
	return rf.toGob(rf.state, rf.trees, nil, rf.importances_)
}

// GobDecode implements gob.GobDecoder
func (rf *RandomForestRegressor) GobDecode(data []byte) error {
	g, params, state, err := decodeForest(data)
	if err != nil {
		return err
	}
	*rf = RandomForestRegressor{
		forestParams: params,
		state:        state,
		trees:        g.Trees,
		importances_: g.Importances,
	}
	return nil
}
