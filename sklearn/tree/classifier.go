package tree

import (
	"bytes"
	"encoding/gob"
	"math"
	"math/rand"
	"sort"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func init() {
	gob.Register(&DecisionTreeClassifier{})
	gob.Register(&DecisionTreeRegressor{})
}

// treeParams は分類木・回帰木で共通のハイパーパラメータ
type treeParams struct {
	criterion       string
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
	randomState     int64
}

func (p *treeParams) params() Params {
	return Params{
		Criterion:       p.criterion,
		MaxDepth:        p.maxDepth,
		MinSamplesSplit: p.minSamplesSplit,
		MinSamplesLeaf:  p.minSamplesLeaf,
		MaxFeatures:     p.maxFeatures,
	}
}

func (p *treeParams) rng() *rand.Rand {
	if p.randomState >= 0 {
		return rand.New(rand.NewSource(p.randomState))
	}
	return rand.New(rand.NewSource(rand.Int63()))
}

func (p *treeParams) getParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         p.criterion,
		"max_depth":         p.maxDepth,
		"min_samples_split": p.minSamplesSplit,
		"min_samples_leaf":  p.minSamplesLeaf,
		"max_features":      p.maxFeatures,
		"random_state":      p.randomState,
	}
}

func (p *treeParams) setParams(params map[string]interface{}) error {
	for key, value := range params {
		var ok bool
		switch key {
		case "criterion":
			p.criterion, ok = value.(string)
		case "max_depth":
			p.maxDepth, ok = value.(int)
		case "min_samples_split":
			p.minSamplesSplit, ok = value.(int)
		case "min_samples_leaf":
			p.minSamplesLeaf, ok = value.(int)
		case "max_features":
			p.maxFeatures, ok = value.(int)
		case "random_state":
			p.randomState, ok = value.(int64)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if !ok {
			return errors.NewValidationError(key, "wrong type", value)
		}
	}
	return nil
}

// Option は決定木の設定オプション
type Option func(*treeParams)

// WithCriterion は分割基準を設定する ("gini", "entropy", "squared_error")
func WithCriterion(criterion string) Option {
	return func(p *treeParams) { p.criterion = criterion }
}

// WithMaxDepth は木の最大深さを設定する。0は無制限。
func WithMaxDepth(depth int) Option {
	return func(p *treeParams) { p.maxDepth = depth }
}

// WithMinSamplesSplit は分割に必要な最小サンプル数を設定する
func WithMinSamplesSplit(n int) Option {
	return func(p *treeParams) { p.minSamplesSplit = n }
}

// WithMinSamplesLeaf は葉の最小サンプル数を設定する
func WithMinSamplesLeaf(n int) Option {
	return func(p *treeParams) { p.minSamplesLeaf = n }
}

// WithMaxFeatures は各分割で評価する特徴量数を設定する。0は全特徴量。
func WithMaxFeatures(n int) Option {
	return func(p *treeParams) { p.maxFeatures = n }
}

// WithRandomState は乱数シードを設定する。負の値は毎回異なるシード。
func WithRandomState(seed int64) Option {
	return func(p *treeParams) { p.randomState = seed }
}

// ColumnsOf は行列を列指向のスライスに変換する
func ColumnsOf(X mat.Matrix) [][]float64 {
	r, c := X.Dims()
	cols := make([][]float64, c)
	for j := range cols {
		cols[j] = make([]float64, r)
		for i := 0; i < r; i++ {
			cols[j][i] = X.At(i, j)
		}
	}
	return cols
}

// EncodeClasses は y のラベルを昇順のクラス番号に変換する
func EncodeClasses(op string, y mat.Matrix) (classes []float64, codes []float64, err error) {
	n, _ := y.Dims()
	seen := make(map[float64]struct{})
	for i := 0; i < n; i++ {
		v := y.At(i, 0)
		if math.IsNaN(v) {
			return nil, nil, errors.NewValueError(op, "Input y contains NaN")
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			classes = append(classes, v)
		}
	}
	sort.Float64s(classes)
	codes = make([]float64, n)
	for i := 0; i < n; i++ {
		codes[i] = float64(sort.SearchFloat64s(classes, y.At(i, 0)))
	}
	return classes, codes, nil
}

// CheckXY は学習データの形を検証する
func CheckXY(op string, X, y mat.Matrix) error {
	r, c := X.Dims()
	ry, cy := y.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError(op, r, ry, 0)
	}
	if cy != 1 {
		return errors.NewDimensionError(op, 1, cy, 1)
	}
	return nil
}

// DecisionTreeClassifier は CART 分類木
type DecisionTreeClassifier struct {
	treeParams
	state *model.StateManager

	tree         *Tree
	classes_     []float64
	nClasses_    int
	importances_ []float64
}

// NewDecisionTreeClassifier は新しい分類木を作成する
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		treeParams: treeParams{
			criterion:       "gini",
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

// Fit は分類木を学習する
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "DecisionTreeClassifier.Fit")

	if err := CheckXY("DecisionTreeClassifier.Fit", X, y); err != nil {
		return err
	}
	classes, codes, err := EncodeClasses("DecisionTreeClassifier.Fit", y)
	if err != nil {
		return err
	}

	r, c := X.Dims()
	samples := make([]int, r)
	for i := range samples {
		samples[i] = i
	}
	data := &Dataset{Columns: ColumnsOf(X), Target: codes, NClasses: len(classes)}
	importances := make([]float64, c)

	t, err := Build(data, samples, dt.params(), dt.rng(), importances)
	if err != nil {
		return err
	}

	dt.tree = t
	dt.classes_ = classes
	dt.nClasses_ = len(classes)
	dt.importances_ = NormalizeImportances(importances)
	dt.state.SetFitted()
	dt.state.SetDimensions(c, r)
	return nil
}

func (dt *DecisionTreeClassifier) check(method string, X mat.Matrix) error {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", method); err != nil {
		return err
	}
	return dt.state.CheckFeatures("DecisionTreeClassifier."+method, X)
}

// PredictProba はクラスごとの確率 (葉のクラス割合) を返す
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.check("PredictProba", X); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	out := mat.NewDense(r, dt.nClasses_, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		out.SetRow(i, dt.tree.Value(row))
	}
	return out, nil
}

// Predict は最も確率の高いクラスを返す
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := dt.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return ArgmaxClasses(proba, dt.classes_), nil
}

// ArgmaxClasses は各行の最大確率のクラスラベルを返す。同率なら小さいラベル。
func ArgmaxClasses(proba mat.Matrix, classes []float64) *mat.Dense {
	r, c := proba.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		best := 0
		for k := 1; k < c; k++ {
			if proba.At(i, k) > proba.At(i, best) {
				best = k
			}
		}
		out.Set(i, 0, classes[best])
	}
	return out
}

// Score は正解率を返す
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0
	}
	r, _ := X.Dims()
	correct := 0
	for i := 0; i < r; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(r)
}

// Classes は学習時のクラスラベルを返す
func (dt *DecisionTreeClassifier) Classes() []float64 {
	return append([]float64(nil), dt.classes_...)
}

// GetFeatureImportances は正規化された不純度減少量を返す
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.importances_...)
}

// GetDepth は木の深さを返す
func (dt *DecisionTreeClassifier) GetDepth() int {
	if dt.tree == nil {
		return 0
	}
	return dt.tree.Depth()
}

// GetNLeaves は葉の数を返す
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	if dt.tree == nil {
		return 0
	}
	return dt.tree.NLeaves()
}

// GetParams はハイパーパラメータを返す
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return dt.getParams()
}

// SetParams はハイパーパラメータを設定する
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	return dt.setParams(params)
}

// treeGob は分類木・回帰木共通の gob 表現
type treeGob struct {
	Criterion       string
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	RandomState     int64
	Tree            *Tree
	Classes         []float64
	Importances     []float64
	NFeatures       int
	Fitted          bool
}

func (p *treeParams) toGob(state *model.StateManager, t *Tree, classes, imp []float64) treeGob {
	nFeatures := 0
	fitted := false
	if state != nil {
		nFeatures, _ = state.GetDimensions()
		fitted = state.IsFitted()
	}
	return treeGob{
		Criterion:       p.criterion,
		MaxDepth:        p.maxDepth,
		MinSamplesSplit: p.minSamplesSplit,
		MinSamplesLeaf:  p.minSamplesLeaf,
		MaxFeatures:     p.maxFeatures,
		RandomState:     p.randomState,
		Tree:            t,
		Classes:         classes,
		Importances:     imp,
		NFeatures:       nFeatures,
		Fitted:          fitted,
	}
}

func (g *treeGob) restore() (treeParams, *model.StateManager) {
	state := model.NewStateManager()
	state.SetDimensions(g.NFeatures, 0)
	if g.Fitted {
		state.SetFitted()
	}
	return treeParams{
		criterion:       g.Criterion,
		maxDepth:        g.MaxDepth,
		minSamplesSplit: g.MinSamplesSplit,
		minSamplesLeaf:  g.MinSamplesLeaf,
		maxFeatures:     g.MaxFeatures,
		randomState:     g.RandomState,
	}, state
}

// GobEncode implements gob.GobEncoder
func (dt *DecisionTreeClassifier) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(dt.toGob(dt.state, dt.tree, dt.classes_, dt.importances_))
	return buf.Bytes(), err
}

// GobDecode implements gob.GobDecoder
func (dt *DecisionTreeClassifier) GobDecode(data []byte) error {
	var g treeGob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&g); err != nil {
		return err
	}
	params, state := g.restore()
	*dt = DecisionTreeClassifier{
		treeParams:   params,
		state:        state,
		tree:         g.Tree,
		classes_:     g.Classes,
		nClasses_:    len(g.Classes),
		importances_: g.Importances,
	}
	return nil
}
