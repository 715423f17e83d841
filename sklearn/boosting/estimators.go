package boosting

import (
	"bytes"
	"encoding/gob"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/sklearn/tree"
	"gonum.org/v1/gonum/mat"
)

func init() {
	gob.Register(&Classifier{})
	gob.Register(&Regressor{})
}

// Option はブースティングの設定オプション
type Option func(*Config)

// WithNEstimators はブースティングの反復数を設定する
func WithNEstimators(n int) Option {
	return func(c *Config) { c.NEstimators = n }
}

// WithLearningRate は学習率を設定する
func WithLearningRate(lr float64) Option {
	return func(c *Config) { c.LearningRate = lr }
}

// WithMaxDepth は木の深さを設定する
func WithMaxDepth(depth int) Option {
	return func(c *Config) { c.MaxDepth = depth }
}

// WithLambda は L2 正則化の強さを設定する
func WithLambda(lambda float64) Option {
	return func(c *Config) { c.Lambda = lambda }
}

// WithMaxBin は特徴量あたりの最大ビン数を設定する
func WithMaxBin(n int) Option {
	return func(c *Config) { c.MaxBin = n }
}

// WithMinChildWeight は子ノードのヘッセ和の下限を設定する
func WithMinChildWeight(w float64) Option {
	return func(c *Config) { c.MinChildWeight = w }
}

// WithNJobs はヒストグラム構築の並列数を設定する。0以下はCPUコア数。
func WithNJobs(n int) Option {
	return func(c *Config) { c.NJobs = n }
}

func (c *Config) getParams() map[string]interface{} {
	return map[string]interface{}{
		"tree_kind":        c.Kind.String(),
		"n_estimators":     c.NEstimators,
		"learning_rate":    c.LearningRate,
		"max_depth":        c.MaxDepth,
		"lambda":           c.Lambda,
		"min_child_weight": c.MinChildWeight,
		"max_bin":          c.MaxBin,
	}
}

func modelName(kind TreeKind, suffix string) string {
	if kind == Oblivious {
		return "SymmetricBoosting" + suffix
	}
	return "GradientBoosting" + suffix
}

// Classifier はブースティングによる分類器。2クラスはシグモイド、多クラスはソフトマックス。
type Classifier struct {
	cfg   Config
	state *model.StateManager

	ensemble *Ensemble
	classes_ []float64
}

// NewGradientBoostingClassifier は depthwise 木の分類器を作成する
func NewGradientBoostingClassifier(opts ...Option) *Classifier {
	return newClassifier(GradientBoostingConfig(), opts)
}

// NewSymmetricBoostingClassifier は対称木の分類器を作成する
func NewSymmetricBoostingClassifier(opts ...Option) *Classifier {
	return newClassifier(SymmetricBoostingConfig(), opts)
}

func newClassifier(cfg Config, opts []Option) *Classifier {
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Classifier{cfg: cfg, state: model.NewStateManager()}
}

func (c *Classifier) name() string { return modelName(c.cfg.Kind, "Classifier") }

// Fit は分類器を学習する
func (c *Classifier) Fit(X, y mat.Matrix) (err error) {
	op := c.name() + ".Fit"
	defer errors.Recover(&err, op)

	if err := tree.CheckXY(op, X, y); err != nil {
		return err
	}
	classes, codes, err := tree.EncodeClasses(op, y)
	if err != nil {
		return err
	}
	if len(classes) < 2 {
		return errors.NewValueError(op, "y must contain at least 2 classes")
	}

	var obj Objective = BinaryLogloss{}
	if len(classes) > 2 {
		obj = Softmax{K: len(classes)}
	}

	e, err := Train(tree.ColumnsOf(X), codes, obj, c.cfg, c.name())
	if err != nil {
		return err
	}

	r, cols := X.Dims()
	c.ensemble = e
	c.classes_ = classes
	c.state.SetFitted()
	c.state.SetDimensions(cols, r)
	return nil
}

// PredictProba はクラスごとの確率を返す (列はクラスの昇順)
func (c *Classifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := c.state.RequireFitted(c.name(), "PredictProba"); err != nil {
		return nil, err
	}
	if err := c.state.CheckFeatures(c.name()+".PredictProba", X); err != nil {
		return nil, err
	}
	raw := c.ensemble.RawScores(X)
	r, _ := raw.Dims()
	K := len(c.classes_)
	out := mat.NewDense(r, K, nil)
	p := make([]float64, K)
	for i := 0; i < r; i++ {
		if K == 2 {
			p1 := errors.Sigmoid(raw.At(i, 0))
			out.Set(i, 0, 1-p1)
			out.Set(i, 1, p1)
			continue
		}
		errors.Softmax(p, raw.RawRowView(i))
		out.SetRow(i, p)
	}
	return out, nil
}

// Predict は確率が最大のクラスを返す
func (c *Classifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := c.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return tree.ArgmaxClasses(proba, c.classes_), nil
}

// Classes は学習時のクラスラベルを返す
func (c *Classifier) Classes() []float64 {
	return append([]float64(nil), c.classes_...)
}

// Ensemble は学習済みの木の集合を返す
func (c *Classifier) Ensemble() *Ensemble { return c.ensemble }

// GetParams はハイパーパラメータを返す
func (c *Classifier) GetParams() map[string]interface{} {
	return c.cfg.getParams()
}

// Regressor は二乗誤差のブースティング回帰器
type Regressor struct {
	cfg   Config
	state *model.StateManager

	ensemble *Ensemble
}

// NewGradientBoostingRegressor は depthwise 木の回帰器を作成する
func NewGradientBoostingRegressor(opts ...Option) *Regressor {
	return newRegressor(GradientBoostingConfig(), opts)
}

// NewSymmetricBoostingRegressor は対称木の回帰器を作成する
func NewSymmetricBoostingRegressor(opts ...Option) *Regressor {
	return newRegressor(SymmetricBoostingConfig(), opts)
}

func newRegressor(cfg Config, opts []Option) *Regressor {
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Regressor{cfg: cfg, state: model.NewStateManager()}
}

func (m *Regressor) name() string { return modelName(m.cfg.Kind, "Regressor") }

// Fit は回帰器を学習する
func (m *Regressor) Fit(X, y mat.Matrix) (err error) {
	op := m.name() + ".Fit"
	defer errors.Recover(&err, op)

	if err := tree.CheckXY(op, X, y); err != nil {
		return err
	}
	target, err := tree.TargetOf(op, y)
	if err != nil {
		return err
	}
	e, err := Train(tree.ColumnsOf(X), target, SquaredError{}, m.cfg, m.name())
	if err != nil {
		return err
	}

	r, c := X.Dims()
	m.ensemble = e
	m.state.SetFitted()
	m.state.SetDimensions(c, r)
	return nil
}

// Predict は予測値を返す
func (m *Regressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := m.state.RequireFitted(m.name(), "Predict"); err != nil {
		return nil, err
	}
	if err := m.state.CheckFeatures(m.name()+".Predict", X); err != nil {
		return nil, err
	}
	return m.ensemble.RawScores(X), nil
}

// Ensemble は学習済みの木の集合を返す
func (m *Regressor) Ensemble() *Ensemble { return m.ensemble }

// GetParams はハイパーパラメータを返す
func (m *Regressor) GetParams() map[string]interface{} {
	return m.cfg.getParams()
}

// boostingGob は分類器・回帰器共通の gob 表現
type boostingGob struct {
	Config    Config
	Ensemble  *Ensemble
	Classes   []float64
	NFeatures int
	Fitted    bool
}

func encode(cfg Config, state *model.StateManager, e *Ensemble, classes []float64) ([]byte, error) {
	nFeatures, _ := state.GetDimensions()
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(boostingGob{
		Config:    cfg,
		Ensemble:  e,
		Classes:   classes,
		NFeatures: nFeatures,
		Fitted:    state.IsFitted(),
	})
	return buf.Bytes(), err
}

func decode(data []byte) (*boostingGob, *model.StateManager, error) {
	var g boostingGob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&g); err != nil {
		return nil, nil, err
	}
	state := model.NewStateManager()
	state.SetDimensions(g.NFeatures, 0)
	if g.Fitted {
		state.SetFitted()
	}
	return &g, state, nil
}

// GobEncode implements gob.GobEncoder
func (c *Classifier) GobEncode() ([]byte, error) {
	return encode(c.cfg, c.state, c.ensemble, c.classes_)
}

// GobDecode implements gob.GobDecoder
func (c *Classifier) GobDecode(data []byte) error {
	g, state, err := decode(data)
	if err != nil {
		return err
	}
	*c = Classifier{cfg: g.Config, state: state, ensemble: g.Ensemble, classes_: g.Classes}
	return nil
}

// GobEncode implements gob.GobEncoder
func (m *Regressor) GobEncode() ([]byte, error) {
	return encode(m.cfg, m.state, m.ensemble, nil)
}

// GobDecode implements gob.GobDecoder
func (m *Regressor) GobDecode(data []byte) error {
	g, state, err := decode(data)
	if err != nil {
		return err
	}
	*m = Regressor{cfg: g.Config, state: state, ensemble: g.Ensemble}
	return nil
}
