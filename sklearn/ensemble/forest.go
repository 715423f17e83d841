// Package ensemble はブートストラップした決定木のランダムフォレストを提供します。
package ensemble

import (
	"bytes"
	"encoding/gob"
	"math"
	"math/rand"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/core/parallel"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/sklearn/tree"
	"gonum.org/v1/gonum/mat"
)

func init() {
	gob.Register(&RandomForestClassifier{})
	gob.Register(&RandomForestRegressor{})
}

// forestParams はフォレスト共通のハイパーパラメータ
type forestParams struct {
	nEstimators     int
	criterion       string
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     string // "sqrt", "log2", "all"
	bootstrap       bool
	randomState     int64
	nJobs           int
}

// Option はランダムフォレストの設定オプション
type Option func(*forestParams)

// WithNEstimators は木の本数を設定する
func WithNEstimators(n int) Option {
	return func(p *forestParams) { p.nEstimators = n }
}

// WithCriterion は分割基準を設定する
func WithCriterion(criterion string) Option {
	return func(p *forestParams) { p.criterion = criterion }
}

// WithMaxDepth は各木の最大深さを設定する。0は無制限。
func WithMaxDepth(depth int) Option {
	return func(p *forestParams) { p.maxDepth = depth }
}

// WithMinSamplesLeaf は葉の最小サンプル数を設定する
func WithMinSamplesLeaf(n int) Option {
	return func(p *forestParams) { p.minSamplesLeaf = n }
}

// WithMaxFeatures は分割ごとに評価する特徴量数の規則を設定する ("sqrt", "log2", "all")
func WithMaxFeatures(rule string) Option {
	return func(p *forestParams) { p.maxFeatures = rule }
}

// WithBootstrap はブートストラップ標本を使うかを設定する
func WithBootstrap(bootstrap bool) Option {
	return func(p *forestParams) { p.bootstrap = bootstrap }
}

// WithRandomState は乱数シードを設定する。負の値は毎回異なるシード。
func WithRandomState(seed int64) Option {
	return func(p *forestParams) { p.randomState = seed }
}

// WithNJobs は並列に学習する木の数を設定する。0以下はCPUコア数。
func WithNJobs(n int) Option {
	return func(p *forestParams) { p.nJobs = n }
}

func (p *forestParams) validate() error {
	if p.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", p.nEstimators)
	}
	switch p.maxFeatures {
	case "sqrt", "log2", "all":
	default:
		return errors.NewValidationError("max_features", "must be 'sqrt', 'log2' or 'all'", p.maxFeatures)
	}
	return nil
}

func (p *forestParams) featuresPerSplit(nFeatures int) int {
	var k int
	switch p.maxFeatures {
	case "sqrt":
		k = int(math.Sqrt(float64(nFeatures)))
	case "log2":
		k = int(math.Log2(float64(nFeatures)))
	default:
		k = nFeatures
	}
	if k < 1 {
		k = 1
	}
	return k
}

func (p *forestParams) getParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      p.nEstimators,
		"criterion":         p.criterion,
		"max_depth":         p.maxDepth,
		"min_samples_split": p.minSamplesSplit,
		"min_samples_leaf":  p.minSamplesLeaf,
		"max_features":      p.maxFeatures,
		"bootstrap":         p.bootstrap,
		"random_state":      p.randomState,
	}
}

// fitTrees は木を並列に学習する。各木のシードは学習前に順番に引くため、
// 並列度に関係なく結果は randomState だけで決まる。
func (p *forestParams) fitTrees(data *tree.Dataset, nSamples int) ([]*tree.Tree, []float64, error) {
	if err := p.validate(); err != nil {
		return nil, nil, err
	}

	master := rand.New(rand.NewSource(p.randomState))
	if p.randomState < 0 {
		master = rand.New(rand.NewSource(rand.Int63()))
	}
	seeds := make([]int64, p.nEstimators)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	nFeatures := len(data.Columns)
	params := tree.Params{
		Criterion:       p.criterion,
		MaxDepth:        p.maxDepth,
		MinSamplesSplit: p.minSamplesSplit,
		MinSamplesLeaf:  p.minSamplesLeaf,
		MaxFeatures:     p.featuresPerSplit(nFeatures),
	}

	trees := make([]*tree.Tree, p.nEstimators)
	importances := make([][]float64, p.nEstimators)
	err := parallel.ForEach(p.nEstimators, p.nJobs, func(t int) error {
		rng := rand.New(rand.NewSource(seeds[t]))
		samples := make([]int, nSamples)
		for i := range samples {
			if p.bootstrap {
				samples[i] = rng.Intn(nSamples)
			} else {
				samples[i] = i
			}
		}
		imp := make([]float64, nFeatures)
		built, err := tree.Build(data, samples, params, rng, imp)
		if err != nil {
			return err
		}
		trees[t] = built
		importances[t] = tree.NormalizeImportances(imp)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	// 木ごとに正規化した重要度の平均
	mean := make([]float64, nFeatures)
	for _, imp := range importances {
		for j, v := range imp {
			mean[j] += v / float64(p.nEstimators)
		}
	}
	return trees, tree.NormalizeImportances(mean), nil
}

func checkInput(op string, state *model.StateManager, X mat.Matrix) error {
	if err := state.RequireFitted(op, "Predict"); err != nil {
		return err
	}
	return state.CheckFeatures(op+".Predict", X)
}

// average は全ての木の葉の値を平均する
func average(trees []*tree.Tree, X mat.Matrix, width int) *mat.Dense {
	r, c := X.Dims()
	out := mat.NewDense(r, width, nil)
	parallel.ParallelizeWithThreshold(r, 256, func(start, end int) {
		row := make([]float64, c)
		acc := make([]float64, width)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			for k := range acc {
				acc[k] = 0
			}
			for _, t := range trees {
				for k, v := range t.Value(row) {
					acc[k] += v
				}
			}
			for k := range acc {
				acc[k] /= float64(len(trees))
			}
			out.SetRow(i, acc)
		}
	})
	return out
}

// forestGob はフォレスト共通の gob 表現
type forestGob struct {
	NEstimators     int
	Criterion       string
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     string
	Bootstrap       bool
	RandomState     int64
	Trees           []*tree.Tree
	Classes         []float64
	Importances     []float64
	NFeatures       int
	Fitted          bool
}

func (p *forestParams) toGob(state *model.StateManager, trees []*tree.Tree, classes, imp []float64) ([]byte, error) {
	nFeatures, _ := state.GetDimensions()
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(forestGob{
		NEstimators:     p.nEstimators,
		Criterion:       p.criterion,
		MaxDepth:        p.maxDepth,
		MinSamplesSplit: p.minSamplesSplit,
		MinSamplesLeaf:  p.minSamplesLeaf,
		MaxFeatures:     p.maxFeatures,
		Bootstrap:       p.bootstrap,
		RandomState:     p.randomState,
		Trees:           trees,
		Classes:         classes,
		Importances:     imp,
		NFeatures:       nFeatures,
		Fitted:          state.IsFitted(),
	})
	return buf.Bytes(), err
}

func decodeForest(data []byte) (*forestGob, forestParams, *model.StateManager, error) {
	var g forestGob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&g); err != nil {
		return nil, forestParams{}, nil, err
	}
	state := model.NewStateManager()
	state.SetDimensions(g.NFeatures, 0)
	if g.Fitted {
		state.SetFitted()
	}
	return &g, forestParams{
		nEstimators:     g.NEstimators,
		criterion:       g.Criterion,
		maxDepth:        g.MaxDepth,
		minSamplesSplit: g.MinSamplesSplit,
		minSamplesLeaf:  g.MinSamplesLeaf,
		maxFeatures:     g.MaxFeatures,
		bootstrap:       g.Bootstrap,
		randomState:     g.RandomState,
	}, state, nil
}
