// Package boosting はヒストグラムベースの二次勾配ブースティング決定木を提供します。
//
// 木の形は2種類あります。
//   - Depthwise: 各ノードが独立に最良分割を選ぶ (XGBoost の既定と同じ)
//   - Oblivious: 同じ深さのノードが分割を共有する対称木 (CatBoost と同じ)
//
// 欠損値は専用ビンに集め、分割ごとに左右どちらへ送るかを学習します。
package boosting

import (
	"math"
	"time"

	"github.com/YuminosukeSato/automl/core/parallel"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// TreeKind は木の成長方式
type TreeKind int

const (
	// Depthwise はノードごとに分割を選ぶ
	Depthwise TreeKind = iota
	// Oblivious は深さごとに分割を共有する
	Oblivious
)

func (k TreeKind) String() string {
	if k == Oblivious {
		return "oblivious"
	}
	return "depthwise"
}

// Config はブースティングのハイパーパラメータ
type Config struct {
	Kind           TreeKind
	NEstimators    int
	LearningRate   float64
	MaxDepth       int
	Lambda         float64 // L2 正則化
	MinChildWeight float64 // 子ノードのヘッセ和の下限 (Depthwise のみ)
	MaxBin         int
	NJobs          int
}

// GradientBoostingConfig は depthwise 木の既定値 (深さ6, 学習率0.3, λ=1)
func GradientBoostingConfig() Config {
	return Config{
		Kind:           Depthwise,
		NEstimators:    100,
		LearningRate:   0.3,
		MaxDepth:       6,
		Lambda:         1,
		MinChildWeight: 1,
		MaxBin:         256,
	}
}

// SymmetricBoostingConfig は対称木の既定値 (深さ6, 学習率0.03, λ=3)
func SymmetricBoostingConfig() Config {
	return Config{
		Kind:         Oblivious,
		NEstimators:  1000,
		LearningRate: 0.03,
		MaxDepth:     6,
		Lambda:       3,
		MaxBin:       254,
	}
}

func (c Config) validate() error {
	if c.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", c.NEstimators)
	}
	if c.LearningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be positive", c.LearningRate)
	}
	if c.MaxDepth < 1 || (c.Kind == Oblivious && c.MaxDepth > 16) {
		return errors.NewValidationError("max_depth", "out of range", c.MaxDepth)
	}
	if c.Lambda < 0 {
		return errors.NewValidationError("lambda", "must be >= 0", c.Lambda)
	}
	if c.MaxBin < 2 || c.MaxBin > math.MaxUint16-1 {
		return errors.NewValidationError("max_bin", "must be in [2, 65534]", c.MaxBin)
	}
	return nil
}

// Ensemble は学習済みの加法モデル。gob でそのまま保存できる。
//
// 木は反復ごとに出力数 K 本ずつ並び、t 回目の k 番目の出力は index t*K+k。
type Ensemble struct {
	Kind       TreeKind
	NumOutputs int
	NFeatures  int
	InitScores []float64
	Depthwise  []DepthwiseTree
	Oblivious  []ObliviousTree
	// TrainLoss は反復ごとの学習損失
	TrainLoss []float64
}

// NumIterations は学習した反復数を返す
func (e *Ensemble) NumIterations() int {
	if e.NumOutputs == 0 {
		return 0
	}
	if e.Kind == Oblivious {
		return len(e.Oblivious) / e.NumOutputs
	}
	return len(e.Depthwise) / e.NumOutputs
}

// RawScores は n×K の生スコアを返す
func (e *Ensemble) RawScores(X mat.Matrix) *mat.Dense {
	r, c := X.Dims()
	K := e.NumOutputs
	out := mat.NewDense(r, K, nil)
	parallel.ParallelizeWithThreshold(r, 256, func(start, end int) {
		row := make([]float64, c)
		s := make([]float64, K)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			copy(s, e.InitScores)
			if e.Kind == Oblivious {
				for t := range e.Oblivious {
					s[t%K] += e.Oblivious[t].Predict(row)
				}
			} else {
				for t := range e.Depthwise {
					s[t%K] += e.Depthwise[t].Predict(row)
				}
			}
			out.SetRow(i, s)
		}
	})
	return out
}

// Train はブースティングを実行する。学習データのスコアはキャッシュして木ごとに更新する。
func Train(columns [][]float64, y []float64, obj Objective, cfg Config, modelName string) (*Ensemble, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(columns) == 0 || len(y) == 0 {
		return nil, errors.NewModelError(modelName+".Fit", "empty data", errors.ErrEmptyData)
	}

	logger := log.GetLoggerWithName("boosting").With(log.ModelNameKey, modelName)
	start := time.Now()

	n := len(y)
	K := obj.NumOutputs()
	data := newBinned(columns, cfg.MaxBin, cfg.NJobs)

	e := &Ensemble{
		Kind:       cfg.Kind,
		NumOutputs: K,
		NFeatures:  len(columns),
		InitScores: obj.InitScores(y),
	}

	scores := make([]float64, n*K)
	for i := 0; i < n; i++ {
		copy(scores[i*K:(i+1)*K], e.InitScores)
	}
	grad := make([]float64, n*K)
	hess := make([]float64, n*K)
	gk := make([]float64, n)
	hk := make([]float64, n)
	delta := make([]float64, n)
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}

	p := growParams{
		maxDepth:       cfg.MaxDepth,
		lambda:         cfg.Lambda,
		minChildWeight: cfg.MinChildWeight,
		learningRate:   cfg.LearningRate,
		jobs:           cfg.NJobs,
	}

	for it := 0; it < cfg.NEstimators; it++ {
		obj.Gradients(y, scores, grad, hess)
		for k := 0; k < K; k++ {
			for i := 0; i < n; i++ {
				gk[i] = grad[i*K+k]
				hk[i] = hess[i*K+k]
			}
			if cfg.Kind == Oblivious {
				e.Oblivious = append(e.Oblivious, *growOblivious(data, rows, gk, hk, p, delta))
			} else {
				e.Depthwise = append(e.Depthwise, *growDepthwise(data, rows, gk, hk, p, delta))
			}
			for i := 0; i < n; i++ {
				scores[i*K+k] += delta[i]
			}
		}

		loss := obj.Loss(y, scores)
		if err := errors.CheckScalar(modelName+".Fit", loss, it); err != nil {
			return nil, err
		}
		e.TrainLoss = append(e.TrainLoss, loss)
		if it%100 == 0 {
			logger.Debug("Boosting progress", log.IterationKey, it, log.LossKey, loss)
		}
	}

	logger.Debug("Boosting completed",
		log.SamplesKey, n,
		log.FeaturesKey, len(columns),
		"trees.kind", cfg.Kind.String(),
		log.IterationKey, cfg.NEstimators,
		log.LossKey, e.TrainLoss[len(e.TrainLoss)-1],
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return e, nil
}
