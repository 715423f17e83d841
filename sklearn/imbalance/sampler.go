// Package imbalance はクラス不均衡を解消するリサンプリング手法を提供します。
//
// imbalanced-learn と同じく、既定の sampling_strategy ("auto") で動作します。
//   - RandomOverSampler: 多数派以外のクラスを多数派の件数まで復元抽出で増やす
//   - RandomUnderSampler: 少数派以外のクラスを少数派の件数まで非復元抽出で減らす
//   - SMOTEENN: SMOTE で合成した後、Edited Nearest Neighbours で境界のサンプルを除く
package imbalance

import (
	"math"
	"math/rand"
	"sort"

	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// Sampler は y の行番号から再標本の行番号を返すリサンプラー
type Sampler interface {
	// SampleIndices は出力する行の元の行番号を返す。同じ行が複数回現れてもよい。
	SampleIndices(y []float64) ([]int, error)
}

// classIndex はクラスごとの行番号 (クラスは昇順)
type classIndex struct {
	classes []float64
	rows    [][]int
}

func indexClasses(op string, y []float64) (*classIndex, error) {
	if len(y) == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	byClass := make(map[float64][]int)
	for i, v := range y {
		if math.IsNaN(v) {
			return nil, errors.NewValueError(op, "Input y contains NaN")
		}
		byClass[v] = append(byClass[v], i)
	}
	if len(byClass) < 2 {
		return nil, errors.NewValueError(op, "The target 'y' needs to have more than 1 class. Got 1 class instead")
	}
	ci := &classIndex{}
	for c := range byClass {
		ci.classes = append(ci.classes, c)
	}
	sort.Float64s(ci.classes)
	for _, c := range ci.classes {
		ci.rows = append(ci.rows, byClass[c])
	}
	return ci, nil
}

// majority は件数最大のクラス (同数なら小さいラベル) の位置を返す
func (ci *classIndex) majority() int {
	best := 0
	for k, rows := range ci.rows {
		if len(rows) > len(ci.rows[best]) {
			best = k
		}
	}
	return best
}

// minority は件数最小のクラス (同数なら小さいラベル) の位置を返す
func (ci *classIndex) minority() int {
	best := 0
	for k, rows := range ci.rows {
		if len(rows) < len(ci.rows[best]) {
			best = k
		}
	}
	return best
}

func newRNG(seed int64) *rand.Rand {
	if seed < 0 {
		return rand.New(rand.NewSource(rand.Int63()))
	}
	return rand.New(rand.NewSource(seed))
}

// RandomOverSampler は少ないクラスの行を復元抽出で複製する
type RandomOverSampler struct {
	RandomState int64
}

// NewRandomOverSampler は新しい RandomOverSampler を作成する。負のシードは毎回異なる乱数。
func NewRandomOverSampler(seed int64) *RandomOverSampler {
	return &RandomOverSampler{RandomState: seed}
}

// SampleIndices は元の全行に続けて、クラス順に複製した行を返す
func (s *RandomOverSampler) SampleIndices(y []float64) ([]int, error) {
	ci, err := indexClasses("RandomOverSampler.FitResample", y)
	if err != nil {
		return nil, err
	}
	rng := newRNG(s.RandomState)
	target := len(ci.rows[ci.majority()])

	out := make([]int, len(y), target*len(ci.classes))
	for i := range out {
		out[i] = i
	}
	for _, rows := range ci.rows {
		for n := target - len(rows); n > 0; n-- {
			out = append(out, rows[rng.Intn(len(rows))])
		}
	}
	logResample("RandomOverSampler", len(y), len(out))
	return out, nil
}

// FitResample は数値行列を再標本化する
func (s *RandomOverSampler) FitResample(X mat.Matrix, y []float64) (*mat.Dense, []float64, error) {
	return resampleRows(s, "RandomOverSampler", X, y)
}

// RandomUnderSampler は多いクラスの行を非復元抽出で間引く
type RandomUnderSampler struct {
	RandomState int64
}

// NewRandomUnderSampler は新しい RandomUnderSampler を作成する。負のシードは毎回異なる乱数。
func NewRandomUnderSampler(seed int64) *RandomUnderSampler {
	return &RandomUnderSampler{RandomState: seed}
}

// SampleIndices はクラス順に少数派の件数ずつ行を返す
func (s *RandomUnderSampler) SampleIndices(y []float64) ([]int, error) {
	ci, err := indexClasses("RandomUnderSampler.FitResample", y)
	if err != nil {
		return nil, err
	}
	rng := newRNG(s.RandomState)
	minor := ci.minority()
	target := len(ci.rows[minor])

	out := make([]int, 0, target*len(ci.classes))
	for k, rows := range ci.rows {
		if k == minor {
			out = append(out, rows...)
			continue
		}
		for _, p := range rng.Perm(len(rows))[:target] {
			out = append(out, rows[p])
		}
	}
	logResample("RandomUnderSampler", len(y), len(out))
	return out, nil
}

// FitResample は数値行列を再標本化する
func (s *RandomUnderSampler) FitResample(X mat.Matrix, y []float64) (*mat.Dense, []float64, error) {
	return resampleRows(s, "RandomUnderSampler", X, y)
}

func resampleRows(s Sampler, name string, X mat.Matrix, y []float64) (*mat.Dense, []float64, error) {
	r, c := X.Dims()
	if r != len(y) {
		return nil, nil, errors.NewDimensionError(name+".FitResample", r, len(y), 0)
	}
	idx, err := s.SampleIndices(y)
	if err != nil {
		return nil, nil, err
	}
	Xr := mat.NewDense(len(idx), c, nil)
	yr := make([]float64, len(idx))
	row := make([]float64, c)
	for k, i := range idx {
		mat.Row(row, i, X)
		Xr.SetRow(k, row)
		yr[k] = y[i]
	}
	return Xr, yr, nil
}

func logResample(name string, before, after int) {
	log.GetLoggerWithName("imbalance").Debug("Resampled",
		log.ModelNameKey, name,
		log.OperationKey, log.OperationResample,
		"samples.before", before,
		log.SamplesKey, after,
	)
}

// ClassCounts はクラスごとの件数を返す (キーはラベル)
func ClassCounts(y []float64) map[float64]int {
	counts := make(map[float64]int)
	for _, v := range y {
		counts[v]++
	}
	return counts
}
