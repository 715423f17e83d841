package tree

import (
	"math"
	"math/rand"
	"sort"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// featureThreshold より近い値の間では分割しない
const featureThreshold = 1e-7

// Params は木の成長を制御するハイパーパラメータ
type Params struct {
	Criterion       string
	MaxDepth        int // 0 は無制限
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 は全特徴量
}

func (p Params) validate(classification bool) error {
	switch p.Criterion {
	case "gini", "entropy":
		if !classification {
			return errors.NewValidationError("criterion", "classification criterion used for regression", p.Criterion)
		}
	case "squared_error", "mse":
		if classification {
			return errors.NewValidationError("criterion", "regression criterion used for classification", p.Criterion)
		}
	default:
		return errors.NewValidationError("criterion", "unknown criterion", p.Criterion)
	}
	if p.MaxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be >= 0 (0 means unlimited)", p.MaxDepth)
	}
	if p.MinSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be >= 2", p.MinSamplesSplit)
	}
	if p.MinSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", p.MinSamplesLeaf)
	}
	if p.MaxFeatures < 0 {
		return errors.NewValidationError("max_features", "must be >= 0", p.MaxFeatures)
	}
	return nil
}

// Dataset は木の学習に使う列指向のデータ
//
// Columns[j][i] は i 行目の j 番目の特徴量。Target は分類ならクラス番号、回帰なら目的変数。
type Dataset struct {
	Columns  [][]float64
	Target   []float64
	NClasses int // 0 は回帰
}

// stats は分割評価用の十分統計量
type stats struct {
	n      float64
	counts []float64 // 分類
	sum    float64   // 回帰
	sumSq  float64
}

func newStats(nClasses int) stats {
	if nClasses > 0 {
		return stats{counts: make([]float64, nClasses)}
	}
	return stats{}
}

func (s *stats) reset() {
	s.n, s.sum, s.sumSq = 0, 0, 0
	for k := range s.counts {
		s.counts[k] = 0
	}
}

func (s *stats) add(y float64, sign float64) {
	s.n += sign
	if s.counts != nil {
		s.counts[int(y)] += sign
		return
	}
	s.sum += sign * y
	s.sumSq += sign * y * y
}

func (s *stats) merge(o *stats) {
	s.n += o.n
	s.sum += o.sum
	s.sumSq += o.sumSq
	for k := range s.counts {
		s.counts[k] += o.counts[k]
	}
}

func (s *stats) copyFrom(o *stats) {
	s.n, s.sum, s.sumSq = o.n, o.sum, o.sumSq
	copy(s.counts, o.counts)
}

func (s *stats) impurity(criterion string) float64 {
	if s.n == 0 {
		return 0
	}
	switch criterion {
	case "gini":
		g := 1.0
		for _, c := range s.counts {
			p := c / s.n
			g -= p * p
		}
		return g
	case "entropy":
		e := 0.0
		for _, c := range s.counts {
			if c > 0 {
				p := c / s.n
				e -= p * math.Log2(p)
			}
		}
		return e
	default:
		mean := s.sum / s.n
		v := s.sumSq/s.n - mean*mean
		if v < 0 {
			return 0
		}
		return v
	}
}

func (s *stats) value() []float64 {
	if s.counts == nil {
		return []float64{s.sum / s.n}
	}
	v := make([]float64, len(s.counts))
	for k, c := range s.counts {
		v[k] = c / s.n
	}
	return v
}

type split struct {
	feature     int
	threshold   float64
	missingLeft bool
	// 子ノードの不純度の重み付き和 nL·impL + nR·impR
	childCost float64
	found     bool
}

// builder は深さ優先で木を成長させる
type builder struct {
	data        *Dataset
	params      Params
	rng         *rand.Rand
	tree        *Tree
	importances []float64

	// 作業領域
	order              []int
	left, right, total stats
	missing            stats
	scratchL, scratchR stats
}

// Build は samples (重複可) を使って木を学習する。重複はブートストラップの重みとして扱われる。
// importances には特徴量ごとの不純度減少量 (正規化前) が加算される。
func Build(data *Dataset, samples []int, params Params, rng *rand.Rand, importances []float64) (*Tree, error) {
	if err := params.validate(data.NClasses > 0); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, errors.NewModelError("tree.Build", "empty data", errors.ErrEmptyData)
	}
	b := &builder{
		data:        data,
		params:      params,
		rng:         rng,
		tree:        &Tree{NFeatures: len(data.Columns)},
		importances: importances,
		left:        newStats(data.NClasses),
		right:       newStats(data.NClasses),
		total:       newStats(data.NClasses),
		missing:     newStats(data.NClasses),
		scratchL:    newStats(data.NClasses),
		scratchR:    newStats(data.NClasses),
	}
	idx := append([]int(nil), samples...)
	b.grow(idx, 0)
	return b.tree, nil
}

func (b *builder) nodeStats(idx []int) stats {
	s := newStats(b.data.NClasses)
	for _, i := range idx {
		s.add(b.data.Target[i], 1)
	}
	return s
}

// grow はノードを追加し、その番号を返す
func (b *builder) grow(idx []int, depth int) int {
	s := b.nodeStats(idx)
	imp := s.impurity(b.params.Criterion)
	id := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{
		Feature:  -1,
		Value:    s.value(),
		NSamples: len(idx),
		Impurity: imp,
		Depth:    depth,
	})

	n := len(idx)
	if (b.params.MaxDepth > 0 && depth >= b.params.MaxDepth) ||
		n < b.params.MinSamplesSplit ||
		n < 2*b.params.MinSamplesLeaf ||
		imp <= 1e-12 {
		return id
	}

	sp := b.findSplit(idx)
	if !sp.found {
		return id
	}

	leftIdx, rightIdx := b.partition(idx, sp)
	if b.importances != nil {
		b.importances[sp.feature] += float64(n)*imp - sp.childCost
	}

	l := b.grow(leftIdx, depth+1)
	r := b.grow(rightIdx, depth+1)

	node := &b.tree.Nodes[id]
	node.Feature = sp.feature
	node.Threshold = sp.threshold
	node.MissingLeft = sp.missingLeft
	node.Left = l
	node.Right = r
	return id
}

func (b *builder) partition(idx []int, sp split) ([]int, []int) {
	col := b.data.Columns[sp.feature]
	var left, right []int
	for _, i := range idx {
		v := col[i]
		goLeft := v <= sp.threshold
		if math.IsNaN(v) {
			goLeft = sp.missingLeft
		}
		if goLeft {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

// findSplit は特徴量をランダムな順に調べ、MaxFeatures 個を評価した時点で
// 有効な分割があれば打ち切る。見つからなければ残りの特徴量も調べる。
func (b *builder) findSplit(idx []int) split {
	nFeatures := len(b.data.Columns)
	maxFeatures := b.params.MaxFeatures
	if maxFeatures == 0 || maxFeatures > nFeatures {
		maxFeatures = nFeatures
	}

	features := make([]int, nFeatures)
	for j := range features {
		features[j] = j
	}
	if maxFeatures < nFeatures {
		b.rng.Shuffle(nFeatures, func(i, j int) { features[i], features[j] = features[j], features[i] })
	}

	best := split{childCost: math.Inf(1)}
	for visited, j := range features {
		if visited >= maxFeatures && best.found {
			break
		}
		b.evaluateFeature(idx, j, &best)
	}
	return best
}

func (b *builder) evaluateFeature(idx []int, j int, best *split) {
	col := b.data.Columns[j]
	minLeaf := float64(b.params.MinSamplesLeaf)
	criterion := b.params.Criterion

	b.order = b.order[:0]
	b.missing.reset()
	for _, i := range idx {
		if math.IsNaN(col[i]) {
			b.missing.add(b.data.Target[i], 1)
		} else {
			b.order = append(b.order, i)
		}
	}
	present := b.order
	if len(present) == 0 {
		return
	}
	sort.Slice(present, func(a, c int) bool { return col[present[a]] < col[present[c]] })

	b.total.reset()
	for _, i := range present {
		b.total.add(b.data.Target[i], 1)
	}

	// 左右それぞれに欠損をまとめた場合を評価する
	consider := func(threshold float64, left, right *stats) {
		for _, missingLeft := range []bool{true, false} {
			if b.missing.n == 0 && !missingLeft {
				continue
			}
			l, r := &b.scratchL, &b.scratchR
			l.copyFrom(left)
			r.copyFrom(right)
			if missingLeft {
				l.merge(&b.missing)
			} else {
				r.merge(&b.missing)
			}
			if l.n < minLeaf || r.n < minLeaf {
				continue
			}
			cost := l.n*l.impurity(criterion) + r.n*r.impurity(criterion)
			if cost < best.childCost {
				ml := missingLeft
				if b.missing.n == 0 {
					// 学習時に欠損がなければサンプル数の多い側へ送る
					ml = l.n >= r.n
				}
				*best = split{feature: j, threshold: threshold, missingLeft: ml, childCost: cost, found: true}
			}
		}
	}

	b.left.reset()
	b.right.copyFrom(&b.total)
	for p := 0; p < len(present)-1; p++ {
		i := present[p]
		b.left.add(b.data.Target[i], 1)
		b.right.add(b.data.Target[i], -1)

		v, next := col[i], col[present[p+1]]
		if next <= v+featureThreshold {
			continue
		}
		threshold := v + (next-v)/2
		if threshold >= next {
			threshold = v
		}
		consider(threshold, &b.left, &b.right)
	}

	// 欠損のみを片側に分ける分割
	if b.missing.n > 0 {
		l := &b.total
		if l.n >= minLeaf && b.missing.n >= minLeaf {
			cost := l.n*l.impurity(criterion) + b.missing.n*b.missing.impurity(criterion)
			if cost < best.childCost {
				*best = split{feature: j, threshold: math.Inf(1), missingLeft: false, childCost: cost, found: true}
			}
		}
	}
}

// NormalizeImportances は合計1に正規化する。全て0なら0のまま。
func NormalizeImportances(imp []float64) []float64 {
	out := make([]float64, len(imp))
	total := 0.0
	for _, v := range imp {
		total += v
	}
	if total <= 0 {
		return out
	}
	for j, v := range imp {
		out[j] = v / total
	}
	return out
}
