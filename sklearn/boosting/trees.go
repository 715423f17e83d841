package boosting

import (
	"math"
)

// minGain 以下の分割は行わない
const minGain = 1e-12

// TreeNode は深さ優先で成長させた木のノード。Feature < 0 のとき葉。
type TreeNode struct {
	Feature     int
	Threshold   float64
	MissingLeft bool
	Left        int
	Right       int
	Value       float64
}

// DepthwiseTree は各ノードが独立に最良分割を選ぶ木 (XGBoost の depthwise)
type DepthwiseTree struct {
	Nodes []TreeNode
}

// Predict は1行分の出力を返す
func (t *DepthwiseTree) Predict(x []float64) float64 {
	n := &t.Nodes[0]
	for n.Feature >= 0 {
		v := x[n.Feature]
		switch {
		case math.IsNaN(v):
			if n.MissingLeft {
				n = &t.Nodes[n.Left]
			} else {
				n = &t.Nodes[n.Right]
			}
		case v <= n.Threshold:
			n = &t.Nodes[n.Left]
		default:
			n = &t.Nodes[n.Right]
		}
	}
	return n.Value
}

// ObliviousTree は同じ深さの全ノードが同じ分割を共有する対称木 (CatBoost 方式)
//
// 深さ d の分割で右に進むと葉番号の d ビット目が立つ。
type ObliviousTree struct {
	Features    []int
	Thresholds  []float64
	MissingLeft []bool
	Leaves      []float64
}

// Predict は1行分の出力を返す
func (t *ObliviousTree) Predict(x []float64) float64 {
	leaf := 0
	for d, f := range t.Features {
		v := x[f]
		var right bool
		if math.IsNaN(v) {
			right = !t.MissingLeft[d]
		} else {
			right = v > t.Thresholds[d]
		}
		if right {
			leaf |= 1 << d
		}
	}
	return t.Leaves[leaf]
}

// growParams は1本の木の成長設定
type growParams struct {
	maxDepth       int
	lambda         float64
	minChildWeight float64
	learningRate   float64
	jobs           int
}

// leafWeight は正則化付きニュートンステップ -G/(H+λ)
func leafWeight(g, h, lambda float64) float64 {
	return -g / (h + lambda)
}

func score(g, h, lambda float64) float64 {
	return g * g / (h + lambda)
}

// splitCandidate はヒストグラム上の分割候補
type splitCandidate struct {
	feature     int
	bin         int // 1..bin を左へ
	missingLeft bool
	gain        float64
	found       bool
}

// scanFeature は1特徴量のヒストグラムを走査し、欠損の左右両方を評価する
func scanFeature(h []histBin, j int, gTot, hTot float64, p growParams, best *splitCandidate) {
	miss := h[MissingBin]

	var gl, hl float64
	var nl int
	nTot := 0
	for _, b := range h {
		nTot += b.n
	}

	for b := 1; b < len(h); b++ {
		gl += h[b].g
		hl += h[b].h
		nl += h[b].n
		for _, missingLeft := range []bool{false, true} {
			if miss.n == 0 && missingLeft {
				continue
			}
			lg, lh, ln := gl, hl, nl
			if missingLeft {
				lg += miss.g
				lh += miss.h
				ln += miss.n
			}
			rh, rn := hTot-lh, nTot-ln
			if ln == 0 || rn == 0 || lh < p.minChildWeight || rh < p.minChildWeight {
				continue
			}
			gain := splitGain(lg, lh, gTot, hTot, p.lambda)
			if gain > best.gain {
				*best = splitCandidate{feature: j, bin: b, missingLeft: missingLeft, gain: gain, found: true}
			}
		}
	}
}

// depthwiseBuilder は1本の DepthwiseTree を作る
type depthwiseBuilder struct {
	data       *binned
	grad, hess []float64
	p          growParams
	tree       *DepthwiseTree
	delta      []float64 // 学習データのスコア更新量
}

func growDepthwise(data *binned, rows []int, grad, hess []float64, p growParams, delta []float64) *DepthwiseTree {
	b := &depthwiseBuilder{data: data, grad: grad, hess: hess, p: p, tree: &DepthwiseTree{}, delta: delta}
	b.grow(rows, 0)
	return b.tree
}

func (b *depthwiseBuilder) grow(idx []int, depth int) int {
	var gTot, hTot float64
	for _, i := range idx {
		gTot += b.grad[i]
		hTot += b.hess[i]
	}
	id := len(b.tree.Nodes)
	value := b.p.learningRate * leafWeight(gTot, hTot, b.p.lambda)
	b.tree.Nodes = append(b.tree.Nodes, TreeNode{Feature: -1, Value: value})

	best := splitCandidate{gain: minGain}
	if depth < b.p.maxDepth && len(idx) >= 2 {
		hist := b.data.newHistogram()
		b.data.buildHistogram(idx, b.grad, b.hess, hist, b.p.jobs)
		for j := range hist {
			scanFeature(hist[j], j, gTot, hTot, b.p, &best)
		}
	}
	if !best.found {
		for _, i := range idx {
			b.delta[i] = value
		}
		return id
	}

	col := b.data.bins[best.feature]
	var left, right []int
	for _, i := range idx {
		bin := int(col[i])
		if (bin == MissingBin && best.missingLeft) || (bin != MissingBin && bin <= best.bin) {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	node := &b.tree.Nodes[id]
	node.Feature = best.feature
	node.Threshold = b.data.mapper.Threshold(best.feature, best.bin)
	node.MissingLeft = best.missingLeft
	node.Left = l
	node.Right = r
	node.Value = 0
	return id
}

// growOblivious は深さごとに全葉共通の分割を選ぶ。どの分割も利得がなければ浅い木で止まる。
func growOblivious(data *binned, rows []int, grad, hess []float64, p growParams, delta []float64) *ObliviousTree {
	t := &ObliviousTree{}
	byLeaf := [][]int{rows}

	for d := 0; d < p.maxDepth; d++ {
		nLeaves := len(byLeaf)
		hists := make([][][]histBin, nLeaves)
		gTot := make([]float64, nLeaves)
		hTot := make([]float64, nLeaves)
		for l, idx := range byLeaf {
			hists[l] = data.newHistogram()
			data.buildHistogram(idx, grad, hess, hists[l], p.jobs)
			for _, i := range idx {
				gTot[l] += grad[i]
				hTot[l] += hess[i]
			}
		}

		best := splitCandidate{gain: minGain}
		gl := make([]float64, nLeaves)
		hl := make([]float64, nLeaves)
		for j := range data.bins {
			for l := range gl {
				gl[l], hl[l] = 0, 0
			}
			for bin := 1; bin < data.nBins[j]; bin++ {
				for l := range byLeaf {
					gl[l] += hists[l][j][bin].g
					hl[l] += hists[l][j][bin].h
				}
				for _, missingLeft := range []bool{false, true} {
					gain := 0.0
					for l := range byLeaf {
						g, h := gl[l], hl[l]
						if missingLeft {
							g += hists[l][j][MissingBin].g
							h += hists[l][j][MissingBin].h
						}
						gain += splitGain(g, h, gTot[l], hTot[l], p.lambda)
					}
					if gain > best.gain {
						best = splitCandidate{feature: j, bin: bin, missingLeft: missingLeft, gain: gain, found: true}
					}
				}
			}
		}
		if !best.found {
			break
		}

		t.Features = append(t.Features, best.feature)
		t.Thresholds = append(t.Thresholds, data.mapper.Threshold(best.feature, best.bin))
		t.MissingLeft = append(t.MissingLeft, best.missingLeft)

		next := make([][]int, 2*nLeaves)
		col := data.bins[best.feature]
		for l, idx := range byLeaf {
			for _, i := range idx {
				bin := int(col[i])
				right := (bin == MissingBin && !best.missingLeft) || (bin != MissingBin && bin > best.bin)
				leaf := l
				if right {
					leaf |= 1 << d
				}
				next[leaf] = append(next[leaf], i)
			}
		}
		byLeaf = next
	}

	t.Leaves = make([]float64, len(byLeaf))
	for l, idx := range byLeaf {
		var g, h float64
		for _, i := range idx {
			g += grad[i]
			h += hess[i]
		}
		if len(idx) > 0 {
			t.Leaves[l] = p.learningRate * leafWeight(g, h, p.lambda)
		}
		for _, i := range idx {
			delta[i] = t.Leaves[l]
		}
	}
	return t
}

// splitGain は左側の統計 (gl, hl) で親を分けたときの利得
func splitGain(gl, hl, gTot, hTot, lambda float64) float64 {
	gr, hr := gTot-gl, hTot-hl
	return 0.5 * (score(gl, hl, lambda) + score(gr, hr, lambda) - score(gTot, hTot, lambda))
}
