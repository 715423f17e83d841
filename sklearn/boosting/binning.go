package boosting

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/automl/core/parallel"
)

// MissingBin は欠損値 (NaN) 専用のビン番号
const MissingBin = 0

// BinMapper は特徴量ごとのビン境界
//
// Upper[j][b-1] はビン b (1始まり) の上限。最後の上限は +Inf。
// v <= Upper[j][b-1] と bin(v) <= b は同値になる。
type BinMapper struct {
	Upper [][]float64
}

// NewBinMapper は列ごとに最大 maxBin 個のビンを作る。
// 異なる値が maxBin 以下なら隣接値の中点、超える場合は頻度分位で区切る。
func NewBinMapper(columns [][]float64, maxBin int, jobs int) *BinMapper {
	m := &BinMapper{Upper: make([][]float64, len(columns))}
	parallel.ParallelizeN(len(columns), jobs, func(start, end int) {
		for j := start; j < end; j++ {
			m.Upper[j] = featureBounds(columns[j], maxBin)
		}
	})
	return m
}

func featureBounds(col []float64, maxBin int) []float64 {
	values := make([]float64, 0, len(col))
	for _, v := range col {
		if !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	sort.Float64s(values)

	distinct := make([]float64, 0)
	counts := make([]int, 0)
	for i, v := range values {
		if i > 0 && v == values[i-1] {
			counts[len(counts)-1]++
			continue
		}
		distinct = append(distinct, v)
		counts = append(counts, 1)
	}

	var upper []float64
	if len(distinct) <= maxBin {
		for i := 0; i+1 < len(distinct); i++ {
			upper = append(upper, midpoint(distinct[i], distinct[i+1]))
		}
	} else {
		perBin := float64(len(values)) / float64(maxBin)
		cum := 0
		next := perBin
		for i := 0; i+1 < len(distinct) && len(upper) < maxBin-1; i++ {
			cum += counts[i]
			if float64(cum) >= next {
				upper = append(upper, midpoint(distinct[i], distinct[i+1]))
				for next <= float64(cum) {
					next += perBin
				}
			}
		}
	}
	return append(upper, math.Inf(1))
}

func midpoint(a, b float64) float64 {
	m := a + (b-a)/2
	if m >= b {
		return a
	}
	return m
}

// NumBins は特徴量 j のビン数 (欠損ビンを含む)
func (m *BinMapper) NumBins(j int) int {
	return len(m.Upper[j]) + 1
}

// Bin は値 v のビン番号を返す
func (m *BinMapper) Bin(j int, v float64) int {
	if math.IsNaN(v) {
		return MissingBin
	}
	return sort.SearchFloat64s(m.Upper[j], v) + 1
}

// Threshold はビン b 以下を左に送る分割の生の閾値を返す
func (m *BinMapper) Threshold(j, b int) float64 {
	return m.Upper[j][b-1]
}

// binned は学習用にビン化したデータ。bins[j][i] が i 行目の特徴量 j のビン。
type binned struct {
	bins   [][]uint16
	nBins  []int
	mapper *BinMapper
}

func newBinned(columns [][]float64, maxBin int, jobs int) *binned {
	m := NewBinMapper(columns, maxBin, jobs)
	d := &binned{
		bins:   make([][]uint16, len(columns)),
		nBins:  make([]int, len(columns)),
		mapper: m,
	}
	parallel.ParallelizeN(len(columns), jobs, func(start, end int) {
		for j := start; j < end; j++ {
			col := columns[j]
			d.bins[j] = make([]uint16, len(col))
			for i, v := range col {
				d.bins[j][i] = uint16(m.Bin(j, v))
			}
			d.nBins[j] = m.NumBins(j)
		}
	})
	return d
}

// histBin は1ビン分の勾配統計
type histBin struct {
	g, h float64
	n    int
}

// buildHistogram は idx の行について特徴量ごとのヒストグラムを作る
func (d *binned) buildHistogram(idx []int, grad, hess []float64, hist [][]histBin, jobs int) {
	parallel.ParallelizeN(len(d.bins), jobs, func(start, end int) {
		for j := start; j < end; j++ {
			h := hist[j]
			for b := range h {
				h[b] = histBin{}
			}
			col := d.bins[j]
			for _, i := range idx {
				b := col[i]
				h[b].g += grad[i]
				h[b].h += hess[i]
				h[b].n++
			}
		}
	})
}

func (d *binned) newHistogram() [][]histBin {
	hist := make([][]histBin, len(d.bins))
	for j := range hist {
		hist[j] = make([]histBin, d.nBins[j])
	}
	return hist
}
