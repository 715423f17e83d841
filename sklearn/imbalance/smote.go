package imbalance

import (
	"fmt"
	"sort"

	"github.com/YuminosukeSato/automl/core/parallel"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// kNeighbors は各 query 行について points の近傍 k 個の行番号を距離の昇順で返す。
// self[i] >= 0 のとき、その行番号は近傍から除く。
func kNeighbors(points, queries [][]float64, self []int, k int) [][]int {
	out := make([][]int, len(queries))
	parallel.ParallelizeWithThreshold(len(queries), 64, func(start, end int) {
		type cand struct {
			idx  int
			dist float64
		}
		cands := make([]cand, 0, len(points))
		for q := start; q < end; q++ {
			cands = cands[:0]
			for p, x := range points {
				if self != nil && self[q] == p {
					continue
				}
				cands = append(cands, cand{p, floats.Distance(queries[q], x, 2)})
			}
			sort.SliceStable(cands, func(a, b int) bool { return cands[a].dist < cands[b].dist })
			n := min(k, len(cands))
			nn := make([]int, n)
			for j := 0; j < n; j++ {
				nn[j] = cands[j].idx
			}
			out[q] = nn
		}
	})
	return out
}

func rowsOf(X mat.Matrix) [][]float64 {
	r, c := X.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = make([]float64, c)
		mat.Row(rows[i], i, X)
	}
	return rows
}

// SMOTE は少数クラスの近傍間を線形補間して合成サンプルを作る
type SMOTE struct {
	KNeighbors  int
	RandomState int64
}

// FitResample は元のデータの後ろにクラス順で合成サンプルを追加する
func (s *SMOTE) FitResample(X mat.Matrix, y []float64) ([][]float64, []float64, error) {
	const op = "SMOTE.FitResample"
	if err := checkXy(op, X, y); err != nil {
		return nil, nil, err
	}
	ci, err := indexClasses(op, y)
	if err != nil {
		return nil, nil, err
	}
	rng := newRNG(s.RandomState)
	rows := rowsOf(X)
	target := len(ci.rows[ci.majority()])

	outX := append([][]float64(nil), rows...)
	outY := append([]float64(nil), y...)

	for k, idx := range ci.rows {
		n := target - len(idx)
		if n == 0 {
			continue
		}
		if len(idx) <= s.KNeighbors {
			return nil, nil, errors.NewValueError(op, fmt.Sprintf(
				"Expected n_neighbors <= n_samples_fit, but n_neighbors = %d, n_samples_fit = %d, n_samples = %d",
				s.KNeighbors+1, len(idx), len(idx)))
		}
		class := make([][]float64, len(idx))
		for j, i := range idx {
			class[j] = rows[i]
		}
		self := make([]int, len(class))
		for j := range self {
			self[j] = j
		}
		nns := kNeighbors(class, class, self, s.KNeighbors)

		for ; n > 0; n-- {
			pick := rng.Intn(len(class) * s.KNeighbors)
			base := class[pick/s.KNeighbors]
			nb := class[nns[pick/s.KNeighbors][pick%s.KNeighbors]]
			step := rng.Float64()
			sample := make([]float64, len(base))
			for j := range sample {
				sample[j] = base[j] + step*(nb[j]-base[j])
			}
			outX = append(outX, sample)
			outY = append(outY, ci.classes[k])
		}
	}
	return outX, outY, nil
}

// EditedNearestNeighbours は近傍 (kind="all") が全て同じクラスでないサンプルを除く
type EditedNearestNeighbours struct {
	NNeighbors int
}

// sampleIndices は残す行番号をクラス順に返す
func (e *EditedNearestNeighbours) sampleIndices(rows [][]float64, y []float64) ([]int, error) {
	ci, err := indexClasses("EditedNearestNeighbours.FitResample", y)
	if err != nil {
		return nil, err
	}
	self := make([]int, len(rows))
	for i := range self {
		self[i] = i
	}
	nns := kNeighbors(rows, rows, self, e.NNeighbors)

	var keep []int
	for k, idx := range ci.rows {
		for _, i := range idx {
			all := true
			for _, j := range nns[i] {
				if y[j] != ci.classes[k] {
					all = false
					break
				}
			}
			if all {
				keep = append(keep, i)
			}
		}
	}
	return keep, nil
}

// SMOTEENN は SMOTE による過剰抽出と ENN による除去を順に行う
type SMOTEENN struct {
	SMOTE SMOTE
	ENN   EditedNearestNeighbours
}

// NewSMOTEENN は imbalanced-learn の既定値 (k=5, ENN 3近傍) で作成する
func NewSMOTEENN(seed int64) *SMOTEENN {
	return &SMOTEENN{
		SMOTE: SMOTE{KNeighbors: 5, RandomState: seed},
		ENN:   EditedNearestNeighbours{NNeighbors: 3},
	}
}

// FitResample は数値行列を再標本化する。NaN を含む入力はエラー。
func (s *SMOTEENN) FitResample(X mat.Matrix, y []float64) (*mat.Dense, []float64, error) {
	rows, ys, err := s.SMOTE.FitResample(X, y)
	if err != nil {
		return nil, nil, err
	}
	keep, err := s.ENN.sampleIndices(rows, ys)
	if err != nil {
		return nil, nil, err
	}
	if len(keep) == 0 {
		return nil, nil, errors.NewModelError("SMOTEENN.FitResample", "all samples removed", errors.ErrEmptyData)
	}

	_, c := X.Dims()
	Xr := mat.NewDense(len(keep), c, nil)
	yr := make([]float64, len(keep))
	for k, i := range keep {
		Xr.SetRow(k, rows[i])
		yr[k] = ys[i]
	}
	logResample("SMOTEENN", len(y), len(keep))
	return Xr, yr, nil
}

func checkXy(op string, X mat.Matrix, y []float64) error {
	r, _ := X.Dims()
	if r != len(y) {
		return errors.NewDimensionError(op, r, len(y), 0)
	}
	return errors.CheckFinite(op, "X", X)
}
