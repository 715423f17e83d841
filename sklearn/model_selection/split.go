// Package model_selection はデータの分割を提供します。
package model_selection

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/YuminosukeSato/automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Split は学習用とテスト用の行番号
type Split struct {
	Train []int
	Test  []int
}

// ShuffleSplit は n 行をシャッフルしてテスト ceil(n*testSize) 行と残りに分ける
//
// scikit-learn の train_test_split と同じく、テスト件数は切り上げ、学習件数は残り。
func ShuffleSplit(n int, testSize float64, seed int64) (*Split, error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTrain <= 0 || nTest <= 0 {
		return nil, errors.NewValueError("train_test_split", fmt.Sprintf(
			"With n_samples=%d, test_size=%v the resulting train set will be empty. Adjust any of the aforementioned parameters.",
			n, testSize))
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return &Split{Test: perm[:nTest], Train: perm[nTest:]}, nil
}

// TrainTestSplit は X と y を同じ行番号で分割する
func TrainTestSplit(X, y mat.Matrix, testSize float64, seed int64) (XTrain, XTest, yTrain, yTest *mat.Dense, split *Split, err error) {
	r, _ := X.Dims()
	ry, _ := y.Dims()
	if r != ry {
		return nil, nil, nil, nil, nil, errors.NewDimensionError("train_test_split", r, ry, 0)
	}
	split, err = ShuffleSplit(r, testSize, seed)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	return Rows(X, split.Train), Rows(X, split.Test), Rows(y, split.Train), Rows(y, split.Test), split, nil
}

// Rows は idx の行を順に取り出した行列を返す
func Rows(X mat.Matrix, idx []int) *mat.Dense {
	_, c := X.Dims()
	out := mat.NewDense(len(idx), c, nil)
	row := make([]float64, c)
	for k, i := range idx {
		mat.Row(row, i, X)
		out.SetRow(k, row)
	}
	return out
}
