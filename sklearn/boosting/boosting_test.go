package boosting

import (
	"bytes"
	"encoding/gob"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

func TestSquaredError(t *testing.T) {
	obj := SquaredError{}
	y := []float64{1, 2, 3, 4, 5}

	assert.InDelta(t, 3.0, obj.InitScores(y)[0], 1e-12)

	scores := []float64{2, 2, 2, 2, 2}
	grad := make([]float64, 5)
	hess := make([]float64, 5)
	obj.Gradients(y, scores, grad, hess)
	assert.Equal(t, []float64{1, 0, -1, -2, -3}, grad)
	assert.Equal(t, []float64{1, 1, 1, 1, 1}, hess)

	// 0.5 * (1 + 0 + 1 + 4 + 9) / 5
	assert.InDelta(t, 1.5, obj.Loss(y, scores), 1e-12)
}

func TestBinaryLogloss(t *testing.T) {
	obj := BinaryLogloss{}
	y := []float64{0, 1, 1, 1}

	assert.InDelta(t, math.Log(3), obj.InitScores(y)[0], 1e-12)

	grad := make([]float64, 4)
	hess := make([]float64, 4)
	obj.Gradients(y, make([]float64, 4), grad, hess)
	assert.InDelta(t, 0.5, grad[0], 1e-12)
	assert.InDelta(t, -0.5, grad[1], 1e-12)
	assert.InDelta(t, 0.25, hess[0], 1e-12)
	assert.InDelta(t, math.Log(2), obj.Loss(y, make([]float64, 4)), 1e-12)
}

func TestSoftmaxObjective(t *testing.T) {
	obj := Softmax{K: 3}
	y := []float64{0, 1, 2, 2}

	init := obj.InitScores(y)
	assert.InDelta(t, math.Log(0.25), init[0], 1e-12)
	assert.InDelta(t, math.Log(0.5), init[2], 1e-12)

	scores := make([]float64, 4*3)
	grad := make([]float64, 4*3)
	hess := make([]float64, 4*3)
	obj.Gradients(y, scores, grad, hess)

	// 一様なスコアでは p = 1/3
	assert.InDelta(t, 1.0/3-1, grad[0], 1e-12)
	assert.InDelta(t, 1.0/3, grad[1], 1e-12)
	assert.InDelta(t, 2*(1.0/3)*(2.0/3), hess[0], 1e-12)
	assert.InDelta(t, math.Log(3), obj.Loss(y, scores), 1e-12)
}

func TestBinMapper(t *testing.T) {
	t.Run("few distinct values use midpoints", func(t *testing.T) {
		m := NewBinMapper([][]float64{{3, 1, 2, math.NaN(), 2}}, 256, 1)
		require.Len(t, m.Upper[0], 3)
		assert.Equal(t, 1.5, m.Upper[0][0])
		assert.Equal(t, 2.5, m.Upper[0][1])
		assert.True(t, math.IsInf(m.Upper[0][2], 1))
		assert.Equal(t, 4, m.NumBins(0))

		assert.Equal(t, MissingBin, m.Bin(0, math.NaN()))
		assert.Equal(t, 1, m.Bin(0, 1))
		assert.Equal(t, 2, m.Bin(0, 2.5))
		assert.Equal(t, 3, m.Bin(0, 100))
		assert.Equal(t, 1.5, m.Threshold(0, 1))
	})

	t.Run("many distinct values are capped", func(t *testing.T) {
		col := make([]float64, 1000)
		for i := range col {
			col[i] = float64(i)
		}
		m := NewBinMapper([][]float64{col}, 8, 1)
		assert.LessOrEqual(t, len(m.Upper[0]), 8)
		assert.GreaterOrEqual(t, len(m.Upper[0]), 4)
		for b := 1; b < len(m.Upper[0]); b++ {
			assert.Greater(t, m.Upper[0][b], m.Upper[0][b-1])
		}
	})

	t.Run("all missing column has a single value bin", func(t *testing.T) {
		m := NewBinMapper([][]float64{{math.NaN(), math.NaN()}}, 16, 1)
		assert.Equal(t, 2, m.NumBins(0))
	})
}

func TestObliviousTreePredict(t *testing.T) {
	tr := ObliviousTree{
		Features:    []int{0, 1},
		Thresholds:  []float64{0.5, 10},
		MissingLeft: []bool{true, false},
		Leaves:      []float64{1, 2, 3, 4},
	}
	assert.Equal(t, 1.0, tr.Predict([]float64{0, 5}))
	assert.Equal(t, 2.0, tr.Predict([]float64{1, 5}))
	assert.Equal(t, 3.0, tr.Predict([]float64{0, 20}))
	assert.Equal(t, 4.0, tr.Predict([]float64{1, 20}))
	// 欠損: 1段目は左、2段目は右
	assert.Equal(t, 3.0, tr.Predict([]float64{math.NaN(), math.NaN()}))
}

func TestDepthwiseTreePredict(t *testing.T) {
	tr := DepthwiseTree{Nodes: []TreeNode{
		{Feature: 0, Threshold: 1, MissingLeft: false, Left: 1, Right: 2},
		{Feature: -1, Value: -1},
		{Feature: -1, Value: 1},
	}}
	assert.Equal(t, -1.0, tr.Predict([]float64{0.5}))
	assert.Equal(t, 1.0, tr.Predict([]float64{1.5}))
	assert.Equal(t, 1.0, tr.Predict([]float64{math.NaN()}))
}

// stepData は x0 > 5 で 1 になる階段関数
func stepData(n int, seed int64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x0 := rng.Float64() * 10
		X.Set(i, 0, x0)
		X.Set(i, 1, rng.NormFloat64())
		if x0 > 5 {
			y.Set(i, 0, 1)
		}
	}
	return X, y
}

// blobs は k クラスの分離したデータを作る。ラベルは 10, 20, ...
func blobs(n, k int, seed int64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		class := i % k
		X.Set(i, 0, float64(class)*4+rng.NormFloat64()*0.5)
		X.Set(i, 1, float64(class%2)*4+rng.NormFloat64()*0.5)
		X.Set(i, 2, rng.NormFloat64())
		y.Set(i, 0, float64(10*(class+1)))
	}
	return X, y
}

func mse(t *testing.T, pred, y mat.Matrix) float64 {
	t.Helper()
	n, _ := y.Dims()
	sum := 0.0
	for i := 0; i < n; i++ {
		d := pred.At(i, 0) - y.At(i, 0)
		sum += d * d
	}
	return sum / float64(n)
}

func accuracy(pred, y mat.Matrix) float64 {
	n, _ := y.Dims()
	correct := 0
	for i := 0; i < n; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(n)
}

func TestRegressor(t *testing.T) {
	X, y := stepData(200, 1)

	tests := []struct {
		name string
		reg  *Regressor
	}{
		{"gradient", NewGradientBoostingRegressor(WithNEstimators(50))},
		{"symmetric", NewSymmetricBoostingRegressor(WithNEstimators(300))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.reg.Fit(X, y))
			pred, err := tt.reg.Predict(X)
			require.NoError(t, err)
			assert.Less(t, mse(t, pred, y), 0.01)

			loss := tt.reg.Ensemble().TrainLoss
			assert.Less(t, loss[len(loss)-1], loss[0])
		})
	}
}

func TestClassifier_Binary(t *testing.T) {
	X, y := blobs(120, 2, 3)

	for _, clf := range []*Classifier{
		NewGradientBoostingClassifier(WithNEstimators(30)),
		NewSymmetricBoostingClassifier(WithNEstimators(200)),
	} {
		require.NoError(t, clf.Fit(X, y))
		assert.Equal(t, []float64{10, 20}, clf.Classes())
		assert.Equal(t, 1, clf.Ensemble().NumOutputs)

		pred, err := clf.Predict(X)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, accuracy(pred, y), 0.95)

		proba, err := clf.PredictProba(X)
		require.NoError(t, err)
		r, c := proba.Dims()
		require.Equal(t, 2, c)
		for i := 0; i < r; i++ {
			assert.InDelta(t, 1.0, proba.At(i, 0)+proba.At(i, 1), 1e-9)
		}
	}
}

func TestClassifier_Multiclass(t *testing.T) {
	X, y := blobs(150, 3, 4)

	clf := NewGradientBoostingClassifier(WithNEstimators(30))
	require.NoError(t, clf.Fit(X, y))
	assert.Equal(t, []float64{10, 20, 30}, clf.Classes())
	assert.Equal(t, 30, clf.Ensemble().NumIterations())
	assert.Len(t, clf.Ensemble().Depthwise, 90)

	pred, err := clf.Predict(X)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, accuracy(pred, y), 0.95)

	proba, err := clf.PredictProba(X)
	require.NoError(t, err)
	_, c := proba.Dims()
	require.Equal(t, 3, c)
	for i := 0; i < 150; i++ {
		assert.InDelta(t, 1.0, proba.At(i, 0)+proba.At(i, 1)+proba.At(i, 2), 1e-9)
	}
}

func TestClassifier_MissingValues(t *testing.T) {
	n := 100
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		switch i % 4 {
		case 0, 1:
			X.Set(i, 0, 0)
		case 2:
			X.Set(i, 0, 5)
			y.Set(i, 0, 1)
		case 3:
			X.Set(i, 0, math.NaN())
			y.Set(i, 0, 1)
		}
	}

	for _, clf := range []*Classifier{
		NewGradientBoostingClassifier(WithNEstimators(20)),
		NewSymmetricBoostingClassifier(WithNEstimators(100)),
	} {
		require.NoError(t, clf.Fit(X, y))
		pred, err := clf.Predict(mat.NewDense(2, 1, []float64{math.NaN(), 0}))
		require.NoError(t, err)
		assert.Equal(t, 1.0, pred.At(0, 0), "missing value should follow the learned direction")
		assert.Equal(t, 0.0, pred.At(1, 0))
	}
}

func TestClassifier_Errors(t *testing.T) {
	t.Run("single class", func(t *testing.T) {
		X := mat.NewDense(3, 1, []float64{1, 2, 3})
		y := mat.NewDense(3, 1, []float64{1, 1, 1})
		err := NewGradientBoostingClassifier().Fit(X, y)
		require.Error(t, err)
		var ve *errors.ValueError
		assert.True(t, errors.As(err, &ve))
	})

	t.Run("not fitted", func(t *testing.T) {
		_, err := NewSymmetricBoostingClassifier().Predict(mat.NewDense(1, 1, nil))
		var nf *errors.NotFittedError
		assert.True(t, errors.As(err, &nf))
	})

	t.Run("feature mismatch", func(t *testing.T) {
		X, y := blobs(20, 2, 1)
		clf := NewGradientBoostingClassifier(WithNEstimators(2))
		require.NoError(t, clf.Fit(X, y))
		_, err := clf.Predict(mat.NewDense(1, 2, nil))
		var de *errors.DimensionError
		assert.True(t, errors.As(err, &de))
	})

	t.Run("invalid max bin", func(t *testing.T) {
		X, y := blobs(20, 2, 1)
		err := NewGradientBoostingClassifier(WithMaxBin(1)).Fit(X, y)
		var ve *errors.ValidationError
		assert.True(t, errors.As(err, &ve))
	})

	t.Run("invalid estimators", func(t *testing.T) {
		X, y := stepData(20, 1)
		err := NewSymmetricBoostingRegressor(WithNEstimators(0)).Fit(X, y)
		assert.Error(t, err)
	})
}

func TestGobRoundTrip(t *testing.T) {
	X, y := blobs(60, 3, 5)
	clf := NewSymmetricBoostingClassifier(WithNEstimators(20))
	require.NoError(t, clf.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(clf))
	restored := &Classifier{}
	require.NoError(t, gob.NewDecoder(&buf).Decode(restored))

	want, err := clf.PredictProba(X)
	require.NoError(t, err)
	got, err := restored.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))
	assert.Equal(t, clf.Classes(), restored.Classes())
	assert.Equal(t, clf.GetParams(), restored.GetParams())
}
