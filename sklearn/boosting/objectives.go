package boosting

import (
	"math"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// Objective は二次近似ブースティングの損失関数
//
// scores は n×K の行優先配列 (K = NumOutputs)。grad と hess も同じ配置。
type Objective interface {
	// Name は損失の名前を返す
	Name() string

	// NumOutputs はサンプルあたりの出力数を返す
	NumOutputs() int

	// InitScores は学習開始時のスコアを返す (長さ K)
	InitScores(y []float64) []float64

	// Gradients は勾配とヘッセ行列の対角を計算する
	Gradients(y, scores, grad, hess []float64)

	// Loss は平均損失を返す
	Loss(y, scores []float64) float64
}

// hessFloor はヘッセが0になってリーフ値が発散するのを防ぐ下限
const hessFloor = 1e-16

// SquaredError は二乗誤差 (回帰)
type SquaredError struct{}

func (SquaredError) Name() string    { return "squared_error" }
func (SquaredError) NumOutputs() int { return 1 }

// InitScores は目的変数の平均から始める
func (SquaredError) InitScores(y []float64) []float64 {
	if len(y) == 0 {
		return []float64{0}
	}
	sum := 0.0
	for _, v := range y {
		sum += v
	}
	return []float64{sum / float64(len(y))}
}

func (SquaredError) Gradients(y, scores, grad, hess []float64) {
	for i, t := range y {
		grad[i] = scores[i] - t
		hess[i] = 1
	}
}

func (SquaredError) Loss(y, scores []float64) float64 {
	loss := 0.0
	for i, t := range y {
		d := scores[i] - t
		loss += 0.5 * d * d
	}
	return loss / float64(len(y))
}

// BinaryLogloss は 0/1 ラベルに対するロジスティック損失
type BinaryLogloss struct{}

func (BinaryLogloss) Name() string    { return "binary_logloss" }
func (BinaryLogloss) NumOutputs() int { return 1 }

// InitScores は陽性率の対数オッズから始める
func (BinaryLogloss) InitScores(y []float64) []float64 {
	if len(y) == 0 {
		return []float64{0}
	}
	pos := 0.0
	for _, v := range y {
		pos += v
	}
	p := errors.ClipValue(pos/float64(len(y)), 1e-15, 1-1e-15)
	return []float64{math.Log(p / (1 - p))}
}

func (BinaryLogloss) Gradients(y, scores, grad, hess []float64) {
	for i, t := range y {
		p := errors.Sigmoid(scores[i])
		grad[i] = p - t
		hess[i] = math.Max(p*(1-p), hessFloor)
	}
}

func (BinaryLogloss) Loss(y, scores []float64) float64 {
	loss := 0.0
	for i, t := range y {
		p := errors.ClipValue(errors.Sigmoid(scores[i]), 1e-15, 1-1e-15)
		loss -= t*math.Log(p) + (1-t)*math.Log(1-p)
	}
	return loss / float64(len(y))
}

// Softmax は多クラスのクロスエントロピー損失。y はクラス番号 0..K-1。
type Softmax struct {
	K int
}

func (o Softmax) Name() string    { return "multi_logloss" }
func (o Softmax) NumOutputs() int { return o.K }

// InitScores はクラス事前確率の対数から始める
func (o Softmax) InitScores(y []float64) []float64 {
	init := make([]float64, o.K)
	if len(y) == 0 {
		return init
	}
	counts := make([]float64, o.K)
	for _, v := range y {
		counts[int(v)]++
	}
	for k, c := range counts {
		init[k] = math.Log(math.Max(c/float64(len(y)), 1e-15))
	}
	return init
}

func (o Softmax) Gradients(y, scores, grad, hess []float64) {
	p := make([]float64, o.K)
	for i, t := range y {
		row := scores[i*o.K : (i+1)*o.K]
		errors.Softmax(p, row)
		for k := 0; k < o.K; k++ {
			g := p[k]
			if int(t) == k {
				g--
			}
			grad[i*o.K+k] = g
			hess[i*o.K+k] = math.Max(2*p[k]*(1-p[k]), hessFloor)
		}
	}
}

func (o Softmax) Loss(y, scores []float64) float64 {
	loss := 0.0
	for i, t := range y {
		row := scores[i*o.K : (i+1)*o.K]
		loss += errors.LogSumExp(row) - row[int(t)]
	}
	return loss / float64(len(y))
}
