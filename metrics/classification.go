package metrics

import (
	"fmt"
	"sort"

	"github.com/YuminosukeSato/automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Average は多クラス指標の平均化方法
type Average int

const (
	// Binary は陽性ラベル1のみを評価する (2クラス用)
	Binary Average = iota
	// Micro は全クラスのTP/FP/FNを合算して評価する
	Micro
)

func (a Average) String() string {
	if a == Micro {
		return "micro"
	}
	return "binary"
}

// AverageFor はクラス数に応じた平均化方法を返す。2クラス以下ならBinary。
func AverageFor(nClasses int) Average {
	if nClasses > 2 {
		return Micro
	}
	return Binary
}

// positiveLabel はBinary平均で陽性とみなすラベル
const positiveLabel = 1.0

func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// counts はTP/FP/FNの合計
type counts struct {
	tp, fp, fn float64
}

func confusionCounts(op string, yTrue, yPred *mat.VecDense, avg Average) (counts, error) {
	n, err := checkPair(op, yTrue, yPred)
	if err != nil {
		return counts{}, err
	}

	var c counts
	switch avg {
	case Binary:
		if labels := Labels(yTrue, yPred); len(labels) > 2 {
			return c, errors.NewValueError(op,
				fmt.Sprintf("Target is multiclass but average='binary'. Please choose another average setting, one of [micro]. Labels: %v", labels))
		}
		for i := 0; i < n; i++ {
			t, p := yTrue.AtVec(i) == positiveLabel, yPred.AtVec(i) == positiveLabel
			switch {
			case t && p:
				c.tp++
			case p:
				c.fp++
			case t:
				c.fn++
			}
		}
	case Micro:
		// 単一ラベル多クラスでは、誤分類1件が FP と FN を1件ずつ生む
		for i := 0; i < n; i++ {
			if yTrue.AtVec(i) == yPred.AtVec(i) {
				c.tp++
			} else {
				c.fp++
				c.fn++
			}
		}
	default:
		return c, errors.NewValidationError("average", "unknown averaging mode", int(avg))
	}
	return c, nil
}

func ratio(metric, condition string, num, den float64) float64 {
	if den == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning(metric, condition, 0))
		return 0
	}
	return num / den
}

// Precision は適合率 TP / (TP + FP) を計算する
func Precision(yTrue, yPred *mat.VecDense, avg Average) (float64, error) {
	c, err := confusionCounts("Precision", yTrue, yPred, avg)
	if err != nil {
		return 0, err
	}
	return ratio("Precision", "no predicted samples", c.tp, c.tp+c.fp), nil
}

// Recall は再現率 TP / (TP + FN) を計算する
func Recall(yTrue, yPred *mat.VecDense, avg Average) (float64, error) {
	c, err := confusionCounts("Recall", yTrue, yPred, avg)
	if err != nil {
		return 0, err
	}
	return ratio("Recall", "no true samples", c.tp, c.tp+c.fn), nil
}

// F1 はF値 2TP / (2TP + FP + FN) を計算する
func F1(yTrue, yPred *mat.VecDense, avg Average) (float64, error) {
	c, err := confusionCounts("F1", yTrue, yPred, avg)
	if err != nil {
		return 0, err
	}
	return ratio("F-score", "no true nor predicted samples", 2*c.tp, 2*c.tp+c.fp+c.fn), nil
}

// Labels は yTrue と yPred に現れるラベルの和集合を昇順で返す
func Labels(yTrue, yPred *mat.VecDense) []float64 {
	seen := make(map[float64]struct{})
	for _, v := range []*mat.VecDense{yTrue, yPred} {
		for i := 0; i < v.Len(); i++ {
			seen[v.AtVec(i)] = struct{}{}
		}
	}
	labels := make([]float64, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Float64s(labels)
	return labels
}

// ConfusionMatrix は混同行列を計算する。行が正解、列が予測。
// 行列のi番目はlabels[i]に対応する。
func ConfusionMatrix(yTrue, yPred *mat.VecDense) ([]float64, *mat.Dense, error) {
	n, err := checkPair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, nil, err
	}
	labels := Labels(yTrue, yPred)
	pos := make(map[float64]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}
	cm := mat.NewDense(len(labels), len(labels), nil)
	for i := 0; i < n; i++ {
		r, c := pos[yTrue.AtVec(i)], pos[yPred.AtVec(i)]
		cm.Set(r, c, cm.At(r, c)+1)
	}
	return labels, cm, nil
}

// ClassificationScores は分類モデル1つ分の評価結果
type ClassificationScores struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
	Labels    []float64
	Confusion *mat.Dense
}

// ClassificationReport は全ての分類指標をまとめて計算する
func ClassificationReport(yTrue, yPred *mat.VecDense, avg Average) (*ClassificationScores, error) {
	var (
		s   ClassificationScores
		err error
	)
	if s.Accuracy, err = Accuracy(yTrue, yPred); err != nil {
		return nil, err
	}
	if s.Precision, err = Precision(yTrue, yPred, avg); err != nil {
		return nil, err
	}
	if s.Recall, err = Recall(yTrue, yPred, avg); err != nil {
		return nil, err
	}
	if s.F1, err = F1(yTrue, yPred, avg); err != nil {
		return nil, err
	}
	if s.Labels, s.Confusion, err = ConfusionMatrix(yTrue, yPred); err != nil {
		return nil, err
	}
	return &s, nil
}
