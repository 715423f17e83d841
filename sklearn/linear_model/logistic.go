package linear_model

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

func init() {
	gob.Register(&LogisticRegression{})
	gob.Register(&LinearRegression{})
}

// LogisticRegression implements L2-regularised logistic regression.
// Two classes use a single weight vector; more classes use the multinomial
// (softmax) loss. Both are minimised with L-BFGS.
type LogisticRegression struct {
	state *model.StateManager

	// Hyperparameters
	penalty      string  // "l2" or "none"
	C            float64 // Inverse regularization strength
	fitIntercept bool
	maxIter      int
	multiClass   string // "auto", "multinomial", "ovr"
	tol          float64

	// Model parameters
	coef_      [][]float64 // 1 x n_features for binary, n_classes x n_features otherwise
	intercept_ []float64
	classes_   []float64
	nClasses_  int
	nFeatures_ int
	nIter_     int
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		penalty:      "l2",
		C:            1.0,
		fitIntercept: true,
		maxIter:      100,
		multiClass:   "auto",
		tol:          1e-4,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// WithLRPenalty sets the regularization type
func WithLRPenalty(penalty string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.penalty = penalty
	}
}

// WithLRC sets the inverse regularization strength
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.C = c
	}
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.fitIntercept = fit
	}
}

// WithLRMaxIter sets the maximum number of L-BFGS iterations
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithLRTol sets the gradient tolerance for stopping
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

// WithLRMultiClass selects "multinomial" or "ovr" for more than two classes
func WithLRMultiClass(multiClass string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.multiClass = multiClass
	}
}

func (lr *LogisticRegression) validate() error {
	switch lr.penalty {
	case "l2", "none":
	default:
		return errors.NewValidationError("penalty", "supported penalties are 'l2' and 'none'", lr.penalty)
	}
	switch lr.multiClass {
	case "auto", "multinomial", "ovr":
	default:
		return errors.NewValidationError("multi_class", "must be 'auto', 'multinomial' or 'ovr'", lr.multiClass)
	}
	if lr.C <= 0 {
		return errors.NewValidationError("C", "must be positive", lr.C)
	}
	if lr.maxIter <= 0 {
		return errors.NewValidationError("max_iter", "must be positive", lr.maxIter)
	}
	return nil
}

// Fit trains the logistic regression model
func (lr *LogisticRegression) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LogisticRegression.Fit")

	if err := lr.validate(); err != nil {
		return err
	}

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("LogisticRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if nSamples != yRows {
		return errors.NewDimensionError("LogisticRegression.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewValueError("LogisticRegression.Fit", fmt.Sprintf("y must be a column vector: got shape (%d, %d)", yRows, yCols))
	}
	if err := errors.CheckFinite("LogisticRegression.Fit", "X", X); err != nil {
		return err
	}

	lr.extractClasses(y)
	if lr.nClasses_ < 2 {
		return errors.NewValueError("LogisticRegression.Fit",
			fmt.Sprintf("This solver needs samples of at least 2 classes in the data, but the data contains only one class: %v", lr.classes_[0]))
	}
	lr.nFeatures_ = nFeatures

	labels := make([]int, nSamples)
	for i := range labels {
		labels[i] = sort.SearchFloat64s(lr.classes_, y.At(i, 0))
	}

	switch {
	case lr.nClasses_ == 2:
		lr.coef_ = make([][]float64, 1)
		lr.intercept_ = make([]float64, 1)
		binary := make([]float64, nSamples)
		for i, l := range labels {
			binary[i] = float64(l)
		}
		if err := lr.fitBinary(X, binary, 0); err != nil {
			return err
		}
	case lr.multiClass == "ovr":
		lr.coef_ = make([][]float64, lr.nClasses_)
		lr.intercept_ = make([]float64, lr.nClasses_)
		binary := make([]float64, nSamples)
		for k := 0; k < lr.nClasses_; k++ {
			for i, l := range labels {
				binary[i] = 0
				if l == k {
					binary[i] = 1
				}
			}
			if err := lr.fitBinary(X, binary, k); err != nil {
				return errors.Wrapf(err, "failed to fit class %v", lr.classes_[k])
			}
		}
	default:
		if err := lr.fitMultinomial(X, labels); err != nil {
			return err
		}
	}

	lr.state.SetFitted()
	lr.state.SetDimensions(nFeatures, nSamples)
	return nil
}

// extractClasses identifies unique class labels in ascending order
func (lr *LogisticRegression) extractClasses(y mat.Matrix) {
	rows, _ := y.Dims()
	seen := make(map[float64]struct{})
	lr.classes_ = lr.classes_[:0]
	for i := 0; i < rows; i++ {
		label := y.At(i, 0)
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		lr.classes_ = append(lr.classes_, label)
	}
	sort.Float64s(lr.classes_)
	lr.nClasses_ = len(lr.classes_)
}

// alpha は平均損失に対する L2 係数 1/(C·n)
func (lr *LogisticRegression) alpha(nSamples int) float64 {
	if lr.penalty == "none" {
		return 0
	}
	return 1.0 / (lr.C * float64(nSamples))
}

// fitBinary は 0/1 ラベルに対する二値ロジスティック回帰を解き、coef_[k] に格納する
// パラメータ配置: [w_0..w_{p-1}, b]
func (lr *LogisticRegression) fitBinary(X mat.Matrix, y []float64, k int) error {
	n, p := X.Dims()
	alpha := lr.alpha(n)
	z := make([]float64, n)

	linear := func(x []float64) {
		for i := 0; i < n; i++ {
			s := 0.0
			if lr.fitIntercept {
				s = x[p]
			}
			for j := 0; j < p; j++ {
				s += X.At(i, j) * x[j]
			}
			z[i] = s
		}
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			linear(x)
			loss := 0.0
			for i := 0; i < n; i++ {
				// log(1+exp(z)) - y·z
				loss += softplus(z[i]) - y[i]*z[i]
			}
			loss /= float64(n)
			for j := 0; j < p; j++ {
				loss += 0.5 * alpha * x[j] * x[j]
			}
			return loss
		},
		Grad: func(grad, x []float64) {
			linear(x)
			for j := range grad {
				grad[j] = 0
			}
			for i := 0; i < n; i++ {
				r := errors.Sigmoid(z[i]) - y[i]
				for j := 0; j < p; j++ {
					grad[j] += r * X.At(i, j)
				}
				if lr.fitIntercept {
					grad[p] += r
				}
			}
			for j := range grad {
				grad[j] /= float64(n)
			}
			for j := 0; j < p; j++ {
				grad[j] += alpha * x[j]
			}
		},
	}

	x, err := lr.minimize(problem, p+1)
	if err != nil {
		return err
	}
	lr.coef_[k] = append([]float64(nil), x[:p]...)
	lr.intercept_[k] = x[p]
	return nil
}

// fitMultinomial はソフトマックス損失を最小化する
// パラメータ配置: クラスごとに [w_k0..w_k{p-1}, b_k]
func (lr *LogisticRegression) fitMultinomial(X mat.Matrix, labels []int) error {
	n, p := X.Dims()
	K := lr.nClasses_
	stride := p + 1
	alpha := lr.alpha(n)
	scores := make([]float64, K)
	probs := make([]float64, K)

	rowScores := func(x []float64, i int) {
		for k := 0; k < K; k++ {
			w := x[k*stride : (k+1)*stride]
			s := 0.0
			if lr.fitIntercept {
				s = w[p]
			}
			for j := 0; j < p; j++ {
				s += X.At(i, j) * w[j]
			}
			scores[k] = s
		}
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			loss := 0.0
			for i := 0; i < n; i++ {
				rowScores(x, i)
				loss += errors.LogSumExp(scores) - scores[labels[i]]
			}
			loss /= float64(n)
			for k := 0; k < K; k++ {
				for j := 0; j < p; j++ {
					w := x[k*stride+j]
					loss += 0.5 * alpha * w * w
				}
			}
			return loss
		},
		Grad: func(grad, x []float64) {
			for j := range grad {
				grad[j] = 0
			}
			for i := 0; i < n; i++ {
				rowScores(x, i)
				errors.Softmax(probs, scores)
				for k := 0; k < K; k++ {
					r := probs[k]
					if labels[i] == k {
						r--
					}
					g := grad[k*stride : (k+1)*stride]
					for j := 0; j < p; j++ {
						g[j] += r * X.At(i, j)
					}
					if lr.fitIntercept {
						g[p] += r
					}
				}
			}
			for j := range grad {
				grad[j] /= float64(n)
			}
			for k := 0; k < K; k++ {
				for j := 0; j < p; j++ {
					grad[k*stride+j] += alpha * x[k*stride+j]
				}
			}
		},
	}

	x, err := lr.minimize(problem, K*stride)
	if err != nil {
		return err
	}
	lr.coef_ = make([][]float64, K)
	lr.intercept_ = make([]float64, K)
	for k := 0; k < K; k++ {
		lr.coef_[k] = append([]float64(nil), x[k*stride:k*stride+p]...)
		lr.intercept_[k] = x[k*stride+p]
	}
	return nil
}

// minimize は L-BFGS を実行する。反復上限に達した場合は ConvergenceWarning を出す。
func (lr *LogisticRegression) minimize(problem optimize.Problem, dim int) ([]float64, error) {
	settings := &optimize.Settings{
		GradientThreshold: lr.tol,
		MajorIterations:   lr.maxIter,
	}
	result, err := optimize.Minimize(problem, make([]float64, dim), settings, &optimize.LBFGS{})
	if result == nil {
		return nil, errors.NewModelError("LogisticRegression.Fit", "lbfgs failed", err)
	}
	for i, v := range result.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.NewNumericalInstabilityError("LogisticRegression.Fit", result.X, i)
		}
	}

	lr.nIter_ = result.Stats.MajorIterations
	switch {
	case result.Status == optimize.IterationLimit:
		errors.Warn(errors.NewConvergenceWarning("lbfgs", lr.nIter_, "Increase the number of iterations (max_iter) or scale the data"))
	case err != nil:
		// ラインサーチが進めなくなった場合も、得られた点は有効な解として使う
		errors.Warn(errors.NewConvergenceWarning("lbfgs", lr.nIter_, err.Error()))
	}
	return result.X, nil
}

// decision は各クラスのスコア (binary では1列) を返す
func (lr *LogisticRegression) decision(X mat.Matrix, i int, dst []float64) {
	for k := range lr.coef_ {
		s := lr.intercept_[k]
		for j := 0; j < lr.nFeatures_; j++ {
			s += X.At(i, j) * lr.coef_[k][j]
		}
		dst[k] = s
	}
}

func (lr *LogisticRegression) checkPredict(method string, X mat.Matrix) error {
	if err := lr.state.RequireFitted("LogisticRegression", method); err != nil {
		return err
	}
	return lr.state.CheckFeatures("LogisticRegression."+method, X)
}

// Predict returns the most probable class label for each row
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.checkPredict("Predict", X); err != nil {
		return nil, err
	}

	nSamples, _ := X.Dims()
	predictions := mat.NewDense(nSamples, 1, nil)
	scores := make([]float64, len(lr.coef_))

	for i := 0; i < nSamples; i++ {
		lr.decision(X, i, scores)
		if lr.nClasses_ == 2 {
			if scores[0] > 0 {
				predictions.Set(i, 0, lr.classes_[1])
			} else {
				predictions.Set(i, 0, lr.classes_[0])
			}
			continue
		}
		best := 0
		for k := 1; k < len(scores); k++ {
			if scores[k] > scores[best] {
				best = k
			}
		}
		predictions.Set(i, 0, lr.classes_[best])
	}
	return predictions, nil
}

// PredictProba returns probability estimates for each class
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.checkPredict("PredictProba", X); err != nil {
		return nil, err
	}

	nSamples, _ := X.Dims()
	probas := mat.NewDense(nSamples, lr.nClasses_, nil)
	scores := make([]float64, len(lr.coef_))
	row := make([]float64, lr.nClasses_)

	for i := 0; i < nSamples; i++ {
		lr.decision(X, i, scores)
		switch {
		case lr.nClasses_ == 2:
			p1 := errors.Sigmoid(scores[0])
			row[0], row[1] = 1-p1, p1
		case lr.multiClass == "ovr":
			// OvR はクラスごとのシグモイドを正規化する
			sum := 0.0
			for k, s := range scores {
				row[k] = errors.Sigmoid(s)
				sum += row[k]
			}
			for k := range row {
				row[k] /= sum
			}
		default:
			errors.Softmax(row, scores)
		}
		probas.SetRow(i, row)
	}
	return probas, nil
}

// Classes returns the class labels seen during Fit
func (lr *LogisticRegression) Classes() []float64 {
	return append([]float64(nil), lr.classes_...)
}

// NIter returns the number of L-BFGS iterations of the last fit
func (lr *LogisticRegression) NIter() int {
	return lr.nIter_
}

// Score returns the mean accuracy on the given test data and labels
func (lr *LogisticRegression) Score(X, y mat.Matrix) float64 {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0.0
	}

	nSamples, _ := X.Dims()
	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples)
}

// GetParams returns the model hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"penalty":       lr.penalty,
		"C":             lr.C,
		"fit_intercept": lr.fitIntercept,
		"max_iter":      lr.maxIter,
		"multi_class":   lr.multiClass,
		"tol":           lr.tol,
	}
}

// SetParams sets the model hyperparameters
func (lr *LogisticRegression) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var ok bool
		switch key {
		case "penalty":
			lr.penalty, ok = value.(string)
		case "C":
			lr.C, ok = value.(float64)
		case "fit_intercept":
			lr.fitIntercept, ok = value.(bool)
		case "max_iter":
			lr.maxIter, ok = value.(int)
		case "multi_class":
			lr.multiClass, ok = value.(string)
		case "tol":
			lr.tol, ok = value.(float64)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if !ok {
			return errors.NewValidationError(key, "wrong type", value)
		}
	}
	return nil
}

// logisticGob は gob 用の学習済み状態
type logisticGob struct {
	Penalty      string
	C            float64
	FitIntercept bool
	MaxIter      int
	MultiClass   string
	Tol          float64
	Coef         [][]float64
	Intercept    []float64
	Classes      []float64
	NFeatures    int
	NIter        int
	Fitted       bool
}

// GobEncode implements gob.GobEncoder
func (lr *LogisticRegression) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(logisticGob{
		Penalty:      lr.penalty,
		C:            lr.C,
		FitIntercept: lr.fitIntercept,
		MaxIter:      lr.maxIter,
		MultiClass:   lr.multiClass,
		Tol:          lr.tol,
		Coef:         lr.coef_,
		Intercept:    lr.intercept_,
		Classes:      lr.classes_,
		NFeatures:    lr.nFeatures_,
		NIter:        lr.nIter_,
		Fitted:       lr.state != nil && lr.state.IsFitted(),
	})
	return buf.Bytes(), err
}

// GobDecode implements gob.GobDecoder
func (lr *LogisticRegression) GobDecode(data []byte) error {
	var g logisticGob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&g); err != nil {
		return err
	}
	*lr = LogisticRegression{
		state:        model.NewStateManager(),
		penalty:      g.Penalty,
		C:            g.C,
		fitIntercept: g.FitIntercept,
		maxIter:      g.MaxIter,
		multiClass:   g.MultiClass,
		tol:          g.Tol,
		coef_:        g.Coef,
		intercept_:   g.Intercept,
		classes_:     g.Classes,
		nClasses_:    len(g.Classes),
		nFeatures_:   g.NFeatures,
		nIter_:       g.NIter,
	}
	lr.state.SetDimensions(g.NFeatures, 0)
	if g.Fitted {
		lr.state.SetFitted()
	}
	return nil
}

// softplus は log(1+exp(z)) を安定に計算する
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}
