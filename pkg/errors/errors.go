// Package errors はワークベンチ全体で使うエラー型と警告の通知を提供する。
//
// 型の分類は scikit-learn の例外 (NotFittedError, ValueError, KeyError など)
// に合わせ、生成時に cockroachdb/errors でスタックトレースを付ける。
// ステージの失敗はこれらの型のままフォームのエラーパネルまで運ばれる。
package errors

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	ErrEmptyData      = New("empty data")
	ErrSingularMatrix = New("singular matrix")
)

// NotFittedError: Fit 前に Predict や Transform が呼ばれた
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("automl: %s.%s called before Fit", e.ModelName, e.Method)
}

func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError: 行数 (Axis 0) か特徴量数 (Axis 1) が合わない
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int
}

func (e *DimensionError) Error() string {
	what := "features"
	if e.Axis == 0 {
		what = "rows"
	}
	return fmt.Sprintf("automl: %s: expected %d %s, got %d", e.Op, e.Expected, what, e.Got)
}

func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValidationError はハイパーパラメータやフォーム入力の不正を表す
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("automl: invalid %s: %s (got %v)", e.ParamName, e.Reason, e.Value)
}

func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError: 入力データそのものが処理できない (NaN を含む行列、1クラスしかないラベルなど)
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return "automl: " + e.Op + ": " + e.Message
}

func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// KeyError: 存在しない列名を参照した
type KeyError struct {
	Op     string
	Keys   []string
	Reason string
}

func (e *KeyError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "not found in axis"
	}
	return fmt.Sprintf("automl: %s: %q %s", e.Op, e.Keys, reason)
}

func NewKeyError(op string, keys ...string) error {
	return errors.WithStack(&KeyError{Op: op, Keys: keys})
}

// ModelError は学習処理の失敗。原因があれば Err に保持する。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("automl: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("automl: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

func NewModelError(op, kind string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Kind: kind, Err: err})
}

// NumericalInstabilityError: 学習中に NaN や Inf が出た
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
	Iteration int
}

func (e *NumericalInstabilityError) Error() string {
	shown := e.Values
	if len(shown) > 5 {
		shown = shown[:5]
	}
	parts := make([]string, len(shown))
	for i, v := range shown {
		parts[i] = fmt.Sprintf("%.6g", v)
	}
	if len(e.Values) > len(shown) {
		parts = append(parts, "...")
	}
	return fmt.Sprintf("automl: %s: non-finite values at iteration %d: [%s]",
		e.Operation, e.Iteration, strings.Join(parts, ", "))
}

func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	return errors.WithStack(&NumericalInstabilityError{Operation: operation, Values: values, Iteration: iteration})
}

// cockroachdb/errors の薄いラッパー

func Is(err, target error) bool             { return errors.Is(err, target) }
func As(err error, target interface{}) bool { return errors.As(err, target) }
func New(message string) error              { return errors.New(message) }

func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
