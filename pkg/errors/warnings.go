package errors

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

var (
	warnMu   sync.Mutex
	onWarn   func(w error)
	zerologW func(w error)
)

// SetWarningHandler は警告の受け取り先を差し替える。nil で既定の出力に戻る。
func SetWarningHandler(handler func(w error)) {
	warnMu.Lock()
	defer warnMu.Unlock()
	onWarn = handler
}

// SetZerologWarnFunc はアプリケーションのロガーを警告の出力先にする。
// SetWarningHandler より優先される。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warnMu.Lock()
	defer warnMu.Unlock()
	zerologW = warnFunc
}

// Warn は学習や評価を止めない警告を通知する
func Warn(w error) {
	warnMu.Lock()
	defer warnMu.Unlock()

	switch {
	case zerologW != nil:
		zerologW(w)
	case onWarn != nil:
		onWarn(w)
	default:
		ev := zlog.Warn().Err(w)
		if o, ok := w.(zerolog.LogObjectMarshaler); ok {
			ev = ev.EmbedObject(o)
		}
		ev.Msg("automl warning")
	}
}

// ConvergenceWarning: 反復法が上限までに収束しなかった
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	msg := w.Message
	if msg == "" {
		msg = "increase max_iter"
	}
	return fmt.Sprintf("%s did not converge in %d iterations: %s", w.Algorithm, w.Iterations, msg)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("warning", "convergence").Str("algorithm", w.Algorithm).Int("iterations", w.Iterations)
}

func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

// UndefinedMetricWarning: 指標の分母が 0 で、値を Result に置き換えた
// (例: 陽性の予測が一件もないときの precision)
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("%s is undefined (%s); using %g", w.Metric, w.Condition, w.Result)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("warning", "undefined_metric").Str("metric", w.Metric).Float64("result", w.Result)
}

func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}
