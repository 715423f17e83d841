package errors

import (
	"fmt"
	"runtime/debug"

	"github.com/cockroachdb/errors"
)

// PanicError is a recovered panic, usually a gonum shape panic inside Fit.
type PanicError struct {
	Operation  string
	PanicValue interface{}
	StackTrace string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// String adds the stack captured at recovery time.
func (e *PanicError) String() string {
	return e.Error() + "\n" + e.StackTrace
}

// Recover turns a panic into an error assigned to *err. Fit methods defer it
// so that a bad matrix shape fails the training stage instead of the server:
//
//	func (m *Model) Fit(X, y mat.Matrix) (err error) {
//	    defer errors.Recover(&err, "Model.Fit")
//	    ...
//	}
func Recover(err *error, operation string) {
	r := recover()
	if r == nil {
		return
	}
	if *err != nil {
		*err = errors.Wrapf(*err, "panic in %s: %v", operation, r)
		return
	}
	*err = &PanicError{Operation: operation, PanicValue: r, StackTrace: string(debug.Stack())}
}
