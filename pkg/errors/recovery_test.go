package errors

import (
	"fmt"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func fitLike(prior error, body func()) (err error) {
	defer Recover(&err, "Model.Fit")
	err = prior
	body()
	return err
}

func TestRecover(t *testing.T) {
	t.Run("no panic", func(t *testing.T) {
		if err := fitLike(nil, func() {}); err != nil {
			t.Errorf("err = %v, want nil", err)
		}
	})

	t.Run("gonum shape panic", func(t *testing.T) {
		err := fitLike(nil, func() {
			var c mat.Dense
			c.Mul(mat.NewDense(2, 3, nil), mat.NewDense(2, 3, nil))
		})
		var pe *PanicError
		if !As(err, &pe) {
			t.Fatalf("err = %T, want *PanicError", err)
		}
		if pe.Operation != "Model.Fit" || pe.StackTrace == "" {
			t.Errorf("PanicError = %+v", pe)
		}
		if !strings.HasPrefix(pe.Error(), "panic in Model.Fit: ") {
			t.Errorf("Error() = %q", pe.Error())
		}
		if !strings.Contains(pe.String(), "goroutine") {
			t.Error("String() should include the stack")
		}
	})

	t.Run("keeps earlier error", func(t *testing.T) {
		prior := fmt.Errorf("bad input")
		err := fitLike(prior, func() { panic("boom") })
		if !Is(err, prior) {
			t.Errorf("err = %v, want it to wrap %v", err, prior)
		}
		if !strings.Contains(err.Error(), "panic in Model.Fit: boom") {
			t.Errorf("err = %v", err)
		}
	})
}
