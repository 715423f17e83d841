package model

import (
	"bytes"
	"encoding/gob"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// constantModel は常に同じ値を返すテスト用モデル
type constantModel struct {
	Value float64
}

func (m *constantModel) Fit(X, y mat.Matrix) error { return nil }

func (m *constantModel) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, m.Value)
	}
	return out, nil
}

func init() {
	gob.Register(&constantModel{})
}

func TestBundleRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		opts []CodecOption
	}{
		{name: "plain gob"},
		{name: "zstd", opts: []CodecOption{WithCompression(3)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := &Bundle{
				Name:        "Constant",
				ProblemType: "regression",
				Target:      "price",
				Features:    []string{"a", "b"},
				Estimator:   &constantModel{Value: 4.5},
			}

			var buf bytes.Buffer
			if err := SaveModelToWriter(in, &buf, tt.opts...); err != nil {
				t.Fatalf("SaveModelToWriter() error = %v", err)
			}

			compressed := bytes.HasPrefix(buf.Bytes(), zstdMagic)
			if compressed != (len(tt.opts) > 0) {
				t.Errorf("compressed = %v, want %v", compressed, len(tt.opts) > 0)
			}

			out, err := LoadModelFromReader(&buf)
			if err != nil {
				t.Fatalf("LoadModelFromReader() error = %v", err)
			}
			if out.Name != in.Name || out.Target != in.Target || len(out.Features) != 2 {
				t.Errorf("metadata mismatch: %+v", out)
			}

			pred, err := out.Estimator.Predict(mat.NewDense(2, 2, nil))
			if err != nil {
				t.Fatalf("Predict() error = %v", err)
			}
			if pred.At(1, 0) != 4.5 {
				t.Errorf("prediction = %v, want 4.5", pred.At(1, 0))
			}
		})
	}
}

func TestLoadModelFromReader_Garbage(t *testing.T) {
	if _, err := LoadModelFromReader(bytes.NewReader([]byte("not a model"))); err == nil {
		t.Error("expected decode error")
	}
}

func TestStateManager(t *testing.T) {
	s := NewStateManager()
	if err := s.RequireFitted("Test", "Predict"); err == nil {
		t.Error("expected NotFittedError before SetFitted")
	}

	s.SetDimensions(3, 10)
	s.SetFitted()
	if err := s.RequireFitted("Test", "Predict"); err != nil {
		t.Errorf("RequireFitted() error = %v", err)
	}
	if err := s.CheckFeatures("Predict", mat.NewDense(1, 2, nil)); err == nil {
		t.Error("expected DimensionError for 2 columns")
	}

	if n, samples := s.GetDimensions(); n != 3 || samples != 10 {
		t.Errorf("GetDimensions() = (%d, %d), want (3, 10)", n, samples)
	}
}
