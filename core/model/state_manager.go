package model

import (
	"sync"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// StateManager は学習済みかどうかと学習時の列数を持つ。
// gob で保存するためフィールドは公開している。
type StateManager struct {
	mu sync.RWMutex

	Fitted    bool
	NFeatures int
	NSamples  int
}

func NewStateManager() *StateManager { return &StateManager{} }

func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Fitted
}

func (s *StateManager) SetFitted() {
	s.mu.Lock()
	s.Fitted = true
	s.mu.Unlock()
}

// SetDimensions は Fit に渡された X の形を記録する
func (s *StateManager) SetDimensions(nFeatures, nSamples int) {
	s.mu.Lock()
	s.NFeatures, s.NSamples = nFeatures, nSamples
	s.mu.Unlock()
}

func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NFeatures, s.NSamples
}

// RequireFitted は未学習なら NotFittedError を返す
func (s *StateManager) RequireFitted(modelName, method string) error {
	if s.IsFitted() {
		return nil
	}
	return errors.NewNotFittedError(modelName, method)
}

// CheckFeatures は X の列数が学習時と違えば DimensionError を返す
func (s *StateManager) CheckFeatures(op string, X interface{ Dims() (int, int) }) error {
	_, got := X.Dims()
	want, _ := s.GetDimensions()
	if got != want {
		return errors.NewDimensionError(op, want, got, 1)
	}
	return nil
}
