package config

import (
	"sync/atomic"
)

// Snapshot holds an immutable configuration value that is replaced only by an
// explicit Reload. Pass the snapshot (or the value returned by Get) to the
// components that need it instead of reading global state.
type Snapshot[T any] struct {
	current atomic.Pointer[T]
	loader  func() (T, error)
}

// NewSnapshot loads the initial value from the environment.
func NewSnapshot[T any]() (*Snapshot[T], error) {
	return NewSnapshotWithLoader(Load[T])
}

// NewSnapshotWithLoader builds a snapshot backed by a custom loader.
func NewSnapshotWithLoader[T any](loader func() (T, error)) (*Snapshot[T], error) {
	if loader == nil {
		return nil, ErrNilLoader
	}
	s := &Snapshot[T]{loader: loader}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the current configuration value.
func (s *Snapshot[T]) Get() T {
	return *s.current.Load()
}

// Reload re-runs the loader. On failure the previous value stays in effect.
func (s *Snapshot[T]) Reload() error {
	v, err := s.loader()
	if err != nil {
		return err
	}
	s.current.Store(&v)
	return nil
}
