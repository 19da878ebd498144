package state

import "github.com/Carmen-Shannon/oxy-fx/engine/parameter"

// StoreBuilderOption is a functional option applied to a store during construction via NewStore.
type StoreBuilderOption func(*store)

// WithRegistry validates mutations against reg instead of parameter.Default().
//
// Parameters:
//   - reg: the registry to use
//
// Returns:
//   - StoreBuilderOption: a function that applies the registry option to a store
func WithRegistry(reg parameter.Registry) StoreBuilderOption {
	return func(s *store) {
		s.registry = reg
	}
}

// WithOnChange registers a callback invoked with the new snapshot after every successful mutation. Callbacks run
// on the mutating goroutine after the lock is released.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - StoreBuilderOption: a function that applies the callback option to a store
func WithOnChange(fn func(State)) StoreBuilderOption {
	return func(s *store) {
		s.onChange = append(s.onChange, fn)
	}
}
