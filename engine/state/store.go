package state

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/parameter"
)

// Change is one host parameter-change event: an identifier and a value of the type its role expects
// (float64 for scalars, bool for toggles, int for enum indices).
type Change struct {
	ID    parameter.ID
	Value any
}

type store struct {
	mu       *sync.RWMutex
	registry parameter.Registry
	current  State
	onChange []func(State)
}

// Store is the owned, synchronized plugin state record. Setters are atomic with respect to each other and a failed
// setter leaves the record unchanged. Readers call Snapshot and never hold a reference into the live record.
type Store interface {
	// SetEffect makes e the active effect. Stored parameters of every effect, including the variant selectors of
	// inactive families, are left untouched.
	//
	// Parameters:
	//   - e: the effect to activate
	//
	// Returns:
	//   - error: effect.ErrUnknownEffect if e is nil or has an out-of-range variant
	SetEffect(e effect.Effect) error

	// SetScalar clamps v into the registered range of field and stores it. NaN stores the field default.
	//
	// Parameters:
	//   - field: the scalar field to set
	//   - v: the requested value
	//
	// Returns:
	//   - float64: the value actually stored
	//   - error: ErrInvalidField if field has no scalar role in the registry
	SetScalar(field parameter.Field, v float64) (float64, error)

	// UpdateScalar replaces a scalar with fn applied to its stored value, as one mutation. The result is clamped
	// like SetScalar.
	//
	// Parameters:
	//   - field: the scalar field to update
	//   - fn: computes the new value from the stored one; it runs with the store locked and must not call back
	//     into the store
	//
	// Returns:
	//   - float64: the value actually stored
	//   - error: ErrInvalidField if field has no scalar role in the registry
	UpdateScalar(field parameter.Field, fn func(old float64) float64) (float64, error)

	// SetToggle stores a boolean field.
	//
	// Parameters:
	//   - field: the toggle field to set
	//   - v: the new value
	//
	// Returns:
	//   - error: ErrInvalidField if field has no toggle role in the registry
	SetToggle(field parameter.Field, v bool) error

	// SetEnum stores an enum selector by option index.
	//
	// Parameters:
	//   - field: the enum field to set
	//   - index: the option index
	//
	// Returns:
	//   - error: ErrInvalidField if field has no enum role or index is not a valid option
	SetEnum(field parameter.Field, index int) error

	// Apply dispatches a host parameter-change event by the registry role of its identifier.
	//
	// Parameters:
	//   - id: the host parameter identifier
	//   - value: float64 (float32 and int are accepted) for scalars, bool for toggles, int for enums
	//
	// Returns:
	//   - error: parameter.ErrUnknownParameter for unregistered ids, ErrInvalidField for group headers or a value
	//     of the wrong type
	Apply(id parameter.ID, value any) error

	// ApplyAll applies several changes as one atomic mutation: either every change is stored or none is.
	//
	// Parameters:
	//   - changes: the changes to apply in order
	//
	// Returns:
	//   - error: the first failure, in which case the record is unchanged
	ApplyAll(changes ...Change) error

	// Snapshot returns a consistent copy of the record.
	//
	// Returns:
	//   - State: the current parameters
	Snapshot() State

	// Reset restores every field to its registry default.
	Reset()

	// Registry returns the registry the store validates against.
	//
	// Returns:
	//   - parameter.Registry: the registry
	Registry() parameter.Registry
}

var _ Store = &store{}

// NewStore creates a Store initialised with the registry defaults.
//
// Parameters:
//   - options: functional options applied after the defaults
//
// Returns:
//   - Store: the new store
func NewStore(options ...StoreBuilderOption) Store {
	s := &store{
		mu:       &sync.RWMutex{},
		registry: parameter.Default(),
	}
	for _, opt := range options {
		opt(s)
	}
	s.current = Defaults(s.registry)
	return s
}

func (s *store) Registry() parameter.Registry {
	return s.registry
}

func (s *store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *store) Reset() {
	s.mu.Lock()
	next := Defaults(s.registry)
	next.Revision = s.current.Revision + 1
	s.current = next
	s.mu.Unlock()
	s.notify(next)
}

func (s *store) SetEffect(e effect.Effect) error {
	if e == nil || !e.Valid() {
		return fmt.Errorf("%w: %v", effect.ErrUnknownEffect, e)
	}
	return s.mutate(func(st *State) error {
		st.Kind = e.Kind()
		switch v := e.(type) {
		case effect.Blur:
			st.Blur = v.Variant
		case effect.Special:
			st.Special = v.Variant
		}
		return nil
	})
}

func (s *store) SetScalar(field parameter.Field, v float64) (float64, error) {
	var stored float64
	err := s.mutate(func(st *State) error {
		var err error
		stored, err = s.setScalar(st, field, v)
		return err
	})
	return stored, err
}

func (s *store) UpdateScalar(field parameter.Field, fn func(old float64) float64) (float64, error) {
	var stored float64
	err := s.mutate(func(st *State) error {
		p := st.scalar(field)
		if p == nil {
			return fmt.Errorf("%w: %s is not a scalar", ErrInvalidField, field)
		}
		var err error
		stored, err = s.setScalar(st, field, fn(*p))
		return err
	})
	return stored, err
}

func (s *store) SetToggle(field parameter.Field, v bool) error {
	return s.mutate(func(st *State) error {
		return s.setToggle(st, field, v)
	})
}

func (s *store) SetEnum(field parameter.Field, index int) error {
	return s.mutate(func(st *State) error {
		return s.setEnum(st, field, index)
	})
}

func (s *store) Apply(id parameter.ID, value any) error {
	return s.ApplyAll(Change{ID: id, Value: value})
}

func (s *store) ApplyAll(changes ...Change) error {
	return s.mutate(func(st *State) error {
		for _, c := range changes {
			if err := s.apply(st, c); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *store) apply(st *State, c Change) error {
	role, err := s.registry.RoleOf(c.ID)
	if err != nil {
		return err
	}

	switch r := role.(type) {
	case parameter.Scalar:
		v, ok := asFloat(c.Value)
		if !ok {
			return fmt.Errorf("%w: parameter %d expects a number, got %T", ErrInvalidField, c.ID, c.Value)
		}
		_, err := s.setScalar(st, r.Field, v)
		return err
	case parameter.Toggle:
		v, ok := c.Value.(bool)
		if !ok {
			return fmt.Errorf("%w: parameter %d expects a bool, got %T", ErrInvalidField, c.ID, c.Value)
		}
		return s.setToggle(st, r.Field, v)
	case parameter.Enum:
		v, ok := c.Value.(int)
		if !ok {
			return fmt.Errorf("%w: parameter %d expects an option index, got %T", ErrInvalidField, c.ID, c.Value)
		}
		return s.setEnum(st, r.Field, v)
	default:
		return fmt.Errorf("%w: parameter %d is a %s and carries no value", ErrInvalidField, c.ID, role.Kind())
	}
}

func (s *store) setScalar(st *State, field parameter.Field, v float64) (float64, error) {
	entry, ok := s.registry.Lookup(field)
	if !ok {
		return 0, fmt.Errorf("%w: %s is not registered", ErrInvalidField, field)
	}
	role, ok := entry.Role.(parameter.Scalar)
	p := st.scalar(field)
	if !ok || p == nil {
		return 0, fmt.Errorf("%w: %s is not a scalar", ErrInvalidField, field)
	}
	*p = role.Range.Clamp(v)
	return *p, nil
}

func (s *store) setToggle(st *State, field parameter.Field, v bool) error {
	entry, ok := s.registry.Lookup(field)
	if !ok {
		return fmt.Errorf("%w: %s is not registered", ErrInvalidField, field)
	}
	p := st.toggle(field)
	if entry.Role.Kind() != parameter.RoleToggle || p == nil {
		return fmt.Errorf("%w: %s is not a toggle", ErrInvalidField, field)
	}
	*p = v
	return nil
}

func (s *store) setEnum(st *State, field parameter.Field, index int) error {
	entry, ok := s.registry.Lookup(field)
	if !ok {
		return fmt.Errorf("%w: %s is not registered", ErrInvalidField, field)
	}
	role, ok := entry.Role.(parameter.Enum)
	if !ok {
		return fmt.Errorf("%w: %s is not an enum", ErrInvalidField, field)
	}
	if index < 0 || index >= len(role.Options) {
		return fmt.Errorf("%w: %s has no option %d", ErrInvalidField, field, index)
	}
	if !st.setEnum(field, index) {
		return fmt.Errorf("%w: %s has no enum slot", ErrInvalidField, field)
	}
	return nil
}

// mutate applies fn to a copy of the record and commits the copy only if fn succeeds.
func (s *store) mutate(fn func(*State) error) error {
	s.mu.Lock()
	next := s.current
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	next.Revision = s.current.Revision + 1
	s.current = next
	s.mu.Unlock()

	common.Logger().Debug("state changed", "revision", next.Revision, "kind", next.Kind)
	s.notify(next)
	return nil
}

func (s *store) notify(st State) {
	for _, fn := range s.onChange {
		fn(st)
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
