package parameter

import (
	"errors"
	"fmt"
	"sync"
)

type registry struct {
	entries []Entry
	byID    map[ID]int
	byField map[Field]int
	byName  map[string]int
}

// Registry is the read-only parameter table. It is built once, validated at construction, and safe for concurrent
// use since nothing mutates it afterwards.
type Registry interface {
	// RoleOf returns the semantic role registered for id.
	//
	// Parameters:
	//   - id: the host parameter identifier
	//
	// Returns:
	//   - Role: the role of the parameter
	//   - error: ErrUnknownParameter if id is not registered
	RoleOf(id ID) (Role, error)

	// RangeOf returns the interval and default of a scalar parameter.
	//
	// Parameters:
	//   - id: the host parameter identifier
	//
	// Returns:
	//   - Range: the min, max and default of the scalar
	//   - error: ErrUnknownParameter if id is not registered, ErrNotScalar if its role is not Scalar
	RangeOf(id ID) (Range, error)

	// Entry returns the full registry row for id.
	//
	// Parameters:
	//   - id: the host parameter identifier
	//
	// Returns:
	//   - Entry: the registered entry
	//   - error: ErrUnknownParameter if id is not registered
	Entry(id ID) (Entry, error)

	// Entries returns every entry in registration order. The returned slice is a copy.
	//
	// Returns:
	//   - []Entry: all entries
	Entries() []Entry

	// Children returns the entries nested directly under parent, in registration order. Pass NoParent for the
	// top level.
	//
	// Parameters:
	//   - parent: the group header identifier or NoParent
	//
	// Returns:
	//   - []Entry: the direct children
	Children(parent ID) []Entry

	// Lookup returns the entry bound to a state field.
	//
	// Parameters:
	//   - field: the state field
	//
	// Returns:
	//   - Entry: the entry bound to field
	//   - bool: false if no entry carries the field
	Lookup(field Field) (Entry, bool)

	// LookupName returns the entry with the given machine name.
	//
	// Parameters:
	//   - name: the machine name, e.g. "gaussian_radius"
	//
	// Returns:
	//   - Entry: the named entry
	//   - bool: false if no entry has the name
	LookupName(name string) (Entry, bool)
}

var _ Registry = &registry{}

// NewRegistry builds and validates a registry from entries given in registration order. Identifiers, names and
// bound fields must be unique, identifier 0 is reserved for NoParent, scalar defaults must lie inside their range,
// enums need at least one option and an in-range default, and every parent must be a group header registered
// earlier in the list.
//
// Parameters:
//   - entries: the registry rows
//
// Returns:
//   - Registry: the validated registry
//   - error: ErrInvalidRegistry wrapped with the offending entry
func NewRegistry(entries ...Entry) (Registry, error) {
	r := &registry{
		entries: make([]Entry, 0, len(entries)),
		byID:    make(map[ID]int, len(entries)),
		byField: make(map[Field]int, len(entries)),
		byName:  make(map[string]int, len(entries)),
	}

	for _, e := range entries {
		if err := r.add(e); err != nil {
			return nil, fmt.Errorf("%w: entry %d (%s): %w", ErrInvalidRegistry, e.ID, e.Name, err)
		}
	}
	return r, nil
}

func (r *registry) add(e Entry) error {
	if e.ID == NoParent {
		return errors.New("identifier 0 is reserved")
	}
	if e.Name == "" {
		return errors.New("missing name")
	}
	if e.Role == nil {
		return errors.New("missing role")
	}
	if _, ok := r.byID[e.ID]; ok {
		return errors.New("duplicate identifier")
	}
	if _, ok := r.byName[e.Name]; ok {
		return errors.New("duplicate name")
	}

	switch role := e.Role.(type) {
	case Scalar:
		if !role.Range.valid() {
			return fmt.Errorf("invalid range [%g, %g] default %g", role.Range.Min, role.Range.Max, role.Range.Default)
		}
	case Enum:
		if len(role.Options) == 0 {
			return errors.New("enum has no options")
		}
		if role.Default < 0 || role.Default >= len(role.Options) {
			return fmt.Errorf("enum default %d out of range", role.Default)
		}
	}

	field, bound := FieldOf(e.Role)
	if bound {
		if _, ok := r.byField[field]; ok {
			return fmt.Errorf("field %s already bound", field)
		}
	}

	if e.Parent != NoParent {
		idx, ok := r.byID[e.Parent]
		if !ok {
			return fmt.Errorf("parent %d not registered before child", e.Parent)
		}
		if r.entries[idx].Role.Kind() != RoleGroup {
			return fmt.Errorf("parent %d is not a group header", e.Parent)
		}
	}

	idx := len(r.entries)
	r.entries = append(r.entries, e.clone())
	r.byID[e.ID] = idx
	r.byName[e.Name] = idx
	if bound {
		r.byField[field] = idx
	}
	return nil
}

func (r *registry) RoleOf(id ID) (Role, error) {
	e, err := r.Entry(id)
	if err != nil {
		return nil, err
	}
	return e.Role, nil
}

func (r *registry) RangeOf(id ID) (Range, error) {
	e, err := r.Entry(id)
	if err != nil {
		return Range{}, err
	}
	s, ok := e.Role.(Scalar)
	if !ok {
		return Range{}, fmt.Errorf("%w: %d (%s) is a %s", ErrNotScalar, id, e.Name, e.Role.Kind())
	}
	return s.Range, nil
}

func (r *registry) Entry(id ID) (Entry, error) {
	idx, ok := r.byID[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %d", ErrUnknownParameter, id)
	}
	return r.entries[idx].clone(), nil
}

func (r *registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.clone()
	}
	return out
}

func (r *registry) Children(parent ID) []Entry {
	var out []Entry
	for _, e := range r.entries {
		if e.Parent == parent {
			out = append(out, e.clone())
		}
	}
	return out
}

func (r *registry) Lookup(field Field) (Entry, bool) {
	idx, ok := r.byField[field]
	if !ok {
		return Entry{}, false
	}
	return r.entries[idx].clone(), true
}

func (r *registry) LookupName(name string) (Entry, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return Entry{}, false
	}
	return r.entries[idx].clone(), true
}

var defaultRegistry = sync.OnceValue(func() Registry {
	r, err := NewRegistry(DefaultEntries()...)
	if err != nil {
		panic(err)
	}
	return r
})

// Default returns the shared built-in registry. It panics if the built-in table is inconsistent.
func Default() Registry {
	return defaultRegistry()
}
