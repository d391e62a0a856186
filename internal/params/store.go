package params

import (
	"errors"
	"fmt"
	"sort"
)

// Category names the only writer allowed to change a parameter.
type Category int

const (
	// Static parameters are set at construction or by loader continuations.
	Static Category = iota
	// Animated parameters are recomputed by the frame scheduler every tick.
	Animated
	// Tunable parameters are written by the debug panel.
	Tunable
)

func (c Category) String() string {
	switch c {
	case Static:
		return "static"
	case Animated:
		return "animated"
	case Tunable:
		return "tunable"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

var (
	ErrUnknownParam   = errors.New("unknown shader parameter")
	ErrDuplicateParam = errors.New("shader parameter already declared")
	ErrWrongWriter    = errors.New("writer not allowed for parameter category")
	ErrNotTunable     = errors.New("parameter is not tunable")
	ErrNotAnimated    = errors.New("parameter is not animated")
	ErrNonFinite      = errors.New("non-finite parameter value")
	ErrKindMismatch   = errors.New("parameter value kind mismatch")
)

// Driver computes an animated value from the seconds elapsed since the frame
// loop started.
type Driver func(elapsed float64) Value

// ElapsedSeconds is the default animated driver.
func ElapsedSeconds(elapsed float64) Value {
	return Float(elapsed)
}

type key struct {
	material string
	name     string
}

type entry struct {
	category Category
	value    Value
	driver   Driver
}

// Store holds every uniform value of every material. It is owned by the
// render thread: loader continuations, panel callbacks and the tick all run
// there, so there is no locking.
type Store struct {
	entries map[key]*entry
	order   []key // declaration order, keeps Advance deterministic
}

func NewStore() *Store {
	return &Store{entries: make(map[key]*entry)}
}

// Declare registers a static or tunable parameter with its initial value.
func (s *Store) Declare(materialID, name string, category Category, value Value) error {
	if category == Animated {
		return s.DeclareAnimated(materialID, name, nil)
	}
	if !finite(value) {
		return fmt.Errorf("%s.%s: %w", materialID, name, ErrNonFinite)
	}
	return s.declare(materialID, name, &entry{category: category, value: value})
}

// DeclareAnimated registers a parameter recomputed every tick. A nil driver
// means ElapsedSeconds.
func (s *Store) DeclareAnimated(materialID, name string, driver Driver) error {
	if driver == nil {
		driver = ElapsedSeconds
	}
	return s.declare(materialID, name, &entry{category: Animated, value: driver(0), driver: driver})
}

func (s *Store) declare(materialID, name string, e *entry) error {
	k := key{materialID, name}
	if _, exists := s.entries[k]; exists {
		return fmt.Errorf("%s.%s: %w", materialID, name, ErrDuplicateParam)
	}
	s.entries[k] = e
	s.order = append(s.order, k)
	return nil
}

// Set writes a value on behalf of writer. The write is refused unless the
// writer matches the parameter's category.
func (s *Store) Set(writer Category, materialID, name string, value Value) error {
	e, ok := s.entries[key{materialID, name}]
	if !ok {
		return fmt.Errorf("%s.%s: %w", materialID, name, ErrUnknownParam)
	}
	if e.category != writer {
		return fmt.Errorf("%s.%s is %s, written as %s: %w", materialID, name, e.category, writer, ErrWrongWriter)
	}
	if !finite(value) {
		return fmt.Errorf("%s.%s: %w", materialID, name, ErrNonFinite)
	}
	if e.value != nil && !sameKind(e.value, value) {
		return fmt.Errorf("%s.%s: %w", materialID, name, ErrKindMismatch)
	}
	e.value = value
	return nil
}

// Get returns the current value of a parameter.
func (s *Store) Get(materialID, name string) (Value, bool) {
	e, ok := s.entries[key{materialID, name}]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Category reports the writer category of a parameter.
func (s *Store) Category(materialID, name string) (Category, bool) {
	e, ok := s.entries[key{materialID, name}]
	if !ok {
		return 0, false
	}
	return e.category, true
}

// Float is a convenience reader for scalar parameters.
func (s *Store) Float(materialID, name string) (float32, bool) {
	v, ok := s.Get(materialID, name)
	if !ok {
		return 0, false
	}
	f, ok := v.(Float)
	return float32(f), ok
}

// Advance recomputes every animated parameter. Only the frame scheduler
// calls it.
func (s *Store) Advance(elapsed float64) {
	for _, k := range s.order {
		e := s.entries[k]
		if e.category != Animated {
			continue
		}
		v := e.driver(elapsed)
		if !finite(v) {
			continue
		}
		e.value = v
	}
}

// Drive swaps the driver of an animated parameter.
func (s *Store) Drive(materialID, name string, driver Driver) error {
	e, ok := s.entries[key{materialID, name}]
	if !ok {
		return fmt.Errorf("%s.%s: %w", materialID, name, ErrUnknownParam)
	}
	if e.category != Animated {
		return fmt.Errorf("%s.%s: %w", materialID, name, ErrNotAnimated)
	}
	if driver == nil {
		driver = ElapsedSeconds
	}
	e.driver = driver
	return nil
}

// Each visits the parameters of one material in name order.
func (s *Store) Each(materialID string, fn func(name string, value Value)) {
	names := make([]string, 0, 8)
	for _, k := range s.order {
		if k.material == materialID {
			names = append(names, k.name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fn(name, s.entries[key{materialID, name}].value)
	}
}

// Remove drops every parameter of a material, used when the material is
// disposed.
func (s *Store) Remove(materialID string) {
	kept := s.order[:0]
	for _, k := range s.order {
		if k.material == materialID {
			delete(s.entries, k)
			continue
		}
		kept = append(kept, k)
	}
	s.order = kept
}

// Ref is a handle to a single parameter, handed to the debug panel.
type Ref struct {
	store    *Store
	Material string
	Name     string
}

// Ref returns a handle to a tunable parameter.
func (s *Store) Ref(materialID, name string) (Ref, error) {
	e, ok := s.entries[key{materialID, name}]
	if !ok {
		return Ref{}, fmt.Errorf("%s.%s: %w", materialID, name, ErrUnknownParam)
	}
	if e.category != Tunable {
		return Ref{}, fmt.Errorf("%s.%s: %w", materialID, name, ErrNotTunable)
	}
	return Ref{store: s, Material: materialID, Name: name}, nil
}

func (r Ref) Get() (Value, bool) {
	if r.store == nil {
		return nil, false
	}
	return r.store.Get(r.Material, r.Name)
}

// Set writes through the handle as the panel writer.
func (r Ref) Set(v Value) error {
	if r.store == nil {
		return fmt.Errorf("%s.%s: %w", r.Material, r.Name, ErrUnknownParam)
	}
	return r.store.Set(Tunable, r.Material, r.Name, v)
}

func (r Ref) String() string {
	return r.Material + "." + r.Name
}
