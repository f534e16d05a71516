// Package roomtype provides the catalog of room types a dungeon graph may use.
package roomtype

import (
	"errors"
	"fmt"
)

// Descriptor describes one room type. It is immutable once loaded and is
// referenced, never owned, by graph nodes.
type Descriptor struct {
	// ID uniquely identifies this type within a registry.
	ID string
	// Name is the label shown in the editor's type picker.
	Name string
	// IsNone marks the placeholder type assigned to unconfigured nodes.
	IsNone bool
	// IsEntrance marks the root type of a dungeon.
	IsEntrance bool
	// IsBossRoom marks the type limited to a single connected instance per graph.
	IsBossRoom bool
	// IsCorridor marks connector segments between rooms.
	IsCorridor bool
	// Displayable reports whether the editor offers this type for selection.
	Displayable bool
}

// Entry is an (id, name) pair offered by the editor's type picker.
type Entry struct {
	ID   string
	Name string
}

// Registry is an ordered, read-only catalog of room types.
type Registry struct {
	types []*Descriptor
	byID  map[string]*Descriptor
}

// NewRegistry builds a Registry preserving the given order.
//
// Precondition: every descriptor is non-nil with a non-empty, unique ID.
// Postcondition: Returns a Registry or an error naming the first violation.
func NewRegistry(types []*Descriptor) (*Registry, error) {
	if len(types) == 0 {
		return nil, errors.New("room type registry must contain at least one type")
	}
	r := &Registry{
		types: make([]*Descriptor, 0, len(types)),
		byID:  make(map[string]*Descriptor, len(types)),
	}
	for i, d := range types {
		if d == nil {
			return nil, fmt.Errorf("room type %d is nil", i)
		}
		if d.ID == "" {
			return nil, fmt.Errorf("room type %d: id must not be empty", i)
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate room type id %q", d.ID)
		}
		r.types = append(r.types, d)
		r.byID[d.ID] = d
	}
	return r, nil
}

// FindByFlag returns the first descriptor, in list order, matching pred.
//
// Postcondition: Returns (descriptor, true) on a match, or (nil, false) otherwise.
func (r *Registry) FindByFlag(pred func(*Descriptor) bool) (*Descriptor, bool) {
	for _, d := range r.types {
		if pred(d) {
			return d, true
		}
	}
	return nil, false
}

// Lookup returns the descriptor with the given ID.
func (r *Registry) Lookup(id string) (*Descriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// None returns the first placeholder type.
func (r *Registry) None() (*Descriptor, bool) {
	return r.FindByFlag(func(d *Descriptor) bool { return d.IsNone })
}

// Entrance returns the first entrance type.
func (r *Registry) Entrance() (*Descriptor, bool) {
	return r.FindByFlag(func(d *Descriptor) bool { return d.IsEntrance })
}

// DisplayableEntries returns the types offered by the editor's picker, in list order.
//
// Postcondition: Returns a non-nil slice; may be empty.
func (r *Registry) DisplayableEntries() []Entry {
	entries := make([]Entry, 0, len(r.types))
	for _, d := range r.types {
		if d.Displayable {
			entries = append(entries, Entry{ID: d.ID, Name: d.Name})
		}
	}
	return entries
}

// All returns a copy of the ordered descriptor list.
func (r *Registry) All() []*Descriptor {
	out := make([]*Descriptor, len(r.types))
	copy(out, r.types)
	return out
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	return len(r.types)
}
