package profile

import (
	"fmt"

	"github.com/uccd-project/uccd/internal/ucerr"
)

// catalogItem is implemented by *Profile, *FanProfile, and
// *KeyboardProfile so one generic catalog type can hold built-ins plus
// mutable customs for all three (§4.7: "same shape instantiated for
// fan profiles and keyboard profiles").
type catalogItem interface {
	GetID() string
	SetID(id string)
	GetBuiltin() bool
}

// catalog holds a fixed built-in table plus a mutable custom list.
// Every operation here is called under the engine's single exclusive
// lock; catalog itself holds no lock of its own.
type catalog[T catalogItem] struct {
	builtins []T
	customs  []T
}

func newCatalog[T catalogItem](builtins []T) *catalog[T] {
	return &catalog[T]{builtins: builtins}
}

// List returns built-ins first, then customs, per §4.7.
func (c *catalog[T]) List() []T {
	out := make([]T, 0, len(c.builtins)+len(c.customs))
	out = append(out, c.builtins...)
	out = append(out, c.customs...)
	return out
}

// Get finds an entry by id among built-ins and customs.
func (c *catalog[T]) Get(id string) (T, bool) {
	for _, b := range c.builtins {
		if b.GetID() == id {
			return b, true
		}
	}
	for _, cu := range c.customs {
		if cu.GetID() == id {
			return cu, true
		}
	}
	var zero T
	return zero, false
}

func (c *catalog[T]) exists(id string) bool {
	_, ok := c.Get(id)
	return ok
}

// Customs returns a copy of just the custom (non-builtin) entries, the
// slice that gets persisted.
func (c *catalog[T]) Customs() []T {
	return append([]T(nil), c.customs...)
}

// SetCustoms replaces the custom entries wholesale; used to load a
// persisted catalog at startup.
func (c *catalog[T]) SetCustoms(items []T) {
	c.customs = append([]T(nil), items...)
}

// CreateCustom validates uniqueness, assigns a fresh id via genID if
// item's id is empty or already taken, appends it, and returns the
// stored item.
func (c *catalog[T]) CreateCustom(item T, genID func() string) (T, error) {
	if item.GetBuiltin() {
		var zero T
		return zero, ucerr.New(ucerr.InvalidArgument, "catalog.CreateCustom", fmt.Errorf("cannot create an entry marked builtin"))
	}
	if item.GetID() == "" || c.exists(item.GetID()) {
		item.SetID(genID())
	}
	c.customs = append(c.customs, item)
	return item, nil
}

// UpdateCustom replaces the custom entry with id, forcing the
// replacement's id to match (callers must not smuggle in a different
// id via the update body). Fails if id is a built-in or unknown.
func (c *catalog[T]) UpdateCustom(id string, item T) error {
	for _, b := range c.builtins {
		if b.GetID() == id {
			return ucerr.New(ucerr.InvalidArgument, "catalog.UpdateCustom", fmt.Errorf("%s is a built-in entry and cannot be updated", id))
		}
	}
	for i, cu := range c.customs {
		if cu.GetID() == id {
			item.SetID(id)
			c.customs[i] = item
			return nil
		}
	}
	return ucerr.New(ucerr.NotFound, "catalog.UpdateCustom", fmt.Errorf("no custom entry with id %s", id))
}

// DeleteCustom removes the custom entry with id. referenced reports
// whether some other state (active profile, state map, a profile's
// fan/keyboard binding) still points at id; if so the delete is
// refused per §4.7's referential-integrity rule.
func (c *catalog[T]) DeleteCustom(id string, referenced func(id string) bool) error {
	for _, b := range c.builtins {
		if b.GetID() == id {
			return ucerr.New(ucerr.InvalidArgument, "catalog.DeleteCustom", fmt.Errorf("%s is a built-in entry and cannot be deleted", id))
		}
	}
	if referenced != nil && referenced(id) {
		return ucerr.New(ucerr.Conflict, "catalog.DeleteCustom", fmt.Errorf("%s is still referenced and cannot be deleted", id))
	}
	for i, cu := range c.customs {
		if cu.GetID() == id {
			c.customs = append(c.customs[:i], c.customs[i+1:]...)
			return nil
		}
	}
	return ucerr.New(ucerr.NotFound, "catalog.DeleteCustom", fmt.Errorf("no custom entry with id %s", id))
}
