package store

import "github.com/iksnae/hospital-console/internal/api"

// Entity is anything a Resource can key by id.
type Entity interface {
	EntityID() api.ID
}

// Resource is a collection container: items, one selected item and the
// shared Status. The mutators below are meant to run inside Fulfill.
type Resource[T Entity] struct {
	Status
	name     string
	items    []T
	selected *T
}

// NewResource creates an empty Resource named after its REST collection.
func NewResource[T Entity](name string) *Resource[T] {
	return &Resource[T]{name: name, items: []T{}}
}

// Name returns the container name used as action prefix.
func (r *Resource[T]) Name() string {
	return r.name
}

// Action builds the action type for op, e.g. "wards/update".
func (r *Resource[T]) Action(op string) string {
	return r.name + "/" + op
}

// Items returns a copy of the collection.
func (r *Resource[T]) Items() []T {
	var out []T
	r.View(func() {
		out = make([]T, len(r.items))
		copy(out, r.items)
	})
	return out
}

// Selected returns the selected item, if any.
func (r *Resource[T]) Selected() (T, bool) {
	var (
		out T
		ok  bool
	)
	r.View(func() {
		if r.selected != nil {
			out, ok = *r.selected, true
		}
	})
	return out, ok
}

// Find looks an item up by id.
func (r *Resource[T]) Find(id api.ID) (T, bool) {
	var (
		out T
		ok  bool
	)
	r.View(func() {
		if i := r.indexOf(id); i >= 0 {
			out, ok = r.items[i], true
		}
	})
	return out, ok
}

func (r *Resource[T]) indexOf(id api.ID) int {
	for i, item := range r.items {
		if item.EntityID() == id {
			return i
		}
	}
	return -1
}

// replace swaps the whole collection (fetch-all).
func (r *Resource[T]) replace(items []T) {
	if items == nil {
		items = []T{}
	}
	r.items = items
}

// selectItem fills the selected slot (fetch-one) and refreshes the
// matching collection entry if there is one.
func (r *Resource[T]) selectItem(item T) {
	r.selected = &item
	if i := r.indexOf(item.EntityID()); i >= 0 {
		r.items[i] = item
	}
}

// insert appends a created item.
func (r *Resource[T]) insert(item T) {
	r.items = append(r.items, item)
}

// splice replaces the item with the same id (update).
func (r *Resource[T]) splice(item T) {
	id := item.EntityID()
	if i := r.indexOf(id); i >= 0 {
		r.items[i] = item
	}
	if r.selected != nil && (*r.selected).EntityID() == id {
		r.selected = &item
	}
}

// drop removes the item with id (delete) and clears the selection if it
// pointed at it.
func (r *Resource[T]) drop(id api.ID) {
	if i := r.indexOf(id); i >= 0 {
		r.items = append(r.items[:i:i], r.items[i+1:]...)
	}
	if r.selected != nil && (*r.selected).EntityID() == id {
		r.selected = nil
	}
}

