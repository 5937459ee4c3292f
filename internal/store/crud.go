package store

import (
	"context"

	"github.com/iksnae/hospital-console/internal/api"
)

// Endpoints binds a CRUD container to the service layer.
type Endpoints[T Entity, In any] struct {
	List   func(ctx context.Context, token string) ([]T, error)
	Get    func(ctx context.Context, token string, id api.ID) (T, error)
	Create func(ctx context.Context, token string, in In) (T, error)
	Update func(ctx context.Context, token string, id api.ID, in In) (T, error)
	Delete func(ctx context.Context, token string, id api.ID) error
}

// CRUD is a Resource driven by the five standard REST operations.
type CRUD[T Entity, In any] struct {
	*Resource[T]
	ep    Endpoints[T, In]
	token func() string
}

// NewCRUD creates a CRUD container. token is read on every dispatch.
func NewCRUD[T Entity, In any](name string, ep Endpoints[T, In], token func() string) *CRUD[T, In] {
	return &CRUD[T, In]{Resource: NewResource[T](name), ep: ep, token: token}
}

// FetchAll replaces the collection with the server's.
func (c *CRUD[T, In]) FetchAll(ctx context.Context) ([]T, error) {
	return Dispatch(ctx, &c.Status, c.Action("fetchAll"),
		func(ctx context.Context) ([]T, error) { return c.ep.List(ctx, c.token()) },
		c.replace)
}

// Fetch loads one item into the selected slot.
func (c *CRUD[T, In]) Fetch(ctx context.Context, id api.ID) (T, error) {
	return Dispatch(ctx, &c.Status, c.Action("fetchOne"),
		func(ctx context.Context) (T, error) { return c.ep.Get(ctx, c.token(), id) },
		c.selectItem)
}

// Create inserts the created item.
func (c *CRUD[T, In]) Create(ctx context.Context, in In) (T, error) {
	return Dispatch(ctx, &c.Status, c.Action("create"),
		func(ctx context.Context) (T, error) { return c.ep.Create(ctx, c.token(), in) },
		c.insert)
}

// Update splices the updated item in by id.
func (c *CRUD[T, In]) Update(ctx context.Context, id api.ID, in In) (T, error) {
	return Dispatch(ctx, &c.Status, c.Action("update"),
		func(ctx context.Context) (T, error) { return c.ep.Update(ctx, c.token(), id, in) },
		c.splice)
}

// Delete removes the item by id once the server confirms.
func (c *CRUD[T, In]) Delete(ctx context.Context, id api.ID) error {
	_, err := Dispatch(ctx, &c.Status, c.Action("delete"),
		func(ctx context.Context) (api.ID, error) { return id, c.ep.Delete(ctx, c.token(), id) },
		c.drop)
	return err
}
