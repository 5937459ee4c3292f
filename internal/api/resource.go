package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// endpoint describes one REST collection, e.g. /api/users with items
// optionally wrapped as {"users": [...]} / {"user": {...}}.
type endpoint struct {
	name    string // op prefix, e.g. "users"
	path    string
	listKey string
	itemKey string
	idName  string
}

func (e endpoint) op(action string) string {
	return e.name + "." + action
}

func list[T any](ctx context.Context, c *Client, token string, e endpoint, q url.Values) ([]T, error) {
	op := e.op("list")
	data, err := c.do(ctx, token, call{op: op, method: http.MethodGet, path: e.path, query: q})
	if err != nil {
		return nil, err
	}
	return decodeList[T](op, data, e.listKey)
}

func get[T any](ctx context.Context, c *Client, token string, e endpoint, id ID) (T, error) {
	op := e.op("get")
	var zero T
	if err := precheck(op, token, e.idName, id); err != nil {
		return zero, err
	}
	data, err := c.do(ctx, token, call{op: op, method: http.MethodGet, path: idPath(e.path, id)})
	if err != nil {
		return zero, err
	}
	return decodeItem[T](op, data, e.itemKey)
}

func create[T any](ctx context.Context, c *Client, token string, e endpoint, in any) (T, error) {
	op := e.op("create")
	data, err := c.do(ctx, token, call{op: op, method: http.MethodPost, path: e.path, body: in})
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeItem[T](op, data, e.itemKey)
}

func update[T any](ctx context.Context, c *Client, token string, e endpoint, id ID, in any) (T, error) {
	op := e.op("update")
	var zero T
	if err := precheck(op, token, e.idName, id); err != nil {
		return zero, err
	}
	data, err := c.do(ctx, token, call{op: op, method: http.MethodPut, path: idPath(e.path, id), body: in})
	if err != nil {
		return zero, err
	}
	return decodeItem[T](op, data, e.itemKey)
}

func remove(ctx context.Context, c *Client, token string, e endpoint, id ID) error {
	op := e.op("delete")
	if err := precheck(op, token, e.idName, id); err != nil {
		return err
	}
	_, err := c.do(ctx, token, call{op: op, method: http.MethodDelete, path: idPath(e.path, id)})
	return err
}

var (
	usersEndpoint = endpoint{name: "users", path: "/api/users", listKey: "users", itemKey: "user", idName: "user id"}
	wardsEndpoint = endpoint{name: "wards", path: "/api/wards", listKey: "wards", itemKey: "ward", idName: "ward id"}
	bedsEndpoint  = endpoint{name: "beds", path: "/api/beds", listKey: "beds", itemKey: "bed", idName: "bed id"}
	logsEndpoint  = endpoint{name: "logs", path: "/api/logs", listKey: "logs", itemKey: "log", idName: "log id"}
)

// ListUsers calls GET /api/users.
func (c *Client) ListUsers(ctx context.Context, token string) ([]User, error) {
	return list[User](ctx, c, token, usersEndpoint, nil)
}

// GetUser calls GET /api/users/{id}.
func (c *Client) GetUser(ctx context.Context, token string, id ID) (User, error) {
	return get[User](ctx, c, token, usersEndpoint, id)
}

// CreateUser calls POST /api/users.
func (c *Client) CreateUser(ctx context.Context, token string, in UserInput) (User, error) {
	if err := checkToken(usersEndpoint.op("create"), token); err != nil {
		return User{}, err
	}
	if in.Username == "" {
		return User{}, validation(usersEndpoint.op("create"), "username is required")
	}
	return create[User](ctx, c, token, usersEndpoint, in)
}

// UpdateUser calls PUT /api/users/{id}.
func (c *Client) UpdateUser(ctx context.Context, token string, id ID, in UserInput) (User, error) {
	return update[User](ctx, c, token, usersEndpoint, id, in)
}

// DeleteUser calls DELETE /api/users/{id}.
func (c *Client) DeleteUser(ctx context.Context, token string, id ID) error {
	return remove(ctx, c, token, usersEndpoint, id)
}

// ListWards calls GET /api/wards.
func (c *Client) ListWards(ctx context.Context, token string) ([]Ward, error) {
	return list[Ward](ctx, c, token, wardsEndpoint, nil)
}

// GetWard calls GET /api/wards/{id}.
func (c *Client) GetWard(ctx context.Context, token string, id ID) (Ward, error) {
	return get[Ward](ctx, c, token, wardsEndpoint, id)
}

// CreateWard calls POST /api/wards.
func (c *Client) CreateWard(ctx context.Context, token string, in WardInput) (Ward, error) {
	if err := checkToken(wardsEndpoint.op("create"), token); err != nil {
		return Ward{}, err
	}
	if in.Name == "" {
		return Ward{}, validation(wardsEndpoint.op("create"), "ward name is required")
	}
	return create[Ward](ctx, c, token, wardsEndpoint, in)
}

// UpdateWard calls PUT /api/wards/{id}.
func (c *Client) UpdateWard(ctx context.Context, token string, id ID, in WardInput) (Ward, error) {
	return update[Ward](ctx, c, token, wardsEndpoint, id, in)
}

// DeleteWard calls DELETE /api/wards/{id}.
func (c *Client) DeleteWard(ctx context.Context, token string, id ID) error {
	return remove(ctx, c, token, wardsEndpoint, id)
}

// ListBeds calls GET /api/beds, optionally filtered by ward and status.
func (c *Client) ListBeds(ctx context.Context, token string, f BedFilter) ([]Bed, error) {
	q := url.Values{}
	if f.WardID != "" {
		q.Set("ward_id", string(f.WardID))
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	return list[Bed](ctx, c, token, bedsEndpoint, q)
}

// GetBed calls GET /api/beds/{id}.
func (c *Client) GetBed(ctx context.Context, token string, id ID) (Bed, error) {
	return get[Bed](ctx, c, token, bedsEndpoint, id)
}

// CreateBed calls POST /api/beds.
func (c *Client) CreateBed(ctx context.Context, token string, in BedInput) (Bed, error) {
	op := bedsEndpoint.op("create")
	if err := checkToken(op, token); err != nil {
		return Bed{}, err
	}
	if in.Number == "" {
		return Bed{}, validation(op, "bed number is required")
	}
	if in.WardID == "" {
		return Bed{}, validation(op, "ward id is required")
	}
	return create[Bed](ctx, c, token, bedsEndpoint, in)
}

// UpdateBed calls PUT /api/beds/{id}.
func (c *Client) UpdateBed(ctx context.Context, token string, id ID, in BedInput) (Bed, error) {
	return update[Bed](ctx, c, token, bedsEndpoint, id, in)
}

// DeleteBed calls DELETE /api/beds/{id}.
func (c *Client) DeleteBed(ctx context.Context, token string, id ID) error {
	return remove(ctx, c, token, bedsEndpoint, id)
}

// ListLogs calls GET /api/logs.
func (c *Client) ListLogs(ctx context.Context, token string, f LogFilter) ([]SystemLog, error) {
	q := url.Values{}
	if f.Level != "" {
		q.Set("level", f.Level)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return list[SystemLog](ctx, c, token, logsEndpoint, q)
}

// GetLog calls GET /api/logs/{id}.
func (c *Client) GetLog(ctx context.Context, token string, id ID) (SystemLog, error) {
	return get[SystemLog](ctx, c, token, logsEndpoint, id)
}

// DeleteLog calls DELETE /api/logs/{id}.
func (c *Client) DeleteLog(ctx context.Context, token string, id ID) error {
	return remove(ctx, c, token, logsEndpoint, id)
}
