// Package app wires the service layer to every state container and is
// passed down explicitly to the views.
package app

import (
	"context"
	"sync"

	"github.com/iksnae/hospital-console/internal/api"
	"github.com/iksnae/hospital-console/internal/chat"
	"github.com/iksnae/hospital-console/internal/store"
)

type (
	Users = store.CRUD[api.User, api.UserInput]
	Wards = store.CRUD[api.Ward, api.WardInput]
	Beds  = store.CRUD[api.Bed, api.BedInput]
)

// App holds the containers of one console session.
type App struct {
	Client *api.Client
	Users  *Users
	Wards  *Wards
	Beds   *Beds
	Logs   *store.Logs
	Chat   *chat.State

	mu        sync.RWMutex
	token     string
	bedFilter api.BedFilter
}

// New builds an App on top of client. opts configure the chat container.
func New(client *api.Client, token string, opts ...chat.Option) *App {
	a := &App{Client: client, token: token}

	a.Users = store.NewCRUD("users", store.Endpoints[api.User, api.UserInput]{
		List:   client.ListUsers,
		Get:    client.GetUser,
		Create: client.CreateUser,
		Update: client.UpdateUser,
		Delete: client.DeleteUser,
	}, a.Token)

	a.Wards = store.NewCRUD("wards", store.Endpoints[api.Ward, api.WardInput]{
		List:   client.ListWards,
		Get:    client.GetWard,
		Create: client.CreateWard,
		Update: client.UpdateWard,
		Delete: client.DeleteWard,
	}, a.Token)

	a.Beds = store.NewCRUD("beds", store.Endpoints[api.Bed, api.BedInput]{
		List:   a.listBeds,
		Get:    client.GetBed,
		Create: client.CreateBed,
		Update: client.UpdateBed,
		Delete: client.DeleteBed,
	}, a.Token)

	a.Logs = store.NewLogs(client, a.Token)
	a.Chat = chat.NewState(client, a.Token, opts...)
	return a
}

// Token returns the bearer token used for every call.
func (a *App) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// SetToken replaces the bearer token.
func (a *App) SetToken(token string) {
	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
}

// SetBedFilter narrows what Beds.FetchAll loads.
func (a *App) SetBedFilter(f api.BedFilter) {
	a.mu.Lock()
	a.bedFilter = f
	a.mu.Unlock()
}

func (a *App) listBeds(ctx context.Context, token string) ([]api.Bed, error) {
	a.mu.RLock()
	f := a.bedFilter
	a.mu.RUnlock()
	return a.Client.ListBeds(ctx, token, f)
}

// Close releases resources held by the containers.
func (a *App) Close() error {
	return a.Chat.Close()
}
