package store

import (
	"context"

	"github.com/iksnae/hospital-console/internal/api"
)

// LogService is the part of the service layer the logs container needs.
type LogService interface {
	ListLogs(ctx context.Context, token string, f api.LogFilter) ([]api.SystemLog, error)
	GetLog(ctx context.Context, token string, id api.ID) (api.SystemLog, error)
	DeleteLog(ctx context.Context, token string, id api.ID) error
}

// Logs is the system log container. Logs are read-mostly: list with a
// filter, view one, delete one.
type Logs struct {
	*Resource[api.SystemLog]
	svc    LogService
	token  func() string
	filter api.LogFilter
}

// NewLogs creates the logs container.
func NewLogs(svc LogService, token func() string) *Logs {
	return &Logs{Resource: NewResource[api.SystemLog]("logs"), svc: svc, token: token}
}

// Filter returns the filter used by the last FetchAll.
func (l *Logs) Filter() api.LogFilter {
	var f api.LogFilter
	l.View(func() { f = l.filter })
	return f
}

// FetchAll replaces the collection with logs matching f.
func (l *Logs) FetchAll(ctx context.Context, f api.LogFilter) ([]api.SystemLog, error) {
	return Dispatch(ctx, &l.Status, l.Action("fetchAll"),
		func(ctx context.Context) ([]api.SystemLog, error) { return l.svc.ListLogs(ctx, l.token(), f) },
		func(logs []api.SystemLog) {
			l.filter = f
			l.replace(logs)
		})
}

// Fetch loads one log entry into the selected slot.
func (l *Logs) Fetch(ctx context.Context, id api.ID) (api.SystemLog, error) {
	return Dispatch(ctx, &l.Status, l.Action("fetchOne"),
		func(ctx context.Context) (api.SystemLog, error) { return l.svc.GetLog(ctx, l.token(), id) },
		l.selectItem)
}

// Delete removes one log entry.
func (l *Logs) Delete(ctx context.Context, id api.ID) error {
	_, err := Dispatch(ctx, &l.Status, l.Action("delete"),
		func(ctx context.Context) (api.ID, error) { return id, l.svc.DeleteLog(ctx, l.token(), id) },
		l.drop)
	return err
}
