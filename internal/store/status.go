// Package store holds the in-memory state containers behind every view.
// Each container records the lifecycle of its asynchronous actions in a
// uniform pending / fulfilled / rejected pattern.
package store

import (
	"context"
	"sync"

	"github.com/iksnae/hospital-console/internal"
)

// Phase is the lifecycle stage of an asynchronous action.
type Phase int

const (
	Pending Phase = iota
	Fulfilled
	Rejected
)

func (p Phase) String() string {
	switch p {
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Status is the loading/error pair every container carries. Its lock also
// guards the container's own data: mutations run inside Fulfill or Update,
// reads inside View.
type Status struct {
	mu      sync.RWMutex
	loading bool
	err     error
	last    string
	phase   Phase
}

// Loading reports whether an action is in flight.
func (s *Status) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the error recorded by the last rejected action, if any.
func (s *Status) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// LastAction returns the type of the most recent transition, e.g.
// "users/fetchAll/fulfilled".
func (s *Status) LastAction() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == "" {
		return ""
	}
	return s.last + "/" + s.phase.String()
}

// Begin records the pending phase.
func (s *Status) Begin(action string) {
	s.mu.Lock()
	s.loading = true
	s.err = nil
	s.last, s.phase = action, Pending
	s.mu.Unlock()
	internal.LogDebug("%s/pending", action)
}

// Fulfill records the fulfilled phase and applies the state change under
// the same lock.
func (s *Status) Fulfill(action string, apply func()) {
	s.mu.Lock()
	s.loading = false
	s.last, s.phase = action, Fulfilled
	if apply != nil {
		apply()
	}
	s.mu.Unlock()
	internal.LogDebug("%s/fulfilled", action)
}

// Reject records the rejected phase.
func (s *Status) Reject(action string, err error) {
	s.mu.Lock()
	s.loading = false
	s.err = err
	s.last, s.phase = action, Rejected
	s.mu.Unlock()
	internal.LogDebug("%s/rejected: %v", action, err)
}

// Update mutates container data outside the async lifecycle.
func (s *Status) Update(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// View reads container data under the read lock.
func (s *Status) View(fn func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

// ClearError drops a recorded error, e.g. after a view has shown it.
func (s *Status) ClearError() {
	s.mu.Lock()
	s.err = nil
	s.mu.Unlock()
}

// Dispatch runs call as one asynchronous action against s. The outcome is
// always recorded; the error is returned as well so call sites can react.
// Concurrent dispatches are not coalesced: whichever settles last wins.
func Dispatch[R any](ctx context.Context, s *Status, action string, call func(context.Context) (R, error), apply func(R)) (R, error) {
	s.Begin(action)
	res, err := call(ctx)
	if err != nil {
		s.Reject(action, err)
		return res, err
	}
	s.Fulfill(action, func() {
		if apply != nil {
			apply(res)
		}
	})
	return res, nil
}
