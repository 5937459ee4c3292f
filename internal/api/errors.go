package api

import (
	"errors"
	"fmt"
)

// Kind classifies every failure the service layer can report.
type Kind string

const (
	KindAuthMissing Kind = "auth_missing"
	KindValidation  Kind = "validation"
	KindServer      Kind = "server"
	KindNetwork     Kind = "network"
	KindRequest     Kind = "request"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrAuthMissing = &Error{Kind: KindAuthMissing}
	ErrValidation  = &Error{Kind: KindValidation}
	ErrServer      = &Error{Kind: KindServer}
	ErrNetwork     = &Error{Kind: KindNetwork}
	ErrRequest     = &Error{Kind: KindRequest}
)

// Error is the single error shape produced at the REST boundary.
type Error struct {
	Kind    Kind
	Op      string // e.g. "users.list"
	Status  int    // HTTP status for KindServer
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Status != 0:
		return fmt.Sprintf("%s error [%s] %d: %s", e.Kind, e.Op, e.Status, msg)
	case e.Op != "":
		return fmt.Sprintf("%s error [%s]: %s", e.Kind, e.Op, msg)
	default:
		return fmt.Sprintf("%s error: %s", e.Kind, msg)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports kind equality so callers can write errors.Is(err, api.ErrNetwork).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// KindOf returns the kind of err, or "" if err did not come from this package.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

var errInvalidJSON = errors.New("response is not valid JSON")

func authMissing(op string) *Error {
	return &Error{Kind: KindAuthMissing, Op: op, Message: "no bearer token supplied"}
}

func validation(op, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: msg}
}

func requestErr(op string, err error) *Error {
	return &Error{Kind: KindRequest, Op: op, Err: err}
}

func networkErr(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Message: "no response from server", Err: err}
}

// Validate is the check every call makes before touching the network:
// a missing token first, then a blank required value.
func Validate(op, token, name, value string) error {
	return precheck(op, token, name, ID(value))
}

// LocalError classifies a failure that happened on this side of the
// boundary after a response was received.
func LocalError(op string, err error) *Error {
	return requestErr(op, err)
}
