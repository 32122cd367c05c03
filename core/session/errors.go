package session

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

var (
	// ErrUnauthorized is returned by authenticated calls rejected with 401; the Session is logged out by then.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAuthenticationFailed is returned by Login when the backend refuses the credentials.
	ErrAuthenticationFailed = errors.New("invalid username or password")
	// ErrUnexpectedStatus is the cause of failures other than 401 reported by the backend.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// Kind classifies why a Session operation failed.
type Kind int

const (
	KindUnexpected Kind = iota
	KindNetwork         // no response at all
	KindAuth            // bad credentials or expired token
	KindValidation      // the backend refused the payload
	KindNotFound
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindServer:
		return "server"
	default:
		return "unexpected"
	}
}

// Error is the failure of a Session operation.
type Error struct {
	Op     string // e.g. "createTeacher"
	Kind   Kind
	Status int // 0 when no response was received
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (%d %s)", e.Op, e.Err, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of a Session error, KindUnexpected for any other non-nil error.
func KindOf(err error) Kind {
	var sErr *Error
	if errors.As(err, &sErr) {
		return sErr.Kind
	}
	return KindUnexpected
}

// StatusOf returns the HTTP status that made a Session operation fail, 0 if there was none.
func StatusOf(err error) int {
	var sErr *Error
	if errors.As(err, &sErr) {
		return sErr.Status
	}
	return 0
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusBadRequest, status == http.StatusConflict, status == http.StatusUnprocessableEntity:
		return KindValidation
	case status >= 500:
		return KindServer
	default:
		return KindUnexpected
	}
}

func statusError(op string, status int) *Error {
	return &Error{Op: op, Kind: kindForStatus(status), Status: status, Err: ErrUnexpectedStatus}
}
