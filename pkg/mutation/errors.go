package mutation

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/marmos91/dittostore/pkg/enumerate"
	"github.com/marmos91/dittostore/pkg/store/object"
)

// ============================================================================
// Error Taxonomy
// ============================================================================

// Kind classifies a mutation failure.
type Kind string

const (
	// KindInvalidRequest: malformed or missing required field
	KindInvalidRequest Kind = "InvalidRequest"

	// KindIllegalMove: destination is the source or one of its descendants
	KindIllegalMove Kind = "IllegalMove"

	// KindNotFound: referenced key or version is absent
	KindNotFound Kind = "NotFound"

	// KindForbidden: the ACL collaborator refused the operation
	KindForbidden Kind = "Forbidden"

	// KindCollisionExhausted: no free destination name could be found
	KindCollisionExhausted Kind = "CollisionExhausted"
)

// Error is a structured mutation failure carrying the status code the
// routing layer should answer with.
//
// Sentinels below match any Error of the same Kind:
//
//	if errors.Is(err, mutation.ErrIllegalMove) { ... }
type Error struct {
	Kind   Kind
	Status int
	Msg    string

	// Err is the underlying cause, if any
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidRequest     = &Error{Kind: KindInvalidRequest, Status: http.StatusBadRequest, Msg: "invalid request"}
	ErrIllegalMove        = &Error{Kind: KindIllegalMove, Status: http.StatusBadRequest, Msg: "illegal move"}
	ErrNotFound           = &Error{Kind: KindNotFound, Status: http.StatusNotFound, Msg: "not found"}
	ErrForbidden          = &Error{Kind: KindForbidden, Status: http.StatusForbidden, Msg: "forbidden"}
	ErrCollisionExhausted = &Error{Kind: KindCollisionExhausted, Status: http.StatusInternalServerError, Msg: "collision attempts exhausted"}

	// ErrMalformedPayload is returned by Form constructors when the request
	// body cannot be decoded.
	ErrMalformedPayload = errors.New("malformed payload")
)

// newError builds an Error of the sentinel's kind with a formatted message.
func newError(kind *Error, format string, args ...any) *Error {
	return &Error{Kind: kind.Kind, Status: kind.Status, Msg: fmt.Sprintf(format, args...)}
}

// wrapError builds an Error of the sentinel's kind around cause.
func wrapError(kind *Error, cause error, format string, args ...any) *Error {
	e := newError(kind, format, args...)
	e.Err = cause
	return e
}

// StatusOf maps err to an HTTP-style status code.
//
// nil maps to 200. Structured errors carry their own status; well-known
// sentinels from collaborators are mapped; everything else is a 500.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var me *Error
	if errors.As(err, &me) {
		return me.Status
	}

	switch {
	case errors.Is(err, ErrMalformedPayload),
		errors.Is(err, enumerate.ErrInvalidToken),
		errors.Is(err, object.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, object.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, object.ErrObjectExists):
		return http.StatusPreconditionFailed
	case errors.Is(err, object.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
