package mutation

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/marmos91/dittostore/pkg/store/object"
	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"invalid", newError(ErrInvalidRequest, "x"), http.StatusBadRequest},
		{"illegal", newError(ErrIllegalMove, "x"), http.StatusBadRequest},
		{"not found", newError(ErrNotFound, "x"), http.StatusNotFound},
		{"forbidden", newError(ErrForbidden, "x"), http.StatusForbidden},
		{"exhausted", newError(ErrCollisionExhausted, "x"), http.StatusInternalServerError},
		{"wrapped structured", fmt.Errorf("ctx: %w", newError(ErrIllegalMove, "x")), http.StatusBadRequest},
		{"malformed", fmt.Errorf("%w: eof", ErrMalformedPayload), http.StatusBadRequest},
		{"object missing", fmt.Errorf("get: %w", object.ErrObjectNotFound), http.StatusNotFound},
		{"object exists", object.ErrObjectExists, http.StatusPreconditionFailed},
		{"unavailable", object.ErrUnavailable, http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StatusOf(tc.err))
		})
	}
}

func TestError_IsMatchesKind(t *testing.T) {
	err := wrapError(ErrNotFound, object.ErrObjectNotFound, "primary %s", "foo/a.html")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, object.ErrObjectNotFound)
	assert.NotErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "foo/a.html")
}

func TestParseOp(t *testing.T) {
	op, err := ParseOp("rename")
	assert.NoError(t, err)
	assert.Equal(t, OpRename, op)
	assert.True(t, op.Removes())
	assert.False(t, OpCopy.Removes())

	_, err = ParseOp("link")
	assert.Error(t, err)
}

func TestLocation(t *testing.T) {
	loc := ParseLocation("/Acme/Docs/a.html")
	assert.Equal(t, Location{Org: "Acme", Key: "Docs/a.html"}, loc)
	assert.Equal(t, "Acme/Docs/a.html", loc.Path())
	assert.Equal(t, "/Acme/Docs/a.html", loc.String())
}
