// internal/errors/errors_test.go
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cause := stderrors.New("boom")

	t.Run("nil has no kind", func(t *testing.T) {
		assert.Equal(t, Kind(""), KindOf(nil))
		assert.False(t, IsKind(nil, Internal))
	})

	t.Run("plain errors are internal", func(t *testing.T) {
		assert.Equal(t, Internal, KindOf(cause))
	})

	t.Run("kind survives further wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", E(Conflict, "link", cause))
		assert.Equal(t, Conflict, KindOf(err))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("invalid repo format is invalid", func(t *testing.T) {
		err := fmt.Errorf("parse: %w", &ErrInvalidRepoFormat{Repo: "nope"})
		assert.Equal(t, Invalid, KindOf(err))
	})
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "sync: boom", E(UpstreamFailure, "sync", stderrors.New("boom")).Error())
	assert.Equal(t, "link: forbidden", E(Forbidden, "link", nil).Error())
	assert.Equal(t, "bad 7", Ef(Invalid, "", "bad %d", 7).Error())
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		Invalid:            http.StatusBadRequest,
		Unauthorized:       http.StatusUnauthorized,
		Forbidden:          http.StatusForbidden,
		NotFound:           http.StatusNotFound,
		Conflict:           http.StatusConflict,
		UpstreamFailure:    http.StatusBadGateway,
		PersistenceFailure: http.StatusInternalServerError,
		Internal:           http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), string(kind))
	}
}
