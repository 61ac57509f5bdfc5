package apperrors

import (
	"net/http"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	for kind, status := range map[Kind]int{
		KindValidation:        http.StatusBadRequest,
		KindUnavailable:       http.StatusBadRequest,
		KindInvalidTransition: http.StatusBadRequest,
		KindNotFound:          http.StatusNotFound,
		KindUnauthenticated:   http.StatusUnauthorized,
		KindForbidden:         http.StatusForbidden,
		KindConflict:          http.StatusConflict,
		KindStore:             http.StatusInternalServerError,
	} {
		assert.Equal(t, status, HTTPStatus(kind), kind)
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := errors.Wrap(NotFound("order %s not found", "o1"), "load")
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, Is(err, KindNotFound))
	assert.Equal(t, KindStore, KindOf(errors.New("plain")))
}

func TestStore_Unwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := Store(cause, "failed to load order")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}
