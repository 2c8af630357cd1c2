package apperr

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKeepsRecognizedErrors(t *testing.T) {
	orig := BadRequest("Insufficient stock for material %s", "chairs")
	wrapped := fmt.Errorf("reserve: %w", orig)

	got := Normalize(wrapped, "create event")
	assert.Same(t, wrapped, got)
	assert.Equal(t, KindBadRequest, KindOf(got))
}

func TestNormalizeWrapsUnknownErrors(t *testing.T) {
	got := Normalize(sql.ErrConnDone, "create event")

	require.Error(t, got)
	assert.Equal(t, KindInternal, KindOf(got))
	assert.ErrorIs(t, got, sql.ErrConnDone)
	assert.Contains(t, got.Error(), "create event")
}

func TestNormalizeNil(t *testing.T) {
	assert.NoError(t, Normalize(nil, "noop"))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		NotFound("event not found"):        http.StatusNotFound,
		Forbidden("Only admins"):           http.StatusForbidden,
		BadRequest("bad"):                  http.StatusBadRequest,
		Conflict("retry"):                  http.StatusConflict,
		Internal("boom", sql.ErrTxDone):    http.StatusInternalServerError,
		fmt.Errorf("plain"):                http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, HTTPStatus(err), err.Error())
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("outer: %w", Forbidden("Employee fee is not set"))
	assert.True(t, Is(err, KindForbidden))
	assert.False(t, Is(err, KindNotFound))
	assert.Equal(t, "outer: Employee fee is not set", err.Error())
}
