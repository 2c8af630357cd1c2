package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"eventrental/internal/apperr"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHidesInternalCause(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()

	Error(w, r, apperr.Internal("create event", errors.New("pq: password authentication failed")))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body errorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "internal server error", body.Error)
	assert.Equal(t, "internal", body.Kind)
}

func TestErrorKeepsDomainMessage(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/returns", nil)
	w := httptest.NewRecorder()

	Error(w, r, apperr.Forbidden("Employee fee is not set"))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Employee fee is not set")
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","bogus":1}`))
	var v struct {
		Name string `json:"name"`
	}
	err := Decode(r, &v)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
}

func TestPathUUID(t *testing.T) {
	id := uuid.New()
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id.String())
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	got, err := PathUUID(r, "id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = PathUUID(r, "missing")
	assert.Error(t, err)
}

func TestPageFrom(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?page=2&perPage=5", nil)
	p := PageFrom(r)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 5, p.PerPage)

	p = PageFrom(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 100, p.PerPage)
}

func TestActorRoundTrip(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, uuid.Nil, Actor(context.Background()))
	assert.Equal(t, id, Actor(WithActor(context.Background(), id)))
}
