package shipping

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubLister struct {
	methods []Method
	err     error
}

func (s stubLister) List(context.Context, string) ([]Method, error) { return s.methods, s.err }

func TestListHandler(t *testing.T) {
	h := &Handler{Methods: stubLister{methods: []Method{
		{ID: "standard", Name: "Standard", Rate: 500, EstimatedDays: 3},
	}}}

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/shipping/methods", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"standard"`)
}

func TestListHandlerEmpty(t *testing.T) {
	h := &Handler{Methods: stubLister{}}

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/shipping/methods", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestListHandlerError(t *testing.T) {
	h := &Handler{Methods: stubLister{err: errors.New("db down")}}

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/shipping/methods", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
