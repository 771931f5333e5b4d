package security

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func postCartBody(t *testing.T, limit BodyLimit, body string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var seen string
	handler := limit.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		seen = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/carts", strings.NewReader(body)))
	return rr, seen
}

func TestBodyLimitPassesSmallPayloadThrough(t *testing.T) {
	rr, seen := postCartBody(t, BodyLimit{Max: 64}, `{"itemId":"espresso"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, `{"itemId":"espresso"}`, seen)
}

func TestBodyLimitRejectsOversizedPayload(t *testing.T) {
	rr, _ := postCartBody(t, BodyLimit{Max: 5}, strings.Repeat("x", 32))
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestBodyLimitTrustsDeclaredContentLength(t *testing.T) {
	limit := BodyLimit{Max: 5}
	handler := limit.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/carts", strings.NewReader("body"))
	req.ContentLength = 4096
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestBodyLimitZeroMaxDisablesCheck(t *testing.T) {
	rr, seen := postCartBody(t, BodyLimit{}, strings.Repeat("x", 4096))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, seen, 4096)
}
