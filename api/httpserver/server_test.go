package httpserver

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type echoRegistrar struct{}

func (echoRegistrar) RegisterRoutes(r chi.Router) {
	r.Get("/api/echo", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("ok"))
	})
}

func testServer(t *testing.T) (*BaseServer, *httptest.Server) {
	t.Helper()

	srv, err := New(&HTTPServerConfig{ListenAddr: "127.0.0.1:0"}, echoRegistrar{})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.srv.Handler)
	t.Cleanup(ts.Close)
	return srv, ts
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestHealthEndpoints(t *testing.T) {
	_, ts := testServer(t)

	status, body := get(t, ts.URL+"/livez")
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"status":"alive"}`, body)

	status, body = get(t, ts.URL+"/readyz")
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"status":"ready"}`, body)
}

func TestDrainUndrain(t *testing.T) {
	_, ts := testServer(t)

	status, _ := get(t, ts.URL+"/drain")
	require.Equal(t, http.StatusOK, status)

	status, _ = get(t, ts.URL+"/readyz")
	require.Equal(t, http.StatusServiceUnavailable, status)

	status, _ = get(t, ts.URL+"/undrain")
	require.Equal(t, http.StatusOK, status)

	status, _ = get(t, ts.URL+"/readyz")
	require.Equal(t, http.StatusOK, status)
}

func TestRegistrarRoutes(t *testing.T) {
	_, ts := testServer(t)

	status, body := get(t, ts.URL+"/api/echo")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", body)
}
