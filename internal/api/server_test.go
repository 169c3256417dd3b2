package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minerva/internal/api/health"
	"minerva/internal/tools"
	"minerva/pkg/logger"
)

func testMux() *http.ServeMux {
	healthHandler := health.New(logger.Get(), nil, nil, nil, "minerva", "test")
	insightsHandler := NewInsightsHandler(&fakeInsightsService{})
	toolsHandler := NewToolsHandler(&fakeInvoker{result: tools.Result{Success: true}})
	return newMux(ServerConfig{ServiceName: "minerva", Version: "test"}, healthHandler, insightsHandler, toolsHandler)
}

func TestServer_Routes(t *testing.T) {
	mux := testMux()

	t.Run("liveness", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("GET", "/live", nil))
		require.Equal(t, 200, w.Code)
		assert.Contains(t, w.Body.String(), "alive")
	})

	t.Run("metrics scrape", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
		require.Equal(t, 200, w.Code)
		assert.NotEmpty(t, w.Body.String())
	})

	t.Run("service info", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		require.Equal(t, 200, w.Code)
		assert.Contains(t, w.Body.String(), `"service":"minerva"`)
	})

	t.Run("unknown path", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("GET", "/nope", nil))
		assert.Equal(t, 404, w.Code)
	})

	t.Run("invoke routes by path value", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/tools/fetch_tickets/invoke", nil))
		assert.Equal(t, 200, w.Code)
	})

	t.Run("invoke rejects GET", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/tools/fetch_tickets/invoke", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}
