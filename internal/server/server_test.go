package server_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"campusdelivery/internal/config"
	"campusdelivery/internal/server"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubRoutes struct{}

func (stubRoutes) Register(router *gin.RouterGroup) {
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/panic", func(c *gin.Context) { panic("boom") })
}

func newServer() *server.HTTPServer {
	cfg := &config.AppConfig{
		Environment: "test",
		HTTP:        config.HTTPConfig{Host: "127.0.0.1", Port: 8080},
	}
	return server.NewHTTPServer(cfg, zerolog.Nop(), stubRoutes{})
}

func do(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestServerRoutesUnderAPIPrefix(t *testing.T) {
	srv := newServer()
	assert.Equal(t, "127.0.0.1:8080", srv.Addr())

	rec := do(srv.Handler(), http.MethodGet, "/api/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestServerUnknownRoutes(t *testing.T) {
	srv := newServer()

	rec := do(srv.Handler(), http.MethodGet, "/api/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"NOT_FOUND","message":"No such route"}`, rec.Body.String())

	rec = do(srv.Handler(), http.MethodPost, "/api/healthz")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), "METHOD_NOT_ALLOWED")
}

func TestServerRecoversFromPanics(t *testing.T) {
	srv := newServer()

	rec := do(srv.Handler(), http.MethodGet, "/api/panic")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}
