package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"rental-backend/models"
	"rental-backend/services"
)

type stubAuth map[string]*services.CurrentUser

func (s stubAuth) Authenticate(_ context.Context, token string) (*services.CurrentUser, error) {
	if u, ok := s[token]; ok {
		return u, nil
	}
	return nil, services.ErrInvalidToken
}

var users = stubAuth{
	"renter": {ID: "r1", Role: models.RoleRenter},
	"owner":  {ID: "o1", Role: models.RoleOwner},
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", RequireAuth(users), func(c *gin.Context) {
		fromCtx := services.Current(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"id": CurrentUser(c).ID, "ctx": fromCtx != nil})
	})
	r.GET("/manage", RequireAuth(users), RequireRole(models.RoleOwner, models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func serve(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	r := newEngine()

	assert.Equal(t, http.StatusUnauthorized, serve(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/me", "expired").Code)

	w := serve(r, "/me", "renter")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"r1","ctx":true}`, w.Body.String())
}

func TestRequireRole(t *testing.T) {
	r := newEngine()

	assert.Equal(t, http.StatusForbidden, serve(r, "/manage", "renter").Code)
	assert.Equal(t, http.StatusNoContent, serve(r, "/manage", "owner").Code)
}

func TestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(Logger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, RequestID(c)) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "rid-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "rid-1", w.Body.String())
	assert.Equal(t, "rid-1", w.Header().Get(RequestIDHeader))

	w = serve(r, "/missing", "")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, "rid-1", entries[0].ContextMap()["request_id"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
}

func TestTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Timeout(50 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		select {
		case <-c.Request.Context().Done():
			c.Status(http.StatusGatewayTimeout)
		case <-time.After(time.Second):
			c.Status(http.StatusOK)
		}
	})

	assert.Equal(t, http.StatusGatewayTimeout, serve(r, "/slow", "").Code)
}
