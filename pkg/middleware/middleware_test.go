package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"vinatravel/pkg/logger"
	"vinatravel/pkg/utils"
)

const testSecret = "test-secret"

func newRouter(mw ...gin.HandlerFunc) (*gin.Engine, *struct{ actor *uuid.UUID }) {
	gin.SetMode(gin.TestMode)
	seen := &struct{ actor *uuid.UUID }{}
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		seen.actor = Actor(c)
		utils.RespondSuccess(c, nil, "pong")
	})
	return r, seen
}

func TestActorMiddlewareAnonymous(t *testing.T) {
	r, seen := newRouter(ActorMiddleware(testSecret))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, seen.actor)
}

func TestActorMiddlewareReadsValidToken(t *testing.T) {
	user := uuid.New()
	token, err := utils.CreateToken([]byte(testSecret), user, "admin", time.Hour)
	require.NoError(t, err)

	r, seen := newRouter(ActorMiddleware(testSecret))
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, seen.actor)
	assert.Equal(t, user, *seen.actor)
}

func TestActorMiddlewareRejectsBadTokens(t *testing.T) {
	expired, err := utils.CreateToken([]byte(testSecret), uuid.New(), "admin", -time.Minute)
	require.NoError(t, err)
	foreign, err := utils.CreateToken([]byte("other"), uuid.New(), "admin", time.Hour)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"scheme":  "Basic abc",
		"garbage": "Bearer not.a.token",
		"expired": "Bearer " + expired,
		"foreign": "Bearer " + foreign,
	} {
		t.Run(name, func(t *testing.T) {
			r, _ := newRouter(ActorMiddleware(testSecret))
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			req.Header.Set("Authorization", header)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestTraceIDMiddleware(t *testing.T) {
	r, _ := newRouter(TraceIDMiddleware())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	minted := w.Header().Get(TraceHeader)
	_, err := uuid.Parse(minted)
	assert.NoError(t, err)
	assert.Contains(t, w.Body.String(), minted)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(TraceHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(TraceHeader))
}

func TestCORSMiddleware(t *testing.T) {
	r, _ := newRouter(CORSMiddleware("https://a.example, https://b.example"))

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://b.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://b.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	r, _ = newRouter(CORSMiddleware("*"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLoggerPassesThrough(t *testing.T) {
	r, _ := newRouter(TraceIDMiddleware(), RequestLogger(logger.NewNop()))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
