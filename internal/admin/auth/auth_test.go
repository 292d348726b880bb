package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waitlist-server/internal/config"
	"waitlist-server/internal/observability"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(cfg config.WaitlistConfig) *gin.Engine {
	r := gin.New()
	admin := r.Group("/api/admin", Middleware(cfg, observability.NewLogger()))
	admin.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func doRequest(t *testing.T, r *gin.Engine, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["code"]
}

func TestMiddleware(t *testing.T) {
	cfg := config.WaitlistConfig{
		AdminToken:     "sk-admin-token",
		AllowedOrigins: []string{"https://example.com"},
		OriginSuffixes: []string{".pages.dev"},
	}

	t.Run("valid token without origin", func(t *testing.T) {
		w := doRequest(t, newTestRouter(cfg), func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer sk-admin-token")
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("valid token with allowed origin", func(t *testing.T) {
		w := doRequest(t, newTestRouter(cfg), func(req *http.Request) {
			req.Header.Set("Origin", "https://example.com")
			req.Header.Set("Authorization", "Bearer sk-admin-token")
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("forbidden origin rejected before auth", func(t *testing.T) {
		w := doRequest(t, newTestRouter(cfg), func(req *http.Request) {
			req.Header.Set("Origin", "https://evil.example.net")
			req.Header.Set("Authorization", "Bearer sk-admin-token")
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "forbidden_origin", errorCode(t, w))
	})

	t.Run("missing authorization header", func(t *testing.T) {
		w := doRequest(t, newTestRouter(cfg), nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "unauthorized", errorCode(t, w))
	})

	t.Run("non-bearer authorization", func(t *testing.T) {
		w := doRequest(t, newTestRouter(cfg), func(req *http.Request) {
			req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		w := doRequest(t, newTestRouter(cfg), func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer wrong-token")
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "forbidden", errorCode(t, w))
	})

	t.Run("unconfigured token disables admin", func(t *testing.T) {
		bare := cfg
		bare.AdminToken = ""
		w := doRequest(t, newTestRouter(bare), func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer anything")
		})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "server_error", errorCode(t, w))
	})
}
