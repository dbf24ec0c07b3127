package handlers_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GhostEsso/ahoefa-backend/internal/api/middleware"
	"github.com/GhostEsso/ahoefa-backend/internal/authz"
	"github.com/GhostEsso/ahoefa-backend/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testHandlerConfig() *config.Config {
	return &config.Config{
		JwtSecret:        "test-secret",
		JwtTTL:           time.Hour,
		ImageMaxCount:    10,
		ImageMaxSizeMB:   5,
		MonthlyPostLimit: 4,
	}
}

// newTestRouter returns a bare engine. When a principal is given, a stub
// middleware injects it the way AuthMiddleware would.
func newTestRouter(principal *authz.Principal) *gin.Engine {
	r := gin.New()
	if principal != nil {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.ContextKeyPrincipal, *principal)
			c.Next()
		})
	}
	return r
}

func performRequest(t *testing.T, r http.Handler, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, path, body)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
