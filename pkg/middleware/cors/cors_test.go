package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serve(mw gin.HandlerFunc, method, origin string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw)
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	req := httptest.NewRequest(method, "/", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAllowListedOrigin(t *testing.T) {
	mw := New([]string{"http://planner.lan/"}, "X-Calendar-Revision")

	w := serve(mw, http.MethodGet, "http://planner.lan")
	assert.Equal(t, "http://planner.lan", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "X-Request-ID, X-Calendar-Revision", w.Header().Get("Access-Control-Expose-Headers"))

	w = serve(mw, http.MethodGet, "http://evil.example")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflightShortCircuits(t *testing.T) {
	w := serve(New(nil), http.MethodOptions, "http://any.lan")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://any.lan", w.Header().Get("Access-Control-Allow-Origin"))
}
