package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newContext(setup func(r *http.Request)) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	setup(req)
	c.Request = req
	return c
}

func TestReadToken(t *testing.T) {
	m := NewManager()

	cases := []struct {
		name  string
		setup func(r *http.Request)
		token string
		ok    bool
	}{
		{name: "bearer", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc.def") }, token: "abc.def", ok: true},
		{name: "bearer lowercase", setup: func(r *http.Request) { r.Header.Set("Authorization", "bearer abc") }, token: "abc", ok: true},
		{name: "basic scheme", setup: func(r *http.Request) { r.Header.Set("Authorization", "Basic Zm9vOmJhcg==") }},
		{name: "empty bearer", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer  ") }},
		{name: "cookie", setup: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "cookie.token"}) }, token: "cookie.token", ok: true},
		{name: "nothing", setup: func(r *http.Request) {}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, ok := m.ReadToken(newContext(tc.setup))
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.token, token)
		})
	}
}
