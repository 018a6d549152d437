package session

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const DefaultCookieName = "_sid"

// Manager extracts the session token a request carries.
type Manager struct {
	cookieName string
}

func NewManager() *Manager {
	return &Manager{cookieName: DefaultCookieName}
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

// ReadToken prefers the Authorization bearer header and falls back to the
// session cookie set by the portal.
func (m *Manager) ReadToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		token = strings.TrimSpace(token)
		return token, token != ""
	}

	token, err := c.Cookie(m.cookieName)
	if err != nil {
		return "", false
	}
	if strings.TrimSpace(token) == "" {
		return "", false
	}
	return token, true
}
