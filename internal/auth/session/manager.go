package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/microgrid/internal/clock"
	"github.com/smallbiznis/microgrid/internal/config"
)

const DefaultCookieName = "mg_sid"

// Manager carries the session token between the browser and the API. The
// token travels in an HttpOnly cookie; scripts and tests may send it as a
// bearer token instead.
type Manager struct {
	cookieName string
	secure     bool
	clock      clock.Clock
}

func NewManager(cfg config.Config, clk clock.Clock) *Manager {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Manager{
		cookieName: DefaultCookieName,
		secure:     cfg.AuthCookieSecure,
		clock:      clk,
	}
}

func (m *Manager) ReadToken(c *gin.Context) (string, bool) {
	if token, err := c.Cookie(m.cookieName); err == nil {
		if token = strings.TrimSpace(token); token != "" {
			return token, true
		}
	}
	token, found := strings.CutPrefix(strings.TrimSpace(c.GetHeader("Authorization")), "Bearer ")
	if token = strings.TrimSpace(token); !found || token == "" {
		return "", false
	}
	return token, true
}

// Set writes the cookie to expire with the session.
func (m *Manager) Set(c *gin.Context, token string, expiresAt time.Time) {
	m.write(c, token, max(int(expiresAt.Sub(m.clock.Now()).Seconds()), 1))
}

func (m *Manager) Clear(c *gin.Context) {
	m.write(c, "", -1)
}

func (m *Manager) write(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, value, maxAge, "/", "", m.secure, true)
}
