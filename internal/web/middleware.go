package web

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"poison-machine/internal/security"
)

// Role is the access level derived from the request's Basic auth credentials.
// It is never persisted.
type Role int

const (
	RoleAnonymous Role = iota
	RoleGuest
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleGuest:
		return "guest"
	default:
		return "anonymous"
	}
}

const (
	defaultRealm = "poison-machine"

	// switchCookie is the one-shot marker for the switch-user handshake.
	switchCookie = "poison_switch"
)

// roleFor derives the request's role from its Basic auth header. Comparison
// is constant-time. The guest pair only counts when configured.
func (s *Server) roleFor(c *gin.Context) Role {
	user, pass, ok := c.Request.BasicAuth()
	if !ok {
		return RoleAnonymous
	}

	if pairMatches(user, pass, s.cfg.AdminUser, s.cfg.AdminPassword) {
		return RoleAdmin
	}
	if s.cfg.GuestEnabled() && pairMatches(user, pass, s.cfg.GuestUser, s.cfg.GuestPassword) {
		return RoleGuest
	}
	return RoleAnonymous
}

func pairMatches(user, pass, wantUser, wantPass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(wantUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(wantPass)) == 1
	return userOK && passOK
}

// requireRole gates a route group on a minimum role. Insufficient credentials
// always get a Basic challenge, never a generic error page.
func (s *Server) requireRole(min Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := s.roleFor(c)
		if role < min {
			s.challenge(c, defaultRealm)
			return
		}
		c.Set("role", role)
		c.Next()
	}
}

func (s *Server) challenge(c *gin.Context, realm string) {
	c.Header("WWW-Authenticate", `Basic realm="`+realm+`"`)
	c.HTML(http.StatusUnauthorized, "error.html", gin.H{
		"Title": appTitle,
		"Error": "authentication required",
	})
	c.Abort()
}

// switchUser forces the browser to re-prompt for credentials. Browsers cache
// Basic credentials per realm, so the first visit plants a cookie carrying a
// fresh nonce and challenges with a realm the browser has never seen. The
// second visit (cookie present) validates whatever credentials arrived:
// valid ones clear the cookie and go home, anything else rotates the nonce
// and challenges again.
func (s *Server) switchUser(c *gin.Context) {
	nonce, err := c.Cookie(switchCookie)

	if err != nil || nonce == "" {
		s.issueSwitchChallenge(c)
		return
	}

	if s.roleFor(c) == RoleAnonymous {
		s.issueSwitchChallenge(c)
		return
	}

	c.SetCookie(switchCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) issueSwitchChallenge(c *gin.Context) {
	nonce := security.NewRealmNonce()
	c.SetCookie(switchCookie, nonce, 300, "/", "", false, true)
	s.challenge(c, defaultRealm+"-"+nonce)
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		clientIP := c.ClientIP()

		s.log.Info("http_request",
			"method", method,
			"path", path,
			"status", status,
			"latency_ms", latency.Milliseconds(),
			"client_ip", clientIP,
		)
	}
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow(c.ClientIP()) {
			c.Header("Retry-After", "30")
			c.HTML(http.StatusTooManyRequests, "error.html", gin.H{
				"Title": appTitle,
				"Error": "too many requests",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
