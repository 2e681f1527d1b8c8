package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeaders sets browser security headers on every response. The
// development flag relaxes CSP enough for local frontend tooling.
func SecurityHeaders(isDevelopment bool) gin.HandlerFunc {
	csp := "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; " +
		"img-src 'self' data:; connect-src 'self'; frame-src 'none'; object-src 'none'; " +
		"base-uri 'self'; form-action 'self'"
	if isDevelopment {
		csp = "default-src 'self'; script-src 'self' 'unsafe-inline' 'unsafe-eval'; " +
			"style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self' ws: wss:; " +
			"frame-src 'none'; object-src 'none'; base-uri 'self'; form-action 'self'"
	}

	return func(c *gin.Context) {
		c.Header("Content-Security-Policy", csp)
		if !isDevelopment {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}
