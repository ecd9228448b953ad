package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/stridefit/admin-gateway/config"
)

// SecurityHeadersMiddleware adds security-related HTTP headers to all
// responses. The admin dashboard is a credentialed surface, so clickjacking
// and MIME-sniffing protections apply everywhere.
func SecurityHeadersMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Disallow embedding the dashboard in frames.
		c.Header("X-Frame-Options", "DENY")

		// Force browsers to respect the declared Content-Type.
		c.Header("X-Content-Type-Options", "nosniff")

		// Controls how much referrer information is sent with requests.
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Never cache guarded pages; a shared machine must not serve a
		// logged-out admin's dashboard from cache.
		c.Header("Cache-Control", "no-store")

		// HSTS only in production to avoid issues during local development.
		if cfg.IsProduction() {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
