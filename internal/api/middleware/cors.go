package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// allowMethods lists what the API actually serves; everything is GET
// or POST plus the preflight itself.
const allowMethods = "GET, POST, OPTIONS"

const allowHeaders = "Content-Type, Authorization, X-Requested-With, X-Request-ID"

// CORS allows the configured frontend origins. An entry of "*" allows
// any origin, still echoing the caller's origin so credentials keep
// working.
func CORS(allowOrigins []string) gin.HandlerFunc {
	any := false
	originsMap := make(map[string]bool, len(allowOrigins))
	for _, o := range allowOrigins {
		o = strings.TrimRight(o, "/")
		if o == "*" {
			any = true
			continue
		}
		originsMap[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		// Responses differ per origin, caches must not mix them up.
		c.Header("Vary", "Origin")

		if origin != "" && (any || originsMap[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", allowHeaders)
			c.Header("Access-Control-Allow-Methods", allowMethods)
			c.Header("Access-Control-Expose-Headers", "X-Request-ID")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
