package middleware

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/gin-gonic/gin"
)

// GinRequireUser adapts RequireUser to gin. The user is also stored under the gin
// key "user".
func GinRequireUser(m *goSession.Manager, t *Transport) gin.HandlerFunc {
	return ginBridge(RequireUser(m, t))
}

// GinRequireLevel adapts RequireLevel to gin.
func GinRequireLevel(m *goSession.Manager, t *Transport, level int) gin.HandlerFunc {
	return ginBridge(RequireLevel(m, t, level))
}

func ginBridge(guard func(http.Handler) http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		passed := false
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			if u, ok := UserFromContext(r.Context()); ok {
				c.Set("user", u)
			}
			c.Next()
		})

		guard(next).ServeHTTP(c.Writer, c.Request)

		// The guard already wrote the rejection.
		if !passed {
			c.Abort()
		}
	}
}
