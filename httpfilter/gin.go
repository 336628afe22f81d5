package httpfilter

import "github.com/gin-gonic/gin"

// GinHandler adapts a Filter for use in a Gin middleware chain, so
// gin-based hosts can mount the gate like any other gin middleware.
func GinHandler(f Filter) gin.HandlerFunc {
	return func(c *gin.Context) {
		out := f.Filter(c.Writer, c.Request)
		if out.Done() {
			c.Abort()
			return
		}
		if next := out.Request(); next != nil {
			// Propagate context additions (e.g. the principal) to gin handlers.
			c.Request = next
		}
		c.Next()
	}
}
