package auth

import "github.com/gin-gonic/gin"

// Keys under which the middleware stores the authenticated identity.
const (
	ctxKeyUserID    = "auth.userID"
	ctxKeyUserEmail = "auth.userEmail"
)

// GetUserID returns the authenticated user's ID, or "" for an
// unauthenticated request.
func GetUserID(c *gin.Context) string {
	return getString(c, ctxKeyUserID)
}

// GetUserEmail returns the authenticated user's email, or "".
func GetUserEmail(c *gin.Context) string {
	return getString(c, ctxKeyUserEmail)
}

func getString(c *gin.Context, key string) string {
	if v, ok := c.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
