package middleware

import "github.com/gin-gonic/gin"

const (
	shopIDKey = contextKey("shopID")
	userIDKey = contextKey("userID")
	roleKey   = contextKey("role")
)

// GetShopIDFromContext retrieves the authenticated shop from the request context.
func GetShopIDFromContext(c *gin.Context) (string, bool) {
	shopID, ok := c.Request.Context().Value(shopIDKey).(string)
	return shopID, ok && shopID != ""
}

// GetUserIDFromContext retrieves the operator acting for the shop. It falls
// back to the shop id when the token names no operator.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	if userID, ok := c.Request.Context().Value(userIDKey).(string); ok && userID != "" {
		return userID, true
	}
	return GetShopIDFromContext(c)
}
