package handler

import "github.com/gin-gonic/gin"

// RoleKey is where the auth middleware stores the caller's role.
const RoleKey = "role"

// RequestRole resolves the role a read is scoped to: the explicit query
// parameter first, then the authenticated caller's role.
func RequestRole(c *gin.Context) string {
	if role := c.Query("role"); role != "" {
		return role
	}
	return c.GetString(RoleKey)
}
