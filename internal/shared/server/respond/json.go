package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes payload as the response body with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes payload with status 200. Handlers use it for every successful
// read and state change.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}
