package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler returns service liveness
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
