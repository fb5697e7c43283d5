package handlers

import (
	"net/http"

	"barberbook/utils"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles GET /health with the latest dependency check.
func HealthHandler(c *gin.Context) {
	status := utils.GetHealthStatus()
	healthy := status.Store || status.CheckedAt.IsZero()
	for _, ok := range status.Redis {
		healthy = healthy && ok
	}
	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "checks": status})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": status})
}
