package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type rateRequest struct {
	Multiplier float64 `json:"multiplier" binding:"required,gte=1"`
}

// SetupSimulationHandlers registers the rate and status endpoints
func SetupSimulationHandlers(router *gin.RouterGroup, sim Simulation) {
	group := router.Group("/simulation")

	group.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, sim.Status())
	})

	group.GET("/routes", func(c *gin.Context) {
		c.JSON(http.StatusOK, sim.Snapshot())
	})

	group.PUT("/rate", func(c *gin.Context) {
		var req rateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
			return
		}
		if err := sim.SetRate(req.Multiplier); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, sim.Status())
	})
}
