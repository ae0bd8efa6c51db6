package routes

import (
	"context"
	"errors"
	"log"
	"net/http"

	"deliverysim/internal/model"
	"deliverysim/internal/service/simulation"

	"github.com/gin-gonic/gin"
)

// Simulation is the part of the scheduler the control API drives
type Simulation interface {
	Connect(ctx context.Context) error
	Disconnect()
	Reset(ctx context.Context) error
	SetRate(multiplier float64) error
	Snapshot() []model.Route
	Status() simulation.Status
}

var _ Simulation = (*simulation.Scheduler)(nil)

// SetupRouteHandlers registers the start/stop/pause endpoints
func SetupRouteHandlers(router *gin.RouterGroup, sim Simulation) {
	routeGroup := router.Group("/route")

	routeGroup.GET("/start", StartRoute(sim))
	routeGroup.GET("/stop", StopRoute(sim))
	routeGroup.GET("/pause", PauseRoute(sim))
}

// StartRoute connects the scheduler, resuming paused routes if any
func StartRoute(sim Simulation) gin.HandlerFunc {
	return func(c *gin.Context) {
		log.Println("Route start endpoint called")
		err := sim.Connect(c.Request.Context())
		switch {
		case errors.Is(err, simulation.ErrAlreadyConnected):
			c.JSON(http.StatusConflict, gin.H{"status": "error", "message": err.Error()})
			return
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "Simulation started",
			"state":   sim.Status(),
		})
	}
}

// StopRoute stops the timers and retires every active route
func StopRoute(sim Simulation) gin.HandlerFunc {
	return func(c *gin.Context) {
		log.Println("Route stop endpoint called")
		sim.Disconnect()
		if err := sim.Reset(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "Simulation stopped",
			"state":   sim.Status(),
		})
	}
}

// PauseRoute stops the timers and keeps the routes for a later start
func PauseRoute(sim Simulation) gin.HandlerFunc {
	return func(c *gin.Context) {
		log.Println("Route pause endpoint called")
		sim.Disconnect()
		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "Simulation paused",
			"state":   sim.Status(),
		})
	}
}
