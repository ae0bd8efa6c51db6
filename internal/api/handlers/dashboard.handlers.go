package routes

import (
	"io"
	"net/http"

	"deliverysim/internal/model"
	"deliverysim/internal/service/entity"
	"deliverysim/internal/util"

	"github.com/gin-gonic/gin"
)

// SetupDashboardHandlers registers the rollup, entity and event endpoints
func SetupDashboardHandlers(router *gin.RouterGroup, agg *entity.Aggregator, hub *entity.Hub, index *entity.SpatialIndex) {
	router.GET("/companies", func(c *gin.Context) {
		c.JSON(http.StatusOK, agg.Companies())
	})

	// ?bbox=minLon,minLat,maxLon,maxLat limits the result to a viewport
	router.GET("/entities", func(c *gin.Context) {
		bbox := c.Query("bbox")
		if bbox == "" {
			c.JSON(http.StatusOK, agg.Entities())
			return
		}

		bound, err := util.ParseBound(bbox)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
			return
		}

		result := []model.Entity{}
		for _, id := range index.InBound(bound) {
			if e, ok := agg.Entity(id); ok {
				result = append(result, e)
			}
		}
		c.JSON(http.StatusOK, result)
	})

	router.GET("/entities/:id", func(c *gin.Context) {
		e, ok := agg.Entity(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "entity not found"})
			return
		}
		c.JSON(http.StatusOK, e)
	})

	router.GET("/events", StreamEvents(hub))
}

// StreamEvents pushes aggregator events to the client as server-sent events
// until it disconnects. Events are dropped for clients that fall behind.
func StreamEvents(hub *entity.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub := hub.Subscribe()
		defer hub.Unsubscribe(sub)

		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")

		c.Stream(func(w io.Writer) bool {
			select {
			case <-c.Request.Context().Done():
				return false
			case e := <-sub.Events():
				c.SSEvent(e.Type.String(), e)
				return true
			}
		})
	}
}
