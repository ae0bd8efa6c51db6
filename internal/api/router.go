package api

import (
	routes "deliverysim/internal/api/handlers"
	"deliverysim/internal/service/entity"

	"github.com/gin-gonic/gin"
)

// SetupSimulatorRouter registers the simulator control API
func SetupSimulatorRouter(r *gin.Engine, config map[string]string, sim routes.Simulation) {
	api := r.Group("/api")

	routes.SetupMainHandlers(r.Group(""), config)
	routes.SetupRouteHandlers(api, sim)
	routes.SetupSimulationHandlers(api, sim)
}

// SetupDashboardRouter registers the dashboard snapshot and event stream API
func SetupDashboardRouter(r *gin.Engine, config map[string]string, agg *entity.Aggregator, hub *entity.Hub, index *entity.SpatialIndex) {
	api := r.Group("/api")

	routes.SetupMainHandlers(r.Group(""), config)
	routes.SetupDashboardHandlers(api, agg, hub, index)
}
