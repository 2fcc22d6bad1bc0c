package handlers

import (
	"github.com/gin-gonic/gin"

	"incubator-backend/internal/bus"
	"incubator-backend/internal/logger"
	"incubator-backend/internal/service"
)

// Handler wires the HTTP layer to services, the fan-out bus and logging.
type Handler struct {
	services *service.Service
	fanout   *bus.Bus
	log      *logger.Logger
}

func NewHandler(services *service.Service, fanout *bus.Bus, log *logger.Logger) *Handler {
	return &Handler{services: services, fanout: fanout, log: log}
}

// InitRoutes builds the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", h.health)

	api := router.Group("/api/v1")
	{
		devices := api.Group("/devices")
		{
			devices.POST("", h.createDevice)
			devices.GET("", h.listDevices)
			devices.GET("/:id", h.getDevice)
			devices.GET("/:id/telemetry", h.getTelemetryRange)
			devices.GET("/:id/telemetry/latest", h.getTelemetryLatest)
			devices.GET("/:id/stats", h.getTelemetryStats)
			devices.POST("/:id/cmd", h.dispatchCommand)
			devices.GET("/:id/cmds", h.listCommands)
		}
	}

	// Live relay: one websocket per dashboard client, scoped to one farm.
	router.GET("/ws/farms/:farm_id", h.wsFarm)

	return router
}
