package handlers

import (
	"github.com/apophisnow/icemaker/internal/logger"
	"github.com/apophisnow/icemaker/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	h.registerAPIRoutes(router)

	// Live status and controller events, same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		h.registerIcemakerRoutes(api)
		h.registerConfigRoutes(api)
		h.registerSimulatorRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerIcemakerRoutes(api *gin.RouterGroup) {
	ice := api.Group("/icemaker")
	{
		ice.GET("/status", h.getStatus)
		ice.POST("/start", h.start)
		ice.POST("/stop", h.stop)
		ice.POST("/emergency-stop", h.emergencyStop)
		ice.POST("/shutdown", h.shutdown)
		ice.POST("/diagnostic/enter", h.enterDiagnostic)
		ice.POST("/diagnostic/exit", h.exitDiagnostic)
	}

	relays := api.Group("/relays")
	{
		relays.GET("", h.getRelays)
		// Body example: {"on":true}. Only accepted in DIAGNOSTIC.
		relays.PUT("/:name", h.setRelay)
	}

	api.GET("/sensors", h.getSensors)
}

func (h *Handler) registerConfigRoutes(api *gin.RouterGroup) {
	cfg := api.Group("/config")
	{
		cfg.GET("", h.getConfig)
		// Body example: {"ice.target_temp_f":-4} or {"ice":{"target_temp_f":-4}}
		cfg.PATCH("", h.updateConfig)
		cfg.POST("/reset", h.resetConfig)
		cfg.GET("/schema", h.getConfigSchema)
	}
}

func (h *Handler) registerSimulatorRoutes(api *gin.RouterGroup) {
	sim := api.Group("/simulator")
	{
		sim.GET("", h.getSimulator)
		sim.PUT("", h.setSimulatorSpeed)
		sim.POST("/reset", h.resetSimulator)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("", h.getLogs)
	}
}
