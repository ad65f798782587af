package http

import (
	"github.com/gin-gonic/gin"

	"location-tracking-core/internal/api/http/handler"
	"location-tracking-core/internal/api/http/middleware"
	"location-tracking-core/internal/config"
)

type Router struct {
	engine           *gin.Engine
	auth             *middleware.JwtValidator
	rateLimiter      *middleware.RateLimiter
	locationHandler  *handler.LocationHandler
	analyticsHandler *handler.AnalyticsHandler
	geofenceHandler  *handler.GeofenceHandler
	vehicleHandler   *handler.VehicleHandler
	groupHandler     *handler.GroupHandler
	healthHandler    *handler.HealthHandler
	websocketHandler *handler.WebSocketHandler
}

func NewRouter(
	config *config.Config,
	auth *middleware.JwtValidator,
	locationHandler *handler.LocationHandler,
	analyticsHandler *handler.AnalyticsHandler,
	geofenceHandler *handler.GeofenceHandler,
	vehicleHandler *handler.VehicleHandler,
	groupHandler *handler.GroupHandler,
	healthHandler *handler.HealthHandler,
	websocketHandler *handler.WebSocketHandler,
) *Router {
	if config.Server.Host == "0.0.0.0" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.Logger())
	engine.Use(middleware.CORS(config.Server.AllowedOrigin))

	return &Router{
		engine: engine,
		auth:   auth,
		rateLimiter: middleware.NewRateLimiter(
			float64(config.RateLimit.RequestsPerSecond),
			config.RateLimit.Burst,
		),
		locationHandler:  locationHandler,
		analyticsHandler: analyticsHandler,
		geofenceHandler:  geofenceHandler,
		vehicleHandler:   vehicleHandler,
		groupHandler:     groupHandler,
		healthHandler:    healthHandler,
		websocketHandler: websocketHandler,
	}
}

func (r *Router) Setup() *gin.Engine {
	r.engine.GET("/health", r.healthHandler.Health)
	r.engine.GET("/ready", r.healthHandler.Ready)

	ws := r.engine.Group("/ws")
	ws.GET("/locations", r.websocketHandler.HandleWebSocket)

	v1 := r.engine.Group("/api/v1")
	v1.Use(r.rateLimiter.Limit())
	v1.Use(r.auth.Validate())

	v1.POST("/locations", r.locationHandler.Ingest)

	devices := v1.Group("/devices")
	{
		devices.GET("/active", r.locationHandler.ActiveDevices)
		devices.GET("/:id/locations", r.locationHandler.History)
		devices.GET("/:id/locations/latest", r.locationHandler.Latest)
		devices.GET("/:id/locations/stats", r.locationHandler.Stats)
		devices.GET("/:id/queue", r.locationHandler.QueueSize)
		devices.GET("/:id/analytics", r.analyticsHandler.Analytics)
		devices.GET("/:id/activity", r.analyticsHandler.Activity)
		devices.GET("/:id/geofence-events", r.geofenceHandler.Events)
	}

	geofences := v1.Group("/geofences")
	{
		geofences.POST("", r.geofenceHandler.Create)
		geofences.GET("", r.geofenceHandler.List)
		geofences.GET("/:id", r.geofenceHandler.Get)
		geofences.PATCH("/:id", r.geofenceHandler.Update)
		geofences.DELETE("/:id", r.geofenceHandler.Delete)
	}

	vehicles := v1.Group("/vehicles")
	{
		vehicles.POST("", r.vehicleHandler.Create)
		vehicles.GET("", r.vehicleHandler.List)
		vehicles.GET("/:id", r.vehicleHandler.Get)
		vehicles.DELETE("/:id", r.vehicleHandler.Delete)
		vehicles.GET("/:id/session", r.vehicleHandler.ActiveSession)
		vehicles.GET("/:id/violations", r.vehicleHandler.ListViolations)
		vehicles.POST("/sessions", r.vehicleHandler.StartSession)
		vehicles.POST("/sessions/:id/end", r.vehicleHandler.EndSession)
		vehicles.POST("/violations", r.vehicleHandler.RecordViolation)
	}

	groups := v1.Group("/groups")
	{
		groups.POST("", r.groupHandler.Create)
		groups.GET("/:id/members", r.groupHandler.Members)
		groups.POST("/:id/members", r.groupHandler.AddMember)
		groups.DELETE("/:id/members/:deviceId", r.groupHandler.RemoveMember)
		groups.GET("/:id/locations/latest", r.groupHandler.LatestLocations)
	}

	return r.engine
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
