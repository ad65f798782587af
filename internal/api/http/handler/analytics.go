package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"location-tracking-core/internal/analytics"
	"location-tracking-core/internal/api/http/middleware"
	"location-tracking-core/internal/classify"
	"location-tracking-core/internal/domain/location"
	"location-tracking-core/internal/infrastructure/storage"
	"location-tracking-core/internal/plan"
)

const (
	defaultLookbackMinutes = 5
	patternWindow          = 100
)

// analyticsQuery selects the sections of the composite analytics response.
// Patterns and predictions require a plan with advanced analytics.
type analyticsQuery struct {
	StartTime          int64 `form:"start_time"`
	EndTime            int64 `form:"end_time"`
	LookbackMinutes    int   `form:"lookback_minutes"`
	IncludeTimeSeries  bool  `form:"include_time_series"`
	IncludePatterns    bool  `form:"include_patterns"`
	IncludePredictions bool  `form:"include_predictions"`
}

type AnalyticsHandler struct {
	analytics  *analytics.Service
	classifier *classify.Classifier
	locations  storage.LocationRepository
	plans      *plan.Resolver
}

func NewAnalyticsHandler(
	analyticsService *analytics.Service,
	classifier *classify.Classifier,
	locations storage.LocationRepository,
	plans *plan.Resolver,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics:  analyticsService,
		classifier: classifier,
		locations:  locations,
		plans:      plans,
	}
}

// Analytics composes route metrics, speed zones and quality for one device,
// with motion patterns and a position prediction on request.
func (h *AnalyticsHandler) Analytics(c *gin.Context) {
	var q analyticsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.LookbackMinutes <= 0 {
		q.LookbackMinutes = defaultLookbackMinutes
	}

	deviceID := c.Param("id")
	ctx := c.Request.Context()
	tier := h.plans.TierFor(ctx, middleware.UserID(c))

	if (q.IncludePatterns || q.IncludePredictions) && !tier.AdvancedAnalytics {
		respondError(c, &plan.LimitError{Feature: "advanced_analytics", Limit: 0, Requested: 1})
		return
	}

	params := analytics.Params{
		StartMs:    q.StartTime,
		EndMs:      q.EndTime,
		Lookback:   time.Duration(q.LookbackMinutes) * time.Minute,
		MaxSamples: tier.MaxHistory,
		CacheTTL:   tier.CacheTTL,
	}

	route, err := h.analytics.RouteMetrics(ctx, deviceID, params)
	if err != nil {
		respondError(c, err)
		return
	}
	if !q.IncludeTimeSeries {
		route.Route = nil
	}

	zones, err := h.analytics.SpeedZones(ctx, deviceID, params)
	if err != nil {
		respondError(c, err)
		return
	}

	quality, err := h.analytics.Quality(ctx, deviceID, params)
	if err != nil {
		respondError(c, err)
		return
	}

	response := gin.H{
		"device_id":     deviceID,
		"plan":          string(tier.Plan),
		"route_metrics": route,
		"speed_zones":   zones,
		"quality":       quality,
	}

	if q.IncludePatterns {
		patterns, err := h.patterns(c, deviceID)
		if err != nil {
			respondError(c, err)
			return
		}
		response["patterns"] = patterns
	}

	if q.IncludePredictions {
		prediction, err := h.analytics.Predict(ctx, deviceID, params)
		if err != nil {
			respondError(c, err)
			return
		}
		response["prediction"] = prediction
	}

	c.JSON(http.StatusOK, response)
}

// Activity labels the device's current motion from its recent track. This is
// the lightweight read available on every plan.
func (h *AnalyticsHandler) Activity(c *gin.Context) {
	deviceID := c.Param("id")

	limit := 10
	if raw := c.Query("window"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	track, _, err := h.locations.History(c.Request.Context(), &location.HistoryQuery{
		DeviceID: deviceID,
		Limit:    limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"device_id":      deviceID,
		"classification": h.classifier.Classify(track),
	})
}

func (h *AnalyticsHandler) patterns(c *gin.Context, deviceID string) (gin.H, error) {
	track, _, err := h.locations.History(c.Request.Context(), &location.HistoryQuery{
		DeviceID: deviceID,
		Limit:    patternWindow,
	})
	if err != nil {
		return nil, err
	}

	return gin.H{
		"classification": h.classifier.Classify(track),
		"vehicle_status": h.classifier.VehicleStatus(track),
	}, nil
}
