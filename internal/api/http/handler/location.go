package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"location-tracking-core/internal/api/http/middleware"
	locationService "location-tracking-core/internal/application/location"
	"location-tracking-core/internal/domain/location"
)

type LocationHandler struct {
	locations *locationService.Service
}

func NewLocationHandler(locations *locationService.Service) *LocationHandler {
	return &LocationHandler{locations: locations}
}

func (h *LocationHandler) Ingest(c *gin.Context) {
	var req location.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.locations.Ingest(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, result)
}

func (h *LocationHandler) History(c *gin.Context) {
	var q location.HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q.DeviceID = c.Param("id")

	history, err := h.locations.History(c.Request.Context(), middleware.UserID(c), &q)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

func (h *LocationHandler) Latest(c *gin.Context) {
	deviceID := c.Param("id")

	sample, err := h.locations.Latest(c.Request.Context(), deviceID)
	if err != nil {
		respondError(c, err)
		return
	}
	if sample == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no location known for device"})
		return
	}

	c.JSON(http.StatusOK, sample)
}

func (h *LocationHandler) Stats(c *gin.Context) {
	stats, err := h.locations.Stats(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *LocationHandler) ActiveDevices(c *gin.Context) {
	window := time.Hour
	if raw := c.Query("window_minutes"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "window_minutes must be a positive integer"})
			return
		}
		window = time.Duration(minutes) * time.Minute
	}

	snapshots, err := h.locations.ActiveDevices(c.Request.Context(), window)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"devices": snapshots,
		"count":   len(snapshots),
	})
}

func (h *LocationHandler) QueueSize(c *gin.Context) {
	deviceID := c.Param("id")
	c.JSON(http.StatusOK, gin.H{
		"device_id":  deviceID,
		"queue_size": h.locations.QueueSize(deviceID),
	})
}
