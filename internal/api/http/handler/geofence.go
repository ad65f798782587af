package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"location-tracking-core/internal/api/http/middleware"
	geofenceService "location-tracking-core/internal/application/geofence"
	"location-tracking-core/internal/domain/geofence"
)

type GeofenceHandler struct {
	fences *geofenceService.Service
}

func NewGeofenceHandler(fences *geofenceService.Service) *GeofenceHandler {
	return &GeofenceHandler{fences: fences}
}

func (h *GeofenceHandler) Create(c *gin.Context) {
	var req geofence.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g, err := h.fences.Create(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, g)
}

func (h *GeofenceHandler) List(c *gin.Context) {
	fences, err := h.fences.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"geofences": fences,
		"count":     len(fences),
	})
}

func (h *GeofenceHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid geofence id"})
		return
	}

	g, err := h.fences.Get(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, g)
}

func (h *GeofenceHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid geofence id"})
		return
	}

	var req geofence.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g, err := h.fences.Update(c.Request.Context(), middleware.UserID(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, g)
}

func (h *GeofenceHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid geofence id"})
		return
	}

	if err := h.fences.Delete(c.Request.Context(), middleware.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Events pages the enter/exit log for one device, optionally bounded by a
// time range and a single geofence.
func (h *GeofenceHandler) Events(c *gin.Context) {
	var q geofence.EventQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q.DeviceID = c.Param("id")

	events, total, err := h.fences.Events(c.Request.Context(), &q)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"device_id": q.DeviceID,
		"events":    events,
		"total":     total,
		"limit":     q.Limit,
		"offset":    q.Offset,
	})
}
