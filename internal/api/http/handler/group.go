package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"location-tracking-core/internal/api/http/middleware"
	groupService "location-tracking-core/internal/application/group"
)

type GroupHandler struct {
	groups *groupService.Service
}

func NewGroupHandler(groups *groupService.Service) *GroupHandler {
	return &GroupHandler{groups: groups}
}

type createGroupRequest struct {
	Name string `json:"name" binding:"required"`
}

type addMemberRequest struct {
	DeviceID string `json:"device_id" binding:"required"`
	Name     string `json:"name,omitempty"`
}

func (h *GroupHandler) Create(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g, err := h.groups.Create(c.Request.Context(), middleware.UserID(c), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, g)
}

func (h *GroupHandler) AddMember(c *gin.Context) {
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.groups.AddMember(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.DeviceID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"group_id":  c.Param("id"),
		"device_id": req.DeviceID,
	})
}

func (h *GroupHandler) RemoveMember(c *gin.Context) {
	err := h.groups.RemoveMember(c.Request.Context(), middleware.UserID(c), c.Param("id"), c.Param("deviceId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *GroupHandler) Members(c *gin.Context) {
	members, err := h.groups.Members(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"group_id": c.Param("id"),
		"members":  members,
		"count":    len(members),
	})
}

// LatestLocations snapshots the newest position of every member. Silent
// members appear with a null last sample so the caller sees the full roster.
func (h *GroupHandler) LatestLocations(c *gin.Context) {
	snapshots, err := h.groups.LatestLocations(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"group_id":  c.Param("id"),
		"locations": snapshots,
		"count":     len(snapshots),
	})
}
