package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coop-door-backend/internal/model"
	"coop-door-backend/internal/mw"
	"coop-door-backend/internal/store"
)

// Greeting is served on the root route.
const Greeting = "Oh, Chicken, Chicken, you can't roost too high for me"

// putStatusRequest requires every field; pointers tell a missing field from zero.
type putStatusRequest struct {
	Executed    *int `json:"executed" binding:"required,oneof=0 1"`
	Up          *int `json:"up" binding:"required,oneof=0 1"`
	OverRide    *int `json:"over_ride" binding:"required,oneof=0 1"`
	OverRideDay *int `json:"over_ride_day" binding:"required,min=0,max=366"`
}

func (r putStatusRequest) status() model.DoorStatus {
	return model.DoorStatus{
		Executed:    *r.Executed,
		Up:          *r.Up,
		OverRide:    *r.OverRide,
		OverRideDay: *r.OverRideDay,
	}
}

// Root handles GET /.
func Root(c *gin.Context) {
	c.String(http.StatusOK, Greeting)
}

// GetDoorStatus handles GET /get_door_status and GET /api/status.
func (h *Handler) GetDoorStatus(c *gin.Context) {
	status, err := h.status.ReadStatus(c.Request.Context())
	if err != nil {
		h.statusError(c, "read", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// PutDoorStatus handles PUT /update_door_status and PUT /api/status. The body
// replaces the record as is; no override rule is applied here.
func (h *Handler) PutDoorStatus(c *gin.Context) {
	var req putStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid door status: " + err.Error()})
		return
	}

	stored, err := h.status.ReplaceStatus(c.Request.Context(), req.status())
	if err != nil {
		h.statusError(c, "write", err)
		return
	}

	h.log.Info("Door status replaced",
		zap.Int("executed", stored.Executed),
		zap.Int("up", stored.Up),
		zap.Int("over_ride", stored.OverRide),
		zap.Int("over_ride_day", stored.OverRideDay),
		zap.String("request_id", mw.GetRequestID(c)),
	)
	c.JSON(http.StatusOK, stored)
}

func (h *Handler) statusError(c *gin.Context, op string, err error) {
	h.log.Error("Door status "+op+" failed", zap.Error(err), zap.String("request_id", mw.GetRequestID(c)))
	c.Error(err)

	switch {
	case errors.Is(err, store.ErrCorrupt):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "door status is corrupt"})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "door status is unavailable"})
	}
}
