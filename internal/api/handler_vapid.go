package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"coop-door-backend/internal/model"
)

// GetVAPIDPublicKey returns the VAPID public key and the alert kinds a
// subscription can opt into.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vapid keys are not configured"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"public_key":  h.webpush.VAPIDPublicKey,
		"alert_kinds": []model.AlertKind{model.AlertMotion, model.AlertWarning},
	})
}
