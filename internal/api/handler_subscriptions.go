package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"coop-door-backend/internal/model"
)

type putSubscriptionRequest struct {
	Endpoint       string `json:"endpoint" binding:"required,url"`
	P256DH         string `json:"p256dh" binding:"required"`
	Auth           string `json:"auth" binding:"required"`
	NotifyMotion   *bool  `json:"notify_motion"`
	NotifyWarnings *bool  `json:"notify_warnings"`
}

type subscriptionResponse struct {
	Endpoint       string `json:"endpoint"`
	NotifyMotion   bool   `json:"notify_motion"`
	NotifyWarnings bool   `json:"notify_warnings"`
}

func (h *Handler) subscriptionsEnabled(c *gin.Context) bool {
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push notifications are not configured"})
		return false
	}
	return true
}

// PutSubscription creates or replaces a subscription. Warnings are on and
// motion alerts off unless the request says otherwise.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if !h.subscriptionsEnabled(c) {
		return
	}

	subscription := model.PushSubscription{
		Endpoint:       req.Endpoint,
		P256DH:         req.P256DH,
		Auth:           req.Auth,
		NotifyMotion:   req.NotifyMotion != nil && *req.NotifyMotion,
		NotifyWarnings: req.NotifyWarnings == nil || *req.NotifyWarnings,
		CreatedAt:      h.clock().UTC(),
	}

	err := h.db.WithContext(c.Request.Context()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "notify_motion", "notify_warnings"}),
	}).Create(&subscription).Error
	if err != nil {
		h.log.Error("Failed to save subscription", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save subscription"})
		return
	}

	c.JSON(http.StatusCreated, subscriptionResponse{
		Endpoint:       subscription.Endpoint,
		NotifyMotion:   subscription.NotifyMotion,
		NotifyWarnings: subscription.NotifyWarnings,
	})
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription handles the deletion of a subscription.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if !h.subscriptionsEnabled(c) {
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Delete(&model.PushSubscription{Endpoint: req.Endpoint}).Error; err != nil {
		h.log.Error("Failed to delete subscription", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete subscription"})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetSubscription returns the alert preferences of one subscription.
func (h *Handler) GetSubscription(c *gin.Context) {
	endpoint := c.Query("endpoint")
	if endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint is required"})
		return
	}
	if !h.subscriptionsEnabled(c) {
		return
	}

	var subscription model.PushSubscription
	err := h.db.WithContext(c.Request.Context()).First(&subscription, "endpoint = ?", endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return
	}
	if err != nil {
		h.log.Error("Failed to load subscription", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load subscription"})
		return
	}

	c.JSON(http.StatusOK, subscriptionResponse{
		Endpoint:       subscription.Endpoint,
		NotifyMotion:   subscription.NotifyMotion,
		NotifyWarnings: subscription.NotifyWarnings,
	})
}
