package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"iot-telemetry-backend/internal/model"
)

type putSubscriptionRequest struct {
	Endpoint          string  `json:"endpoint" binding:"required"`
	P256DH            string  `json:"p256dh" binding:"required"`
	Auth              string  `json:"auth" binding:"required"`
	SubscribedDevices []int64 `json:"subscribed_devices"`
}

// PutSubscription handles PUT /api/subscriptions: register or refresh a
// push subscription and replace its device scoping. No device ids means
// the subscription hears about every device.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub := model.PushSubscription{
		Endpoint: req.Endpoint,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}
	ctx := c.Request.Context()
	if err := h.store.SavePushSubscription(ctx, &sub); err != nil {
		respondStoreError(c, err)
		return
	}
	if err := h.store.SetSubscriptionDevices(ctx, req.Endpoint, req.SubscribedDevices); err != nil {
		respondStoreError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription handles DELETE /api/subscriptions.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.DeletePushSubscription(c.Request.Context(), req.Endpoint); err != nil {
		respondStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSubscription handles GET /api/subscriptions?endpoint=...
func (h *Handler) GetSubscription(c *gin.Context) {
	endpoint := c.Query("endpoint")
	if endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint query parameter required"})
		return
	}

	subs, err := h.store.ListPushSubscriptions(c.Request.Context())
	if err != nil {
		respondStoreError(c, err)
		return
	}
	for _, sub := range subs {
		if sub.Endpoint == endpoint {
			c.JSON(http.StatusOK, sub)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}
