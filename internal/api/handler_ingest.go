package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"iot-telemetry-backend/internal/ingest"
)

// StartIngestion handles POST /api/ingest/start.
func (h *Handler) StartIngestion(c *gin.Context) {
	err := h.session.Start(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, h.session.Status())
	case errors.Is(err, ingest.ErrAlreadyRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ingest.ErrConfigurationMissing):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": err.Error()})
	case errors.Is(err, ingest.ErrConnectFailure):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// StopIngestion handles POST /api/ingest/stop.
func (h *Handler) StopIngestion(c *gin.Context) {
	h.session.Stop()
	c.JSON(http.StatusOK, h.session.Status())
}

type topicRequest struct {
	Topic string `json:"topic" binding:"required"`
}

// SubscribeTopic handles POST /api/ingest/subscribe, adding a topic
// beyond the active profile's list.
func (h *Handler) SubscribeTopic(c *gin.Context) {
	var req topicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.session.SubscribeTopic(req.Topic); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.session.Status())
}

// UnsubscribeTopic handles POST /api/ingest/unsubscribe.
func (h *Handler) UnsubscribeTopic(c *gin.Context) {
	var req topicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.session.UnsubscribeTopic(req.Topic); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.session.Status())
}

type publishRequest struct {
	Topic   string `json:"topic"`
	Payload string `json:"payload" binding:"required"`
}

// PublishMessage handles POST /api/ingest/publish. An empty topic uses
// the active profile's publish topic.
func (h *Handler) PublishMessage(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.session.Publish(req.Topic, []byte(req.Payload)); err != nil {
		if errors.Is(err, ingest.ErrNotConnected) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusAccepted)
}

// IngestionStatus handles GET /api/ingest/status.
func (h *Handler) IngestionStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Status())
}
