package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"iot-telemetry-backend/config"
	"iot-telemetry-backend/internal/ingest"
	"iot-telemetry-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	session *ingest.Session
	push    *config.PushConfig
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, session *ingest.Session, push *config.PushConfig) *Handler {
	return &Handler{
		store:   s,
		session: session,
		push:    push,
	}
}

// idParam parses the numeric :id path parameter, responding 400 itself
// on failure.
func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// respondStoreError maps store errors onto HTTP statuses.
func respondStoreError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
