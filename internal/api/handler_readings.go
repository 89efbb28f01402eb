package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AllReadings handles GET /api/readings.
func (h *Handler) AllReadings(c *gin.Context) {
	readings, err := h.store.AllReadings(c.Request.Context())
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, readings)
}

// ReadingsByMetric handles GET /api/readings/:metric.
func (h *Handler) ReadingsByMetric(c *gin.Context) {
	readings, err := h.store.ReadingsByMetric(c.Request.Context(), c.Param("metric"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, readings)
}
