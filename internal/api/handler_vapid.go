package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetVAPIDPublicKey handles GET /api/vapid_public_key, the key browsers
// need to register for push.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.push == nil || h.push.PublicKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "push notifications not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"public_key": h.push.PublicKey})
}
