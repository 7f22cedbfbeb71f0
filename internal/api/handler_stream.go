package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetStatusStream handles GET /api/status/stream. The current record is sent
// on connect, then every write.
func (h *Handler) GetStatusStream(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "status stream is disabled"})
		return
	}

	h.hub.Serve(c.Writer, c.Request, h.status.ReadStatus)
}
