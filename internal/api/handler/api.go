package handler

import (
	"net/http"

	"healthportal/backend/internal/config"

	"github.com/gin-gonic/gin"
)

// Health reports liveness and whether the database answers.
func (h *Handler) Health(c *gin.Context) {
	if _, err := h.Storage.Stats(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// PublishedNotices lists the latest published notices as JSON.
func (h *Handler) PublishedNotices(c *gin.Context) {
	notices, err := h.Notices.Latest(config.LatestItemsLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notices": notices})
}
