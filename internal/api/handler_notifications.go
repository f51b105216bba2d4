package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"parking-backend/internal/mw"
)

type notificationResponse struct {
	ID        int64     `json:"id"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// ListNotifications returns the caller's latest notifications. ?limit= caps the
// count at 200.
func (h *Handler) ListNotifications(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, 200)
	}

	list, err := h.store.ListNotifications(c.Request.Context(), mw.UserID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]notificationResponse, len(list))
	for i, n := range list {
		out[i] = notificationResponse{ID: n.ID, Category: n.Category, Message: n.Message, CreatedAt: n.CreatedAt}
	}
	c.JSON(http.StatusOK, out)
}
