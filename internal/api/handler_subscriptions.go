package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"parking-backend/internal/model"
	"parking-backend/internal/mw"
	"parking-backend/internal/store"
)

type putSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required,url"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
}

// PutSubscription registers the caller's browser for push. Re-registering an
// endpoint replaces its keys and moves it to the caller.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	subscription := model.PushSubscription{
		Endpoint: req.Endpoint,
		UserID:   mw.UserID(c),
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}
	if err := h.store.SavePushSubscription(c.Request.Context(), &subscription); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription removes one of the caller's subscriptions.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	sub, ok := h.ownedSubscription(c, req.Endpoint)
	if !ok {
		return
	}
	if err := h.store.DeletePushSubscription(c.Request.Context(), sub.Endpoint); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func rawQueryParam(rawQuery, key string) (string, bool) {
	for _, kv := range strings.Split(rawQuery, "&") {
		if strings.HasPrefix(kv, key+"=") {
			return kv[len(key)+1:], true // endpoints are matched as sent, without URL decoding
		}
	}
	return "", false
}

// GetSubscription reports whether an endpoint is registered for the caller.
func (h *Handler) GetSubscription(c *gin.Context) {
	raw, ok := rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	if !ok || raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint is required"})
		return
	}

	sub, ok := h.ownedSubscription(c, raw)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"endpoint": sub.Endpoint, "created_at": sub.CreatedAt})
}

// ownedSubscription loads a subscription of the caller. Another user's endpoint is
// reported as missing.
func (h *Handler) ownedSubscription(c *gin.Context, endpoint string) (*model.PushSubscription, bool) {
	sub, err := h.store.GetPushSubscription(c.Request.Context(), endpoint)
	if err != nil && !store.IsNotFound(err) {
		respondError(c, err)
		return nil, false
	}
	if err != nil || sub.UserID != mw.UserID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return nil, false
	}
	return sub, true
}
