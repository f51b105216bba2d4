package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"parking-backend/internal/lifecycle"
	"parking-backend/internal/mw"
	"parking-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	svc     *lifecycle.Service
	store   store.Store
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(svc *lifecycle.Service, s store.Store, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		svc:     svc,
		store:   s,
		webpush: webpushOptions,
	}
}

var kindStatus = map[lifecycle.Kind]int{
	lifecycle.KindNotFound:     http.StatusNotFound,
	lifecycle.KindConflict:     http.StatusConflict,
	lifecycle.KindInvalidState: http.StatusUnprocessableEntity,
	lifecycle.KindForbidden:    http.StatusForbidden,
	lifecycle.KindInvalidInput: http.StatusBadRequest,
}

// respondError writes err with the status of its kind. Upstream failures are logged
// and answered with a generic message.
func respondError(c *gin.Context, err error) {
	kind := lifecycle.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		log.Printf("[%s] %s %s failed: %v", c.GetString(mw.RequestIDKey), c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": lifecycle.Message(err), "kind": kind})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
}

func forbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{"error": "not allowed for this caller", "kind": lifecycle.KindForbidden})
}

// idParam reads a positive integer path parameter, answering 400 when it is not one.
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// canAccess reports whether the caller owns a resource or is staff.
func canAccess(c *gin.Context, ownerID int64) bool {
	return mw.IsStaff(c) || mw.UserID(c) == ownerID
}

// staffID returns the caller's id when the caller is staff.
func staffID(c *gin.Context) *int64 {
	if !mw.IsStaff(c) {
		return nil
	}
	id := mw.UserID(c)
	return &id
}

// Healthz answers liveness checks.
func (h *Handler) Healthz(c *gin.Context) {
	sqlDB, err := h.store.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
