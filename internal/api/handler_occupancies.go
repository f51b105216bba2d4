package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parking-backend/internal/lifecycle"
	"parking-backend/internal/model"
	"parking-backend/internal/mw"
	"parking-backend/internal/parse"
)

type checkInRequest struct {
	ReservationID *int64 `json:"reservation_id"`
	SpaceID       int64  `json:"space_id" binding:"required"`
	VehicleID     int64  `json:"vehicle_id" binding:"required"`
	// UserID lets staff check a driver in at the gate.
	UserID *int64 `json:"user_id"`
}

// CheckIn opens a stay for the caller, or for the given user when staff checks in.
func (h *Handler) CheckIn(c *gin.Context) {
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	userID := mw.UserID(c)
	if req.UserID != nil && *req.UserID != userID {
		if !mw.IsStaff(c) {
			forbidden(c)
			return
		}
		userID = *req.UserID
	}

	occ, err := h.svc.Occupancies.CheckIn(c.Request.Context(), lifecycle.CheckInInput{
		ReservationID: req.ReservationID,
		SpaceID:       req.SpaceID,
		VehicleID:     req.VehicleID,
		UserID:        userID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newOccupancyResponse(occ))
}

// loadOccupancy fetches the occupancy named by the id parameter and checks the caller
// may act on it. It writes the response itself on failure.
func (h *Handler) loadOccupancy(c *gin.Context) (*model.Occupancy, bool) {
	id, ok := idParam(c, "id")
	if !ok {
		return nil, false
	}
	occ, err := h.svc.Occupancies.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if !canAccess(c, occ.UserID) {
		forbidden(c)
		return nil, false
	}
	return occ, true
}

// GetOccupancy returns one stay.
func (h *Handler) GetOccupancy(c *gin.Context) {
	occ, ok := h.loadOccupancy(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newOccupancyResponse(occ))
}

// EstimateOccupancy prices a stay as of now without closing it.
func (h *Handler) EstimateOccupancy(c *gin.Context) {
	occ, ok := h.loadOccupancy(c)
	if !ok {
		return
	}
	q, err := h.svc.Occupancies.Estimate(c.Request.Context(), occ.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newQuoteResponse(q))
}

// RequestExit prices a stay and leaves a pending payment for the operator.
func (h *Handler) RequestExit(c *gin.Context) {
	occ, ok := h.loadOccupancy(c)
	if !ok {
		return
	}
	out, err := h.svc.Occupancies.RequestExit(c.Request.Context(), occ.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"occupancy":         newOccupancyResponse(out.Occupancy),
		"payment":           newPaymentResponse(out.Payment),
		"quote":             newQuoteResponse(out.Quote),
		"already_requested": out.AlreadyRequested,
	})
}

type directExitRequest struct {
	MethodID    *int64 `json:"method_id"`
	ReceiptType string `json:"receipt_type"`
}

// DirectExit closes a stay immediately, optionally recording a completed payment.
func (h *Handler) DirectExit(c *gin.Context) {
	occ, ok := h.loadOccupancy(c)
	if !ok {
		return
	}
	var req directExitRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	receipt, err := parse.ParseReceiptType(req.ReceiptType)
	if err != nil {
		badRequest(c, err)
		return
	}

	out, err := h.svc.Occupancies.DirectExit(c.Request.Context(), lifecycle.DirectExitInput{
		OccupancyID: occ.ID,
		MethodID:    req.MethodID,
		OperatorID:  staffID(c),
		ReceiptType: receipt,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"occupancy": newOccupancyResponse(out.Occupancy),
		"payment":   newPaymentResponse(out.Payment),
		"quote":     newQuoteResponse(out.Quote),
	})
}

type settleAndPayRequest struct {
	MethodID       int64    `json:"method_id" binding:"required"`
	ReceivedAmount *float64 `json:"received_amount"`
	ReceiptType    string   `json:"receipt_type"`
}

// SettleAndPay collects payment for a stay at the exit and closes it.
func (h *Handler) SettleAndPay(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req settleAndPayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	receipt, err := parse.ParseReceiptType(req.ReceiptType)
	if err != nil {
		badRequest(c, err)
		return
	}

	out, err := h.svc.Payments.SettleAndPay(c.Request.Context(), lifecycle.SettleAndPayInput{
		OccupancyID:    id,
		MethodID:       req.MethodID,
		ReceivedAmount: req.ReceivedAmount,
		OperatorID:     staffID(c),
		ReceiptType:    receipt,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"occupancy": newOccupancyResponse(out.Occupancy),
		"payment":   newPaymentResponse(out.Payment),
		"quote":     newQuoteResponse(out.Quote),
		"change":    out.Change,
	})
}

// ListLotOccupancies returns the stays in progress at a lot.
func (h *Handler) ListLotOccupancies(c *gin.Context) {
	lotID, ok := idParam(c, "lot_id")
	if !ok {
		return
	}
	list, err := h.svc.Occupancies.ListActive(c.Request.Context(), lotID)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]occupancyResponse, len(list))
	for i := range list {
		out[i] = newOccupancyResponse(&list[i])
	}
	c.JSON(http.StatusOK, out)
}
