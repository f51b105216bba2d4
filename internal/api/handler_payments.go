package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parking-backend/internal/lifecycle"
	"parking-backend/internal/mw"
)

// ListPendingPayments returns a lot's pending payments with their stay details.
func (h *Handler) ListPendingPayments(c *gin.Context) {
	lotID, ok := idParam(c, "lot_id")
	if !ok {
		return
	}
	rows, err := h.svc.Payments.ListPending(c.Request.Context(), lotID)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]pendingPaymentResponse, len(rows))
	for i, row := range rows {
		out[i] = newPendingPaymentResponse(row)
	}
	c.JSON(http.StatusOK, out)
}

// SettlePayment completes a pending payment and closes its stay.
func (h *Handler) SettlePayment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	operatorID := mw.UserID(c)
	out, err := h.svc.Payments.Settle(c.Request.Context(), id, &operatorID)
	writeSettleResult(c, out, err)
}

// SimulatePayment settles a payment without collecting money.
func (h *Handler) SimulatePayment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	out, err := h.svc.Payments.Simulate(c.Request.Context(), id)
	writeSettleResult(c, out, err)
}

func writeSettleResult(c *gin.Context, out *lifecycle.SettleResult, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"payment":         newPaymentResponse(out.Payment),
		"occupancy":       newOccupancyResponse(out.Occupancy),
		"already_settled": out.AlreadySettled,
	})
}
