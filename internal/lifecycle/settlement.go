package lifecycle

import (
	"context"
	"fmt"
	"math"

	"parking-backend/internal/model"
	"parking-backend/internal/store"
	"parking-backend/internal/tariff"
)

// SettleResult is the outcome of settling a payment.
type SettleResult struct {
	Payment   *model.Payment
	Occupancy *model.Occupancy
	// AlreadySettled is set when the payment was completed before this call; nothing
	// was changed.
	AlreadySettled bool
}

// SettleAndPayInput describes a one-shot collection at the exit.
type SettleAndPayInput struct {
	OccupancyID int64 `validate:"gt=0"`
	MethodID    int64 `validate:"gt=0"`
	// ReceivedAmount is the cash handed over, used to compute change.
	ReceivedAmount *float64          `validate:"omitempty,gte=0"`
	OperatorID     *int64            `validate:"omitempty,gt=0"`
	ReceiptType    model.ReceiptType `validate:"omitempty,oneof=invoice receipt"`
}

// SettleAndPayResult is the outcome of SettleAndPay.
type SettleAndPayResult struct {
	Payment   *model.Payment
	Occupancy *model.Occupancy
	Quote     Quote
	Change    float64
}

// PaymentSettlement settles payments and applies their side effects atomically.
type PaymentSettlement struct {
	*core
	pricer *Pricer
}

// ListPending returns a lot's pending payments for operator review.
func (p *PaymentSettlement) ListPending(ctx context.Context, lotID int64) ([]store.PendingPayment, error) {
	if _, err := p.store.GetLot(ctx, lotID); err != nil {
		return nil, storeErr("payment.list_pending", "lot", err)
	}
	rows, err := p.store.ListPendingPayments(ctx, lotID)
	if err != nil {
		return nil, storeErr("payment.list_pending", "payment", err)
	}
	return rows, nil
}

// Get returns a payment.
func (p *PaymentSettlement) Get(ctx context.Context, id int64) (*model.Payment, error) {
	payment, err := p.store.GetPayment(ctx, id)
	if err != nil {
		return nil, storeErr("payment.get", "payment", err)
	}
	return payment, nil
}

// Settle completes a pending payment on behalf of an operator. Settling a completed
// payment again returns it unchanged with AlreadySettled set.
func (p *PaymentSettlement) Settle(ctx context.Context, paymentID int64, operatorID *int64) (*SettleResult, error) {
	return p.settle(ctx, "payment.settle", paymentID, operatorID, false)
}

// Simulate settles a payment without collecting money and marks it as simulated.
func (p *PaymentSettlement) Simulate(ctx context.Context, paymentID int64) (*SettleResult, error) {
	return p.settle(ctx, "payment.simulate", paymentID, nil, true)
}

func (p *PaymentSettlement) settle(ctx context.Context, op string, paymentID int64, operatorID *int64, simulated bool) (*SettleResult, error) {
	var out SettleResult
	err := p.store.InTx(ctx, func(tx store.Repo) error {
		// Occupancy before payment, the same lock order as the exit paths.
		unlocked, err := tx.GetPayment(ctx, paymentID)
		if err != nil {
			return storeErr(op, "payment", err)
		}
		occ, err := tx.LockOccupancy(ctx, unlocked.OccupancyID)
		if err != nil {
			return storeErr(op, "occupancy", err)
		}
		payment, err := tx.LockPayment(ctx, paymentID)
		if err != nil {
			return storeErr(op, "payment", err)
		}
		out.Payment, out.Occupancy = payment, occ

		if payment.State == model.PaymentCompleted {
			out.AlreadySettled = true
			return nil
		}
		if occ.State == model.OccupancyClosed {
			return fail(KindInvalidState, op, "occupancy is already closed")
		}

		now := p.now()
		receipt := model.ReceiptSimple
		series := p.policy.SeriesFor(receipt)
		number, err := tx.NextReceiptNumber(ctx, series)
		if err != nil {
			return storeErr(op, "receipt", err)
		}

		changes := map[string]any{
			"state":          model.PaymentCompleted,
			"settled_at":     now,
			"operator_id":    operatorID,
			"simulated":      simulated,
			"receipt_type":   receipt,
			"receipt_series": series,
			"receipt_number": number,
		}
		if err := tx.UpdatePayment(ctx, payment.ID, model.PaymentPending, changes); err != nil {
			return storeErr(op, "payment", err)
		}
		payment.State = model.PaymentCompleted
		payment.SettledAt = &now
		payment.OperatorID = operatorID
		payment.Simulated = simulated
		payment.ReceiptType = &receipt
		payment.ReceiptSeries = &series
		payment.ReceiptNumber = &number

		elapsed := ElapsedMinutes(occ.EntryTime, now)
		if occ.ElapsedMinutes != nil {
			elapsed = *occ.ElapsedMinutes
		}
		return closeStay(ctx, tx, op, occ, payment.Amount, elapsed, occ.TariffID, now)
	})
	if err != nil {
		return nil, err
	}

	if !out.AlreadySettled {
		p.notify(ctx, out.Occupancy.UserID,
			fmt.Sprintf("Payment of %.2f received. Receipt %s-%d.", out.Payment.Amount, *out.Payment.ReceiptSeries, *out.Payment.ReceiptNumber),
			CategoryPayment)
	}
	return &out, nil
}

// SettleAndPay prices a stay and settles it in one step, for collection at the exit.
// A received amount is only accepted for cash and must cover the amount due.
func (p *PaymentSettlement) SettleAndPay(ctx context.Context, in SettleAndPayInput) (*SettleAndPayResult, error) {
	const op = "payment.settle_and_pay"
	if err := p.check(op, in); err != nil {
		return nil, err
	}

	var out SettleAndPayResult
	err := p.store.InTx(ctx, func(tx store.Repo) error {
		occ, err := tx.LockOccupancy(ctx, in.OccupancyID)
		if err != nil {
			return storeErr(op, "occupancy", err)
		}
		if occ.State == model.OccupancyClosed || occ.ExitConfirmedAt != nil {
			return fail(KindInvalidState, op, "occupancy is already closed")
		}

		method, err := tx.GetPaymentMethod(ctx, in.MethodID)
		if err != nil {
			return storeErr(op, "payment method", err)
		}
		if in.ReceivedAmount != nil && method.Kind != model.MethodCash {
			return fail(KindInvalidInput, op, "a received amount only applies to cash payments")
		}

		now := p.now()
		quote, err := p.pricer.Quote(ctx, tx, occ, now)
		if err != nil {
			return err
		}
		if in.ReceivedAmount != nil {
			if *in.ReceivedAmount < quote.Amount {
				return fail(KindInvalidInput, op, "received %.2f is less than the %.2f due", *in.ReceivedAmount, quote.Amount)
			}
			out.Change = tariff.Round(math.Max(0, *in.ReceivedAmount-quote.Amount), 2)
		}

		receipt := in.ReceiptType
		if receipt == "" {
			receipt = model.ReceiptSimple
		}
		series := p.policy.SeriesFor(receipt)
		number, err := tx.NextReceiptNumber(ctx, series)
		if err != nil {
			return storeErr(op, "receipt", err)
		}

		payment, err := tx.FindPendingPayment(ctx, occ.ID)
		switch {
		case err == nil:
			changes := map[string]any{
				"state":          model.PaymentCompleted,
				"amount":         quote.Amount,
				"method_id":      in.MethodID,
				"settled_at":     now,
				"operator_id":    in.OperatorID,
				"receipt_type":   receipt,
				"receipt_series": series,
				"receipt_number": number,
			}
			if err := tx.UpdatePayment(ctx, payment.ID, model.PaymentPending, changes); err != nil {
				return storeErr(op, "payment", err)
			}
		case store.IsNotFound(err):
			payment = &model.Payment{OccupancyID: occ.ID, State: model.PaymentCompleted}
		default:
			return storeErr(op, "payment", err)
		}

		methodID := in.MethodID
		payment.State = model.PaymentCompleted
		payment.Amount = quote.Amount
		payment.MethodID = &methodID
		payment.SettledAt = &now
		payment.OperatorID = in.OperatorID
		payment.ReceiptType = &receipt
		payment.ReceiptSeries = &series
		payment.ReceiptNumber = &number
		if payment.ID == 0 {
			if err := tx.CreatePayment(ctx, payment); err != nil {
				return storeErr(op, "payment", err)
			}
		}

		if err := closeStay(ctx, tx, op, occ, quote.Amount, quote.ElapsedMinutes, quote.Rate.TariffID, now); err != nil {
			return err
		}
		out.Payment, out.Occupancy, out.Quote = payment, occ, quote
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.notify(ctx, out.Occupancy.UserID,
		fmt.Sprintf("Payment of %.2f received. Receipt %s-%d.", out.Payment.Amount, *out.Payment.ReceiptSeries, *out.Payment.ReceiptNumber),
		CategoryPayment)
	return &out, nil
}
