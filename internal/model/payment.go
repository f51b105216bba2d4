package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentState is the settlement state of a payment. Completed is terminal.
type PaymentState string

const (
	PaymentPending   PaymentState = "pending"
	PaymentCompleted PaymentState = "completed"
)

// ReceiptType selects the receipt numbering series.
type ReceiptType string

const (
	ReceiptInvoice ReceiptType = "invoice"
	ReceiptSimple  ReceiptType = "receipt"
)

// PaymentMethodKind distinguishes cash from electronic methods.
type PaymentMethodKind string

const (
	MethodCash PaymentMethodKind = "cash"
	MethodCard PaymentMethodKind = "card"
	MethodQR   PaymentMethodKind = "qr"
)

// PaymentMethod is a way of collecting a payment.
type PaymentMethod struct {
	ID        int64             `gorm:"primaryKey"`
	Name      string            `gorm:"size:64;not null"`
	Kind      PaymentMethodKind `gorm:"size:16;not null"`
	CreatedAt time.Time         `gorm:"not null"`
}

// Payment is a charge tied to one occupancy.
type Payment struct {
	ID          int64        `gorm:"primaryKey"`
	Reference   string       `gorm:"type:uuid;uniqueIndex;not null"`
	OccupancyID int64        `gorm:"index;not null;uniqueIndex:idx_payments_pending_occupancy,where:state = 'pending'"`
	Amount      float64      `gorm:"not null"`
	State       PaymentState `gorm:"size:16;not null;index"`
	MethodID    *int64
	SettledAt   *time.Time
	OperatorID  *int64
	ReceiptType *ReceiptType `gorm:"size:16"`
	// ReceiptSeries and ReceiptNumber are assigned at settlement.
	ReceiptSeries *string   `gorm:"size:8;uniqueIndex:idx_payments_receipt,priority:1"`
	ReceiptNumber *int64    `gorm:"uniqueIndex:idx_payments_receipt,priority:2"`
	Simulated     bool      `gorm:"not null;default:false"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.Reference == "" {
		p.Reference = uuid.NewString()
	}
	return nil
}

// ReceiptSequence holds the last receipt number issued for a series.
type ReceiptSequence struct {
	Series     string    `gorm:"primaryKey;size:8"`
	LastNumber int64     `gorm:"not null;default:0"`
	UpdatedAt  time.Time `gorm:"not null"`
}
