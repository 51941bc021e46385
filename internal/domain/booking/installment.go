package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentverse/internal/domain/shared/daterange"
	"rentverse/internal/domain/shared/money"
	"rentverse/internal/domain/user"
)

var (
	ErrAlreadyPaid          = errors.New("installment: already paid")
	ErrPaidAmountMismatch   = errors.New("installment: paid amount must equal the installment amount")
	ErrInstallmentNotFound  = errors.New("installment: not found")
	ErrInvalidPaymentMethod = errors.New("installment: payment method must be CASH or ONLINE")
)

type InstallmentStatus string

const (
	InstallmentUnpaid InstallmentStatus = "UNPAID"
	InstallmentPaid   InstallmentStatus = "PAID"
	// InstallmentOverdue is a read-time view over UNPAID rows with an
	// elapsed due date. It is never stored.
	InstallmentOverdue InstallmentStatus = "OVERDUE"
)

// Installment is one scheduled partial payment of a booking's total,
// identified by (BookingID, Number) with numbers starting at 1.
type Installment struct {
	ID        string
	BookingID BookingID
	Number    int
	Amount    money.Money
	DueDate   time.Time
	Status    InstallmentStatus

	PaidAmount money.Money
	PaidAt     *time.Time
	PaidMethod PaymentType

	// Gateway correlation, set when an online invoice is created.
	GatewayInvoiceID string
	ExternalID       string

	CreatedAt time.Time
	UpdatedAt time.Time
}

type InstallmentRepository interface {
	ByID(ctx context.Context, id string) (*Installment, error)
	// ByExternalID resolves webhook callbacks to an installment.
	ByExternalID(ctx context.Context, externalID string) (*Installment, error)
	Save(ctx context.Context, ins *Installment) error
	SaveAll(ctx context.Context, ins []*Installment) error
	ListByBooking(ctx context.Context, id BookingID) ([]*Installment, error)
	ListByTenant(ctx context.Context, tenant user.ID) ([]*Installment, error)
	ListUnpaidByTenant(ctx context.Context, tenant user.ID) ([]*Installment, error)
}

// MarkPaid performs the single UNPAID → PAID transition. PAID is
// terminal: a second attempt fails with ErrAlreadyPaid and must leave
// the row untouched.
func (i *Installment) MarkPaid(amount money.Money, method PaymentType, paidAt time.Time) error {
	if i.Status == InstallmentPaid {
		return ErrAlreadyPaid
	}
	if method != PaymentTypeCash && method != PaymentTypeOnline {
		return ErrInvalidPaymentMethod
	}
	if !amount.Equal(i.Amount) {
		return ErrPaidAmountMismatch
	}
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	paidAt = paidAt.UTC()
	i.Status = InstallmentPaid
	i.PaidAmount = amount
	i.PaidAt = &paidAt
	i.PaidMethod = method
	i.UpdatedAt = paidAt
	return nil
}

// AttachGatewayInvoice stores the gateway correlation ids after an
// online invoice has been created. The installment stays UNPAID.
func (i *Installment) AttachGatewayInvoice(invoiceID, externalID string, now time.Time) {
	i.GatewayInvoiceID = strings.TrimSpace(invoiceID)
	i.ExternalID = strings.TrimSpace(externalID)
	if now.IsZero() {
		now = time.Now()
	}
	i.UpdatedAt = now.UTC()
}

// EffectiveStatus derives the reported status: UNPAID rows with an
// elapsed due date read as OVERDUE. Every endpoint reporting
// installment status goes through this to avoid drift.
func (i *Installment) EffectiveStatus(now time.Time) InstallmentStatus {
	if i.Status == InstallmentPaid {
		return InstallmentPaid
	}
	if daterange.Truncate(i.DueDate).Before(daterange.Truncate(now)) {
		return InstallmentOverdue
	}
	return InstallmentUnpaid
}
