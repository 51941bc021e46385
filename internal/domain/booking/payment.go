package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentverse/internal/domain/shared/money"
)

var (
	ErrTransactionNotPending = errors.New("booking: payment transaction is not pending")
	ErrNoPendingTransaction  = errors.New("booking: no pending payment transaction")
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionCompleted TransactionStatus = "COMPLETED"
	TransactionFailed    TransactionStatus = "FAILED"
)

// PaymentTransaction is an append-only audit record of one payment
// attempt against an installment. Several attempts may exist (expired
// invoice, retry); at most one reaches COMPLETED.
type PaymentTransaction struct {
	ID            string
	InstallmentID string
	BookingID     BookingID
	Amount        money.Money
	Method        PaymentType
	Status        TransactionStatus

	GatewayInvoiceID string
	ExternalID       string
	FailureReason    string

	CreatedAt time.Time
	UpdatedAt time.Time
}

type TransactionRepository interface {
	Save(ctx context.Context, tx *PaymentTransaction) error
	ListByInstallment(ctx context.Context, installmentID string) ([]*PaymentTransaction, error)
	// LatestPendingByInstallment returns the newest PENDING attempt, or
	// ErrNoPendingTransaction.
	LatestPendingByInstallment(ctx context.Context, installmentID string) (*PaymentTransaction, error)
}

type TransactionParams struct {
	ID               string
	InstallmentID    string
	BookingID        BookingID
	Amount           money.Money
	Method           PaymentType
	Status           TransactionStatus
	GatewayInvoiceID string
	ExternalID       string
	CreatedAt        time.Time
}

func NewPaymentTransaction(params TransactionParams) (*PaymentTransaction, error) {
	if strings.TrimSpace(params.InstallmentID) == "" {
		return nil, errors.New("booking: transaction requires an installment")
	}
	if params.Method != PaymentTypeCash && params.Method != PaymentTypeOnline {
		return nil, ErrInvalidPaymentMethod
	}
	status := params.Status
	if status == "" {
		status = TransactionPending
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &PaymentTransaction{
		ID:               params.ID,
		InstallmentID:    params.InstallmentID,
		BookingID:        params.BookingID,
		Amount:           params.Amount,
		Method:           params.Method,
		Status:           status,
		GatewayInvoiceID: params.GatewayInvoiceID,
		ExternalID:       params.ExternalID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (t *PaymentTransaction) Complete(now time.Time) error {
	if t.Status != TransactionPending {
		return ErrTransactionNotPending
	}
	t.Status = TransactionCompleted
	t.touch(now)
	return nil
}

func (t *PaymentTransaction) Fail(reason string, now time.Time) error {
	if t.Status != TransactionPending {
		return ErrTransactionNotPending
	}
	t.Status = TransactionFailed
	t.FailureReason = strings.TrimSpace(reason)
	t.touch(now)
	return nil
}

func (t *PaymentTransaction) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	t.UpdatedAt = now.UTC()
}
