package policies

import (
	"context"
	"time"

	"rentverse/internal/domain/shared/money"
)

// Invoice is the gateway's view of a pending online payment.
type Invoice struct {
	ID          string
	ExternalID  string
	CheckoutURL string
	ExpiresAt   time.Time
}

type CreateInvoiceParams struct {
	ExternalID  string
	Amount      money.Money
	Description string
	SuccessURL  string
	FailureURL  string
}

// PaymentsPort talks to the external payment gateway. Invoice creation
// happens before any local write so a gateway failure leaves no partial
// payment state behind.
type PaymentsPort interface {
	CreateInvoice(ctx context.Context, params CreateInvoiceParams) (*Invoice, error)
	// InvoiceStatus reports the gateway-side status ("PAID", "PENDING",
	// "EXPIRED") for manual confirmation checks.
	InvoiceStatus(ctx context.Context, invoiceID string) (string, error)
	ExpireInvoice(ctx context.Context, invoiceID string) error
}
