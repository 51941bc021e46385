package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"rentverse/internal/app/dto"
	"rentverse/internal/app/outbox"
	"rentverse/internal/app/policies"
	"rentverse/internal/app/support"
	"rentverse/internal/app/uow"
	domainbooking "rentverse/internal/domain/booking"
	"rentverse/internal/domain/shared/events"
	domainuser "rentverse/internal/domain/user"
)

var validate = validator.New()

var (
	ErrGatewayUnavailable = errors.New("payment: gateway unavailable")
	// ErrInvoiceNotSettled is returned by Confirm when the gateway still
	// reports the invoice as unpaid.
	ErrInvoiceNotSettled = errors.New("payment: invoice not settled at gateway")
)

type Service struct {
	UoWFactory uow.UoWFactory
	Gateway    policies.PaymentsPort
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	// Redirect targets embedded into gateway invoices.
	SuccessURL string
	FailureURL string
}

type PayParams struct {
	InstallmentID string `validate:"required"`
	CallerID      string `validate:"required"`
	Method        string `validate:"required"`
}

type PayResult struct {
	// Settled is set for cash payments, Initiated for online ones.
	Settled   *dto.PaymentSettled   `json:"settled,omitempty"`
	Initiated *dto.PaymentInitiated `json:"initiated,omitempty"`
}

type WebhookParams struct {
	Status     string
	ExternalID string
	Amount     int64
	Currency   string
	Method     string
	PaidAt     time.Time
}

type ConfirmParams struct {
	InstallmentID string `validate:"required"`
	CallerID      string `validate:"required"`
}

type CancelParams struct {
	InstallmentID string `validate:"required"`
	CallerID      string `validate:"required"`
}

// Pay settles an installment in cash immediately or starts an online
// checkout. Cash writes the PAID installment and its COMPLETED
// transaction in one unit; online creates the gateway invoice first and
// records nothing at all when that call fails.
func (s *Service) Pay(ctx context.Context, params PayParams) (*PayResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if err := validate.Struct(params); err != nil {
		return nil, err
	}
	method, err := domainbooking.ParsePaymentType(params.Method)
	if err != nil {
		return nil, err
	}

	unit, ctx, commit, cleanup, err := support.BeginWriteUnit(ctx, s.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	installment, booking, err := s.resolveOwned(ctx, unit, params.InstallmentID, params.CallerID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	switch method {
	case domainbooking.PaymentTypeCash:
		settled, err := s.settle(ctx, unit, installment, installment.Amount.Amount, installment.Amount.Currency, domainbooking.PaymentTypeCash, now)
		if err != nil {
			return nil, err
		}
		if err := commit(ctx); err != nil {
			return nil, err
		}
		return &PayResult{Settled: settled}, nil
	case domainbooking.PaymentTypeOnline:
		if installment.Status == domainbooking.InstallmentPaid {
			return nil, domainbooking.ErrAlreadyPaid
		}
		if s.Gateway == nil {
			return nil, ErrGatewayUnavailable
		}
		externalID := fmt.Sprintf("installment_%s_%d", installment.ID, now.Unix())
		invoice, err := s.Gateway.CreateInvoice(ctx, policies.CreateInvoiceParams{
			ExternalID:  externalID,
			Amount:      installment.Amount,
			Description: fmt.Sprintf("Installment %d of booking %s", installment.Number, booking.ID),
			SuccessURL:  s.SuccessURL,
			FailureURL:  s.FailureURL,
		})
		if err != nil {
			return nil, err
		}

		installment.AttachGatewayInvoice(invoice.ID, externalID, now)
		if err := unit.Installments().Save(ctx, installment); err != nil {
			return nil, err
		}
		tx, err := domainbooking.NewPaymentTransaction(domainbooking.TransactionParams{
			ID:               uuid.NewString(),
			InstallmentID:    installment.ID,
			BookingID:        booking.ID,
			Amount:           installment.Amount,
			Method:           domainbooking.PaymentTypeOnline,
			Status:           domainbooking.TransactionPending,
			GatewayInvoiceID: invoice.ID,
			ExternalID:       externalID,
			CreatedAt:        now,
		})
		if err != nil {
			return nil, err
		}
		if err := unit.Transactions().Save(ctx, tx); err != nil {
			return nil, err
		}
		if err := commit(ctx); err != nil {
			return nil, err
		}
		return &PayResult{Initiated: &dto.PaymentInitiated{
			InstallmentID: installment.ID,
			ExternalID:    externalID,
			InvoiceURL:    invoice.CheckoutURL,
		}}, nil
	default:
		return nil, domainbooking.ErrInvalidPaymentMethod
	}
}

// HandleWebhook applies a gateway callback. Unknown external ids and
// repeated callbacks are acknowledged without error so the gateway
// stops retrying; the ack body carries the diagnostic.
func (s *Service) HandleWebhook(ctx context.Context, params WebhookParams) (*dto.WebhookAck, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	status := strings.ToUpper(strings.TrimSpace(params.Status))
	if status != "PAID" && status != "COMPLETED" {
		return &dto.WebhookAck{Processed: false, Detail: fmt.Sprintf("ignored status %q", params.Status)}, nil
	}

	unit, ctx, commit, cleanup, err := support.BeginWriteUnit(ctx, s.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	installment, err := unit.Installments().ByExternalID(ctx, strings.TrimSpace(params.ExternalID))
	if err != nil {
		if errors.Is(err, domainbooking.ErrInstallmentNotFound) {
			s.log().Warn("webhook for unknown invoice", "external_id", params.ExternalID)
			return &dto.WebhookAck{Processed: false, Detail: "no installment matches the external id"}, nil
		}
		return nil, err
	}
	if installment.Status == domainbooking.InstallmentPaid {
		return &dto.WebhookAck{Processed: false, Detail: "installment already paid"}, nil
	}

	paidAt := params.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	paidAt = paidAt.UTC()
	if _, err := s.settle(ctx, unit, installment, params.Amount, params.Currency, domainbooking.PaymentTypeOnline, paidAt); err != nil {
		if errors.Is(err, domainbooking.ErrPaidAmountMismatch) {
			s.log().Warn("webhook amount mismatch", "external_id", params.ExternalID, "amount", params.Amount)
			return &dto.WebhookAck{Processed: false, Detail: "webhook amount does not match the installment"}, nil
		}
		return nil, err
	}
	if err := commit(ctx); err != nil {
		return nil, err
	}
	return &dto.WebhookAck{Processed: true}, nil
}

// Confirm is the manual fallback when a webhook was lost. The gateway
// is asked for the invoice status first; only settled invoices flip the
// installment.
func (s *Service) Confirm(ctx context.Context, params ConfirmParams) (*dto.PaymentSettled, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if err := validate.Struct(params); err != nil {
		return nil, err
	}

	unit, ctx, commit, cleanup, err := support.BeginWriteUnit(ctx, s.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	installment, _, err := s.resolveOwned(ctx, unit, params.InstallmentID, params.CallerID)
	if err != nil {
		return nil, err
	}
	if installment.Status == domainbooking.InstallmentPaid {
		return nil, domainbooking.ErrAlreadyPaid
	}
	if s.Gateway != nil && installment.GatewayInvoiceID != "" {
		status, err := s.Gateway.InvoiceStatus(ctx, installment.GatewayInvoiceID)
		if err != nil {
			return nil, err
		}
		if !settledStatus(status) {
			return nil, ErrInvoiceNotSettled
		}
	}

	now := time.Now().UTC()
	settled, err := s.settle(ctx, unit, installment, installment.Amount.Amount, installment.Amount.Currency, domainbooking.PaymentTypeOnline, now)
	if err != nil {
		return nil, err
	}
	if err := commit(ctx); err != nil {
		return nil, err
	}
	return settled, nil
}

// CancelPending abandons the latest pending online attempt. The
// installment stays UNPAID and a later Pay starts a fresh invoice.
func (s *Service) CancelPending(ctx context.Context, params CancelParams) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	if err := validate.Struct(params); err != nil {
		return err
	}

	unit, ctx, commit, cleanup, err := support.BeginWriteUnit(ctx, s.UoWFactory)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	installment, _, err := s.resolveOwned(ctx, unit, params.InstallmentID, params.CallerID)
	if err != nil {
		return err
	}
	if installment.Status == domainbooking.InstallmentPaid {
		return domainbooking.ErrAlreadyPaid
	}
	tx, err := unit.Transactions().LatestPendingByInstallment(ctx, installment.ID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := tx.Fail("cancelled by user", now); err != nil {
		return err
	}
	if err := unit.Transactions().Save(ctx, tx); err != nil {
		return err
	}
	if err := commit(ctx); err != nil {
		return err
	}
	if s.Gateway != nil && tx.GatewayInvoiceID != "" {
		if err := s.Gateway.ExpireInvoice(ctx, tx.GatewayInvoiceID); err != nil {
			s.log().Warn("invoice expiry failed", "invoice_id", tx.GatewayInvoiceID, "error", err)
		}
	}
	return nil
}

func (s *Service) ListForTenant(ctx context.Context, tenantID string) (*dto.InstallmentCollection, error) {
	return s.list(ctx, tenantID, false)
}

// ListUnpaid returns outstanding installments, OVERDUE derived at read
// time for elapsed due dates.
func (s *Service) ListUnpaid(ctx context.Context, tenantID string) (*dto.InstallmentCollection, error) {
	return s.list(ctx, tenantID, true)
}

func (s *Service) list(ctx context.Context, tenantID string, unpaidOnly bool) (*dto.InstallmentCollection, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, s.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	var installments []*domainbooking.Installment
	if unpaidOnly {
		installments, err = unit.Installments().ListUnpaidByTenant(ctx, domainuser.ID(tenantID))
	} else {
		installments, err = unit.Installments().ListByTenant(ctx, domainuser.ID(tenantID))
	}
	if err != nil {
		return nil, err
	}
	return &dto.InstallmentCollection{Items: dto.MapInstallmentViews(installments, time.Now().UTC())}, nil
}

// settle performs the shared UNPAID → PAID write: flips the
// installment, resolves the pending transaction (or records a completed
// one when none exists), and queues the paid event.
func (s *Service) settle(
	ctx context.Context,
	unit uow.UnitOfWork,
	installment *domainbooking.Installment,
	amount int64,
	currency string,
	method domainbooking.PaymentType,
	paidAt time.Time,
) (*dto.PaymentSettled, error) {
	paid := installment.Amount
	paid.Amount = amount
	if strings.TrimSpace(currency) != "" {
		paid.Currency = strings.ToUpper(strings.TrimSpace(currency))
	}
	if err := installment.MarkPaid(paid, method, paidAt); err != nil {
		return nil, err
	}
	if err := unit.Installments().Save(ctx, installment); err != nil {
		return nil, err
	}

	tx, err := unit.Transactions().LatestPendingByInstallment(ctx, installment.ID)
	switch {
	case err == nil:
		if err := tx.Complete(paidAt); err != nil {
			return nil, err
		}
	case errors.Is(err, domainbooking.ErrNoPendingTransaction):
		tx, err = domainbooking.NewPaymentTransaction(domainbooking.TransactionParams{
			ID:               uuid.NewString(),
			InstallmentID:    installment.ID,
			BookingID:        installment.BookingID,
			Amount:           paid,
			Method:           method,
			Status:           domainbooking.TransactionCompleted,
			GatewayInvoiceID: installment.GatewayInvoiceID,
			ExternalID:       installment.ExternalID,
			CreatedAt:        paidAt,
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	if err := unit.Transactions().Save(ctx, tx); err != nil {
		return nil, err
	}

	event := domainbooking.InstallmentPaidEvent{
		BookingID:     installment.BookingID,
		InstallmentID: installment.ID,
		Number:        installment.Number,
		Amount:        paid,
		Method:        method,
		At:            paidAt,
	}
	if err := outbox.RecordDomainEvents(ctx, unit.Outbox(), s.encoder(), []events.DomainEvent{event}); err != nil {
		return nil, err
	}

	return &dto.PaymentSettled{Installment: dto.MapInstallmentView(installment, paidAt)}, nil
}

func (s *Service) resolveOwned(ctx context.Context, unit uow.UnitOfWork, installmentID, callerID string) (*domainbooking.Installment, *domainbooking.Booking, error) {
	installment, err := unit.Installments().ByID(ctx, strings.TrimSpace(installmentID))
	if err != nil {
		return nil, nil, err
	}
	booking, err := unit.Bookings().ByID(ctx, installment.BookingID)
	if err != nil {
		return nil, nil, err
	}
	caller := domainuser.ID(callerID)
	if booking.TenantID != caller && booking.LandlordID != caller {
		return nil, nil, domainbooking.ErrNotOwned
	}
	return installment, booking, nil
}

func settledStatus(status string) bool {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "PAID", "COMPLETED", "SETTLED":
		return true
	default:
		return false
	}
}

func (s *Service) encoder() outbox.EventEncoder {
	if s.Encoder != nil {
		return s.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (s *Service) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Service) ensureDependencies() error {
	if s.UoWFactory == nil {
		return errors.New("payment: unit of work factory required")
	}
	return nil
}
