package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentverse/internal/domain/property"
	"rentverse/internal/domain/shared/daterange"
	"rentverse/internal/domain/shared/events"
	"rentverse/internal/domain/shared/money"
	"rentverse/internal/domain/user"
)

var (
	ErrTenantRequired          = errors.New("booking: tenant id is required")
	ErrLandlordRequired        = errors.New("booking: landlord id is required")
	ErrTotalInvalid            = errors.New("booking: total amount must be positive")
	ErrDepositInvalid          = errors.New("booking: security deposit must not be negative")
	ErrInstallmentCountInvalid = errors.New("booking: installment count must be at least 1")
	ErrInvalidPaymentType      = errors.New("booking: payment type must be CASH or ONLINE")
	ErrInvalidState            = errors.New("booking: invalid state transition")
	ErrDatesConflict           = errors.New("booking: requested dates conflict with an existing booking")
	ErrStartInPast             = errors.New("booking: start date is in the past")
	ErrNotFound                = errors.New("booking: not found")
	ErrNotOwned                = errors.New("booking: not owned by caller")
)

type BookingID string

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

type PaymentType string

const (
	PaymentTypeCash   PaymentType = "CASH"
	PaymentTypeOnline PaymentType = "ONLINE"
)

// ParsePaymentType normalizes free-form input into a payment type.
func ParsePaymentType(raw string) (PaymentType, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(PaymentTypeCash):
		return PaymentTypeCash, nil
	case string(PaymentTypeOnline):
		return PaymentTypeOnline, nil
	default:
		return "", ErrInvalidPaymentType
	}
}

// ValidateDateRange rejects ranges that start before today.
func ValidateDateRange(dr daterange.DateRange, now time.Time) error {
	if dr.Start.Before(daterange.Truncate(now)) {
		return ErrStartInPast
	}
	return nil
}

// Booking is a tenancy agreement over an inclusive date range for one
// property, owned by exactly one tenant and one landlord (denormalized
// from the property at creation time).
type Booking struct {
	ID               BookingID
	PropertyID       property.PropertyID
	TenantID         user.ID
	LandlordID       user.ID
	Range            daterange.DateRange
	TotalAmount      money.Money
	SecurityDeposit  money.Money
	PaymentType      PaymentType
	InstallmentCount int
	Status           Status
	// ContractRef is empty until issuance completes; ContractPlaceholder
	// marks the documented fallback when issuance failed.
	ContractRef         string
	ContractPlaceholder bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, b *Booking) error
	ListByTenant(ctx context.Context, tenant user.ID) ([]*Booking, error)
	ListByProperty(ctx context.Context, id property.PropertyID) ([]*Booking, error)
}

type CreateParams struct {
	ID               BookingID
	PropertyID       property.PropertyID
	TenantID         user.ID
	LandlordID       user.ID
	Range            daterange.DateRange
	TotalAmount      money.Money
	SecurityDeposit  money.Money
	PaymentType      PaymentType
	InstallmentCount int
	CreatedAt        time.Time
}

func NewBooking(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(string(params.TenantID)) == "" {
		return nil, ErrTenantRequired
	}
	if strings.TrimSpace(string(params.LandlordID)) == "" {
		return nil, ErrLandlordRequired
	}
	if params.TotalAmount.Amount <= 0 {
		return nil, ErrTotalInvalid
	}
	if params.SecurityDeposit.Amount < 0 {
		return nil, ErrDepositInvalid
	}
	if params.InstallmentCount < 1 {
		return nil, ErrInstallmentCountInvalid
	}
	if params.PaymentType != PaymentTypeCash && params.PaymentType != PaymentTypeOnline {
		return nil, ErrInvalidPaymentType
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	b := &Booking{
		ID:               params.ID,
		PropertyID:       params.PropertyID,
		TenantID:         params.TenantID,
		LandlordID:       params.LandlordID,
		Range:            params.Range,
		TotalAmount:      params.TotalAmount,
		SecurityDeposit:  params.SecurityDeposit,
		PaymentType:      params.PaymentType,
		InstallmentCount: params.InstallmentCount,
		Status:           StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	b.Record(BookingCreated{BookingID: b.ID, PropertyID: b.PropertyID, TenantID: b.TenantID, Range: b.Range, Total: b.TotalAmount, At: now})
	return b, nil
}

// AttachContract stores the issued contract reference and confirms the
// booking. A placeholder reference still confirms: the fallback is the
// documented behavior, not a failure of the booking itself.
func (b *Booking) AttachContract(ref string, placeholder bool, now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidState
	}
	b.ContractRef = strings.TrimSpace(ref)
	b.ContractPlaceholder = placeholder
	b.Status = StatusConfirmed
	b.touch(now)
	b.Record(BookingConfirmed{BookingID: b.ID, PropertyID: b.PropertyID, Range: b.Range, Total: b.TotalAmount, At: b.UpdatedAt})
	return nil
}

// ReplaceContract swaps a placeholder reference for the real one once a
// retried issuance succeeds. It never touches booking status.
func (b *Booking) ReplaceContract(ref string, now time.Time) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return errors.New("booking: contract reference is required")
	}
	b.ContractRef = ref
	b.ContractPlaceholder = false
	b.touch(now)
	return nil
}

func (b *Booking) Activate(now time.Time) error {
	if b.Status != StatusConfirmed {
		return ErrInvalidState
	}
	b.Status = StatusActive
	b.touch(now)
	return nil
}

func (b *Booking) Complete(now time.Time) error {
	if b.Status != StatusActive {
		return ErrInvalidState
	}
	b.Status = StatusCompleted
	b.touch(now)
	return nil
}

// Cancel is allowed at any point before COMPLETED.
func (b *Booking) Cancel(reason string, now time.Time) error {
	switch b.Status {
	case StatusPending, StatusConfirmed, StatusActive:
	default:
		return ErrInvalidState
	}
	b.Status = StatusCancelled
	b.touch(now)
	b.Record(BookingCancelled{BookingID: b.ID, PropertyID: b.PropertyID, Reason: reason, At: b.UpdatedAt})
	return nil
}

// EffectivePhase derives the date-based phase for read models. Nothing
// transitions stored status on a timer; this is computed per request,
// the same policy as OVERDUE on installments.
func (b *Booking) EffectivePhase(now time.Time) Status {
	if b.Status != StatusConfirmed && b.Status != StatusActive {
		return b.Status
	}
	day := daterange.Truncate(now)
	if day.After(b.Range.End) {
		return StatusCompleted
	}
	if b.Range.Contains(day) {
		return StatusActive
	}
	return b.Status
}

func (b *Booking) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	b.UpdatedAt = now.UTC()
}
