package booking

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
	"rentverse/internal/app/idempotency"
	"rentverse/internal/app/outbox"
	"rentverse/internal/app/policies"
	"rentverse/internal/app/support"
	"rentverse/internal/app/uow"
	domainbooking "rentverse/internal/domain/booking"
	domainproperty "rentverse/internal/domain/property"
	domainrange "rentverse/internal/domain/shared/daterange"
	"rentverse/internal/domain/shared/money"
	domainuser "rentverse/internal/domain/user"
)

var validate = validator.New()

// ErrOwnProperty rejects landlords booking their own listing.
var ErrOwnProperty = errors.New("booking: landlord cannot book own property")

type Service struct {
	UoWFactory  uow.UoWFactory
	Contracts   policies.ContractsPort
	Idempotency idempotency.Store
	Codec       idempotency.ResultCodec
	Encoder     outbox.EventEncoder
	Logger      *slog.Logger
}

type CreateParams struct {
	PropertyID       string    `validate:"required"`
	TenantID         string    `validate:"required"`
	Start            time.Time `validate:"required"`
	End              time.Time `validate:"required"`
	TotalAmount      int64     `validate:"required,gt=0"`
	Currency         string    `validate:"omitempty,len=3"`
	SecurityDeposit  int64     `validate:"gte=0"`
	PaymentType      string    `validate:"required"`
	InstallmentCount int       `validate:"required,gte=1"`
	IdempotencyKey   string
}

type CreateResult struct {
	Booking      dto.BookingView       `json:"booking"`
	Installments []dto.InstallmentView `json:"installments"`
}

type CancelParams struct {
	BookingID string `validate:"required"`
	CallerID  string `validate:"required"`
	Reason    string
}

type AvailabilityParams struct {
	PropertyID string    `validate:"required"`
	Start      time.Time `validate:"required"`
	End        time.Time `validate:"required"`
}

// Create runs booking creation as one transaction: conflict re-check
// under a property row lock, then booking, conflict record and
// installment schedule inserted together. Contract issuance happens
// after commit and must not undo the booking when it fails.
func (s *Service) Create(ctx context.Context, params CreateParams) (*CreateResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if err := validate.Struct(params); err != nil {
		return nil, err
	}
	key := strings.TrimSpace(params.IdempotencyKey)
	if key != "" && s.Idempotency != nil {
		rec, found, err := s.Idempotency.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if found {
			if rec.Error != "" {
				return nil, errors.New(rec.Error)
			}
			var result CreateResult
			if err := s.codec().Decode(rec.Payload, &result); err != nil {
				return nil, err
			}
			return &result, nil
		}
	}

	result, err := s.create(ctx, params)

	if key != "" && s.Idempotency != nil {
		rec := idempotency.Record{Key: key, OccurredAt: time.Now().UTC()}
		if err != nil {
			rec.Error = err.Error()
		} else {
			payload, encErr := s.codec().Encode(result)
			if encErr != nil {
				return nil, encErr
			}
			rec.Payload = payload
		}
		if saveErr := s.Idempotency.Save(ctx, rec); saveErr != nil {
			if err != nil {
				return nil, errors.Join(err, saveErr)
			}
			return nil, saveErr
		}
	}
	return result, err
}

func (s *Service) create(ctx context.Context, params CreateParams) (*CreateResult, error) {
	paymentType, err := domainbooking.ParsePaymentType(params.PaymentType)
	if err != nil {
		return nil, err
	}
	dr, err := domainrange.New(params.Start, params.End)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if err := domainbooking.ValidateDateRange(dr, now); err != nil {
		return nil, err
	}

	unit, ctx, commit, cleanup, err := support.BeginWriteUnit(ctx, s.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	prop, err := unit.Properties().ByIDForUpdate(ctx, domainproperty.PropertyID(params.PropertyID))
	if err != nil {
		return nil, err
	}
	if prop.Status != domainproperty.StatusListed {
		return nil, domainproperty.ErrNotListed
	}
	if prop.OwnedBy(domainuser.ID(params.TenantID)) {
		return nil, ErrOwnProperty
	}

	// The lock above serializes concurrent requests for the same
	// property, so this check cannot race with the insert below.
	overlapping, err := unit.Conflicts().Overlapping(ctx, prop.ID, dr)
	if err != nil {
		return nil, err
	}
	if len(overlapping) > 0 {
		return nil, domainbooking.ErrDatesConflict
	}

	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = prop.MonthlyRate.Currency
	}
	total, err := money.New(params.TotalAmount, currency)
	if err != nil {
		return nil, err
	}
	deposit, err := money.New(params.SecurityDeposit, currency)
	if err != nil {
		return nil, err
	}

	booking, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:               domainbooking.BookingID(uuid.NewString()),
		PropertyID:       prop.ID,
		TenantID:         domainuser.ID(params.TenantID),
		LandlordID:       prop.Landlord,
		Range:            dr,
		TotalAmount:      total,
		SecurityDeposit:  deposit,
		PaymentType:      paymentType,
		InstallmentCount: params.InstallmentCount,
		CreatedAt:        now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}

	conflict, err := domainbooking.NewConflictRecord(uuid.NewString(), prop.ID, booking.ID, dr, now)
	if err != nil {
		return nil, err
	}
	if err := unit.Conflicts().Record(ctx, conflict); err != nil {
		return nil, err
	}

	installments, err := domainbooking.GenerateSchedule(domainbooking.ScheduleParams{
		BookingID: booking.ID,
		Total:     total,
		Count:     params.InstallmentCount,
		Start:     dr.Start,
		Now:       now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Installments().SaveAll(ctx, installments); err != nil {
		return nil, err
	}

	pending := booking.PendingEvents()
	booking.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, unit.Outbox(), s.encoder(), pending); err != nil {
		return nil, err
	}

	if err := commit(ctx); err != nil {
		return nil, err
	}

	s.confirmWithContract(ctx, booking, prop)

	result := &CreateResult{
		Booking:      dto.MapBookingView(booking, prop, nil, now),
		Installments: dto.MapInstallmentViews(installments, now),
	}
	return result, nil
}

// confirmWithContract issues the contract and confirms the booking in a
// follow-up transaction. Issuance failure downgrades to a placeholder
// reference plus a queued retry; the already-committed booking is never
// rolled back here, and a failure in this phase leaves it PENDING.
func (s *Service) confirmWithContract(ctx context.Context, booking *domainbooking.Booking, prop *domainproperty.Property) {
	now := time.Now().UTC()
	ref, placeholder := s.issueContract(ctx, booking, prop)
	if err := booking.AttachContract(ref, placeholder, now); err != nil {
		s.log().Error("booking confirmation failed", "booking_id", booking.ID, "error", err)
		return
	}

	unit, err := s.UoWFactory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		s.log().Error("booking confirmation failed", "booking_id", booking.ID, "error", err)
		return
	}
	ctx = uow.ContextWithUnitOfWork(ctx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()

	if err := unit.Bookings().Save(ctx, booking); err != nil {
		s.log().Error("booking confirmation failed", "booking_id", booking.ID, "error", err)
		return
	}
	pending := booking.PendingEvents()
	booking.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, unit.Outbox(), s.encoder(), pending); err != nil {
		s.log().Error("booking confirmation failed", "booking_id", booking.ID, "error", err)
		return
	}
	if placeholder {
		retry, err := outbox.NewContractIssueRecord(string(booking.ID), "inline issuance failed", now)
		if err == nil {
			err = unit.Outbox().Add(ctx, retry)
		}
		if err != nil {
			s.log().Error("contract retry enqueue failed", "booking_id", booking.ID, "error", err)
			return
		}
	}
	if err := unit.Commit(ctx); err != nil {
		s.log().Error("booking confirmation failed", "booking_id", booking.ID, "error", err)
		return
	}
	committed = true
}

func (s *Service) issueContract(ctx context.Context, booking *domainbooking.Booking, prop *domainproperty.Property) (string, bool) {
	if s.Contracts == nil {
		return placeholderContractRef(booking.ID), true
	}
	ref, err := s.Contracts.Issue(ctx, policies.ContractInput{
		BookingID:        string(booking.ID),
		PropertyTitle:    prop.Title,
		PropertyAddress:  prop.Address.Line1,
		Start:            booking.Range.Start,
		End:              booking.Range.End,
		Total:            booking.TotalAmount,
		SecurityDeposit:  booking.SecurityDeposit,
		InstallmentCount: booking.InstallmentCount,
	})
	if err != nil {
		s.log().Warn("contract issuance failed, using placeholder", "booking_id", booking.ID, "error", err)
		return placeholderContractRef(booking.ID), true
	}
	return ref, false
}

func placeholderContractRef(id domainbooking.BookingID) string {
	return fmt.Sprintf("placeholder://contracts/%s.pdf", id)
}

// CheckAvailability reports whether the requested range is free. The
// answer is advisory: creation re-checks under lock.
func (s *Service) CheckAvailability(ctx context.Context, params AvailabilityParams) (*dto.AvailabilityView, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if err := validate.Struct(params); err != nil {
		return nil, err
	}
	dr, err := domainrange.New(params.Start, params.End)
	if err != nil {
		return nil, err
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, s.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	prop, err := unit.Properties().ByID(ctx, domainproperty.PropertyID(params.PropertyID))
	if err != nil {
		return nil, err
	}
	overlapping, err := unit.Conflicts().Overlapping(ctx, prop.ID, dr)
	if err != nil {
		return nil, err
	}
	return &dto.AvailabilityView{
		PropertyID: string(prop.ID),
		Available:  len(overlapping) == 0,
		Conflicts:  dto.MapConflictViews(overlapping),
	}, nil
}

// Cancel releases the booking's reserved range so the dates open up for
// new requests.
func (s *Service) Cancel(ctx context.Context, params CancelParams) (*dto.BookingView, error) {
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
	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(params.BookingID))
	if err != nil {
		return nil, err
	}
	caller := domainuser.ID(params.CallerID)
	if booking.TenantID != caller && booking.LandlordID != caller {
		return nil, domainbooking.ErrNotOwned
	}
	now := time.Now().UTC()
	if err := booking.Cancel(params.Reason, now); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := unit.Conflicts().ReleaseByBooking(ctx, booking.ID); err != nil {
		return nil, err
	}
	pending := booking.PendingEvents()
	booking.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, unit.Outbox(), s.encoder(), pending); err != nil {
		return nil, err
	}
	if err := commit(ctx); err != nil {
		return nil, err
	}
	view := dto.MapBookingView(booking, nil, nil, now)
	return &view, nil
}

func (s *Service) Get(ctx context.Context, bookingID, callerID string) (*dto.BookingView, error) {
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
	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(bookingID))
	if err != nil {
		return nil, err
	}
	caller := domainuser.ID(callerID)
	if booking.TenantID != caller && booking.LandlordID != caller {
		return nil, domainbooking.ErrNotOwned
	}
	prop, err := unit.Properties().ByID(ctx, booking.PropertyID)
	if err != nil && !errors.Is(err, domainproperty.ErrNotFound) {
		return nil, err
	}
	installments, err := unit.Installments().ListByBooking(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	view := dto.MapBookingView(booking, prop, installments, time.Now().UTC())
	return &view, nil
}

func (s *Service) ListForTenant(ctx context.Context, tenantID string) (*dto.BookingCollection, error) {
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
	bookings, err := unit.Bookings().ListByTenant(ctx, domainuser.ID(tenantID))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	items := make([]dto.BookingView, 0, len(bookings))
	for _, booking := range bookings {
		prop, err := unit.Properties().ByID(ctx, booking.PropertyID)
		if err != nil && !errors.Is(err, domainproperty.ErrNotFound) {
			return nil, err
		}
		installments, err := unit.Installments().ListByBooking(ctx, booking.ID)
		if err != nil {
			return nil, err
		}
		items = append(items, dto.MapBookingView(booking, prop, installments, now))
	}
	return &dto.BookingCollection{Items: items}, nil
}

func (s *Service) encoder() outbox.EventEncoder {
	if s.Encoder != nil {
		return s.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (s *Service) codec() idempotency.ResultCodec {
	if s.Codec != nil {
		return s.Codec
	}
	return idempotency.JSONResultCodec{}
}

func (s *Service) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Service) ensureDependencies() error {
	if s.UoWFactory == nil {
		return errors.New("booking: unit of work factory required")
	}
	return nil
}
