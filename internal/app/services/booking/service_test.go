package booking

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"rentverse/internal/app/policies"
	"rentverse/internal/app/uow"
	domainbooking "rentverse/internal/domain/booking"
	domainproperty "rentverse/internal/domain/property"
	"rentverse/internal/domain/shared/money"
	domainuser "rentverse/internal/domain/user"
	gormdb "rentverse/internal/infra/db/gorm"
)

type stubContracts struct {
	fail  bool
	calls int
}

func (s *stubContracts) Issue(_ context.Context, input policies.ContractInput) (string, error) {
	s.calls++
	if s.fail {
		return "", errors.New("renderer down")
	}
	return "https://files.test/contracts/" + input.BookingID + ".pdf", nil
}

type bookingFixture struct {
	svc        *Service
	db         *gorm.DB
	factory    gormdb.Factory
	contracts  *stubContracts
	tenantID   string
	landlordID string
	propertyID string
}

func setupBookingTest(t *testing.T) *bookingFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gormdb.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	fx := &bookingFixture{
		db:         db,
		factory:    gormdb.Factory{DB: db},
		contracts:  &stubContracts{},
		tenantID:   "tenant-1",
		landlordID: "landlord-1",
		propertyID: "prop-1",
	}
	fx.svc = &Service{
		UoWFactory:  fx.factory,
		Contracts:   fx.contracts,
		Idempotency: gormdb.NewIdempotencyStore(db, time.Hour),
	}
	fx.seed(t)
	return fx
}

func (fx *bookingFixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	unit, err := fx.factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	now := time.Now().UTC()
	tenant, err := domainuser.NewUser(domainuser.CreateParams{
		ID: domainuser.ID(fx.tenantID), Email: "tenant@test", Name: "Tenant",
		PasswordHash: "x", Roles: []domainuser.Role{domainuser.RoleTenant}, CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("tenant: %v", err)
	}
	landlord, err := domainuser.NewUser(domainuser.CreateParams{
		ID: domainuser.ID(fx.landlordID), Email: "landlord@test", Name: "Landlord",
		PasswordHash: "x", Roles: []domainuser.Role{domainuser.RoleTenant, domainuser.RoleLandlord}, CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("landlord: %v", err)
	}
	prop, err := domainproperty.NewProperty(domainproperty.CreateParams{
		ID:          domainproperty.PropertyID(fx.propertyID),
		Landlord:    landlord.ID,
		Title:       "Canal View Flat",
		Address:     domainproperty.Address{Line1: "12 Water St", City: "Leiden", Country: "NL"},
		MonthlyRate: money.Must(40000, "USD"),
		CreatedAt:   now,
	})
	if err != nil {
		t.Fatalf("property: %v", err)
	}
	if err := prop.Publish(now); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := unit.Users().Save(ctx, tenant); err != nil {
		t.Fatalf("save tenant: %v", err)
	}
	if err := unit.Users().Save(ctx, landlord); err != nil {
		t.Fatalf("save landlord: %v", err)
	}
	if err := unit.Properties().Save(ctx, prop); err != nil {
		t.Fatalf("save property: %v", err)
	}
	if err := unit.Commit(ctx); err != nil {
		t.Fatalf("commit seed: %v", err)
	}
}

func (fx *bookingFixture) createParams() CreateParams {
	start := time.Now().UTC().AddDate(0, 1, 0)
	return CreateParams{
		PropertyID:       fx.propertyID,
		TenantID:         fx.tenantID,
		Start:            start,
		End:              start.AddDate(0, 3, -1),
		TotalAmount:      120000,
		Currency:         "USD",
		PaymentType:      "CASH",
		InstallmentCount: 3,
	}
}

func TestCreateBookingHappyPath(t *testing.T) {
	fx := setupBookingTest(t)
	result, err := fx.svc.Create(context.Background(), fx.createParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.Booking.ID == "" {
		t.Fatalf("expected booking id")
	}
	if len(result.Installments) != 3 {
		t.Fatalf("expected 3 installments got %d", len(result.Installments))
	}
	var sum int64
	for _, ins := range result.Installments {
		if ins.Amount.Amount != 40000 {
			t.Fatalf("expected equal shares of 40000 got %d", ins.Amount.Amount)
		}
		sum += ins.Amount.Amount
	}
	if sum != 120000 {
		t.Fatalf("installments must sum to total, got %d", sum)
	}
	if fx.contracts.calls != 1 {
		t.Fatalf("expected one contract issuance got %d", fx.contracts.calls)
	}

	view, err := fx.svc.Get(context.Background(), result.Booking.ID, fx.tenantID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.Status != string(domainbooking.StatusConfirmed) {
		t.Fatalf("expected CONFIRMED got %s", view.Status)
	}
	if view.ContractPlaceholder || view.ContractURL == "" {
		t.Fatalf("expected real contract reference, got %q placeholder=%v", view.ContractURL, view.ContractPlaceholder)
	}
}

func TestCreateBookingRejectsOverlap(t *testing.T) {
	fx := setupBookingTest(t)
	ctx := context.Background()
	if _, err := fx.svc.Create(ctx, fx.createParams()); err != nil {
		t.Fatalf("first create: %v", err)
	}
	params := fx.createParams()
	// Shift so the ranges still share days.
	params.Start = params.Start.AddDate(0, 1, 0)
	params.End = params.End.AddDate(0, 1, 0)
	if _, err := fx.svc.Create(ctx, params); !errors.Is(err, domainbooking.ErrDatesConflict) {
		t.Fatalf("expected ErrDatesConflict got %v", err)
	}
}

func TestCreateBookingRejectsOwnProperty(t *testing.T) {
	fx := setupBookingTest(t)
	params := fx.createParams()
	params.TenantID = fx.landlordID
	if _, err := fx.svc.Create(context.Background(), params); !errors.Is(err, ErrOwnProperty) {
		t.Fatalf("expected ErrOwnProperty got %v", err)
	}
}

func TestCreateBookingRejectsUnlistedProperty(t *testing.T) {
	fx := setupBookingTest(t)
	ctx := context.Background()
	unit, err := fx.factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	prop, err := unit.Properties().ByID(ctx, domainproperty.PropertyID(fx.propertyID))
	if err != nil {
		t.Fatalf("load property: %v", err)
	}
	if err := prop.Unpublish(time.Now()); err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	if err := unit.Properties().Save(ctx, prop); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := unit.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := fx.svc.Create(ctx, fx.createParams()); !errors.Is(err, domainproperty.ErrNotListed) {
		t.Fatalf("expected ErrNotListed got %v", err)
	}
}

func TestCreateBookingRejectsPastStart(t *testing.T) {
	fx := setupBookingTest(t)
	params := fx.createParams()
	params.Start = time.Now().UTC().AddDate(0, 0, -10)
	params.End = time.Now().UTC().AddDate(0, 2, 0)
	if _, err := fx.svc.Create(context.Background(), params); !errors.Is(err, domainbooking.ErrStartInPast) {
		t.Fatalf("expected ErrStartInPast got %v", err)
	}
}

func TestCancelReleasesDates(t *testing.T) {
	fx := setupBookingTest(t)
	ctx := context.Background()
	result, err := fx.svc.Create(ctx, fx.createParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	view, err := fx.svc.Cancel(ctx, CancelParams{
		BookingID: result.Booking.ID,
		CallerID:  fx.tenantID,
		Reason:    "plans changed",
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if view.Status != string(domainbooking.StatusCancelled) {
		t.Fatalf("expected CANCELLED got %s", view.Status)
	}
	// The released range must be bookable again.
	if _, err := fx.svc.Create(ctx, fx.createParams()); err != nil {
		t.Fatalf("rebook after cancel: %v", err)
	}
}

func TestCancelRequiresOwnership(t *testing.T) {
	fx := setupBookingTest(t)
	ctx := context.Background()
	result, err := fx.svc.Create(ctx, fx.createParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = fx.svc.Cancel(ctx, CancelParams{BookingID: result.Booking.ID, CallerID: "stranger"})
	if !errors.Is(err, domainbooking.ErrNotOwned) {
		t.Fatalf("expected ErrNotOwned got %v", err)
	}
}

func TestCreateBookingIdempotentReplay(t *testing.T) {
	fx := setupBookingTest(t)
	ctx := context.Background()
	params := fx.createParams()
	params.IdempotencyKey = "req-123"
	first, err := fx.svc.Create(ctx, params)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := fx.svc.Create(ctx, params)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if first.Booking.ID != second.Booking.ID {
		t.Fatalf("replay must return the stored result: %s != %s", first.Booking.ID, second.Booking.ID)
	}
	var count int64
	if err := fx.db.Table("bookings").Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single booking row got %d", count)
	}
}

func TestCreateBookingContractFallback(t *testing.T) {
	fx := setupBookingTest(t)
	fx.contracts.fail = true
	ctx := context.Background()
	result, err := fx.svc.Create(ctx, fx.createParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	view, err := fx.svc.Get(ctx, result.Booking.ID, fx.tenantID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.Status != string(domainbooking.StatusConfirmed) {
		t.Fatalf("issuance failure must still confirm, got %s", view.Status)
	}
	if !view.ContractPlaceholder {
		t.Fatalf("expected placeholder contract flag")
	}
	var retries int64
	if err := fx.db.Table("app_outbox").Where("kind = ?", "contract.issue").Count(&retries).Error; err != nil {
		t.Fatalf("count retries: %v", err)
	}
	if retries != 1 {
		t.Fatalf("expected one queued contract retry got %d", retries)
	}
}

func TestCheckAvailability(t *testing.T) {
	fx := setupBookingTest(t)
	ctx := context.Background()
	params := fx.createParams()
	if _, err := fx.svc.Create(ctx, params); err != nil {
		t.Fatalf("create: %v", err)
	}
	taken, err := fx.svc.CheckAvailability(ctx, AvailabilityParams{
		PropertyID: fx.propertyID,
		Start:      params.Start,
		End:        params.End,
	})
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if taken.Available || len(taken.Conflicts) != 1 {
		t.Fatalf("expected occupied range with one conflict, got %+v", taken)
	}
	free, err := fx.svc.CheckAvailability(ctx, AvailabilityParams{
		PropertyID: fx.propertyID,
		Start:      params.End.AddDate(0, 0, 1),
		End:        params.End.AddDate(0, 1, 0),
	})
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if !free.Available {
		t.Fatalf("expected free range")
	}
}
