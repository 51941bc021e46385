package booking

import (
	"errors"
	"testing"
	"time"

	"rentverse/internal/domain/shared/daterange"
	"rentverse/internal/domain/shared/money"
)

func unpaidInstallment() *Installment {
	return &Installment{
		ID:        "bk-1-1",
		BookingID: "bk-1",
		Number:    1,
		Amount:    money.Must(40000, "USD"),
		DueDate:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:    InstallmentUnpaid,
	}
}

func TestMarkPaidTransitions(t *testing.T) {
	ins := unpaidInstallment()
	paidAt := time.Date(2025, 2, 20, 10, 0, 0, 0, time.UTC)
	if err := ins.MarkPaid(ins.Amount, PaymentTypeCash, paidAt); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if ins.Status != InstallmentPaid {
		t.Fatalf("expected PAID got %s", ins.Status)
	}
	if ins.PaidAt == nil || !ins.PaidAt.Equal(paidAt) {
		t.Fatalf("expected paid timestamp recorded")
	}
	if ins.PaidMethod != PaymentTypeCash {
		t.Fatalf("expected CASH method got %s", ins.PaidMethod)
	}
}

func TestMarkPaidIsTerminal(t *testing.T) {
	ins := unpaidInstallment()
	if err := ins.MarkPaid(ins.Amount, PaymentTypeCash, time.Now()); err != nil {
		t.Fatalf("first mark paid: %v", err)
	}
	firstPaidAt := *ins.PaidAt
	err := ins.MarkPaid(ins.Amount, PaymentTypeOnline, time.Now().Add(time.Hour))
	if !errors.Is(err, ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid got %v", err)
	}
	if ins.PaidMethod != PaymentTypeCash || !ins.PaidAt.Equal(firstPaidAt) {
		t.Fatalf("second attempt must leave the row untouched")
	}
}

func TestMarkPaidRejectsAmountMismatch(t *testing.T) {
	ins := unpaidInstallment()
	err := ins.MarkPaid(money.Must(39999, "USD"), PaymentTypeCash, time.Now())
	if !errors.Is(err, ErrPaidAmountMismatch) {
		t.Fatalf("expected ErrPaidAmountMismatch got %v", err)
	}
	if ins.Status != InstallmentUnpaid {
		t.Fatalf("mismatch must not change status")
	}
}

func TestMarkPaidRejectsUnknownMethod(t *testing.T) {
	ins := unpaidInstallment()
	if err := ins.MarkPaid(ins.Amount, PaymentType("WIRE"), time.Now()); !errors.Is(err, ErrInvalidPaymentMethod) {
		t.Fatalf("expected ErrInvalidPaymentMethod got %v", err)
	}
}

func TestEffectiveStatusDerivesOverdue(t *testing.T) {
	ins := unpaidInstallment()
	due := ins.DueDate
	if got := ins.EffectiveStatus(due); got != InstallmentUnpaid {
		t.Fatalf("due day itself is not overdue, got %s", got)
	}
	if got := ins.EffectiveStatus(due.AddDate(0, 0, 1)); got != InstallmentOverdue {
		t.Fatalf("expected OVERDUE got %s", got)
	}
	if ins.Status != InstallmentUnpaid {
		t.Fatalf("derivation must not mutate stored status")
	}
	if err := ins.MarkPaid(ins.Amount, PaymentTypeCash, time.Now()); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if got := ins.EffectiveStatus(due.AddDate(0, 1, 0)); got != InstallmentPaid {
		t.Fatalf("paid rows never read overdue, got %s", got)
	}
}

func TestBookingEffectivePhase(t *testing.T) {
	rng, err := daterange.New(
		time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	b := &Booking{Status: StatusConfirmed, Range: rng}
	if got := b.EffectivePhase(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)); got != StatusConfirmed {
		t.Fatalf("before start expected CONFIRMED got %s", got)
	}
	if got := b.EffectivePhase(time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)); got != StatusActive {
		t.Fatalf("inside range expected ACTIVE got %s", got)
	}
	if got := b.EffectivePhase(time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC)); got != StatusCompleted {
		t.Fatalf("after end expected COMPLETED got %s", got)
	}
	b.Status = StatusCancelled
	if got := b.EffectivePhase(time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)); got != StatusCancelled {
		t.Fatalf("cancelled stays cancelled, got %s", got)
	}
}
