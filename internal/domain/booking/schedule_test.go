package booking

import (
	"errors"
	"testing"
	"time"

	"rentverse/internal/domain/shared/money"
)

func TestGenerateScheduleEvenSplit(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	installments, err := GenerateSchedule(ScheduleParams{
		BookingID: "bk-1",
		Total:     money.Must(120000, "USD"),
		Count:     3,
		Start:     start,
		Now:       start,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(installments) != 3 {
		t.Fatalf("expected 3 installments got %d", len(installments))
	}
	wantDue := []time.Time{
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	for i, ins := range installments {
		if ins.Amount.Amount != 40000 {
			t.Fatalf("installment %d: expected 40000 got %d", i+1, ins.Amount.Amount)
		}
		if !ins.DueDate.Equal(wantDue[i]) {
			t.Fatalf("installment %d: expected due %v got %v", i+1, wantDue[i], ins.DueDate)
		}
		if ins.Number != i+1 {
			t.Fatalf("installment %d: wrong number %d", i+1, ins.Number)
		}
		if ins.Status != InstallmentUnpaid {
			t.Fatalf("installment %d: expected UNPAID got %s", i+1, ins.Status)
		}
	}
}

func TestGenerateScheduleRemainderOnLast(t *testing.T) {
	installments, err := GenerateSchedule(ScheduleParams{
		BookingID: "bk-2",
		Total:     money.Must(100000, "USD"),
		Count:     3,
		Start:     time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if installments[0].Amount.Amount != 33333 || installments[1].Amount.Amount != 33333 {
		t.Fatalf("unexpected base shares: %d %d", installments[0].Amount.Amount, installments[1].Amount.Amount)
	}
	if installments[2].Amount.Amount != 33334 {
		t.Fatalf("expected remainder on last, got %d", installments[2].Amount.Amount)
	}
	var sum int64
	for _, ins := range installments {
		sum += ins.Amount.Amount
	}
	if sum != 100000 {
		t.Fatalf("schedule must sum to total, got %d", sum)
	}
}

func TestGenerateScheduleSingleInstallment(t *testing.T) {
	installments, err := GenerateSchedule(ScheduleParams{
		BookingID: "bk-3",
		Total:     money.Must(55000, "USD"),
		Count:     1,
		Start:     time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(installments) != 1 || installments[0].Amount.Amount != 55000 {
		t.Fatalf("expected one installment carrying the full total")
	}
}

func TestGenerateScheduleRejectsBadInput(t *testing.T) {
	if _, err := GenerateSchedule(ScheduleParams{BookingID: "x", Total: money.Must(100, "USD"), Count: 0}); !errors.Is(err, ErrInstallmentCountInvalid) {
		t.Fatalf("expected ErrInstallmentCountInvalid got %v", err)
	}
	if _, err := GenerateSchedule(ScheduleParams{BookingID: "x", Total: money.Must(0, "USD"), Count: 2}); !errors.Is(err, ErrTotalInvalid) {
		t.Fatalf("expected ErrTotalInvalid got %v", err)
	}
}
