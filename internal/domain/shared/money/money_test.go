package money

import (
	"errors"
	"testing"
)

func TestNewValidatesCurrency(t *testing.T) {
	if _, err := New(100, "EU"); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency got %v", err)
	}
	m, err := New(100, "eur")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if m.Currency != "EUR" {
		t.Fatalf("expected normalized currency got %q", m.Currency)
	}
}

func TestSplitEvenAmount(t *testing.T) {
	m := Must(120000, "USD")
	shares, err := m.Split(3)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(shares) != 3 {
		t.Fatalf("expected 3 shares got %d", len(shares))
	}
	for i, s := range shares {
		if s.Amount != 40000 {
			t.Fatalf("share %d: expected 40000 got %d", i, s.Amount)
		}
		if s.Currency != "USD" {
			t.Fatalf("share %d: currency lost", i)
		}
	}
}

func TestSplitRemainderGoesLast(t *testing.T) {
	m := Must(100000, "USD")
	shares, err := m.Split(3)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if shares[0].Amount != 33333 || shares[1].Amount != 33333 {
		t.Fatalf("expected floor shares, got %d and %d", shares[0].Amount, shares[1].Amount)
	}
	if shares[2].Amount != 33334 {
		t.Fatalf("expected remainder on last share, got %d", shares[2].Amount)
	}
	var sum int64
	for _, s := range shares {
		sum += s.Amount
	}
	if sum != m.Amount {
		t.Fatalf("shares must sum to total: %d != %d", sum, m.Amount)
	}
}

func TestSplitRejectsNonPositiveCount(t *testing.T) {
	m := Must(100, "USD")
	if _, err := m.Split(0); !errors.Is(err, ErrInvalidSplit) {
		t.Fatalf("expected ErrInvalidSplit got %v", err)
	}
}

func TestAddRejectsCurrencyMismatch(t *testing.T) {
	a := Must(100, "USD")
	b := Must(100, "EUR")
	if _, err := a.Add(b); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("expected ErrCurrencyMismatch got %v", err)
	}
}

func TestString(t *testing.T) {
	if got := Must(40000, "USD").String(); got != "400.00 USD" {
		t.Fatalf("unexpected rendering %q", got)
	}
	if got := Must(-50, "USD").String(); got != "-0.50 USD" {
		t.Fatalf("unexpected negative rendering %q", got)
	}
}
