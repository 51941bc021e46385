package money

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCurrency  = errors.New("money: invalid currency code")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
	ErrInvalidSplit     = errors.New("money: split count must be positive")
)

// Money keeps amounts in integer minor units (cents) to avoid floating point issues.
type Money struct {
	Amount   int64
	Currency string
}

// New constructs a Money value validating minimal invariants.
func New(amount int64, currency string) (Money, error) {
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	currency = strings.ToUpper(currency)
	return Money{Amount: amount, Currency: currency}, nil
}

// Must creates Money and panics if validation fails; useful in tests and fixtures.
func Must(amount int64, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Add adds two money values ensuring currencies match.
func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// Sub subtracts other from the receiver.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}, nil
}

// Neg returns the negated amount preserving currency.
func (m Money) Neg() Money {
	return Money{Amount: -m.Amount, Currency: m.Currency}
}

// IsZero returns true if the amount equals zero.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// Equal reports whether both amount and currency match.
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// Split divides the amount into n shares of floor(amount/n) minor units
// each, with the remainder absorbed by the last share. The shares always
// sum back to the original amount exactly.
func (m Money) Split(n int) ([]Money, error) {
	if n <= 0 {
		return nil, ErrInvalidSplit
	}
	base := m.Amount / int64(n)
	shares := make([]Money, n)
	for i := range shares {
		shares[i] = Money{Amount: base, Currency: m.Currency}
	}
	shares[n-1].Amount = m.Amount - base*int64(n-1)
	return shares, nil
}

// String renders the amount as a decimal with two fraction digits.
func (m Money) String() string {
	units := m.Amount / 100
	cents := m.Amount % 100
	if cents < 0 {
		cents = -cents
	}
	if m.Amount < 0 && units == 0 {
		return fmt.Sprintf("-0.%02d %s", cents, m.Currency)
	}
	return fmt.Sprintf("%d.%02d %s", units, cents, m.Currency)
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.Currency == "" || other.Currency == "" {
		return ErrInvalidCurrency
	}
	if m.Currency != other.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}
