package booking

import (
	"time"

	"rentverse/internal/domain/property"
	"rentverse/internal/domain/shared/daterange"
	"rentverse/internal/domain/shared/money"
	"rentverse/internal/domain/user"
)

type BookingCreated struct {
	BookingID  BookingID
	PropertyID property.PropertyID
	TenantID   user.ID
	Range      daterange.DateRange
	Total      money.Money
	At         time.Time
}

func (e BookingCreated) EventName() string     { return "booking.created" }
func (e BookingCreated) AggregateID() string   { return string(e.BookingID) }
func (e BookingCreated) OccurredAt() time.Time { return e.At }

type BookingConfirmed struct {
	BookingID  BookingID
	PropertyID property.PropertyID
	Range      daterange.DateRange
	Total      money.Money
	At         time.Time
}

func (e BookingConfirmed) EventName() string     { return "booking.confirmed" }
func (e BookingConfirmed) AggregateID() string   { return string(e.BookingID) }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID  BookingID
	PropertyID property.PropertyID
	Reason     string
	At         time.Time
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type InstallmentPaidEvent struct {
	BookingID     BookingID
	InstallmentID string
	Number        int
	Amount        money.Money
	Method        PaymentType
	At            time.Time
}

func (e InstallmentPaidEvent) EventName() string     { return "booking.installment_paid" }
func (e InstallmentPaidEvent) AggregateID() string   { return string(e.BookingID) }
func (e InstallmentPaidEvent) OccurredAt() time.Time { return e.At }
