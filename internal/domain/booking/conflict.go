package booking

import (
	"context"
	"errors"
	"time"

	"rentverse/internal/domain/property"
	"rentverse/internal/domain/shared/daterange"
)

var ErrConflictBookingRequired = errors.New("booking: conflict record requires an owning booking")

// ConflictRecord reserves a date range for a property. One row exists
// per live booking; it is never updated, only released when the owning
// booking is cancelled.
type ConflictRecord struct {
	ID         string
	PropertyID property.PropertyID
	BookingID  BookingID
	Range      daterange.DateRange
	CreatedAt  time.Time
}

func NewConflictRecord(id string, propertyID property.PropertyID, bookingID BookingID, dr daterange.DateRange, now time.Time) (*ConflictRecord, error) {
	if bookingID == "" {
		return nil, ErrConflictBookingRequired
	}
	if now.IsZero() {
		now = time.Now()
	}
	return &ConflictRecord{
		ID:         id,
		PropertyID: propertyID,
		BookingID:  bookingID,
		Range:      dr,
		CreatedAt:  now.UTC(),
	}, nil
}

// ConflictLedger gates new bookings on already-reserved ranges.
type ConflictLedger interface {
	// Overlapping returns every record whose inclusive range overlaps the
	// requested one. Callers must re-check inside the same transaction
	// that records the new conflict.
	Overlapping(ctx context.Context, id property.PropertyID, dr daterange.DateRange) ([]*ConflictRecord, error)
	Record(ctx context.Context, rec *ConflictRecord) error
	ReleaseByBooking(ctx context.Context, id BookingID) error
}
