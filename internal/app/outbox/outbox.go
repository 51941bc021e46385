package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rentverse/internal/domain/shared/events"
)

type Kind string

const (
	// KindEvent records publish to the broker.
	KindEvent Kind = "event"
	// KindContractIssue records retry failed contract issuance.
	KindContractIssue Kind = "contract.issue"
)

type EventRecord struct {
	ID         string
	Kind       Kind
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

type JSONEventEncoder struct {
	IDGenerator func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, err
	}
	idGen := e.IDGenerator
	if idGen == nil {
		idGen = defaultIDGenerator
	}
	return EventRecord{
		ID:         idGen(),
		Kind:       KindEvent,
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt(),
		Aggregate:  ev.AggregateID(),
		Headers:    map[string]string{},
	}, nil
}

func RecordDomainEvents(ctx context.Context, box Outbox, encoder EventEncoder, evs []events.DomainEvent) error {
	if box == nil || len(evs) == 0 {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	for _, ev := range evs {
		rec, err := encoder.Encode(ev)
		if err != nil {
			return err
		}
		if err := box.Add(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// ContractIssuePayload is the body of KindContractIssue records.
type ContractIssuePayload struct {
	BookingID string `json:"booking_id"`
	Reason    string `json:"reason"`
}

// NewContractIssueRecord enqueues a retry for a booking whose contract
// could not be issued inline.
func NewContractIssueRecord(bookingID, reason string, now time.Time) (EventRecord, error) {
	payload, err := json.Marshal(ContractIssuePayload{BookingID: bookingID, Reason: reason})
	if err != nil {
		return EventRecord{}, err
	}
	if now.IsZero() {
		now = time.Now()
	}
	return EventRecord{
		ID:         fmt.Sprintf("contract-%s-%d", bookingID, now.UnixNano()),
		Kind:       KindContractIssue,
		Name:       "booking.contract_issue_requested",
		Payload:    payload,
		OccurredAt: now.UTC(),
		Aggregate:  bookingID,
		Headers:    map[string]string{},
	}, nil
}

func defaultIDGenerator() string {
	return fmt.Sprintf("evt-%d", time.Now().UnixNano())
}
