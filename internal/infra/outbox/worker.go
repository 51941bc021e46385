package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	appoutbox "rentverse/internal/app/outbox"
	"rentverse/internal/app/policies"
	"rentverse/internal/app/uow"
	domainbooking "rentverse/internal/domain/booking"
	gormdb "rentverse/internal/infra/db/gorm"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Worker drains the outbox: event records go to the broker as
// CloudEvents, contract.issue records re-run contract issuance for
// bookings left with a placeholder reference.
type Worker struct {
	Store       *gormdb.OutboxStore
	Producer    Producer
	UoWFactory  uow.UoWFactory
	Contracts   policies.ContractsPort
	Logger      *slog.Logger
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
}

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil {
		return ErrWorkerNotConfigured
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.processOnce(ctx); err != nil {
				return err
			}
		}
	}
}

func (w *Worker) processOnce(ctx context.Context) error {
	doc, err := w.Store.Claim(ctx, w.workerID())
	if err != nil || doc == nil {
		return err
	}
	switch doc.Kind {
	case appoutbox.KindContractIssue:
		w.retryContract(ctx, doc)
	default:
		w.publishEvent(ctx, doc)
	}
	return nil
}

func (w *Worker) publishEvent(ctx context.Context, doc *gormdb.EventDocument) {
	if w.Producer == nil {
		_ = w.Store.MarkFailed(ctx, doc.ID, w.nextRetry(doc.Attempts), "no producer configured")
		return
	}
	topic := w.topicFor(doc.Name)
	payload, headers, err := w.formatPayload(doc)
	if err != nil {
		_ = w.Store.MarkFailed(ctx, doc.ID, w.nextRetry(doc.Attempts), err.Error())
		return
	}
	if err := w.Producer.Publish(ctx, topic, doc.Aggregate, payload, headers); err != nil {
		_ = w.Store.MarkFailed(ctx, doc.ID, w.nextRetry(doc.Attempts), err.Error())
		return
	}
	_ = w.Store.MarkSent(ctx, doc.ID)
}

func (w *Worker) retryContract(ctx context.Context, doc *gormdb.EventDocument) {
	if w.UoWFactory == nil || w.Contracts == nil {
		_ = w.Store.MarkFailed(ctx, doc.ID, w.nextRetry(doc.Attempts), "contract issuance not configured")
		return
	}
	var payload appoutbox.ContractIssuePayload
	if err := json.Unmarshal(doc.Payload, &payload); err != nil {
		_ = w.Store.MarkFailed(ctx, doc.ID, w.nextRetry(doc.Attempts), err.Error())
		return
	}

	unit, err := w.UoWFactory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		_ = w.Store.MarkFailed(ctx, doc.ID, w.nextRetry(doc.Attempts), err.Error())
		return
	}
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()

	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(payload.BookingID))
	if err != nil {
		_ = w.Store.MarkFailed(ctx, doc.ID, w.nextRetry(doc.Attempts), err.Error())
		return
	}
	if !booking.ContractPlaceholder {
		// Resolved elsewhere, nothing left to retry.
		_ = w.Store.MarkSent(ctx, doc.ID)
		return
	}

	input := policies.ContractInput{
		BookingID:        string(booking.ID),
		Start:            booking.Range.Start,
		End:              booking.Range.End,
		Total:            booking.TotalAmount,
		SecurityDeposit:  booking.SecurityDeposit,
		InstallmentCount: booking.InstallmentCount,
	}
	if prop, err := unit.Properties().ByID(ctx, booking.PropertyID); err == nil {
		input.PropertyTitle = prop.Title
		input.PropertyAddress = prop.Address.Line1
	}
	if tenant, err := unit.Users().ByID(ctx, booking.TenantID); err == nil {
		input.TenantName = tenant.Name
	}
	if landlord, err := unit.Users().ByID(ctx, booking.LandlordID); err == nil {
		input.LandlordName = landlord.Name
	}

	ref, err := w.Contracts.Issue(ctx, input)
	if err != nil {
		w.logWarn("contract retry failed", payload.BookingID, err)
		_ = w.Store.MarkFailed(ctx, doc.ID, w.nextRetry(doc.Attempts), err.Error())
		return
	}
	if err := booking.ReplaceContract(ref, time.Now()); err != nil {
		_ = w.Store.MarkFailed(ctx, doc.ID, w.nextRetry(doc.Attempts), err.Error())
		return
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		_ = w.Store.MarkFailed(ctx, doc.ID, w.nextRetry(doc.Attempts), err.Error())
		return
	}
	if err := unit.Commit(ctx); err != nil {
		_ = w.Store.MarkFailed(ctx, doc.ID, w.nextRetry(doc.Attempts), err.Error())
		return
	}
	committed = true
	if w.Logger != nil {
		w.Logger.Info("contract reissued", "booking_id", payload.BookingID, "ref", ref)
	}
	_ = w.Store.MarkSent(ctx, doc.ID)
}

func (w *Worker) formatPayload(doc *gormdb.EventDocument) ([]byte, map[string]string, error) {
	if doc.Headers == nil {
		doc.Headers = map[string]string{}
	}
	data := map[string]any{}
	if err := json.Unmarshal(doc.Payload, &data); err != nil {
		return nil, nil, err
	}
	evt := map[string]any{
		"specversion":     "1.0",
		"id":              uuid.NewString(),
		"type":            doc.Name + ".v1",
		"source":          w.source(),
		"time":            doc.OccurredAt,
		"datacontenttype": "application/json",
		"data":            data,
	}
	if trace, ok := doc.Headers["traceparent"]; ok {
		evt["traceparent"] = trace
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{
		"content-type": "application/cloudevents+json",
	}
	for k, v := range doc.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

func (w *Worker) topicFor(name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	topic := base + ".events.v1"
	if w.TopicPrefix != "" {
		topic = w.TopicPrefix + topic
	}
	return topic
}

func (w *Worker) workerID() string {
	if w.ID != "" {
		return w.ID
	}
	return uuid.NewString()
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) nextRetry(attempts int) time.Time {
	if attempts < len(w.Backoff) {
		return time.Now().Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return time.Now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return time.Now().Add(5 * time.Second)
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://rentverse"
}

func (w *Worker) logWarn(msg, bookingID string, err error) {
	if w.Logger == nil {
		return
	}
	w.Logger.Warn(msg, "booking_id", bookingID, "error", err)
}
