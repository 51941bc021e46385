package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	appoutbox "rentverse/internal/app/outbox"
	"rentverse/internal/app/policies"
	"rentverse/internal/app/uow"
	domainbooking "rentverse/internal/domain/booking"
	"rentverse/internal/domain/shared/daterange"
	"rentverse/internal/domain/shared/money"
	gormdb "rentverse/internal/infra/db/gorm"
)

type stubIssuer struct {
	calls int
}

func (s *stubIssuer) Issue(_ context.Context, input policies.ContractInput) (string, error) {
	s.calls++
	return "https://files.test/contracts/" + input.BookingID + ".pdf", nil
}

type capturingProducer struct {
	topics   []string
	payloads [][]byte
	headers  []map[string]string
}

func (p *capturingProducer) Publish(_ context.Context, topic string, _ string, payload []byte, headers map[string]string) error {
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	p.headers = append(p.headers, headers)
	return nil
}

func setupWorkerTest(t *testing.T) (*gorm.DB, gormdb.Factory, *gormdb.OutboxStore) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gormdb.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db, gormdb.Factory{DB: db}, gormdb.NewOutboxStore(db)
}

func seedPlaceholderBooking(t *testing.T, factory gormdb.Factory) domainbooking.BookingID {
	t.Helper()
	ctx := context.Background()
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	now := time.Now().UTC()
	start := now.AddDate(0, 1, 0)
	rng, err := daterange.New(start, start.AddDate(0, 2, -1))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	booking, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID: "bk-retry", PropertyID: "prop-1", TenantID: "tenant-1", LandlordID: "landlord-1",
		Range: rng, TotalAmount: money.Must(80000, "USD"), SecurityDeposit: money.Must(0, "USD"),
		PaymentType: domainbooking.PaymentTypeCash, InstallmentCount: 2, CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("booking: %v", err)
	}
	if err := booking.AttachContract("placeholder://contracts/bk-retry.pdf", true, now); err != nil {
		t.Fatalf("attach: %v", err)
	}
	booking.ClearEvents()
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := unit.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return booking.ID
}

func outboxState(t *testing.T, db *gorm.DB, id string) string {
	t.Helper()
	var state string
	if err := db.Table("app_outbox").Select("state").Where("id = ?", id).Scan(&state).Error; err != nil {
		t.Fatalf("state: %v", err)
	}
	return state
}

func TestWorkerRetriesContractIssuance(t *testing.T) {
	db, factory, store := setupWorkerTest(t)
	ctx := context.Background()
	bookingID := seedPlaceholderBooking(t, factory)

	record, err := appoutbox.NewContractIssueRecord(string(bookingID), "inline issuance failed", time.Now())
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Add(ctx, record); err != nil {
		t.Fatalf("add: %v", err)
	}

	issuer := &stubIssuer{}
	w := &Worker{Store: store, UoWFactory: factory, Contracts: issuer, ID: "worker-test"}
	if err := w.processOnce(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}
	if issuer.calls != 1 {
		t.Fatalf("expected one issuance got %d", issuer.calls)
	}

	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer unit.Rollback(ctx)
	booking, err := unit.Bookings().ByID(ctx, bookingID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if booking.ContractPlaceholder {
		t.Fatalf("placeholder flag must clear after retry")
	}
	if booking.ContractRef != "https://files.test/contracts/bk-retry.pdf" {
		t.Fatalf("unexpected contract ref %q", booking.ContractRef)
	}
	if got := outboxState(t, db, record.ID); got != "SENT" {
		t.Fatalf("expected SENT got %s", got)
	}
}

func TestWorkerSkipsResolvedContract(t *testing.T) {
	db, factory, store := setupWorkerTest(t)
	ctx := context.Background()
	bookingID := seedPlaceholderBooking(t, factory)

	// Resolve the contract before the worker runs.
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	booking, err := unit.Bookings().ByID(ctx, bookingID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := booking.ReplaceContract("https://files.test/contracts/manual.pdf", time.Now()); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := unit.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	record, err := appoutbox.NewContractIssueRecord(string(bookingID), "inline issuance failed", time.Now())
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Add(ctx, record); err != nil {
		t.Fatalf("add: %v", err)
	}

	issuer := &stubIssuer{}
	w := &Worker{Store: store, UoWFactory: factory, Contracts: issuer, ID: "worker-test"}
	if err := w.processOnce(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}
	if issuer.calls != 0 {
		t.Fatalf("resolved contracts must not be reissued")
	}
	if got := outboxState(t, db, record.ID); got != "SENT" {
		t.Fatalf("expected SENT got %s", got)
	}
}

func TestWorkerPublishesCloudEvents(t *testing.T) {
	db, factory, store := setupWorkerTest(t)
	ctx := context.Background()

	payload, _ := json.Marshal(map[string]any{"booking_id": "bk-1"})
	record := appoutbox.EventRecord{
		ID:         "evt-1",
		Kind:       appoutbox.KindEvent,
		Name:       "booking.created",
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
		Aggregate:  "bk-1",
	}
	if err := store.Add(ctx, record); err != nil {
		t.Fatalf("add: %v", err)
	}

	producer := &capturingProducer{}
	w := &Worker{Store: store, Producer: producer, UoWFactory: factory, ID: "worker-test"}
	if err := w.processOnce(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(producer.topics) != 1 || producer.topics[0] != "booking.events.v1" {
		t.Fatalf("unexpected topics %v", producer.topics)
	}
	var envelope map[string]any
	if err := json.Unmarshal(producer.payloads[0], &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope["specversion"] != "1.0" || envelope["type"] != "booking.created.v1" {
		t.Fatalf("unexpected envelope %v", envelope)
	}
	if producer.headers[0]["content-type"] != "application/cloudevents+json" {
		t.Fatalf("unexpected headers %v", producer.headers[0])
	}
	if got := outboxState(t, db, record.ID); got != "SENT" {
		t.Fatalf("expected SENT got %s", got)
	}
}

func TestWorkerFailsWithoutProducer(t *testing.T) {
	db, factory, store := setupWorkerTest(t)
	ctx := context.Background()
	record := appoutbox.EventRecord{
		ID: "evt-2", Kind: appoutbox.KindEvent, Name: "booking.created",
		Payload: []byte(`{}`), OccurredAt: time.Now().UTC(), Aggregate: "bk-1",
	}
	if err := store.Add(ctx, record); err != nil {
		t.Fatalf("add: %v", err)
	}
	w := &Worker{Store: store, UoWFactory: factory, ID: "worker-test", Backoff: []time.Duration{time.Second}}
	if err := w.processOnce(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}
	if got := outboxState(t, db, record.ID); got != "FAILED" {
		t.Fatalf("expected FAILED got %s", got)
	}
}
