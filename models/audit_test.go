package models

import (
	"context"
	"errors"
	"testing"

	"github.com/mmdatafocus/lpg_backend/utils"
)

type recordingSink struct {
	events []AuditEvent
	err    error
}

func (s *recordingSink) Record(ctx context.Context, event AuditEvent) error {
	s.events = append(s.events, event)
	return s.err
}

func TestRecordAudit_FillsDefaultsAndSwallowsErrors(t *testing.T) {
	sink := &recordingSink{err: errors.New("topic unavailable")}
	SetAuditSink(sink)
	t.Cleanup(func() { SetAuditSink(nil) })

	ctx := utils.SetCorrelationIdInContext(context.Background(), "corr-1")
	RecordAudit(ctx, AuditEvent{EventType: AuditOrderCreated, Title: "Order created", OrderRef: "ORD-202408-0001"})

	if len(sink.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(sink.events))
	}
	ev := sink.events[0]
	if ev.Id == "" || ev.OccurredAt.IsZero() {
		t.Fatalf("expected id and timestamp to be filled: %+v", ev)
	}
	if ev.CorrelationId != "corr-1" {
		t.Fatalf("expected correlation id from context, got %q", ev.CorrelationId)
	}
}

func TestMultiAuditSink_DeliversToAllAndJoinsErrors(t *testing.T) {
	first := &recordingSink{err: errors.New("first failed")}
	second := &recordingSink{}
	err := MultiAuditSink{first, second}.Record(context.Background(), AuditEvent{EventType: AuditOrderPaid})
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if len(first.events) != 1 || len(second.events) != 1 {
		t.Fatalf("expected both sinks to receive the event")
	}
}

func TestTypedErrorsUnwrapToSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{&InvalidTransitionError{From: OrderStatusDraft, To: OrderStatusCompleted}, ErrInvalidTransition},
		{&AlreadyTerminalError{OrderId: 1, Status: OrderStatusCompleted}, ErrAlreadyTerminal},
		{&InsufficientStockError{TenantId: 1, ProductId: 1, Available: 2, Requested: 5}, ErrInsufficientStock},
		{&InvalidQuantityError{Field: "qty", Qty: -1}, ErrInvalidQuantity},
		{&NotFoundError{Resource: "order", Id: 1}, ErrNotFound},
		{&UnresolvedProductError{Input: "x"}, ErrUnresolvedProduct},
	}
	for _, c := range cases {
		wrapped := errors.Join(errors.New("context"), c.err)
		if !errors.Is(wrapped, c.want) {
			t.Fatalf("%T does not unwrap to %v", c.err, c.want)
		}
	}
}
