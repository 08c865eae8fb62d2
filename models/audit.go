package models

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/lpg_backend/config"
	"github.com/mmdatafocus/lpg_backend/utils"
	"github.com/sirupsen/logrus"
)

type AuditEventType string

const (
	AuditOrderCreated       AuditEventType = "ORDER_CREATED"
	AuditOrderStatusChanged AuditEventType = "ORDER_STATUS_CHANGED"
	AuditOrderLinesReplaced AuditEventType = "ORDER_LINES_REPLACED"
	AuditOrderDeleted       AuditEventType = "ORDER_DELETED"
	AuditOrderPaid          AuditEventType = "ORDER_PAID"
	AuditStockReceived      AuditEventType = "STOCK_RECEIVED"
	AuditStockAdjusted      AuditEventType = "STOCK_ADJUSTED"
	AuditStockSold          AuditEventType = "STOCK_SOLD"
	AuditPlanGenerated      AuditEventType = "PLAN_GENERATED"
)

// AuditEvent describes a committed business change. It is not persisted by this service.
type AuditEvent struct {
	Id            string         `json:"id"`
	EventType     AuditEventType `json:"event_type"`
	Title         string         `json:"title"`
	TenantId      int            `json:"tenant_id,omitempty"`
	TenantName    string         `json:"tenant_name,omitempty"`
	OrderRef      string         `json:"order_ref,omitempty"`
	Detail        int64          `json:"detail"`
	Description   string         `json:"description,omitempty"`
	CorrelationId string         `json:"correlation_id,omitempty"`
	UserName      string         `json:"user_name,omitempty"`
	OccurredAt    time.Time      `json:"occurred_at"`
}

type AuditSink interface {
	Record(ctx context.Context, event AuditEvent) error
}

// LogAuditSink writes events to the structured logger.
type LogAuditSink struct {
	Logger *logrus.Logger
}

func (s LogAuditSink) Record(ctx context.Context, event AuditEvent) error {
	logger := s.Logger
	if logger == nil {
		logger = config.GetLogger()
	}
	logger.WithFields(logrus.Fields{
		"audit_id":       event.Id,
		"event_type":     event.EventType,
		"tenant_id":      event.TenantId,
		"order_ref":      event.OrderRef,
		"detail":         event.Detail,
		"correlation_id": event.CorrelationId,
	}).Info(event.Title)
	return nil
}

// PubSubAuditSink publishes events as JSON to a Pub/Sub topic.
type PubSubAuditSink struct {
	Topic string
}

func (s PubSubAuditSink) Record(ctx context.Context, event AuditEvent) error {
	if s.Topic == "" {
		return errors.New("audit topic is not configured")
	}
	_, err := config.PublishJSON(ctx, s.Topic, event, map[string]string{
		"event_type": string(event.EventType),
	})
	return err
}

// MultiAuditSink fans an event out to every sink and joins their errors.
type MultiAuditSink []AuditSink

func (m MultiAuditSink) Record(ctx context.Context, event AuditEvent) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	auditSink   AuditSink = LogAuditSink{}
	auditSinkMu sync.RWMutex
)

func SetAuditSink(sink AuditSink) {
	auditSinkMu.Lock()
	defer auditSinkMu.Unlock()
	if sink == nil {
		sink = LogAuditSink{}
	}
	auditSink = sink
}

func GetAuditSink() AuditSink {
	auditSinkMu.RLock()
	defer auditSinkMu.RUnlock()
	return auditSink
}

// DefaultAuditSink logs every event and also publishes to Pub/Sub when a topic is configured.
func DefaultAuditSink() AuditSink {
	if config.PubSubEnabled() {
		return MultiAuditSink{LogAuditSink{}, PubSubAuditSink{Topic: config.AuditTopicName()}}
	}
	return LogAuditSink{}
}

const auditTimeout = 5 * time.Second

// RecordAudit hands event to the configured sink after a commit. Failures are logged, never returned.
func RecordAudit(ctx context.Context, event AuditEvent) {
	if event.Id == "" {
		event.Id = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if event.CorrelationId == "" {
		event.CorrelationId, _ = utils.GetCorrelationIdFromContext(ctx)
	}
	if event.UserName == "" {
		event.UserName, _ = utils.GetUserNameFromContext(ctx)
	}

	// the request may already be finished; keep its values but not its deadline
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	if err := GetAuditSink().Record(auditCtx, event); err != nil {
		config.LogError(config.GetLogger(), "audit.go", "RecordAudit", "audit sink failed", event, err)
	}
}
