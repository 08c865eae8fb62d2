package models

import "time"

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)

// IdempotencyKey records a client-supplied request key so retried writes return the first result.
// Unique constraint: (scope_id, handler_name, request_key). ScopeId is the caller's tenant or 0.
type IdempotencyKey struct {
	ID          int               `gorm:"primary_key" json:"id"`
	ScopeId     int               `gorm:"not null;default:0;index:uniq_idem,unique" json:"scope_id"`
	HandlerName string            `gorm:"size:100;not null;index:uniq_idem,unique" json:"handler_name"`
	RequestKey  string            `gorm:"size:255;not null;index:uniq_idem,unique" json:"request_key"`
	Status      IdempotencyStatus `gorm:"size:20;not null;index" json:"status"`
	ResourceId  int               `gorm:"not null;default:0" json:"resource_id"`
	LastError   *string           `gorm:"type:text" json:"last_error"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}
