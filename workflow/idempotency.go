package workflow

import (
	"context"
	"errors"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/mmdatafocus/lpg_backend/config"
	"github.com/mmdatafocus/lpg_backend/models"
	"gorm.io/gorm"
)

const createOrderHandlerName = "createOrder"

var ErrIdempotencyInProgress = errors.New("a request with this idempotency key is still in progress")

// staleIdempotencyAfter lets a crashed request's key be retried.
const staleIdempotencyAfter = 5 * time.Minute

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// BeginIdempotency inserts a STARTED key. A non-zero resourceId means the request already
// succeeded and the caller should return that resource instead of writing again.
func BeginIdempotency(tx *gorm.DB, scopeId int, handlerName, requestKey string) (resourceId int, err error) {
	key := models.IdempotencyKey{
		ScopeId:     scopeId,
		HandlerName: handlerName,
		RequestKey:  requestKey,
		Status:      models.IdempotencyStatusStarted,
	}
	if err := tx.Create(&key).Error; err == nil {
		return 0, nil
	} else if !isDuplicateKeyErr(err) {
		return 0, err
	}

	var existing models.IdempotencyKey
	if err := tx.Where("scope_id = ? AND handler_name = ? AND request_key = ?", scopeId, handlerName, requestKey).
		First(&existing).Error; err != nil {
		return 0, err
	}

	switch existing.Status {
	case models.IdempotencyStatusSucceeded:
		return existing.ResourceId, nil
	case models.IdempotencyStatusStarted:
		if time.Since(existing.UpdatedAt) < staleIdempotencyAfter {
			return 0, ErrIdempotencyInProgress
		}
	}
	return 0, tx.Model(&models.IdempotencyKey{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusStarted, "last_error": nil}).Error
}

func MarkIdempotencySucceeded(tx *gorm.DB, scopeId int, handlerName, requestKey string, resourceId int) error {
	return tx.Model(&models.IdempotencyKey{}).
		Where("scope_id = ? AND handler_name = ? AND request_key = ?", scopeId, handlerName, requestKey).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusSucceeded, "resource_id": resourceId, "last_error": nil}).Error
}

func MarkIdempotencyFailed(tx *gorm.DB, scopeId int, handlerName, requestKey string, err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return tx.Model(&models.IdempotencyKey{}).
		Where("scope_id = ? AND handler_name = ? AND request_key = ?", scopeId, handlerName, requestKey).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusFailed, "last_error": &msg}).Error
}

// CreateOrderIdempotent creates an order at most once per (scopeId, key). The key is marked
// SUCCEEDED in the order's own transaction, so a committed order always has a succeeded key.
// replayed is true when the first order is returned instead of creating a new one.
func CreateOrderIdempotent(ctx context.Context, scopeId int, key string, input *models.NewOrder) (order *models.Order, replayed bool, err error) {
	db := config.GetDB().WithContext(ctx)
	existingId, err := BeginIdempotency(db, scopeId, createOrderHandlerName, key)
	if err != nil {
		return nil, false, err
	}
	if existingId > 0 {
		order, err = models.GetOrder(ctx, existingId)
		return order, true, err
	}

	order, err = models.CreateOrderWithHook(ctx, input, func(tx *gorm.DB, created *models.Order) error {
		return MarkIdempotencySucceeded(tx, scopeId, createOrderHandlerName, key, created.ID)
	})
	if err != nil {
		if markErr := MarkIdempotencyFailed(db, scopeId, createOrderHandlerName, key, err); markErr != nil {
			config.LogError(config.GetLogger(), "idempotency.go", "CreateOrderIdempotent", "mark idempotency failed", key, markErr)
		}
		return nil, false, err
	}
	return order, false, nil
}
