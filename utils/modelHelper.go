package utils

import (
	"context"
	"errors"

	"github.com/mmdatafocus/lpg_backend/config"
	"gorm.io/gorm"
)

/* DB fetching */

// FetchModel loads T by id. Non-admin callers are restricted to their own tenant_id.
// (may return RecordNotFound)
func FetchModel[T any](ctx context.Context, id int, associations ...string) (*T, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	if !IsAdminContext(ctx) {
		tenantId, ok := GetTenantIdFromContext(ctx)
		if !ok || tenantId <= 0 {
			return nil, ErrorTenantRequired
		}
		dbCtx = dbCtx.Where("tenant_id = ?", tenantId)
	}
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

// ValidateResourceId checks the id exists for T (no tenant scoping; catalog tables).
func ValidateResourceId[T any](ctx context.Context, id any) error {
	db := config.GetDB()
	var count int64
	var model T
	if err := db.WithContext(ctx).Model(&model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}
