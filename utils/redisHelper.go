package utils

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/lpg_backend/config"
	"gorm.io/gorm"
)

// NextSequence returns the next number for a named sequence.
//
// Redis INCR is used when available; the counter is seeded from maxFromDB the first time it is seen.
// Without redis, maxFromDB()+1 is used and the caller must rely on the unique index to reject races.
func NextSequence(ctx context.Context, cacheKey string, maxFromDB func() (int64, error)) (int64, error) {
	if config.GetRedisDB() == nil {
		current, err := maxFromDB()
		if err != nil {
			return 0, err
		}
		return current + 1, nil
	}

	if _, exists, err := config.GetRedisValue(ctx, cacheKey); err != nil {
		return 0, err
	} else if !exists {
		current, err := maxFromDB()
		if err != nil {
			return 0, err
		}
		// Another instance may seed concurrently; SETNX keeps the first value.
		if _, err := config.SetRedisValueNX(ctx, cacheKey, current, 0); err != nil {
			return 0, err
		}
	}
	return config.GetRedisCounter(ctx, cacheKey)
}

// MaxColumnValue returns MAX(column) for model filtered by where/args, 0 on empty tables.
func MaxColumnValue(tx *gorm.DB, model any, column string, where string, args ...any) (int64, error) {
	var current *int64
	err := tx.Model(model).Select(fmt.Sprintf("MAX(%s)", column)).Where(where, args...).Scan(&current).Error
	if err != nil {
		return 0, err
	}
	if current == nil {
		return 0, nil
	}
	return *current, nil
}
