package workflow

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/lpg_backend/config"
	"github.com/mmdatafocus/lpg_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// StockKey identifies one tenant_stocks cache row.
type StockKey struct {
	TenantId  int
	ProductId int
}

type RebuildSummary struct {
	Keys    int
	Changed int
	Failed  int
}

func stockRebuildLockName(key StockKey) string {
	return fmt.Sprintf("stock_rebuild:%d:%d", key.TenantId, key.ProductId)
}

func acquireStockRebuildLock(tx *gorm.DB, key StockKey) error {
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", stockRebuildLockName(key)).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire rebuild lock for tenant_id=%d product_id=%d", key.TenantId, key.ProductId)
	}
	return nil
}

func releaseStockRebuildLock(tx *gorm.DB, key StockKey) {
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", stockRebuildLockName(key)).Scan(&_ok).Error
}

// RebuildTenantStockKey resets one cache row to its ledger sum. It reports whether the row changed.
func RebuildTenantStockKey(tx *gorm.DB, logger *logrus.Logger, key StockKey) (bool, error) {
	if tx == nil {
		return false, fmt.Errorf("rebuild tenant stock: tx is nil")
	}
	if logger == nil {
		logger = config.GetLogger()
	}
	if key.TenantId <= 0 || key.ProductId <= 0 {
		return false, fmt.Errorf("rebuild tenant stock: invalid key %+v", key)
	}

	if err := acquireStockRebuildLock(tx, key); err != nil {
		return false, err
	}
	defer releaseStockRebuildLock(tx, key)

	var before models.TenantStock
	if err := tx.Where("tenant_id = ? AND product_id = ?", key.TenantId, key.ProductId).Limit(1).Find(&before).Error; err != nil {
		return false, err
	}
	ledger, err := models.LedgerBalance(tx, key.TenantId, key.ProductId)
	if err != nil {
		return false, err
	}
	if err := models.RebuildTenantStock(tx, key.TenantId, key.ProductId); err != nil {
		return false, err
	}

	changed := before.Qty != ledger
	logger.WithFields(logrus.Fields{
		"tenant_id":  key.TenantId,
		"product_id": key.ProductId,
		"cached_qty": before.Qty,
		"ledger_qty": ledger,
		"changed":    changed,
	}).Info("stock.rebuild.key")
	return changed, nil
}

// DiscoverStockKeys lists every key present in the tenant ledger or the cache.
func DiscoverStockKeys(db *gorm.DB, tenantId int) ([]StockKey, error) {
	sql := `
SELECT tenant_id, product_id FROM (
    SELECT scope_id AS tenant_id, product_id FROM stock_movements WHERE scope_id > 0
    UNION
    SELECT tenant_id, product_id FROM tenant_stocks
) k`
	args := []interface{}{}
	if tenantId > 0 {
		sql += " WHERE tenant_id = ?"
		args = append(args, tenantId)
	}
	sql += " ORDER BY tenant_id, product_id"

	var keys []StockKey
	if err := db.Raw(sql, args...).Scan(&keys).Error; err != nil {
		return nil, fmt.Errorf("discover stock keys: %w", err)
	}
	return keys, nil
}

// RebuildTenantStocks rebuilds every key (optionally for one tenant), one transaction per key.
func RebuildTenantStocks(ctx context.Context, logger *logrus.Logger, tenantId int, continueOnError bool) (RebuildSummary, error) {
	var summary RebuildSummary
	if logger == nil {
		logger = config.GetLogger()
	}
	db := config.GetDB().WithContext(ctx)
	keys, err := DiscoverStockKeys(db, tenantId)
	if err != nil {
		return summary, err
	}
	summary.Keys = len(keys)

	for _, key := range keys {
		var changed bool
		err := db.Transaction(func(tx *gorm.DB) error {
			var txErr error
			changed, txErr = RebuildTenantStockKey(tx, logger, key)
			return txErr
		})
		if err != nil {
			summary.Failed++
			config.LogError(logger, "stockRebuild.go", "RebuildTenantStocks", "rebuild key", key, err)
			if continueOnError {
				continue
			}
			return summary, err
		}
		if changed {
			summary.Changed++
		}
	}
	return summary, nil
}
