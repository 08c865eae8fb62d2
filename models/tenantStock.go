package models

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/lpg_backend/config"
	"github.com/mmdatafocus/lpg_backend/utils"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TenantStock caches the tenant's ledger balance per product.
// Every change is paired with a tenant-scope StockMovement in the same transaction.
type TenantStock struct {
	ID            int       `gorm:"primary_key" json:"id"`
	TenantId      int       `gorm:"uniqueIndex:idx_tenant_product,priority:1;not null" json:"tenant_id"`
	ProductId     int       `gorm:"uniqueIndex:idx_tenant_product,priority:2;not null" json:"product_id"`
	Qty           int64     `gorm:"not null;default:0" json:"qty"`
	WarningLevel  int64     `gorm:"not null;default:0" json:"warning_level"`
	CriticalLevel int64     `gorm:"not null;default:0" json:"critical_level"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type TenantStockLevel struct {
	TenantId      int        `json:"tenant_id"`
	ProductId     int        `json:"product_id"`
	ProductCode   string     `json:"product_code"`
	DisplaySize   string     `json:"display_size"`
	Qty           int64      `json:"qty"`
	WarningLevel  int64      `json:"warning_level"`
	CriticalLevel int64      `json:"critical_level"`
	Status        StockLevel `json:"status"`
}

// StockLevelStatus classifies qty against the thresholds. A zero threshold is disabled.
func StockLevelStatus(qty int64, warning int64, critical int64) StockLevel {
	if critical > 0 && qty <= critical {
		return StockLevelCritical
	}
	if warning > 0 && qty <= warning {
		return StockLevelLow
	}
	return StockLevelOk
}

// lockTenantStock returns the (tenant, product) row locked FOR UPDATE, creating it at qty 0.
// The row is seeded with a no-op upsert on the unique key, then locked by a plain SELECT.
func lockTenantStock(tx *gorm.DB, tenantId int, productId int) (*TenantStock, error) {
	seed := TenantStock{TenantId: tenantId, ProductId: productId}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, fmt.Errorf("seed tenant stock: %w", err)
	}
	var stock TenantStock
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND product_id = ?", tenantId, productId).
		First(&stock).Error
	if err != nil {
		return nil, fmt.Errorf("lock tenant stock: %w", err)
	}
	return &stock, nil
}

func addTenantStockQty(tx *gorm.DB, stock *TenantStock, delta int64) error {
	if err := tx.Exec("UPDATE tenant_stocks SET qty = qty + ?, updated_at = ? WHERE id = ?", delta, time.Now().UTC(), stock.ID).Error; err != nil {
		return fmt.Errorf("update tenant stock: %w", err)
	}
	stock.Qty += delta
	return nil
}

// receiveTenantStockTx adds qty with a paired IN movement.
func receiveTenantStockTx(tx *gorm.DB, tenantId int, productId int, qty int64, source MovementSource, note string, orderId *int) (*TenantStock, error) {
	if qty <= 0 {
		return nil, invalidQty("qty", qty)
	}
	stock, err := lockTenantStock(tx, tenantId, productId)
	if err != nil {
		return nil, err
	}
	if err := addTenantStockQty(tx, stock, qty); err != nil {
		return nil, err
	}
	if _, err := AppendStockMovement(tx, NewStockMovement{
		ScopeId:   tenantId,
		ProductId: productId,
		Kind:      MovementKindIn,
		Qty:       qty,
		Source:    source,
		Note:      note,
		OrderId:   orderId,
	}); err != nil {
		return nil, err
	}
	return stock, nil
}

func ReceiveTenantStock(ctx context.Context, tenantId int, productId int, qty int64, note string) (*TenantStock, error) {
	ctx, span := startSpan(ctx, "ReceiveTenantStock", attribute.Int("tenant_id", tenantId), attribute.Int("product_id", productId))
	var err error
	defer func() { endSpan(span, err) }()

	if err = authorizeTenant(ctx, tenantId); err != nil {
		return nil, err
	}
	if qty <= 0 {
		err = invalidQty("qty", qty)
		return nil, err
	}
	if err = utils.ValidateResourceId[Product](ctx, productId); err != nil {
		err = &NotFoundError{Resource: "product", Id: productId}
		return nil, err
	}

	var stock *TenantStock
	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		stock, txErr = receiveTenantStockTx(tx, tenantId, productId, qty, MovementSourceUpstreamDelivery, note, nil)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	RecordAudit(ctx, AuditEvent{
		EventType:   AuditStockReceived,
		Title:       "Stock received",
		TenantId:    tenantId,
		Detail:      qty,
		Description: fmt.Sprintf("product %d +%d", productId, qty),
	})
	return stock, nil
}

// DeductTenantStock records a sale to a consumer. It is the only operation that refuses
// to take a balance below zero; the deduction is all-or-nothing.
func DeductTenantStock(ctx context.Context, tenantId int, productId int, qty int64, orderRef string) (*TenantStock, error) {
	ctx, span := startSpan(ctx, "DeductTenantStock", attribute.Int("tenant_id", tenantId), attribute.Int("product_id", productId))
	var err error
	defer func() { endSpan(span, err) }()

	if err = authorizeTenant(ctx, tenantId); err != nil {
		return nil, err
	}
	if qty <= 0 {
		err = invalidQty("qty", qty)
		return nil, err
	}

	var stock *TenantStock
	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, txErr := lockTenantStock(tx, tenantId, productId)
		if txErr != nil {
			return txErr
		}
		if locked.Qty < qty {
			return &InsufficientStockError{TenantId: tenantId, ProductId: productId, Available: locked.Qty, Requested: qty}
		}
		if txErr = addTenantStockQty(tx, locked, -qty); txErr != nil {
			return txErr
		}
		note := "sale"
		if orderRef != "" {
			note = "sale: " + orderRef
		}
		if _, txErr = AppendStockMovement(tx, NewStockMovement{
			ScopeId:   tenantId,
			ProductId: productId,
			Kind:      MovementKindOut,
			Qty:       qty,
			Source:    MovementSourceSale,
			Note:      note,
		}); txErr != nil {
			return txErr
		}
		stock = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	RecordAudit(ctx, AuditEvent{
		EventType:   AuditStockSold,
		Title:       "Stock sold",
		TenantId:    tenantId,
		OrderRef:    orderRef,
		Detail:      qty,
		Description: fmt.Sprintf("product %d -%d", productId, qty),
	})
	return stock, nil
}

// adjustmentDelta returns the ADJUSTMENT qty and note for a stock opname, ok=false when nothing changes.
func adjustmentDelta(previous int64, actual int64) (int64, string, bool) {
	delta := actual - previous
	if delta == 0 {
		return 0, "", false
	}
	if delta > 0 {
		return delta, fmt.Sprintf("opname: +%d", delta), true
	}
	return -delta, fmt.Sprintf("opname: %d", delta), true
}

// AdjustTenantStock sets the counted quantity (stock opname).
// A count equal to the cached qty succeeds without a movement.
func AdjustTenantStock(ctx context.Context, tenantId int, productId int, actualQty int64, note string) (*TenantStock, error) {
	ctx, span := startSpan(ctx, "AdjustTenantStock", attribute.Int("tenant_id", tenantId), attribute.Int("product_id", productId))
	var err error
	defer func() { endSpan(span, err) }()

	if err = authorizeTenant(ctx, tenantId); err != nil {
		return nil, err
	}
	if actualQty < 0 {
		err = &InvalidQuantityError{Field: "actual_qty", Qty: actualQty}
		return nil, err
	}

	var stock *TenantStock
	var previous int64
	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, txErr := lockTenantStock(tx, tenantId, productId)
		if txErr != nil {
			return txErr
		}
		previous = locked.Qty
		stock = locked
		qty, deltaNote, changed := adjustmentDelta(locked.Qty, actualQty)
		if !changed {
			return nil
		}
		signed := actualQty - locked.Qty
		if note != "" {
			deltaNote = deltaNote + " (" + note + ")"
		}
		if txErr = addTenantStockQty(tx, locked, signed); txErr != nil {
			return txErr
		}
		_, txErr = AppendStockMovement(tx, NewStockMovement{
			ScopeId:   tenantId,
			ProductId: productId,
			Kind:      MovementKindAdjustment,
			Qty:       qty,
			SignedQty: signed,
			Source:    MovementSourceOpname,
			Note:      deltaNote,
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}
	if previous != actualQty {
		RecordAudit(ctx, AuditEvent{
			EventType:   AuditStockAdjusted,
			Title:       "Stock opname",
			TenantId:    tenantId,
			Detail:      actualQty - previous,
			Description: fmt.Sprintf("product %d: %d -> %d", productId, previous, actualQty),
		})
	}
	return stock, nil
}

func SetStockThresholds(ctx context.Context, tenantId int, productId int, warning int64, critical int64) (*TenantStock, error) {
	if err := authorizeTenant(ctx, tenantId); err != nil {
		return nil, err
	}
	if warning < 0 {
		return nil, &InvalidQuantityError{Field: "warning_level", Qty: warning}
	}
	if critical < 0 {
		return nil, &InvalidQuantityError{Field: "critical_level", Qty: critical}
	}
	var stock *TenantStock
	err := config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockTenantStock(tx, tenantId, productId)
		if err != nil {
			return err
		}
		if err := tx.Model(locked).Updates(map[string]interface{}{
			"warning_level":  warning,
			"critical_level": critical,
		}).Error; err != nil {
			return err
		}
		locked.WarningLevel = warning
		locked.CriticalLevel = critical
		stock = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stock, nil
}

// GetTenantStockLevels returns one row per catalog product; products never stocked show qty 0.
func GetTenantStockLevels(ctx context.Context, tenantId int) ([]TenantStockLevel, error) {
	if err := authorizeTenant(ctx, tenantId); err != nil {
		return nil, err
	}
	catalog, err := LoadProductCatalog(ctx)
	if err != nil {
		return nil, err
	}
	var stocks []TenantStock
	if err := config.GetDB().WithContext(ctx).Where("tenant_id = ?", tenantId).Find(&stocks).Error; err != nil {
		return nil, err
	}
	return buildStockLevels(tenantId, catalog, stocks), nil
}

func buildStockLevels(tenantId int, catalog ProductCatalog, stocks []TenantStock) []TenantStockLevel {
	byProduct := make(map[int]TenantStock, len(stocks))
	for _, s := range stocks {
		byProduct[s.ProductId] = s
	}
	levels := make([]TenantStockLevel, 0, len(catalog))
	for _, p := range catalog {
		s := byProduct[p.ID]
		levels = append(levels, TenantStockLevel{
			TenantId:      tenantId,
			ProductId:     p.ID,
			ProductCode:   p.Code,
			DisplaySize:   p.DisplaySize,
			Qty:           s.Qty,
			WarningLevel:  s.WarningLevel,
			CriticalLevel: s.CriticalLevel,
			Status:        StockLevelStatus(s.Qty, s.WarningLevel, s.CriticalLevel),
		})
	}
	return levels
}

// RebuildTenantStock resets the cached qty to the ledger sum for the key.
func RebuildTenantStock(tx *gorm.DB, tenantId int, productId int) error {
	stock, err := lockTenantStock(tx, tenantId, productId)
	if err != nil {
		return err
	}
	total, err := LedgerBalance(tx, tenantId, productId)
	if err != nil {
		return err
	}
	if total == stock.Qty {
		return nil
	}
	return tx.Exec("UPDATE tenant_stocks SET qty = ?, updated_at = ? WHERE id = ?", total, time.Now().UTC(), stock.ID).Error
}
