package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/lpg_backend/config"
	"github.com/mmdatafocus/lpg_backend/utils"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// CentralScope is the scope id of the agent's own warehouse.
const CentralScope = 0

// StockMovement is one row of the append-only ledger.
// ScopeId is 0 for central stock or the tenant id.
type StockMovement struct {
	ID                 int            `gorm:"primary_key" json:"id"`
	ScopeId            int            `gorm:"index:idx_movement_scope_product,priority:1;not null;default:0" json:"scope_id"`
	ProductId          int            `gorm:"index:idx_movement_scope_product,priority:2;not null" json:"product_id"`
	Kind               MovementKind   `gorm:"type:enum('IN','OUT','ADJUSTMENT');not null" json:"kind"`
	Qty                int64          `gorm:"not null" json:"qty"`
	SignedQty          int64          `gorm:"not null" json:"signed_qty"`
	Source             MovementSource `gorm:"type:enum('ORDER','ORDER_CANCEL','ORDER_COMPLETE','UPSTREAM_DELIVERY','SALE','OPNAME','MANUAL');not null" json:"source"`
	Note               string         `gorm:"size:255" json:"note"`
	OrderId            *int           `gorm:"index" json:"order_id,omitempty"`
	OrderLineId        *int           `json:"order_line_id,omitempty"`
	ReversesMovementId *int           `gorm:"index" json:"reverses_movement_id,omitempty"`
	CreatedAt          time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

type NewStockMovement struct {
	ScopeId            int
	ProductId          int
	Kind               MovementKind
	Qty                int64
	SignedQty          int64
	Source             MovementSource
	Note               string
	OrderId            *int
	OrderLineId        *int
	ReversesMovementId *int
}

type ProductBalance struct {
	ProductId int   `json:"product_id"`
	Qty       int64 `json:"qty"`
}

type MovementFilter struct {
	ScopeId   *int            `json:"scope_id" form:"scope_id"`
	ProductId *int            `json:"product_id" form:"product_id"`
	From      *time.Time      `json:"from" form:"from" time_format:"2006-01-02"`
	To        *time.Time      `json:"to" form:"to" time_format:"2006-01-02"`
	Kind      *MovementKind   `json:"kind" form:"kind"`
	Source    *MovementSource `json:"source" form:"source"`
	OrderId   *int            `json:"order_id" form:"order_id"`
	Limit     int             `json:"limit" form:"limit"`
	After     *string         `json:"after" form:"after"`
}

func (m StockMovement) GetCursor() string {
	return EncodeCompositeCursor(m.CreatedAt, m.ID)
}

// checkSigned enforces IN = +qty, OUT = -qty, ADJUSTMENT |signed| = qty.
func checkSigned(kind MovementKind, qty int64, signed int64) error {
	if qty <= 0 {
		return invalidQty("qty", qty)
	}
	switch kind {
	case MovementKindIn:
		if signed != qty {
			return fmt.Errorf("IN movement must carry +%d, got %d", qty, signed)
		}
	case MovementKindOut:
		if signed != -qty {
			return fmt.Errorf("OUT movement must carry -%d, got %d", qty, signed)
		}
	case MovementKindAdjustment:
		if signed != qty && signed != -qty {
			return fmt.Errorf("ADJUSTMENT movement of %d cannot carry %d", qty, signed)
		}
	default:
		return fmt.Errorf("invalid movement kind %q", kind)
	}
	return nil
}

func (m *StockMovement) BeforeCreate(tx *gorm.DB) error {
	return checkSigned(m.Kind, m.Qty, m.SignedQty)
}

func (m *StockMovement) BeforeUpdate(tx *gorm.DB) error {
	return errors.New("stock movements are immutable; append an offsetting movement instead")
}

// AppendStockMovement writes one ledger row inside tx. IN/OUT rows may leave SignedQty zero; it is derived from Kind.
// No balance check is made here.
func AppendStockMovement(tx *gorm.DB, input NewStockMovement) (int, error) {
	if input.Qty <= 0 {
		return 0, invalidQty("qty", input.Qty)
	}
	signed := input.SignedQty
	if signed == 0 {
		switch input.Kind {
		case MovementKindIn:
			signed = input.Qty
		case MovementKindOut:
			signed = -input.Qty
		}
	}
	movement := StockMovement{
		ScopeId:            input.ScopeId,
		ProductId:          input.ProductId,
		Kind:               input.Kind,
		Qty:                input.Qty,
		SignedQty:          signed,
		Source:             input.Source,
		Note:               input.Note,
		OrderId:            input.OrderId,
		OrderLineId:        input.OrderLineId,
		ReversesMovementId: input.ReversesMovementId,
	}
	if err := tx.Create(&movement).Error; err != nil {
		return 0, fmt.Errorf("append stock movement: %w", err)
	}
	return movement.ID, nil
}

// LedgerBalance is SUM(signed_qty) for the key, read through tx.
func LedgerBalance(tx *gorm.DB, scopeId int, productId int) (int64, error) {
	var total int64
	err := tx.Model(&StockMovement{}).
		Select("COALESCE(SUM(signed_qty), 0)").
		Where("scope_id = ? AND product_id = ?", scopeId, productId).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("ledger balance: %w", err)
	}
	return total, nil
}

// BalanceOf returns the balance for scope/product. Tenant scopes read the TenantStock cache,
// the central scope aggregates the ledger.
func BalanceOf(ctx context.Context, scopeId int, productId int) (int64, error) {
	ctx, span := startSpan(ctx, "BalanceOf", attribute.Int("scope_id", scopeId), attribute.Int("product_id", productId))
	var err error
	defer func() { endSpan(span, err) }()

	db := config.GetDB().WithContext(ctx)
	if scopeId == CentralScope {
		if !utils.IsAdminContext(ctx) {
			err = &NotFoundError{Resource: "scope", Id: scopeId}
			return 0, err
		}
		var total int64
		total, err = LedgerBalance(db, CentralScope, productId)
		return total, err
	}
	if err = authorizeTenant(ctx, scopeId); err != nil {
		return 0, err
	}
	var stock TenantStock
	err = db.Where("tenant_id = ? AND product_id = ?", scopeId, productId).Limit(1).Find(&stock).Error
	if err != nil {
		return 0, err
	}
	return stock.Qty, nil
}

// CentralBalances aggregates the central ledger per product.
func CentralBalances(ctx context.Context) ([]ProductBalance, error) {
	if !utils.IsAdminContext(ctx) {
		return nil, &NotFoundError{Resource: "scope", Id: CentralScope}
	}
	var rows []ProductBalance
	err := config.GetDB().WithContext(ctx).Model(&StockMovement{}).
		Select("product_id, COALESCE(SUM(signed_qty), 0) AS qty").
		Where("scope_id = ?", CentralScope).
		Group("product_id").
		Order("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("central balances: %w", err)
	}
	return rows, nil
}

// ReceiveCentralStock books an upstream delivery into the agent's own warehouse.
func ReceiveCentralStock(ctx context.Context, productId int, qty int64, note string) (int64, error) {
	ctx, span := startSpan(ctx, "ReceiveCentralStock", attribute.Int("product_id", productId))
	var err error
	defer func() { endSpan(span, err) }()

	if !utils.IsAdminContext(ctx) {
		err = &NotFoundError{Resource: "scope", Id: CentralScope}
		return 0, err
	}
	if qty <= 0 {
		err = invalidQty("qty", qty)
		return 0, err
	}
	if err = utils.ValidateResourceId[Product](ctx, productId); err != nil {
		err = &NotFoundError{Resource: "product", Id: productId}
		return 0, err
	}

	var balance int64
	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := AppendStockMovement(tx, NewStockMovement{
			ScopeId:   CentralScope,
			ProductId: productId,
			Kind:      MovementKindIn,
			Qty:       qty,
			Source:    MovementSourceUpstreamDelivery,
			Note:      note,
		}); err != nil {
			return err
		}
		var err error
		balance, err = LedgerBalance(tx, CentralScope, productId)
		return err
	})
	if err != nil {
		return 0, err
	}
	RecordAudit(ctx, AuditEvent{
		EventType:   AuditStockReceived,
		Title:       "Central stock received",
		Detail:      qty,
		Description: fmt.Sprintf("product %d +%d", productId, qty),
	})
	return balance, nil
}

// HistoryOf lists movements most recent first. Pangkalan callers only ever see their own scope.
func HistoryOf(ctx context.Context, filter MovementFilter) ([]*StockMovement, error) {
	dbCtx := config.GetDB().WithContext(ctx)

	if !utils.IsAdminContext(ctx) {
		own, ok := utils.GetTenantIdFromContext(ctx)
		if !ok || own <= 0 {
			return nil, utils.ErrorTenantRequired
		}
		filter.ScopeId = &own
	}
	if filter.ScopeId != nil {
		dbCtx = dbCtx.Where("scope_id = ?", *filter.ScopeId)
	}
	if filter.ProductId != nil && *filter.ProductId > 0 {
		dbCtx = dbCtx.Where("product_id = ?", *filter.ProductId)
	}
	if filter.Kind != nil {
		dbCtx = dbCtx.Where("kind = ?", *filter.Kind)
	}
	if filter.Source != nil {
		dbCtx = dbCtx.Where("source = ?", *filter.Source)
	}
	if filter.OrderId != nil && *filter.OrderId > 0 {
		dbCtx = dbCtx.Where("order_id = ?", *filter.OrderId)
	}
	if filter.From != nil {
		dbCtx = dbCtx.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		// inclusive end date
		dbCtx = dbCtx.Where("created_at < ?", filter.To.AddDate(0, 0, 1))
	}
	if at, id := DecodeCompositeCursor(filter.After); id > 0 {
		dbCtx = dbCtx.Where("(created_at < ?) OR (created_at = ? AND id < ?)", at, at, id)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = config.DefaultPageSize
	}

	var results []*StockMovement
	if err := dbCtx.Order("created_at DESC, id DESC").Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// findOrderCentralDeductions returns the order's central OUT rows not yet reversed.
func findOrderCentralDeductions(tx *gorm.DB, orderId int) ([]StockMovement, error) {
	var rows []StockMovement
	reversed := tx.Model(&StockMovement{}).
		Select("reverses_movement_id").
		Where("order_id = ? AND reverses_movement_id IS NOT NULL", orderId)
	err := tx.Where("order_id = ? AND scope_id = ? AND kind = ? AND source = ?",
		orderId, CentralScope, MovementKindOut, MovementSourceOrder).
		Where("id NOT IN (?)", reversed).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find order deductions: %w", err)
	}
	return rows, nil
}

// DeleteStockMovement is the administrative repair path. The tenant cache for the
// key is rebuilt from the remaining ledger in the same transaction.
func DeleteStockMovement(ctx context.Context, id int) (*StockMovement, error) {
	if !utils.IsAdminContext(ctx) {
		return nil, &NotFoundError{Resource: "stock movement", Id: id}
	}
	db := config.GetDB()
	var movement StockMovement
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&movement, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "stock movement", Id: id}
			}
			return err
		}
		if err := tx.Delete(&StockMovement{}, movement.ID).Error; err != nil {
			return err
		}
		if movement.ScopeId == CentralScope {
			return nil
		}
		return RebuildTenantStock(tx, movement.ScopeId, movement.ProductId)
	})
	if err != nil {
		return nil, err
	}
	return &movement, nil
}
