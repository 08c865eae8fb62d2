package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/lpg_backend/config"
	"github.com/mmdatafocus/lpg_backend/utils"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Order struct {
	ID            int                `gorm:"primary_key" json:"id"`
	OrderCode     string             `gorm:"size:30;uniqueIndex;not null" json:"order_code"`
	CodePeriod    string             `gorm:"size:6;index;not null" json:"-"`
	SequenceNo    int64              `gorm:"not null" json:"-"`
	TenantId      int                `gorm:"index;not null" json:"tenant_id"`
	AgentId       *int               `json:"agent_id,omitempty"`
	Lines         []OrderLine        `gorm:"foreignKey:OrderId" json:"lines"`
	Subtotal      decimal.Decimal    `gorm:"type:decimal(20,2);default:0" json:"subtotal"`
	Tax           decimal.Decimal    `gorm:"type:decimal(20,2);default:0" json:"tax"`
	Total         decimal.Decimal    `gorm:"type:decimal(20,2);default:0" json:"total"`
	CurrentStatus OrderStatus        `gorm:"type:enum('DRAFT','AWAITING_PAYMENT','PROCESSING','READY_TO_SHIP','SHIPPED','COMPLETED','CANCELLED');default:DRAFT;index" json:"current_status"`
	IsPaid        *bool              `gorm:"not null;default:false" json:"is_paid"`
	Notes         string             `gorm:"type:text" json:"notes"`
	StatusEvents  []OrderStatusEvent `gorm:"foreignKey:OrderId" json:"status_events,omitempty"`
	CreatedAt     time.Time          `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt     `gorm:"index" json:"-"`
}

type OrderLine struct {
	ID          int             `gorm:"primary_key" json:"id"`
	OrderId     int             `gorm:"index;not null" json:"order_id"`
	Position    int             `gorm:"not null" json:"position"`
	ProductId   int             `gorm:"not null" json:"product_id"`
	ProductCode string          `gorm:"size:50" json:"product_code"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"unit_price"`
	Qty         int64           `gorm:"not null" json:"qty"`
	IsTaxable   bool            `gorm:"not null" json:"is_taxable"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"subtotal"`
	Tax         decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"tax"`
}

type OrderStatusEvent struct {
	ID        int         `gorm:"primary_key" json:"id"`
	OrderId   int         `gorm:"index;not null" json:"order_id"`
	Status    OrderStatus `gorm:"type:enum('DRAFT','AWAITING_PAYMENT','PROCESSING','READY_TO_SHIP','SHIPPED','COMPLETED','CANCELLED');not null" json:"status"`
	Note      string      `gorm:"size:255" json:"note"`
	CreatedAt time.Time   `gorm:"autoCreateTime" json:"created_at"`
}

type NewOrder struct {
	TenantId int            `json:"tenant_id"`
	AgentId  *int           `json:"agent_id"`
	Notes    string         `json:"notes"`
	Lines    []NewOrderLine `json:"lines" binding:"required" validate:"required,min=1,dive"`
}

// NewOrderLine names its product by id or by a free-form code/size ("LPG_3KG", "3kg").
// UnitPrice defaults to the catalog price.
type NewOrderLine struct {
	ProductId int              `json:"product_id"`
	Product   string           `json:"product"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	Qty       int64            `json:"qty"`
	IsTaxable bool             `json:"is_taxable"`
}

type OrderFilter struct {
	TenantId *int         `form:"tenant_id"`
	Status   *OrderStatus `form:"status"`
	From     *time.Time   `form:"from" time_format:"2006-01-02"`
	To       *time.Time   `form:"to" time_format:"2006-01-02"`
	Code     string       `form:"code"`
	Page     int          `form:"page"`
	PageSize int          `form:"page_size"`
}

// buildOrderLines resolves products (unmatched strings fall back to the default product
// unless STRICT_PRODUCT_RESOLUTION is set) and prices each line. Totals satisfy total = subtotal + tax.
func buildOrderLines(catalog ProductCatalog, inputs []NewOrderLine, rate decimal.Decimal) ([]OrderLine, decimal.Decimal, decimal.Decimal, error) {
	if len(inputs) == 0 {
		return nil, decimal.Zero, decimal.Zero, errors.New("order requires at least one line")
	}
	lines := make([]OrderLine, 0, len(inputs))
	subtotal, tax := decimal.Zero, decimal.Zero
	for i, in := range inputs {
		if in.Qty <= 0 {
			return nil, decimal.Zero, decimal.Zero, invalidQty(fmt.Sprintf("lines[%d].qty", i), in.Qty)
		}
		var product Product
		if in.ProductId > 0 {
			p, ok := catalog.ById(in.ProductId)
			if !ok {
				return nil, decimal.Zero, decimal.Zero, &NotFoundError{Resource: "product", Id: in.ProductId}
			}
			product = p
		} else {
			p, err := catalog.ResolveLenient(in.Product)
			if err != nil {
				return nil, decimal.Zero, decimal.Zero, err
			}
			product = p
		}
		price := product.UnitPrice
		if in.UnitPrice != nil {
			if in.UnitPrice.IsNegative() {
				return nil, decimal.Zero, decimal.Zero, fmt.Errorf("lines[%d].unit_price must not be negative", i)
			}
			price = *in.UnitPrice
		}
		lineSubtotal, lineTax := utils.CalculateLineAmounts(price, in.Qty, in.IsTaxable, rate)
		lines = append(lines, OrderLine{
			Position:    i + 1,
			ProductId:   product.ID,
			ProductCode: product.Code,
			UnitPrice:   price,
			Qty:         in.Qty,
			IsTaxable:   in.IsTaxable,
			Subtotal:    lineSubtotal,
			Tax:         lineTax,
		})
		subtotal = subtotal.Add(lineSubtotal)
		tax = tax.Add(lineTax)
	}
	return lines, subtotal, tax, nil
}

// orderTenant picks the tenant an order is created for: distributors name it, a pangkalan orders for itself.
func orderTenant(ctx context.Context, requested int) (int, error) {
	if utils.IsAdminContext(ctx) {
		if requested <= 0 {
			return 0, utils.ErrorTenantRequired
		}
		return requested, nil
	}
	own, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || own <= 0 {
		return 0, utils.ErrorTenantRequired
	}
	if requested != 0 && requested != own {
		return 0, &NotFoundError{Resource: "tenant", Id: requested}
	}
	return own, nil
}

func orderCodePeriod(now time.Time) string {
	local, err := utils.ConvertToDate(now, config.Timezone())
	if err != nil {
		local = now.UTC()
	}
	return local.Format("200601")
}

func formatOrderCode(period string, seq int64) string {
	return fmt.Sprintf("ORD-%s-%04d", period, seq)
}

func nextOrderCode(ctx context.Context, tx *gorm.DB) (string, string, int64, error) {
	period := orderCodePeriod(time.Now())
	seq, err := utils.NextSequence(ctx, "order_seq:"+period, func() (int64, error) {
		return utils.MaxColumnValue(tx.Unscoped(), &Order{}, "sequence_no", "code_period = ?", period)
	})
	if err != nil {
		return "", "", 0, fmt.Errorf("order sequence: %w", err)
	}
	return formatOrderCode(period, seq), period, seq, nil
}

func appendStatusEvent(tx *gorm.DB, orderId int, status OrderStatus, note string) error {
	event := OrderStatusEvent{OrderId: orderId, Status: status, Note: note}
	if err := tx.Create(&event).Error; err != nil {
		return fmt.Errorf("append status event: %w", err)
	}
	return nil
}

// OrderTxHook runs inside the creating transaction after the order and its movements are written.
// An error rolls the whole order back.
type OrderTxHook func(tx *gorm.DB, order *Order) error

// CreateOrder stores a DRAFT order and deducts its lines from central stock in one transaction.
func CreateOrder(ctx context.Context, input *NewOrder) (*Order, error) {
	return CreateOrderWithHook(ctx, input, nil)
}

// CreateOrderWithHook is CreateOrder with extra writes committed atomically with the order.
func CreateOrderWithHook(ctx context.Context, input *NewOrder, hook OrderTxHook) (*Order, error) {
	ctx, span := startSpan(ctx, "CreateOrder")
	var err error
	defer func() { endSpan(span, err) }()

	tenantId, err := orderTenant(ctx, input.TenantId)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("tenant_id", tenantId))
	for i, l := range input.Lines {
		if l.Qty <= 0 {
			err = invalidQty(fmt.Sprintf("lines[%d].qty", i), l.Qty)
			return nil, err
		}
	}
	if err = utils.ValidateStruct(input); err != nil {
		return nil, err
	}

	catalog, err := LoadProductCatalog(ctx)
	if err != nil {
		return nil, err
	}
	lines, subtotal, tax, err := buildOrderLines(catalog, input.Lines, config.TaxRate())
	if err != nil {
		return nil, err
	}

	order := Order{
		TenantId:      tenantId,
		AgentId:       input.AgentId,
		Lines:         lines,
		Subtotal:      subtotal,
		Tax:           tax,
		Total:         subtotal.Add(tax),
		CurrentStatus: OrderStatusDraft,
		IsPaid:        utils.NewFalse(),
		Notes:         input.Notes,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, period, seq, err := nextOrderCode(ctx, tx)
		if err != nil {
			return err
		}
		order.OrderCode, order.CodePeriod, order.SequenceNo = code, period, seq
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if err := appendStatusEvent(tx, order.ID, OrderStatusDraft, "created"); err != nil {
			return err
		}
		if err := ApplyOrderStockForCreate(tx, &order); err != nil {
			return err
		}
		if hook != nil {
			return hook(tx, &order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	RecordAudit(ctx, AuditEvent{
		EventType: AuditOrderCreated,
		Title:     "Order created",
		TenantId:  order.TenantId,
		OrderRef:  order.OrderCode,
		Detail:    order.Total.IntPart(),
	})
	return GetOrder(ctx, order.ID)
}

func orderScope(ctx context.Context, db *gorm.DB) (*gorm.DB, error) {
	if utils.IsAdminContext(ctx) {
		return db, nil
	}
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId <= 0 {
		return nil, utils.ErrorTenantRequired
	}
	return db.Where("tenant_id = ?", tenantId), nil
}

func GetOrder(ctx context.Context, id int) (*Order, error) {
	dbCtx, err := orderScope(ctx, config.GetDB().WithContext(ctx))
	if err != nil {
		return nil, err
	}
	var order Order
	err = dbCtx.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("StatusEvents", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "order", Id: id}
		}
		return nil, err
	}
	return &order, nil
}

// lockOrder loads the order FOR UPDATE with its lines inside tx.
func lockOrder(ctx context.Context, tx *gorm.DB, id int) (*Order, error) {
	dbCtx, err := orderScope(ctx, tx)
	if err != nil {
		return nil, err
	}
	var order Order
	err = dbCtx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "order", Id: id}
		}
		return nil, err
	}
	if err := tx.Where("order_id = ?", order.ID).Order("position").Find(&order.Lines).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func ListOrders(ctx context.Context, filter OrderFilter) ([]*Order, int64, error) {
	dbCtx, err := orderScope(ctx, config.GetDB().WithContext(ctx).Model(&Order{}))
	if err != nil {
		return nil, 0, err
	}
	if filter.TenantId != nil && *filter.TenantId > 0 {
		dbCtx = dbCtx.Where("tenant_id = ?", *filter.TenantId)
	}
	if filter.Status != nil {
		dbCtx = dbCtx.Where("current_status = ?", *filter.Status)
	}
	if filter.From != nil {
		dbCtx = dbCtx.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		dbCtx = dbCtx.Where("created_at < ?", filter.To.AddDate(0, 0, 1))
	}
	if code := strings.TrimSpace(filter.Code); code != "" {
		dbCtx = dbCtx.Where("order_code LIKE ?", "%"+code+"%")
	}

	var total int64
	if err := dbCtx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	limit, offset := normalisePage(filter.Page, filter.PageSize)
	var results []*Order
	err = dbCtx.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&results).Error
	if err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

// ReplaceOrderLines swaps all lines and recomputes totals. Stock movements posted at
// creation are left untouched.
func ReplaceOrderLines(ctx context.Context, id int, inputs []NewOrderLine) (*Order, error) {
	ctx, span := startSpan(ctx, "ReplaceOrderLines", attribute.Int("order_id", id))
	var err error
	defer func() { endSpan(span, err) }()

	catalog, err := LoadProductCatalog(ctx)
	if err != nil {
		return nil, err
	}
	lines, subtotal, tax, err := buildOrderLines(catalog, inputs, config.TaxRate())
	if err != nil {
		return nil, err
	}

	var order *Order
	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if locked.CurrentStatus.IsTerminal() {
			return &AlreadyTerminalError{OrderId: locked.ID, Status: locked.CurrentStatus}
		}
		if err := tx.Where("order_id = ?", locked.ID).Delete(&OrderLine{}).Error; err != nil {
			return err
		}
		for i := range lines {
			lines[i].OrderId = locked.ID
		}
		if err := tx.Create(&lines).Error; err != nil {
			return fmt.Errorf("create order lines: %w", err)
		}
		if err := tx.Model(locked).Updates(map[string]interface{}{
			"subtotal": subtotal,
			"tax":      tax,
			"total":    subtotal.Add(tax),
		}).Error; err != nil {
			return err
		}
		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	RecordAudit(ctx, AuditEvent{
		EventType: AuditOrderLinesReplaced,
		Title:     "Order lines replaced",
		TenantId:  order.TenantId,
		OrderRef:  order.OrderCode,
		Detail:    subtotal.Add(tax).IntPart(),
	})
	return GetOrder(ctx, id)
}

// DeleteOrder soft-deletes a DRAFT or CANCELLED order. A DRAFT order is cancelled first
// so its central deduction is reversed.
func DeleteOrder(ctx context.Context, id int) (*Order, error) {
	var order *Order
	err := config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		switch locked.CurrentStatus {
		case OrderStatusDraft:
			if err := applyTransitionTx(tx, locked, OrderStatusCancelled, "cancelled on delete"); err != nil {
				return err
			}
		case OrderStatusCancelled:
		default:
			return fmt.Errorf("%w: only DRAFT or CANCELLED orders can be deleted (order %d is %s)",
				ErrInvalidTransition, locked.ID, locked.CurrentStatus)
		}
		if err := tx.Delete(locked).Error; err != nil {
			return err
		}
		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	RecordAudit(ctx, AuditEvent{
		EventType: AuditOrderDeleted,
		Title:     "Order deleted",
		TenantId:  order.TenantId,
		OrderRef:  order.OrderCode,
	})
	return order, nil
}

// MarkOrderPaid sets the payment flag reported by the payment collector.
func MarkOrderPaid(ctx context.Context, id int, paid bool) (*Order, error) {
	err := config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if locked.CurrentStatus == OrderStatusCancelled {
			return &AlreadyTerminalError{OrderId: locked.ID, Status: locked.CurrentStatus}
		}
		return tx.Model(locked).Update("is_paid", paid).Error
	})
	if err != nil {
		return nil, err
	}
	order, err := GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if paid {
		RecordAudit(ctx, AuditEvent{
			EventType: AuditOrderPaid,
			Title:     "Order paid",
			TenantId:  order.TenantId,
			OrderRef:  order.OrderCode,
			Detail:    order.Total.IntPart(),
		})
	}
	return order, nil
}
