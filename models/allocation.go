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

// DailyPlan is the planned allocation for one tenant/day/product.
type DailyPlan struct {
	ID                   int       `gorm:"primary_key" json:"id"`
	TenantId             int       `gorm:"uniqueIndex:idx_plan_key,priority:1;not null" json:"tenant_id"`
	Date                 time.Time `gorm:"type:date;uniqueIndex:idx_plan_key,priority:2;not null" json:"date"`
	ProductId            int       `gorm:"uniqueIndex:idx_plan_key,priority:3;not null" json:"product_id"`
	PlannedNormal        int64     `gorm:"not null;default:0" json:"planned_normal"`
	PlannedDiscretionary int64     `gorm:"not null;default:0" json:"planned_discretionary"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// DailyDistribution is what was actually handed out for one tenant/day/product.
type DailyDistribution struct {
	ID                  int            `gorm:"primary_key" json:"id"`
	TenantId            int            `gorm:"uniqueIndex:idx_distribution_key,priority:1;not null" json:"tenant_id"`
	Date                time.Time      `gorm:"type:date;uniqueIndex:idx_distribution_key,priority:2;not null" json:"date"`
	ProductId           int            `gorm:"uniqueIndex:idx_distribution_key,priority:3;not null" json:"product_id"`
	ActualNormal        int64          `gorm:"not null;default:0" json:"actual_normal"`
	ActualDiscretionary int64          `gorm:"not null;default:0" json:"actual_discretionary"`
	PaymentChannel      PaymentChannel `gorm:"type:enum('CASH','TRANSFER','QRIS','OTHER');default:CASH" json:"payment_channel"`
	CreatedAt           time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// PlanEntry is one cell of the bulk plan editor.
type PlanEntry struct {
	TenantId  int               `json:"tenant_id" validate:"required,gt=0"`
	Date      time.Time         `json:"date" validate:"required"`
	ProductId int               `json:"product_id" validate:"required,gt=0"`
	Qty       int64             `json:"qty" validate:"gte=0"`
	Channel   AllocationChannel `json:"channel" validate:"required,oneof=NORMAL DISCRETIONARY"`
}

// channelQty splits qty onto (normal, discretionary).
func channelQty(channel AllocationChannel, qty int64) (int64, int64) {
	if channel == AllocationChannelDiscretionary {
		return 0, qty
	}
	return qty, 0
}

const upsertPlanAccumulateSQL = `INSERT INTO daily_plans (tenant_id, date, product_id, planned_normal, planned_discretionary, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
planned_normal = planned_normal + VALUES(planned_normal),
planned_discretionary = planned_discretionary + VALUES(planned_discretionary),
updated_at = VALUES(updated_at)`

const upsertPlanReplaceNormalSQL = `INSERT INTO daily_plans (tenant_id, date, product_id, planned_normal, planned_discretionary, created_at, updated_at)
VALUES (?, ?, ?, ?, 0, ?, ?)
ON DUPLICATE KEY UPDATE
planned_normal = VALUES(planned_normal),
updated_at = VALUES(updated_at)`

const upsertDistributionSQL = `INSERT INTO daily_distributions (tenant_id, date, product_id, actual_normal, actual_discretionary, payment_channel, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
actual_normal = actual_normal + VALUES(actual_normal),
actual_discretionary = actual_discretionary + VALUES(actual_discretionary),
payment_channel = VALUES(payment_channel),
updated_at = VALUES(updated_at)`

// keeps the stored payment channel of an existing row
const upsertDistributionKeepChannelSQL = `INSERT INTO daily_distributions (tenant_id, date, product_id, actual_normal, actual_discretionary, payment_channel, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
actual_normal = actual_normal + VALUES(actual_normal),
actual_discretionary = actual_discretionary + VALUES(actual_discretionary),
updated_at = VALUES(updated_at)`

func upsertPlanTx(tx *gorm.DB, tenantId int, date time.Time, productId int, normal int64, discretionary int64) error {
	now := time.Now().UTC()
	if err := tx.Exec(upsertPlanAccumulateSQL, tenantId, utils.DateOnly(date), productId, normal, discretionary, now, now).Error; err != nil {
		return fmt.Errorf("upsert daily plan: %w", err)
	}
	return nil
}

func upsertDistributionTx(tx *gorm.DB, tenantId int, date time.Time, productId int, normal int64, discretionary int64, payment *PaymentChannel) error {
	now := time.Now().UTC()
	query := upsertDistributionKeepChannelSQL
	channel := PaymentChannelCash
	if payment != nil {
		query = upsertDistributionSQL
		channel = *payment
	}
	if err := tx.Exec(query, tenantId, utils.DateOnly(date), productId, normal, discretionary, channel, now, now).Error; err != nil {
		return fmt.Errorf("upsert daily distribution: %w", err)
	}
	return nil
}

func validateAllocationInput(ctx context.Context, tenantId int, productId int, qty int64, channel AllocationChannel) error {
	if err := authorizeTenant(ctx, tenantId); err != nil {
		return err
	}
	if qty <= 0 {
		return invalidQty("qty", qty)
	}
	if !channel.IsValid() {
		return fmt.Errorf("invalid allocation channel %q", channel)
	}
	if err := utils.ValidateResourceId[Product](ctx, productId); err != nil {
		return &NotFoundError{Resource: "product", Id: productId}
	}
	return nil
}

// RecordPlan adds qty to the planned column of channel.
func RecordPlan(ctx context.Context, tenantId int, date time.Time, productId int, qty int64, channel AllocationChannel) error {
	ctx, span := startSpan(ctx, "RecordPlan", attribute.Int("tenant_id", tenantId), attribute.String("channel", string(channel)))
	var err error
	defer func() { endSpan(span, err) }()

	if err = validateAllocationInput(ctx, tenantId, productId, qty, channel); err != nil {
		return err
	}
	normal, discretionary := channelQty(channel, qty)
	err = upsertPlanTx(config.GetDB().WithContext(ctx), tenantId, date, productId, normal, discretionary)
	return err
}

// RecordPlanBulk applies editor entries in one transaction.
// NORMAL values replace the stored plan, DISCRETIONARY values accumulate.
func RecordPlanBulk(ctx context.Context, entries []PlanEntry) error {
	ctx, span := startSpan(ctx, "RecordPlanBulk", attribute.Int("entries", len(entries)))
	var err error
	defer func() { endSpan(span, err) }()

	for i := range entries {
		if err = utils.ValidateStruct(&entries[i]); err != nil {
			return err
		}
		if err = authorizeTenant(ctx, entries[i].TenantId); err != nil {
			return err
		}
	}
	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for _, e := range entries {
			if e.Channel == AllocationChannelNormal {
				if err := tx.Exec(upsertPlanReplaceNormalSQL, e.TenantId, utils.DateOnly(e.Date), e.ProductId, e.Qty, now, now).Error; err != nil {
					return fmt.Errorf("replace daily plan: %w", err)
				}
				continue
			}
			if e.Qty == 0 {
				continue
			}
			if err := upsertPlanTx(tx, e.TenantId, e.Date, e.ProductId, 0, e.Qty); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}

// RecordDistribution adds qty to the actual column of channel. An empty payment channel means CASH.
func RecordDistribution(ctx context.Context, tenantId int, date time.Time, productId int, qty int64, channel AllocationChannel, paymentChannel PaymentChannel) error {
	ctx, span := startSpan(ctx, "RecordDistribution", attribute.Int("tenant_id", tenantId), attribute.String("channel", string(channel)))
	var err error
	defer func() { endSpan(span, err) }()

	if err = validateAllocationInput(ctx, tenantId, productId, qty, channel); err != nil {
		return err
	}
	if paymentChannel == "" {
		paymentChannel = PaymentChannelCash
	}
	if !paymentChannel.IsValid() {
		err = fmt.Errorf("invalid payment channel %q", paymentChannel)
		return err
	}
	normal, discretionary := channelQty(channel, qty)
	err = upsertDistributionTx(config.GetDB().WithContext(ctx), tenantId, date, productId, normal, discretionary, &paymentChannel)
	return err
}

// DeleteDailyDistribution removes a distribution row (admin repair path).
func DeleteDailyDistribution(ctx context.Context, id int) (*DailyDistribution, error) {
	if !utils.IsAdminContext(ctx) {
		return nil, &NotFoundError{Resource: "daily distribution", Id: id}
	}
	db := config.GetDB().WithContext(ctx)
	var row DailyDistribution
	if err := db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "daily distribution", Id: id}
		}
		return nil, err
	}
	if err := db.Delete(&DailyDistribution{}, row.ID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
