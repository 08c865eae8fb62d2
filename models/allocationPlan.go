package models

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/lpg_backend/config"
	"github.com/mmdatafocus/lpg_backend/utils"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// PlanShare is the generated allocation for one day of a month.
type PlanShare struct {
	Date time.Time `json:"date"`
	Qty  int64     `json:"qty"`
}

type GeneratePlanInput struct {
	Month     YearMonth         `json:"month"`
	ProductId int               `json:"product_id" validate:"required,gt=0"`
	Channel   AllocationChannel `json:"channel"`
	Overwrite bool              `json:"overwrite"`
}

type PlanGenerationResult struct {
	Month           string `json:"month"`
	ProductId       int    `json:"product_id"`
	Tenants         int    `json:"tenants"`
	RowsCreated     int    `json:"rows_created"`
	RowsSkipped     int    `json:"rows_skipped"`
	RowsDeleted     int64  `json:"rows_deleted"`
	DailyShareTotal int64  `json:"daily_share_total"`
}

var saturdayWeight = decimal.NewFromFloat(0.5)

// ComputeMonthlyPlanShares spreads quota over the month.
// Mon-Fri count as a full day and Saturdays as half; Sundays get no share.
// daily = round(quota / (weekdays + 0.5*saturdays)), saturday = round(daily * 0.5).
func ComputeMonthlyPlanShares(quota int64, month YearMonth) []PlanShare {
	if quota <= 0 || !month.IsValid() {
		return nil
	}
	var weekdays, saturdays int64
	for d := 1; d <= month.Days(); d++ {
		switch time.Date(month.Year, month.Month, d, 0, 0, 0, 0, time.UTC).Weekday() {
		case time.Sunday:
		case time.Saturday:
			saturdays++
		default:
			weekdays++
		}
	}
	divisor := decimal.NewFromInt(weekdays).Add(decimal.NewFromInt(saturdays).Mul(saturdayWeight))
	if divisor.IsZero() {
		return nil
	}
	daily := decimal.NewFromInt(quota).DivRound(divisor, 8).Round(0)
	saturday := daily.Mul(saturdayWeight).Round(0)

	shares := make([]PlanShare, 0, month.Days())
	for d := 1; d <= month.Days(); d++ {
		date := time.Date(month.Year, month.Month, d, 0, 0, 0, 0, time.UTC)
		switch date.Weekday() {
		case time.Sunday:
			continue
		case time.Saturday:
			shares = append(shares, PlanShare{Date: date, Qty: saturday.IntPart()})
		default:
			shares = append(shares, PlanShare{Date: date, Qty: daily.IntPart()})
		}
	}
	return shares
}

func sharesToPlans(tenantId int, productId int, channel AllocationChannel, shares []PlanShare, existing map[string]bool) ([]DailyPlan, int) {
	plans := make([]DailyPlan, 0, len(shares))
	skipped := 0
	for _, s := range shares {
		if existing[planKey(tenantId, s.Date)] {
			skipped++
			continue
		}
		normal, discretionary := channelQty(channel, s.Qty)
		plans = append(plans, DailyPlan{
			TenantId:             tenantId,
			Date:                 s.Date,
			ProductId:            productId,
			PlannedNormal:        normal,
			PlannedDiscretionary: discretionary,
		})
	}
	return plans, skipped
}

func planKey(tenantId int, date time.Time) string {
	return fmt.Sprintf("%d|%s", tenantId, date.Format(utils.DateLayout))
}

// AutoGeneratePlan writes generated daily plans for every active tenant with a quota.
// Without overwrite only missing (tenant, date) rows are inserted, so a rerun is a no-op.
// Each tenant's rows go in one transaction.
func AutoGeneratePlan(ctx context.Context, input GeneratePlanInput) (*PlanGenerationResult, error) {
	ctx, span := startSpan(ctx, "AutoGeneratePlan", attribute.String("month", input.Month.String()), attribute.Int("product_id", input.ProductId))
	var err error
	defer func() { endSpan(span, err) }()

	if !utils.IsAdminContext(ctx) {
		err = &NotFoundError{Resource: "plan", Id: input.Month.String()}
		return nil, err
	}
	if !input.Month.IsValid() {
		err = fmt.Errorf("invalid month %q", input.Month.String())
		return nil, err
	}
	if input.Channel == "" {
		input.Channel = AllocationChannelNormal
	}
	if !input.Channel.IsValid() {
		err = fmt.Errorf("invalid allocation channel %q", input.Channel)
		return nil, err
	}
	if err = utils.ValidateResourceId[Product](ctx, input.ProductId); err != nil {
		err = &NotFoundError{Resource: "product", Id: input.ProductId}
		return nil, err
	}

	release, err := utils.ObtainLock(ctx, "planGeneration", fmt.Sprintf("%s:%d", input.Month.String(), input.ProductId), 2*time.Minute, "allocationPlan.go", "AutoGeneratePlan")
	if err != nil {
		return nil, err
	}
	defer release()

	tenants, err := ListActiveTenants(ctx, true)
	if err != nil {
		return nil, err
	}
	result := &PlanGenerationResult{Month: input.Month.String(), ProductId: input.ProductId, Tenants: len(tenants)}
	if len(tenants) == 0 {
		return result, nil
	}
	tenantIds := make([]int, 0, len(tenants))
	for _, t := range tenants {
		tenantIds = append(tenantIds, t.ID)
	}

	db := config.GetDB().WithContext(ctx)
	from, to := input.Month.FirstDay(), input.Month.LastDay()
	existing := map[string]bool{}

	if input.Overwrite {
		res := db.Where("tenant_id IN ? AND product_id = ? AND date BETWEEN ? AND ?", tenantIds, input.ProductId, from, to).
			Delete(&DailyPlan{})
		if res.Error != nil {
			err = fmt.Errorf("clear daily plans: %w", res.Error)
			return nil, err
		}
		result.RowsDeleted = res.RowsAffected
	} else {
		var rows []DailyPlan
		if err = db.Select("tenant_id, date").
			Where("tenant_id IN ? AND product_id = ? AND date BETWEEN ? AND ?", tenantIds, input.ProductId, from, to).
			Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			existing[planKey(r.TenantId, r.Date)] = true
		}
	}

	for _, tenant := range tenants {
		shares := ComputeMonthlyPlanShares(tenant.MonthlyQuota, input.Month)
		plans, skipped := sharesToPlans(tenant.ID, input.ProductId, input.Channel, shares, existing)
		result.RowsSkipped += skipped
		for _, s := range shares {
			result.DailyShareTotal += s.Qty
		}
		if len(plans) == 0 {
			continue
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			return tx.CreateInBatches(&plans, 100).Error
		})
		if err != nil {
			config.LogError(config.GetLogger(), "allocationPlan.go", "AutoGeneratePlan", "insert tenant plans", tenant.ID, err)
			err = fmt.Errorf("generate plans for tenant %d: %w", tenant.ID, err)
			return result, err
		}
		result.RowsCreated += len(plans)
	}

	RecordAudit(ctx, AuditEvent{
		EventType:   AuditPlanGenerated,
		Title:       "Daily plans generated",
		Detail:      int64(result.RowsCreated),
		Description: fmt.Sprintf("%s product %d channel %s overwrite=%t", input.Month.String(), input.ProductId, input.Channel, input.Overwrite),
	})
	return result, nil
}
