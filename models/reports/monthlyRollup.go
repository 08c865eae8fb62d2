package reports

import (
	"context"
	"time"

	"github.com/mmdatafocus/lpg_backend/config"
	"github.com/mmdatafocus/lpg_backend/models"
	"github.com/mmdatafocus/lpg_backend/utils"
	"github.com/sirupsen/logrus"
)

type DayRollup struct {
	Date                     time.Time `json:"date"`
	PlannedNormal            int64     `json:"planned_normal"`
	PlannedDiscretionary     int64     `json:"planned_discretionary"`
	DistributedNormal        int64     `json:"distributed_normal"`
	DistributedDiscretionary int64     `json:"distributed_discretionary"`
}

type TenantRollup struct {
	TenantId                 int         `json:"tenant_id"`
	TenantName               string      `json:"tenant_name"`
	Month                    string      `json:"month"`
	Allocated                int64       `json:"allocated"`
	PlannedNormal            int64       `json:"planned_normal"`
	PlannedDiscretionary     int64       `json:"planned_discretionary"`
	DistributedNormal        int64       `json:"distributed_normal"`
	DistributedDiscretionary int64       `json:"distributed_discretionary"`
	Remaining                int64       `json:"remaining"`
	GrandTotal               int64       `json:"grand_total"`
	Days                     []DayRollup `json:"days"`
}

// DailyAmount is a per tenant/day sum of one allocation table.
type DailyAmount struct {
	TenantId      int
	Date          time.Time
	Normal        int64
	Discretionary int64
}

const dailyAmountSQL = `
SELECT
    tenant_id,
    date,
    SUM({{ .normal }}) AS normal,
    SUM({{ .discretionary }}) AS discretionary
FROM {{ .table }}
WHERE date BETWEEN @fromDate AND @toDate
  {{- if .tenantId }} AND tenant_id = @tenantId {{- end }}
  {{- if .productId }} AND product_id = @productId {{- end }}
GROUP BY tenant_id, date
ORDER BY tenant_id, date;
`

// MonthlyRollup reports allocation use per tenant for month. Pangkalan callers only get their own row.
// remaining = quota - distributed and may be negative.
func MonthlyRollup(ctx context.Context, tenantId *int, month models.YearMonth, productId *int) ([]TenantRollup, error) {
	if !utils.IsAdminContext(ctx) {
		own, ok := utils.GetTenantIdFromContext(ctx)
		if !ok || own <= 0 {
			return nil, utils.ErrorTenantRequired
		}
		if tenantId != nil && *tenantId > 0 && *tenantId != own {
			return nil, &models.NotFoundError{Resource: "tenant", Id: *tenantId}
		}
		tenantId = &own
	}

	started := time.Now()
	cacheKey := rollupCacheKey(month, tenantId, productId)
	if reportCacheEnabled() {
		var cached []TenantRollup
		if cacheGet(ctx, cacheKey, &cached) {
			return cached, nil
		}
	}

	var tenants []*models.Tenant
	if tenantId != nil && *tenantId > 0 {
		tenant, err := models.GetTenant(ctx, *tenantId)
		if err != nil {
			return nil, err
		}
		tenants = []*models.Tenant{tenant}
	} else {
		all, err := models.ListActiveTenants(ctx, false)
		if err != nil {
			return nil, err
		}
		tenants = all
	}

	plans, err := loadDailyAmounts(ctx, "daily_plans", "planned_normal", "planned_discretionary", month, tenantId, productId)
	if err != nil {
		return nil, err
	}
	dists, err := loadDailyAmounts(ctx, "daily_distributions", "actual_normal", "actual_discretionary", month, tenantId, productId)
	if err != nil {
		return nil, err
	}
	rollups := BuildMonthlyRollup(tenants, month, plans, dists)
	logSlowReport(ctx, "MonthlyRollup", started, logrus.Fields{"month": month.String(), "tenants": len(tenants)})
	if reportCacheEnabled() {
		cacheSet(ctx, cacheKey, rollups, reportCacheTTL())
	}
	return rollups, nil
}

func loadDailyAmounts(ctx context.Context, table string, normalCol string, discretionaryCol string, month models.YearMonth, tenantId *int, productId *int) ([]DailyAmount, error) {
	sql, err := utils.ExecTemplate(dailyAmountSQL, map[string]interface{}{
		"table":         table,
		"normal":        normalCol,
		"discretionary": discretionaryCol,
		"tenantId":      utils.DereferencePtr(tenantId),
		"productId":     utils.DereferencePtr(productId),
	})
	if err != nil {
		return nil, err
	}
	// only pass named params that survive the template
	args := map[string]interface{}{
		"fromDate": month.FirstDay(),
		"toDate":   month.LastDay(),
	}
	if tenantId != nil && *tenantId > 0 {
		args["tenantId"] = *tenantId
	}
	if productId != nil && *productId > 0 {
		args["productId"] = *productId
	}
	var rows []DailyAmount
	if err := config.GetDB().WithContext(ctx).Raw(sql, args).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// BuildMonthlyRollup assembles rollups with one day row for every calendar day of month.
func BuildMonthlyRollup(tenants []*models.Tenant, month models.YearMonth, plans []DailyAmount, dists []DailyAmount) []TenantRollup {
	days := month.Days()
	index := make(map[int]int, len(tenants))
	rollups := make([]TenantRollup, 0, len(tenants))
	for _, t := range tenants {
		r := TenantRollup{
			TenantId:   t.ID,
			TenantName: t.Name,
			Month:      month.String(),
			Allocated:  t.MonthlyQuota,
			Days:       make([]DayRollup, days),
		}
		for d := 0; d < days; d++ {
			r.Days[d].Date = time.Date(month.Year, month.Month, d+1, 0, 0, 0, 0, time.UTC)
		}
		index[t.ID] = len(rollups)
		rollups = append(rollups, r)
	}

	dayOf := func(a DailyAmount) (*TenantRollup, *DayRollup) {
		i, ok := index[a.TenantId]
		if !ok {
			return nil, nil
		}
		if a.Date.Year() != month.Year || a.Date.Month() != month.Month {
			return nil, nil
		}
		r := &rollups[i]
		return r, &r.Days[a.Date.Day()-1]
	}

	for _, p := range plans {
		r, d := dayOf(p)
		if r == nil {
			continue
		}
		d.PlannedNormal += p.Normal
		d.PlannedDiscretionary += p.Discretionary
		r.PlannedNormal += p.Normal
		r.PlannedDiscretionary += p.Discretionary
	}
	for _, a := range dists {
		r, d := dayOf(a)
		if r == nil {
			continue
		}
		d.DistributedNormal += a.Normal
		d.DistributedDiscretionary += a.Discretionary
		r.DistributedNormal += a.Normal
		r.DistributedDiscretionary += a.Discretionary
	}
	for i := range rollups {
		r := &rollups[i]
		r.GrandTotal = r.DistributedNormal + r.DistributedDiscretionary
		r.Remaining = r.Allocated - r.GrandTotal
	}
	return rollups
}
