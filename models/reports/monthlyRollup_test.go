package reports

import (
	"testing"
	"time"

	"github.com/mmdatafocus/lpg_backend/models"
)

func TestBuildMonthlyRollup_EmptyMonth(t *testing.T) {
	month := models.YearMonth{Year: 2024, Month: time.February}
	tenants := []*models.Tenant{{ID: 1, Name: "Pangkalan Sumber Rejeki", MonthlyQuota: 300}}

	rollups := BuildMonthlyRollup(tenants, month, nil, nil)
	if len(rollups) != 1 {
		t.Fatalf("expected 1 rollup, got %d", len(rollups))
	}
	r := rollups[0]
	if r.Allocated != 300 || r.DistributedNormal != 0 || r.DistributedDiscretionary != 0 {
		t.Fatalf("unexpected totals: %+v", r)
	}
	if r.Remaining != 300 || r.GrandTotal != 0 {
		t.Fatalf("expected remaining 300 grand total 0, got %d %d", r.Remaining, r.GrandTotal)
	}
	if len(r.Days) != 29 {
		t.Fatalf("expected 29 day rows, got %d", len(r.Days))
	}
	if !r.Days[28].Date.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected last day %s", r.Days[28].Date)
	}
}

func TestBuildMonthlyRollup_SumsAndOverAllocation(t *testing.T) {
	month := models.YearMonth{Year: 2024, Month: time.August}
	tenants := []*models.Tenant{
		{ID: 1, Name: "A", MonthlyQuota: 100},
		{ID: 2, Name: "B", MonthlyQuota: 50},
	}
	day := func(d int) time.Time { return time.Date(2024, 8, d, 0, 0, 0, 0, time.UTC) }
	plans := []DailyAmount{
		{TenantId: 1, Date: day(1), Normal: 25, Discretionary: 5},
		{TenantId: 1, Date: day(2), Normal: 25},
		{TenantId: 3, Date: day(2), Normal: 99}, // unknown tenant ignored
	}
	dists := []DailyAmount{
		{TenantId: 1, Date: day(1), Normal: 20, Discretionary: 5},
		{TenantId: 2, Date: day(31), Normal: 40, Discretionary: 30},
	}

	rollups := BuildMonthlyRollup(tenants, month, plans, dists)
	a, b := rollups[0], rollups[1]

	if a.PlannedNormal != 50 || a.PlannedDiscretionary != 5 {
		t.Fatalf("unexpected plan totals for A: %+v", a)
	}
	if a.GrandTotal != 25 || a.Remaining != 75 {
		t.Fatalf("unexpected distribution totals for A: grand %d remaining %d", a.GrandTotal, a.Remaining)
	}
	if a.Days[0].DistributedNormal != 20 || a.Days[0].PlannedDiscretionary != 5 {
		t.Fatalf("unexpected day 1 row: %+v", a.Days[0])
	}
	// over-allocation is reported, not blocked
	if b.GrandTotal != 70 || b.Remaining != -20 {
		t.Fatalf("expected B remaining -20, got %d (grand %d)", b.Remaining, b.GrandTotal)
	}
	if b.Days[30].DistributedDiscretionary != 30 {
		t.Fatalf("unexpected day 31 row: %+v", b.Days[30])
	}
}

func TestBuildCentralStockRows(t *testing.T) {
	catalog := models.ProductCatalog{{ID: 1, Code: "LPG_3KG"}, {ID: 2, Code: "LPG_12KG"}}
	rows := buildCentralStockRows(catalog, []models.ProductBalance{{ProductId: 2, Qty: -4}})
	if len(rows) != 2 || rows[0].Qty != 0 || rows[1].Qty != -4 {
		t.Fatalf("unexpected rows: %+v %+v", rows[0], rows[1])
	}
}

func TestStockDriftRow(t *testing.T) {
	if d := (StockDriftRow{CachedQty: 12, LedgerQty: 10}).Drift(); d != 2 {
		t.Fatalf("expected drift 2, got %d", d)
	}
}

func TestRollupCacheKey(t *testing.T) {
	month := models.YearMonth{Year: 2024, Month: time.August}
	tenant, product := 4, 2
	if got := rollupCacheKey(month, &tenant, &product); got != "report:rollup:2024-08:4:2" {
		t.Fatalf("key = %q", got)
	}
	if got := rollupCacheKey(month, nil, nil); got != "report:rollup:2024-08:0:0" {
		t.Fatalf("key = %q", got)
	}
}

func TestReportCacheSettings(t *testing.T) {
	t.Setenv("ENABLE_REPORT_CACHE", "")
	if reportCacheEnabled() {
		t.Fatalf("cache should be off by default")
	}
	t.Setenv("ENABLE_REPORT_CACHE", "on")
	if !reportCacheEnabled() {
		t.Fatalf("cache should be on")
	}
	t.Setenv("REPORT_CACHE_TTL_SECONDS", "30")
	if reportCacheTTL() != 30*time.Second {
		t.Fatalf("ttl = %v", reportCacheTTL())
	}
	t.Setenv("REPORT_CACHE_TTL_SECONDS", "junk")
	if reportCacheTTL() != 120*time.Second {
		t.Fatalf("ttl fallback = %v", reportCacheTTL())
	}
}
