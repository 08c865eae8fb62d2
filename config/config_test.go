package config

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mmdatafocus/lpg_backend/appctx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

func TestDatabaseDSN(t *testing.T) {
	t.Setenv("DB_USER", "lpg")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "lpg")
	if got := databaseDSN(); got != "lpg:secret@tcp(127.0.0.1:3306)/lpg?multiStatements=true&parseTime=true&loc=UTC" {
		t.Fatalf("tcp dsn = %s", got)
	}

	t.Setenv("DB_HOST", "/cloudsql/proj:region:inst")
	if got := databaseDSN(); !strings.Contains(got, "@unix(/cloudsql/proj:region:inst)/lpg?") {
		t.Fatalf("unix dsn = %s", got)
	}
}

func TestRetryDelayIsCapped(t *testing.T) {
	if got := retryDelay(1); got != 2*time.Second {
		t.Fatalf("retryDelay(1) = %s", got)
	}
	if got := retryDelay(4); got != 16*time.Second {
		t.Fatalf("retryDelay(4) = %s", got)
	}
	for _, attempt := range []int{5, 6, 50} {
		if got := retryDelay(attempt); got != maxConnectBackoff {
			t.Fatalf("retryDelay(%d) = %s, want %s", attempt, got, maxConnectBackoff)
		}
	}
}

func TestEnvParsing(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "abc")
	if got := intFromEnv("DB_MAX_OPEN_CONNS", 50); got != 50 {
		t.Fatalf("invalid int should fall back, got %d", got)
	}
	t.Setenv("DB_MAX_OPEN_CONNS", " 12 ")
	if got := intFromEnv("DB_MAX_OPEN_CONNS", 50); got != 12 {
		t.Fatalf("intFromEnv = %d", got)
	}

	for _, v := range []string{"1", "true", "YES", "y"} {
		t.Setenv("STRICT_PRODUCT_RESOLUTION", v)
		if !StrictProductResolution() {
			t.Fatalf("%q should enable strict resolution", v)
		}
	}
	t.Setenv("STRICT_PRODUCT_RESOLUTION", "off")
	if StrictProductResolution() {
		t.Fatalf("off should disable strict resolution")
	}

	t.Setenv("LOG_LEVEL", "debug")
	if logLevelFromEnv() != logrus.DebugLevel {
		t.Fatalf("LOG_LEVEL=debug not honoured")
	}
	t.Setenv("LOG_LEVEL", "loud")
	if logLevelFromEnv() != logrus.ErrorLevel {
		t.Fatalf("unknown LOG_LEVEL should default to error")
	}
}

func TestTaxRate(t *testing.T) {
	t.Setenv("TAX_RATE", "")
	if !TaxRate().Equal(decimal.RequireFromString("0.11")) {
		t.Fatalf("default rate = %s", TaxRate())
	}
	t.Setenv("TAX_RATE", "0.12")
	if !TaxRate().Equal(decimal.RequireFromString("0.12")) {
		t.Fatalf("rate = %s", TaxRate())
	}
	t.Setenv("TAX_RATE", "-1")
	if !TaxRate().Equal(defaultTaxRate) {
		t.Fatalf("negative rate should fall back, got %s", TaxRate())
	}
}

func TestTenantGuardWhereDetection(t *testing.T) {
	scoped := clause.Clause{Expression: clause.Where{Exprs: []clause.Expression{
		clause.Eq{Column: clause.Column{Name: "tenant_id"}, Value: 3},
	}}}
	if !whereHasTenantID(scoped) {
		t.Fatalf("explicit tenant_id filter not detected")
	}

	raw := clause.Clause{Expression: clause.Where{Exprs: []clause.Expression{
		clause.Expr{SQL: "orders.tenant_id IN ?"},
	}}}
	if !whereHasTenantID(raw) {
		t.Fatalf("raw tenant_id filter not detected")
	}

	other := clause.Clause{Expression: clause.Where{Exprs: []clause.Expression{
		clause.Eq{Column: "scope_id", Value: 3},
	}}}
	if whereHasTenantID(other) || whereHasTenantID(clause.Clause{}) {
		t.Fatalf("scope_id must not count as a tenant filter")
	}
}

func TestTenantGuardBypass(t *testing.T) {
	ctx := appctx.Set(context.Background(), appctx.ContextKeyTenantId, 5)
	if shouldBypassTenantScope(ctx) || tenantIdFromContext(ctx) != 5 {
		t.Fatalf("pangkalan context must be scoped to tenant 5")
	}
	if !shouldBypassTenantScope(appctx.Set(ctx, appctx.ContextKeyIsAdmin, true)) {
		t.Fatalf("admin must bypass")
	}
	if !shouldBypassTenantScope(appctx.Set(ctx, appctx.ContextKeySkipTenantScope, true)) {
		t.Fatalf("skip flag must bypass")
	}
}

func TestTenantGuardOnlyRegisteredTables(t *testing.T) {
	RegisterTenantScopedTables("Guarded_Rows")
	if !isTenantScopedTable("guarded_rows") {
		t.Fatalf("registered table not guarded")
	}
	if isTenantScopedTable("tenants") || isTenantScopedTable("idempotency_keys") {
		t.Fatalf("unregistered tables must not be guarded")
	}
}

type guardedRow struct {
	ID       int
	TenantId int
}

func TestTenantGuardRowOwnership(t *testing.T) {
	s, err := schema.Parse(&guardedRow{}, &sync.Map{}, schema.NamingStrategy{})
	if err != nil {
		t.Fatalf("schema.Parse: %v", err)
	}
	field := s.LookUpField("tenant_id")
	if field == nil {
		t.Fatalf("tenant_id field not found")
	}
	ctx := context.Background()
	cases := []struct {
		row  guardedRow
		want bool
	}{
		{guardedRow{TenantId: 5}, true},
		{guardedRow{TenantId: 0}, true},
		{guardedRow{TenantId: 6}, false},
	}
	for _, c := range cases {
		if got := rowOwnedBy(ctx, field, reflect.ValueOf(&c.row), 5); got != c.want {
			t.Fatalf("rowOwnedBy(tenant %d) = %t, want %t", c.row.TenantId, got, c.want)
		}
	}
}
