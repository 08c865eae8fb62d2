package config

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/mmdatafocus/lpg_backend/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// ErrCrossTenantWrite rejects inserting a row owned by another tenant.
var ErrCrossTenantWrite = errors.New("row belongs to another tenant")

var (
	tenantTablesMu     sync.RWMutex
	tenantScopedTables = map[string]bool{}
)

// RegisterTenantScopedTables declares tables whose rows are owned by one pangkalan
// through their tenant_id column. Only these tables are guarded.
func RegisterTenantScopedTables(tables ...string) {
	tenantTablesMu.Lock()
	defer tenantTablesMu.Unlock()
	for _, t := range tables {
		tenantScopedTables[strings.ToLower(t)] = true
	}
}

func isTenantScopedTable(table string) bool {
	tenantTablesMu.RLock()
	defer tenantTablesMu.RUnlock()
	return tenantScopedTables[strings.ToLower(table)]
}

// TenantGuardPlugin scopes reads, updates and deletes on registered tables to the
// caller's tenant, and refuses inserts carrying a foreign tenant_id.
// Raw SQL is not rewritten; report queries filter tenant_id themselves.
// Distributor staff (IsAdmin) and SkipTenantScope contexts bypass the guard.
type TenantGuardPlugin struct{}

func NewTenantGuardPlugin() *TenantGuardPlugin { return &TenantGuardPlugin{} }

func (p *TenantGuardPlugin) Name() string { return "tenant_guard" }

func (p *TenantGuardPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Query().Before("gorm:query").Register("tenant_guard:query", tenantScopeCallback); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("tenant_guard:row", tenantScopeCallback); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("tenant_guard:update", tenantScopeCallback); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("tenant_guard:delete", tenantScopeCallback); err != nil {
		return err
	}
	return cb.Create().Before("gorm:create").Register("tenant_guard:create", tenantOwnershipCallback)
}

// guardedTenant returns the tenant a statement must be confined to, ok=false when unguarded.
func guardedTenant(db *gorm.DB) (int, bool) {
	if db == nil || db.Statement == nil || db.Statement.Context == nil || db.Statement.Schema == nil {
		return 0, false
	}
	ctx := db.Statement.Context
	if shouldBypassTenantScope(ctx) {
		return 0, false
	}
	tenantID := tenantIdFromContext(ctx)
	if tenantID <= 0 {
		return 0, false
	}
	table := db.Statement.Table
	if table == "" {
		table = db.Statement.Schema.Table
	}
	if !isTenantScopedTable(table) || db.Statement.Schema.LookUpField("tenant_id") == nil {
		return 0, false
	}
	return tenantID, true
}

func tenantScopeCallback(db *gorm.DB) {
	tenantID, ok := guardedTenant(db)
	if !ok {
		return
	}
	if whereHasTenantID(db.Statement.Clauses["WHERE"]) {
		return
	}
	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: "tenant_id"},
				Value:  tenantID,
			},
		},
	})
}

func tenantOwnershipCallback(db *gorm.DB) {
	tenantID, ok := guardedTenant(db)
	if !ok {
		return
	}
	field := db.Statement.Schema.LookUpField("tenant_id")
	rv := reflect.Indirect(db.Statement.ReflectValue)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if !rowOwnedBy(db.Statement.Context, field, rv.Index(i), tenantID) {
				db.AddError(ErrCrossTenantWrite)
				return
			}
		}
	case reflect.Struct:
		if !rowOwnedBy(db.Statement.Context, field, rv, tenantID) {
			db.AddError(ErrCrossTenantWrite)
		}
	}
}

// rowOwnedBy is false only for a non-zero tenant_id different from tenantID.
func rowOwnedBy(ctx context.Context, field *schema.Field, row reflect.Value, tenantID int) bool {
	row = reflect.Indirect(row)
	if row.Kind() != reflect.Struct {
		return true
	}
	value, zero := field.ValueOf(ctx, row)
	if zero {
		return true
	}
	id, ok := value.(int)
	return !ok || id == tenantID
}

func tenantIdFromContext(ctx context.Context) int {
	if v, ok := appctx.GetInt(ctx, appctx.ContextKeyTenantId); ok {
		return v
	}
	return 0
}

func shouldBypassTenantScope(ctx context.Context) bool {
	if v, ok := appctx.GetBool(ctx, appctx.ContextKeySkipTenantScope); ok && v {
		return true
	}
	v, ok := appctx.GetBool(ctx, appctx.ContextKeyIsAdmin)
	return ok && v
}

func whereHasTenantID(c clause.Clause) bool {
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprHasTenantID(e) {
			return true
		}
	}
	return false
}

func exprHasTenantID(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return colIsTenantID(v.Column)
	case clause.Neq:
		return colIsTenantID(v.Column)
	case clause.IN:
		return colIsTenantID(v.Column)
	case clause.AndConditions:
		return anyHasTenantID(v.Exprs)
	case clause.OrConditions:
		return anyHasTenantID(v.Exprs)
	case clause.Expr:
		return strings.Contains(strings.ToLower(v.SQL), "tenant_id")
	case clause.NamedExpr:
		return strings.Contains(strings.ToLower(v.SQL), "tenant_id")
	}
	return false
}

func anyHasTenantID(exprs []clause.Expression) bool {
	for _, x := range exprs {
		if exprHasTenantID(x) {
			return true
		}
	}
	return false
}

func colIsTenantID(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, "tenant_id")
	case clause.Column:
		return strings.EqualFold(c.Name, "tenant_id")
	}
	return false
}
