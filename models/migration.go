package models

import (
	"log"

	"github.com/mmdatafocus/lpg_backend/config"
)

// Tables owned by one pangkalan through tenant_id; guarded by config.TenantGuardPlugin.
var tenantScopedTables = []string{"orders", "tenant_stocks", "daily_plans", "daily_distributions"}

func init() {
	config.RegisterTenantScopedTables(tenantScopedTables...)
}

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Tenant{}, &Product{},
		&Order{}, &OrderLine{}, &OrderStatusEvent{},
		&StockMovement{}, &TenantStock{},
		&DailyPlan{}, &DailyDistribution{},
		&IdempotencyKey{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
