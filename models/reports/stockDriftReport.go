package reports

import (
	"context"

	"github.com/mmdatafocus/lpg_backend/config"
	"github.com/mmdatafocus/lpg_backend/models"
	"github.com/mmdatafocus/lpg_backend/utils"
)

// StockDriftRow is a tenant/product whose cached qty differs from its ledger sum.
type StockDriftRow struct {
	TenantId  int   `json:"tenant_id"`
	ProductId int   `json:"product_id"`
	CachedQty int64 `json:"cached_qty"`
	LedgerQty int64 `json:"ledger_qty"`
}

func (r StockDriftRow) Drift() int64 {
	return r.CachedQty - r.LedgerQty
}

const stockDriftSQL = `
WITH Ledger AS (
    SELECT scope_id AS tenant_id, product_id, SUM(signed_qty) AS ledger_qty
    FROM stock_movements
    WHERE scope_id > 0
      {{- if .tenantId }} AND scope_id = @tenantId {{- end }}
    GROUP BY scope_id, product_id
)
SELECT ts.tenant_id, ts.product_id, ts.qty AS cached_qty, COALESCE(l.ledger_qty, 0) AS ledger_qty
FROM tenant_stocks ts
LEFT JOIN Ledger l ON l.tenant_id = ts.tenant_id AND l.product_id = ts.product_id
WHERE ts.qty <> COALESCE(l.ledger_qty, 0)
  {{- if .tenantId }} AND ts.tenant_id = @tenantId {{- end }}
UNION ALL
SELECT l.tenant_id, l.product_id, 0 AS cached_qty, l.ledger_qty
FROM Ledger l
LEFT JOIN tenant_stocks ts ON ts.tenant_id = l.tenant_id AND ts.product_id = l.product_id
WHERE ts.id IS NULL AND l.ledger_qty <> 0
ORDER BY tenant_id, product_id;
`

// GetStockDriftReport lists every tenant/product where tenant_stocks disagrees with the ledger.
// An empty result means the cache is consistent.
func GetStockDriftReport(ctx context.Context, tenantId *int) ([]*StockDriftRow, error) {
	if !utils.IsAdminContext(ctx) {
		return nil, &models.NotFoundError{Resource: "report", Id: "stock-drift"}
	}
	sql, err := utils.ExecTemplate(stockDriftSQL, map[string]interface{}{
		"tenantId": utils.DereferencePtr(tenantId),
	})
	if err != nil {
		return nil, err
	}
	args := map[string]interface{}{}
	if tenantId != nil && *tenantId > 0 {
		args["tenantId"] = *tenantId
	}
	var rows []*StockDriftRow
	db := config.GetDB().WithContext(ctx)
	if len(args) > 0 {
		err = db.Raw(sql, args).Scan(&rows).Error
	} else {
		err = db.Raw(sql).Scan(&rows).Error
	}
	if err != nil {
		return nil, err
	}
	return rows, nil
}
