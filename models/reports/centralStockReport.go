package reports

import (
	"context"

	"github.com/mmdatafocus/lpg_backend/models"
)

type CentralStockRow struct {
	ProductId   int    `json:"product_id"`
	ProductCode string `json:"product_code"`
	DisplaySize string `json:"display_size"`
	Qty         int64  `json:"qty"`
}

// GetCentralStockReport lists the central balance of every catalog product, 0 when it never moved.
func GetCentralStockReport(ctx context.Context) ([]*CentralStockRow, error) {
	balances, err := models.CentralBalances(ctx)
	if err != nil {
		return nil, err
	}
	catalog, err := models.LoadProductCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return buildCentralStockRows(catalog, balances), nil
}

func buildCentralStockRows(catalog models.ProductCatalog, balances []models.ProductBalance) []*CentralStockRow {
	byProduct := make(map[int]int64, len(balances))
	for _, b := range balances {
		byProduct[b.ProductId] = b.Qty
	}
	rows := make([]*CentralStockRow, 0, len(catalog))
	for _, p := range catalog {
		rows = append(rows, &CentralStockRow{
			ProductId:   p.ID,
			ProductCode: p.Code,
			DisplaySize: p.DisplaySize,
			Qty:         byProduct[p.ID],
		})
	}
	return rows
}
