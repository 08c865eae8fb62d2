package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/lpg_backend/models"
	"github.com/mmdatafocus/lpg_backend/models/reports"
)

func registerReportRoutes(r gin.IRouter, distributorOnly gin.HandlerFunc) {
	g := r.Group("/reports")
	g.GET("/monthly", monthlyRollupHandler)
	g.GET("/monthly/export", monthlyRollupExportHandler)
	g.GET("/stock-drift", distributorOnly, stockDriftHandler)
	g.GET("/central-stock", distributorOnly, centralStockHandler)
}

func bindMonthlyRollup(c *gin.Context) ([]reports.TenantRollup, models.YearMonth, bool) {
	month := currentMonth()
	if raw := c.Query("month"); raw != "" {
		m, err := models.ParseYearMonth(raw)
		if err != nil {
			badRequest(c, err)
			return nil, month, false
		}
		month = m
	}
	tenantId, ok := optionalIntQuery(c, "tenant_id")
	if !ok {
		return nil, month, false
	}
	productId, ok := optionalIntQuery(c, "product_id")
	if !ok {
		return nil, month, false
	}
	rollups, err := reports.MonthlyRollup(c.Request.Context(), tenantId, month, productId)
	if err != nil {
		respondError(c, "bindMonthlyRollup", err)
		return nil, month, false
	}
	return rollups, month, true
}

func monthlyRollupHandler(c *gin.Context) {
	rollups, _, ok := bindMonthlyRollup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rollups)
}

func monthlyRollupExportHandler(c *gin.Context) {
	rollups, month, ok := bindMonthlyRollup(c)
	if !ok {
		return
	}
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="allocation-`+month.String()+`.xlsx"`)
	if err := reports.WriteMonthlyRollupExcel(c.Writer, month.String(), rollups); err != nil {
		respondError(c, "monthlyRollupExportHandler", err)
	}
}

func stockDriftHandler(c *gin.Context) {
	tenantId, ok := optionalIntQuery(c, "tenant_id")
	if !ok {
		return
	}
	rows, err := reports.GetStockDriftReport(c.Request.Context(), tenantId)
	if err != nil {
		respondError(c, "stockDriftHandler", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func centralStockHandler(c *gin.Context) {
	rows, err := reports.GetCentralStockReport(c.Request.Context())
	if err != nil {
		respondError(c, "centralStockHandler", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
