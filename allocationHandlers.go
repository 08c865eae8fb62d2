package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/lpg_backend/config"
	"github.com/mmdatafocus/lpg_backend/models"
	"github.com/mmdatafocus/lpg_backend/utils"
)

type planRequest struct {
	TenantId  int                      `json:"tenant_id" binding:"required"`
	Date      string                   `json:"date" binding:"required"`
	ProductId int                      `json:"product_id" binding:"required"`
	Qty       int64                    `json:"qty"`
	Channel   models.AllocationChannel `json:"channel"`
}

func (r planRequest) entry() (models.PlanEntry, error) {
	date, err := utils.ParseDate(r.Date)
	if err != nil {
		return models.PlanEntry{}, err
	}
	channel := r.Channel
	if channel == "" {
		channel = models.AllocationChannelNormal
	}
	return models.PlanEntry{TenantId: r.TenantId, Date: date, ProductId: r.ProductId, Qty: r.Qty, Channel: channel}, nil
}

type distributionRequest struct {
	planRequest
	PaymentChannel models.PaymentChannel `json:"payment_channel"`
}

type generatePlanRequest struct {
	Month     models.YearMonth         `json:"month"`
	ProductId int                      `json:"product_id" binding:"required"`
	Channel   models.AllocationChannel `json:"channel"`
	Overwrite bool                     `json:"overwrite"`
}

type tenantQuotaRequest struct {
	MonthlyQuota *int64 `json:"monthly_quota" binding:"required"`
}

func registerAllocationRoutes(r gin.IRouter, distributorOnly gin.HandlerFunc) {
	g := r.Group("/allocations")
	g.POST("/plans", distributorOnly, recordPlanHandler)
	g.POST("/plans/bulk", distributorOnly, recordPlanBulkHandler)
	g.POST("/plans/generate", distributorOnly, generatePlanHandler)
	g.POST("/distributions", recordDistributionHandler)
	g.DELETE("/distributions/:id", distributorOnly, deleteDistributionHandler)

	t := r.Group("/tenants")
	t.POST("", distributorOnly, createTenantHandler)
	t.GET("", distributorOnly, listTenantsHandler)
	t.GET("/:id", getTenantHandler)
	t.PUT("/:id/quota", distributorOnly, setTenantQuotaHandler)
}

func recordPlanHandler(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	e, err := req.entry()
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := models.RecordPlan(c.Request.Context(), e.TenantId, e.Date, e.ProductId, e.Qty, e.Channel); err != nil {
		respondError(c, "recordPlanHandler", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func recordPlanBulkHandler(c *gin.Context) {
	var reqs []planRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		badRequest(c, err)
		return
	}
	entries := make([]models.PlanEntry, 0, len(reqs))
	for _, req := range reqs {
		e, err := req.entry()
		if err != nil {
			badRequest(c, err)
			return
		}
		entries = append(entries, e)
	}
	if err := models.RecordPlanBulk(c.Request.Context(), entries); err != nil {
		respondError(c, "recordPlanBulkHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": len(entries)})
}

func recordDistributionHandler(c *gin.Context) {
	var req distributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	e, err := req.entry()
	if err != nil {
		badRequest(c, err)
		return
	}
	err = models.RecordDistribution(c.Request.Context(), e.TenantId, e.Date, e.ProductId, e.Qty, e.Channel, req.PaymentChannel)
	if err != nil {
		respondError(c, "recordDistributionHandler", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func deleteDistributionHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	row, err := models.DeleteDailyDistribution(c.Request.Context(), id)
	if err != nil {
		respondError(c, "deleteDistributionHandler", err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func generatePlanHandler(c *gin.Context) {
	var req generatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := models.AutoGeneratePlan(c.Request.Context(), models.GeneratePlanInput{
		Month:     req.Month,
		ProductId: req.ProductId,
		Channel:   req.Channel,
		Overwrite: req.Overwrite,
	})
	if err != nil {
		respondError(c, "generatePlanHandler", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func createTenantHandler(c *gin.Context) {
	var input models.NewTenant
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	tenant, err := models.CreateTenant(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "createTenantHandler", err)
		return
	}
	c.JSON(http.StatusCreated, tenant)
}

func listTenantsHandler(c *gin.Context) {
	tenants, err := models.ListActiveTenants(c.Request.Context(), c.Query("with_quota") == "true")
	if err != nil {
		respondError(c, "listTenantsHandler", err)
		return
	}
	c.JSON(http.StatusOK, tenants)
}

func getTenantHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	tenant, err := models.GetTenant(c.Request.Context(), id)
	if err != nil {
		respondError(c, "getTenantHandler", err)
		return
	}
	c.JSON(http.StatusOK, tenant)
}

func setTenantQuotaHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var req tenantQuotaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tenant, err := models.SetMonthlyQuota(c.Request.Context(), id, *req.MonthlyQuota)
	if err != nil {
		respondError(c, "setTenantQuotaHandler", err)
		return
	}
	c.JSON(http.StatusOK, tenant)
}

// currentMonth is the business-timezone month used when ?month= is omitted.
func currentMonth() models.YearMonth {
	now, err := utils.ConvertToDate(time.Now(), config.Timezone())
	if err != nil {
		now = time.Now().UTC()
	}
	return models.YearMonthOf(now)
}
