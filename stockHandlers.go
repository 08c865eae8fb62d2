package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/lpg_backend/models"
)

// productRef names a product by id or by a free-form code/size string.
type productRef struct {
	ProductId int    `json:"product_id"`
	Product   string `json:"product"`
}

func (p productRef) resolve(ctx context.Context) (int, error) {
	if p.ProductId > 0 {
		return p.ProductId, nil
	}
	return models.ResolveProductLenient(ctx, p.Product)
}

type stockQtyRequest struct {
	productRef
	Qty      int64  `json:"qty"`
	Note     string `json:"note"`
	OrderRef string `json:"order_ref"`
}

type thresholdRequest struct {
	productRef
	WarningLevel  int64 `json:"warning_level"`
	CriticalLevel int64 `json:"critical_level"`
}

type movementPage struct {
	Movements  []*models.StockMovement `json:"movements"`
	NextCursor string                  `json:"next_cursor,omitempty"`
}

func registerStockRoutes(r gin.IRouter, distributorOnly gin.HandlerFunc) {
	g := r.Group("/stock")
	g.GET("/balance", stockBalanceHandler)
	g.GET("/movements", stockHistoryHandler)
	g.DELETE("/movements/:id", distributorOnly, deleteStockMovementHandler)
	g.POST("/central/receive", distributorOnly, receiveCentralStockHandler)

	t := g.Group("/tenants/:tenantId")
	t.POST("/receive", receiveStockHandler)
	t.POST("/deduct", deductStockHandler)
	t.POST("/adjust", adjustStockHandler)
	t.PUT("/thresholds", stockThresholdsHandler)
	t.GET("/levels", stockLevelsHandler)
}

func bindStockQty(c *gin.Context) (int, int, stockQtyRequest, bool) {
	var req stockQtyRequest
	tenantId, ok := pathId(c, "tenantId")
	if !ok {
		return 0, 0, req, false
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return 0, 0, req, false
	}
	productId, err := req.resolve(c.Request.Context())
	if err != nil {
		respondError(c, "bindStockQty", err)
		return 0, 0, req, false
	}
	return tenantId, productId, req, true
}

func receiveStockHandler(c *gin.Context) {
	tenantId, productId, req, ok := bindStockQty(c)
	if !ok {
		return
	}
	stock, err := models.ReceiveTenantStock(c.Request.Context(), tenantId, productId, req.Qty, req.Note)
	if err != nil {
		respondError(c, "receiveStockHandler", err)
		return
	}
	c.JSON(http.StatusOK, stock)
}

func receiveCentralStockHandler(c *gin.Context) {
	var req stockQtyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	productId, err := req.resolve(c.Request.Context())
	if err != nil {
		respondError(c, "receiveCentralStockHandler", err)
		return
	}
	qty, err := models.ReceiveCentralStock(c.Request.Context(), productId, req.Qty, req.Note)
	if err != nil {
		respondError(c, "receiveCentralStockHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scope_id": models.CentralScope, "product_id": productId, "qty": qty})
}

func deductStockHandler(c *gin.Context) {
	tenantId, productId, req, ok := bindStockQty(c)
	if !ok {
		return
	}
	stock, err := models.DeductTenantStock(c.Request.Context(), tenantId, productId, req.Qty, req.OrderRef)
	if err != nil {
		respondError(c, "deductStockHandler", err)
		return
	}
	c.JSON(http.StatusOK, stock)
}

// adjustStockHandler records an opname; qty is the physically counted stock.
func adjustStockHandler(c *gin.Context) {
	tenantId, productId, req, ok := bindStockQty(c)
	if !ok {
		return
	}
	stock, err := models.AdjustTenantStock(c.Request.Context(), tenantId, productId, req.Qty, req.Note)
	if err != nil {
		respondError(c, "adjustStockHandler", err)
		return
	}
	c.JSON(http.StatusOK, stock)
}

func stockThresholdsHandler(c *gin.Context) {
	tenantId, ok := pathId(c, "tenantId")
	if !ok {
		return
	}
	var req thresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	productId, err := req.resolve(c.Request.Context())
	if err != nil {
		respondError(c, "stockThresholdsHandler", err)
		return
	}
	stock, err := models.SetStockThresholds(c.Request.Context(), tenantId, productId, req.WarningLevel, req.CriticalLevel)
	if err != nil {
		respondError(c, "stockThresholdsHandler", err)
		return
	}
	c.JSON(http.StatusOK, stock)
}

func stockLevelsHandler(c *gin.Context) {
	tenantId, ok := pathId(c, "tenantId")
	if !ok {
		return
	}
	levels, err := models.GetTenantStockLevels(c.Request.Context(), tenantId)
	if err != nil {
		respondError(c, "stockLevelsHandler", err)
		return
	}
	c.JSON(http.StatusOK, levels)
}

// stockBalanceHandler answers ?scope_id=&product_id=; scope 0 is central stock.
func stockBalanceHandler(c *gin.Context) {
	scopeId, err := strconv.Atoi(c.DefaultQuery("scope_id", "0"))
	if err != nil || scopeId < 0 {
		badRequest(c, errors.New("invalid scope_id"))
		return
	}
	ref := productRef{Product: c.Query("product")}
	if raw := c.Query("product_id"); raw != "" {
		if ref.ProductId, err = strconv.Atoi(raw); err != nil {
			badRequest(c, errors.New("invalid product_id"))
			return
		}
	}
	productId, err := ref.resolve(c.Request.Context())
	if err != nil {
		respondError(c, "stockBalanceHandler", err)
		return
	}
	qty, err := models.BalanceOf(c.Request.Context(), scopeId, productId)
	if err != nil {
		respondError(c, "stockBalanceHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scope_id": scopeId, "product_id": productId, "qty": qty})
}

func stockHistoryHandler(c *gin.Context) {
	var filter models.MovementFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, err)
		return
	}
	movements, err := models.HistoryOf(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "stockHistoryHandler", err)
		return
	}
	page := movementPage{Movements: movements}
	if n := len(movements); n > 0 {
		page.NextCursor = movements[n-1].GetCursor()
	}
	c.JSON(http.StatusOK, page)
}

func deleteStockMovementHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	movement, err := models.DeleteStockMovement(c.Request.Context(), id)
	if err != nil {
		respondError(c, "deleteStockMovementHandler", err)
		return
	}
	c.JSON(http.StatusOK, movement)
}
