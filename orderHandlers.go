package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/lpg_backend/models"
	"github.com/mmdatafocus/lpg_backend/utils"
	"github.com/mmdatafocus/lpg_backend/workflow"
)

const headerIdempotencyKey = "Idempotency-Key"

type transitionRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
	Note   string             `json:"note"`
}

type replaceLinesRequest struct {
	Lines []models.NewOrderLine `json:"lines" binding:"required"`
}

type markPaidRequest struct {
	Paid *bool `json:"paid" binding:"required"`
}

type orderListResponse struct {
	Orders []*models.Order `json:"orders"`
	Total  int64           `json:"total"`
}

func registerOrderRoutes(r gin.IRouter) {
	g := r.Group("/orders")
	g.POST("", createOrderHandler)
	g.GET("", listOrdersHandler)
	g.GET("/:id", getOrderHandler)
	g.POST("/:id/transition", transitionOrderHandler)
	g.PUT("/:id/lines", replaceOrderLinesHandler)
	g.POST("/:id/paid", markOrderPaidHandler)
	g.DELETE("/:id", deleteOrderHandler)
	g.GET("/:id/transitions", allowedTransitionsHandler)
}

func createOrderHandler(c *gin.Context) {
	var input models.NewOrder
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	key := strings.TrimSpace(c.GetHeader(headerIdempotencyKey))
	if key == "" {
		order, err := models.CreateOrder(ctx, &input)
		if err != nil {
			respondError(c, "createOrderHandler", err)
			return
		}
		c.JSON(http.StatusCreated, order)
		return
	}

	// A retried key replays the first order instead of deducting stock twice.
	scopeId, _ := utils.GetTenantIdFromContext(ctx)
	order, replayed, err := workflow.CreateOrderIdempotent(ctx, scopeId, key, &input)
	if err != nil {
		respondError(c, "createOrderHandler", err)
		return
	}
	if replayed {
		c.JSON(http.StatusOK, order)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func listOrdersHandler(c *gin.Context) {
	var filter models.OrderFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, err)
		return
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	orders, total, err := models.ListOrders(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "listOrdersHandler", err)
		return
	}
	c.JSON(http.StatusOK, orderListResponse{Orders: orders, Total: total})
}

func getOrderHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	order, err := models.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, "getOrderHandler", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func allowedTransitionsHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	order, err := models.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, "allowedTransitionsHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      order.CurrentStatus,
		"transitions": order.CurrentStatus.AllowedTransitions(),
	})
}

func transitionOrderHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !req.Status.IsValid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	order, err := models.TransitionOrder(c.Request.Context(), id, req.Status, req.Note)
	if err != nil {
		respondError(c, "transitionOrderHandler", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func replaceOrderLinesHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var req replaceLinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := models.ReplaceOrderLines(c.Request.Context(), id, req.Lines)
	if err != nil {
		respondError(c, "replaceOrderLinesHandler", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func markOrderPaidHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var req markPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := models.MarkOrderPaid(c.Request.Context(), id, *req.Paid)
	if err != nil {
		respondError(c, "markOrderPaidHandler", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func deleteOrderHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	order, err := models.DeleteOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, "deleteOrderHandler", err)
		return
	}
	c.JSON(http.StatusOK, order)
}
