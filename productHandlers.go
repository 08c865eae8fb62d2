package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/lpg_backend/models"
)

func registerProductRoutes(r gin.IRouter) {
	g := r.Group("/products")
	g.GET("", listProductsHandler)
	g.GET("/resolve", resolveProductHandler)
	g.GET("/:id", getProductHandler)
}

func listProductsHandler(c *gin.Context) {
	catalog, err := models.LoadProductCatalog(c.Request.Context())
	if err != nil {
		respondError(c, "listProductsHandler", err)
		return
	}
	c.JSON(http.StatusOK, catalog)
}

func getProductHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	product, err := models.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, "getProductHandler", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// resolveProductHandler is strict: unknown input is a 400, never the default product.
func resolveProductHandler(c *gin.Context) {
	input := c.Query("input")
	if input == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "input is required"})
		return
	}
	productId, err := models.ResolveProduct(c.Request.Context(), input)
	if err != nil {
		respondError(c, "resolveProductHandler", err)
		return
	}
	product, err := models.GetProduct(c.Request.Context(), productId)
	if err != nil {
		respondError(c, "resolveProductHandler", err)
		return
	}
	c.JSON(http.StatusOK, product)
}
