package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/lpg_backend/config"
	"github.com/mmdatafocus/lpg_backend/models"
	"github.com/mmdatafocus/lpg_backend/utils"
	"github.com/mmdatafocus/lpg_backend/workflow"
	"gorm.io/gorm"
)

// errorStatus maps domain errors onto HTTP status codes.
func errorStatus(err error) int {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, utils.ErrorRecordNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrAlreadyTerminal),
		errors.Is(err, workflow.ErrIdempotencyInProgress):
		return http.StatusConflict
	case errors.Is(err, models.ErrInsufficientStock):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrInvalidQuantity),
		errors.Is(err, models.ErrUnresolvedProduct),
		errors.As(err, &validationErrors):
		return http.StatusBadRequest
	case errors.Is(err, utils.ErrorTenantRequired),
		errors.Is(err, utils.ErrorInvalidPhone):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, funcName string, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		config.LogError(config.GetLogger(), "server", funcName, c.Request.Method+" "+c.FullPath(), nil, err)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal server error"})
		return
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.AbortWithStatusJSON(status, gin.H{"error": "validation failed", "fields": utils.ProcessValidationErrors(err)})
		return
	}
	body := gin.H{"error": err.Error()}
	var stockErr *models.InsufficientStockError
	if errors.As(err, &stockErr) {
		body["available"] = stockErr.Available
		body["requested"] = stockErr.Requested
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func pathId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// optionalIntQuery reads ?name=; absent yields nil.
func optionalIntQuery(c *gin.Context, name string) (*int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return nil, false
	}
	return &v, true
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}
