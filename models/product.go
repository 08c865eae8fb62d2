package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/lpg_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID           int             `gorm:"primary_key" json:"id"`
	Code         string          `gorm:"size:50;uniqueIndex;not null" json:"code"`
	DisplaySize  string          `gorm:"size:20;not null" json:"display_size"`
	SizeKg       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"size_kg"`
	IsSubsidized *bool           `gorm:"not null;default:false" json:"is_subsidized"`
	IsDefault    *bool           `gorm:"not null;default:false" json:"is_default"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"unit_price"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// ProductCatalog is an in-memory snapshot of the products table used for resolution.
type ProductCatalog []Product

func LoadProductCatalog(ctx context.Context) (ProductCatalog, error) {
	var products []Product
	if err := config.GetDB().WithContext(ctx).Order("size_kg, id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("load product catalog: %w", err)
	}
	return products, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	var product Product
	if err := config.GetDB().WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "product", Id: id}
		}
		return nil, err
	}
	return &product, nil
}

func (c ProductCatalog) ById(id int) (Product, bool) {
	for _, p := range c {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

func (c ProductCatalog) Default() (Product, bool) {
	for _, p := range c {
		if p.IsDefault != nil && *p.IsDefault {
			return p, true
		}
	}
	return Product{}, false
}

// Resolve maps free-form input to a catalog product.
// Order: exact code, exact display size, normalised size ("3 KG", "3kg", "3"), nearest size_kg.
func (c ProductCatalog) Resolve(input string) (Product, error) {
	value := strings.TrimSpace(input)
	if value == "" || len(c) == 0 {
		return Product{}, &UnresolvedProductError{Input: input}
	}
	for _, p := range c {
		if strings.EqualFold(p.Code, value) {
			return p, nil
		}
	}
	for _, p := range c {
		if strings.EqualFold(p.DisplaySize, value) {
			return p, nil
		}
	}

	size, ok := normaliseSize(value)
	if !ok {
		return Product{}, &UnresolvedProductError{Input: input}
	}
	for _, p := range c {
		if p.SizeKg.Equal(size) {
			return p, nil
		}
	}

	// nearest size; ties go to the smaller cylinder
	best := -1
	var bestDiff decimal.Decimal
	for i, p := range c {
		diff := p.SizeKg.Sub(size).Abs()
		if best < 0 || diff.LessThan(bestDiff) || (diff.Equal(bestDiff) && p.SizeKg.LessThan(c[best].SizeKg)) {
			best = i
			bestDiff = diff
		}
	}
	return c[best], nil
}

// ResolveLenient falls back to the default product when input cannot be resolved,
// unless strict resolution is configured.
func (c ProductCatalog) ResolveLenient(input string) (Product, error) {
	p, err := c.Resolve(input)
	if err == nil {
		return p, nil
	}
	if config.StrictProductResolution() {
		return Product{}, err
	}
	def, ok := c.Default()
	if !ok {
		return Product{}, err
	}
	config.LogWarn(config.GetLogger(), "product.go", "ResolveLenient", "falling back to default product", map[string]any{
		"input":   input,
		"product": def.Code,
	})
	return def, nil
}

// ResolveProduct resolves input against the current catalog and returns the product id.
func ResolveProduct(ctx context.Context, input string) (int, error) {
	catalog, err := LoadProductCatalog(ctx)
	if err != nil {
		return 0, err
	}
	p, err := catalog.Resolve(input)
	if err != nil {
		return 0, err
	}
	return p.ID, nil
}

func ResolveProductLenient(ctx context.Context, input string) (int, error) {
	catalog, err := LoadProductCatalog(ctx)
	if err != nil {
		return 0, err
	}
	p, err := catalog.ResolveLenient(input)
	if err != nil {
		return 0, err
	}
	return p.ID, nil
}

// normaliseSize turns "3 KG", "3kg", "3", "5.5 Kg" into a decimal size.
func normaliseSize(value string) (decimal.Decimal, bool) {
	v := strings.ToLower(strings.ReplaceAll(value, " ", ""))
	v = strings.TrimSuffix(v, "kg")
	v = strings.ReplaceAll(v, ",", ".")
	if v == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(v)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// UpsertProduct inserts or updates a catalog row keyed by code.
func UpsertProduct(ctx context.Context, p *Product) error {
	db := config.GetDB().WithContext(ctx)
	var existing Product
	err := db.Where("code = ?", p.Code).First(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err == nil {
		p.ID = existing.ID
		return db.Model(&existing).Updates(map[string]interface{}{
			"display_size":  p.DisplaySize,
			"size_kg":       p.SizeKg,
			"is_subsidized": p.IsSubsidized,
			"is_default":    p.IsDefault,
			"unit_price":    p.UnitPrice,
		}).Error
	}
	return db.Create(p).Error
}
