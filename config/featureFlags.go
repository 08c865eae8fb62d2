package config

import (
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// defaultTaxRate is the flat PPN rate applied to taxable order lines.
var defaultTaxRate = decimal.NewFromFloat(0.11)

// StrictProductResolution disables the "default product" fallback when a product
// string cannot be resolved against the catalog.
//
// Set via env:
// - STRICT_PRODUCT_RESOLUTION=true
func StrictProductResolution() bool {
	return envBool("STRICT_PRODUCT_RESOLUTION")
}

// TaxRate returns the flat tax rate (TAX_RATE, e.g. "0.11"). Invalid or negative values fall back to the default.
func TaxRate() decimal.Decimal {
	raw := strings.TrimSpace(os.Getenv("TAX_RATE"))
	if raw == "" {
		return defaultTaxRate
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil || rate.IsNegative() {
		return defaultTaxRate
	}
	return rate
}

// IsProduction reports GO_ENV=production.
func IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production")
}

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// Timezone is the business day timezone (BUSINESS_TIMEZONE), default Asia/Jakarta.
func Timezone() string {
	tz := strings.TrimSpace(os.Getenv("BUSINESS_TIMEZONE"))
	if tz == "" {
		return "Asia/Jakarta"
	}
	return tz
}
