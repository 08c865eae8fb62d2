package models

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBuildOrderLines_NonTaxable(t *testing.T) {
	price := decimal.NewFromInt(20000)
	lines, subtotal, tax, err := buildOrderLines(testCatalog(), []NewOrderLine{
		{Product: "3kg", Qty: 10, UnitPrice: &price},
	}, decimal.NewFromFloat(0.11))
	if err != nil {
		t.Fatalf("buildOrderLines: %v", err)
	}
	if len(lines) != 1 || lines[0].ProductId != 1 || lines[0].Position != 1 {
		t.Fatalf("unexpected lines: %+v", lines)
	}
	if !subtotal.Equal(decimal.NewFromInt(200000)) || !tax.IsZero() {
		t.Fatalf("expected subtotal 200000 tax 0, got %s %s", subtotal, tax)
	}
	if total := subtotal.Add(tax); !total.Equal(decimal.NewFromInt(200000)) {
		t.Fatalf("expected total 200000, got %s", total)
	}
}

func TestBuildOrderLines_TaxRoundsHalfAwayFromZero(t *testing.T) {
	// 150 * 0.11 = 16.5 -> 17
	price := decimal.NewFromInt(50)
	lines, subtotal, tax, err := buildOrderLines(testCatalog(), []NewOrderLine{
		{ProductId: 2, Qty: 3, UnitPrice: &price, IsTaxable: true},
		{ProductId: 3, Qty: 1, IsTaxable: false},
	}, decimal.NewFromFloat(0.11))
	if err != nil {
		t.Fatalf("buildOrderLines: %v", err)
	}
	if !lines[0].Tax.Equal(decimal.NewFromInt(17)) {
		t.Fatalf("expected line tax 17, got %s", lines[0].Tax)
	}
	if !lines[1].UnitPrice.Equal(decimal.NewFromInt(190000)) {
		t.Fatalf("expected catalog price for 12kg, got %s", lines[1].UnitPrice)
	}
	if !subtotal.Equal(decimal.NewFromInt(190150)) || !tax.Equal(decimal.NewFromInt(17)) {
		t.Fatalf("unexpected totals %s %s", subtotal, tax)
	}
}

func TestBuildOrderLines_InvalidQuantity(t *testing.T) {
	_, _, _, err := buildOrderLines(testCatalog(), []NewOrderLine{{ProductId: 1, Qty: 0}}, decimal.Zero)
	var qtyErr *InvalidQuantityError
	if !errors.As(err, &qtyErr) {
		t.Fatalf("expected InvalidQuantityError, got %v", err)
	}
	if qtyErr.Field != "lines[0].qty" {
		t.Fatalf("unexpected field %q", qtyErr.Field)
	}
}

func TestBuildOrderLines_UnknownProduct(t *testing.T) {
	if _, _, _, err := buildOrderLines(testCatalog(), []NewOrderLine{{ProductId: 99, Qty: 1}}, decimal.Zero); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBuildOrderLines_UnmatchedProductFallsBackToDefault(t *testing.T) {
	t.Setenv("STRICT_PRODUCT_RESOLUTION", "")
	lines, subtotal, _, err := buildOrderLines(testCatalog(), []NewOrderLine{{Product: "gas melon", Qty: 2}}, decimal.Zero)
	if err != nil {
		t.Fatalf("buildOrderLines: %v", err)
	}
	if lines[0].ProductId != 1 || lines[0].ProductCode != "LPG_3KG" {
		t.Fatalf("expected default LPG_3KG, got %d %s", lines[0].ProductId, lines[0].ProductCode)
	}
	if !subtotal.Equal(decimal.NewFromInt(40000)) {
		t.Fatalf("expected default product price, subtotal %s", subtotal)
	}

	t.Setenv("STRICT_PRODUCT_RESOLUTION", "true")
	if _, _, _, err := buildOrderLines(testCatalog(), []NewOrderLine{{Product: "gas melon", Qty: 1}}, decimal.Zero); !errors.Is(err, ErrUnresolvedProduct) {
		t.Fatalf("expected ErrUnresolvedProduct in strict mode, got %v", err)
	}
}

func TestOrderCode(t *testing.T) {
	if got := formatOrderCode("202408", 7); got != "ORD-202408-0007" {
		t.Fatalf("unexpected code %s", got)
	}
	// 2024-08-31 20:00 UTC is already September in Jakarta
	t.Setenv("BUSINESS_TIMEZONE", "Asia/Jakarta")
	if got := orderCodePeriod(time.Date(2024, 8, 31, 20, 0, 0, 0, time.UTC)); got != "202409" {
		t.Fatalf("expected period 202409, got %s", got)
	}
}
