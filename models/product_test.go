package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func testCatalog() ProductCatalog {
	yes, no := true, false
	return ProductCatalog{
		{ID: 1, Code: "LPG_3KG", DisplaySize: "3kg", SizeKg: decimal.NewFromInt(3), IsDefault: &yes, IsSubsidized: &yes, UnitPrice: decimal.NewFromInt(20000)},
		{ID: 2, Code: "LPG_5_5KG", DisplaySize: "5.5kg", SizeKg: decimal.NewFromFloat(5.5), IsDefault: &no, UnitPrice: decimal.NewFromInt(90000)},
		{ID: 3, Code: "LPG_12KG", DisplaySize: "12kg", SizeKg: decimal.NewFromInt(12), IsDefault: &no, UnitPrice: decimal.NewFromInt(190000)},
	}
}

func TestProductCatalogResolve(t *testing.T) {
	catalog := testCatalog()
	cases := []struct {
		input string
		want  int
	}{
		{"LPG_12KG", 3},
		{"lpg_3kg", 1},
		{"5.5kg", 2},
		{"3 KG", 1},
		{"12", 3},
		{"5,5 kg", 2},
		{"4kg", 1},  // nearest: 3 (diff 1) vs 5.5 (diff 1.5)
		{"50", 3},   // nearest: 12
		{"8.75", 2}, // tie between 5.5 and 12 goes to the smaller
	}
	for _, c := range cases {
		p, err := catalog.Resolve(c.input)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", c.input, err)
		}
		if p.ID != c.want {
			t.Fatalf("Resolve(%q): expected product %d, got %d", c.input, c.want, p.ID)
		}
	}
}

func TestProductCatalogResolve_Unresolved(t *testing.T) {
	catalog := testCatalog()
	for _, input := range []string{"", "bright gas", "-3kg"} {
		if _, err := catalog.Resolve(input); !errors.Is(err, ErrUnresolvedProduct) {
			t.Fatalf("Resolve(%q): expected ErrUnresolvedProduct, got %v", input, err)
		}
	}
}

func TestProductCatalogResolveLenient(t *testing.T) {
	catalog := testCatalog()

	t.Setenv("STRICT_PRODUCT_RESOLUTION", "")
	p, err := catalog.ResolveLenient("bright gas")
	if err != nil {
		t.Fatalf("ResolveLenient: %v", err)
	}
	if p.ID != 1 {
		t.Fatalf("expected default product 1, got %d", p.ID)
	}

	t.Setenv("STRICT_PRODUCT_RESOLUTION", "true")
	if _, err := catalog.ResolveLenient("bright gas"); !errors.Is(err, ErrUnresolvedProduct) {
		t.Fatalf("expected strict mode to fail, got %v", err)
	}
}
