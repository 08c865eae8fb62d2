package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/mmdatafocus/lpg_backend/models"
)

func TestMonthsBetween(t *testing.T) {
	months := MonthsBetween(models.YearMonth{Year: 2024, Month: time.November}, models.YearMonth{Year: 2025, Month: time.February})
	want := []string{"2024-11", "2024-12", "2025-01", "2025-02"}
	if len(months) != len(want) {
		t.Fatalf("expected %d months, got %d", len(want), len(months))
	}
	for i, m := range months {
		if m.String() != want[i] {
			t.Fatalf("month %d: expected %s, got %s", i, want[i], m)
		}
	}
	if got := MonthsBetween(models.YearMonth{Year: 2025, Month: time.March}, models.YearMonth{Year: 2025, Month: time.January}); len(got) != 0 {
		t.Fatalf("expected empty range, got %v", got)
	}
}

func TestRunPlanGeneration_RequiresProducts(t *testing.T) {
	m := models.YearMonth{Year: 2024, Month: time.August}
	if _, err := RunPlanGeneration(context.Background(), nil, PlanGenerationJob{From: m, To: m}); err == nil {
		t.Fatalf("expected error without products")
	}
}

func TestStockRebuildLockName(t *testing.T) {
	if got := stockRebuildLockName(StockKey{TenantId: 4, ProductId: 2}); got != "stock_rebuild:4:2" {
		t.Fatalf("unexpected lock name %q", got)
	}
}
