package models

import (
	"testing"
	"time"
)

func TestComputeMonthlyPlanShares_SaturdayWeighting(t *testing.T) {
	// August 2024: 31 days, 5 Saturdays, 4 Sundays -> divisor 22 + 2.5 = 24.5
	month := YearMonth{Year: 2024, Month: time.August}
	shares := ComputeMonthlyPlanShares(620, month)

	if len(shares) != 27 {
		t.Fatalf("expected 27 non-Sunday shares, got %d", len(shares))
	}
	byDay := map[int]int64{}
	for _, s := range shares {
		if s.Date.Weekday() == time.Sunday {
			t.Fatalf("unexpected Sunday share on %s", s.Date.Format("2006-01-02"))
		}
		byDay[s.Date.Day()] = s.Qty
	}
	if got := byDay[1]; got != 25 {
		t.Fatalf("expected weekday share 25 (Thu 1st), got %d", got)
	}
	if got := byDay[3]; got != 13 {
		t.Fatalf("expected Saturday share 13 (Sat 3rd), got %d", got)
	}
	if _, ok := byDay[4]; ok {
		t.Fatalf("expected no share on Sunday 4th")
	}
}

func TestComputeMonthlyPlanShares_ShortMonth(t *testing.T) {
	// February 2024: 29 days, 4 Saturdays, 4 Sundays -> divisor 21 + 2 = 23
	shares := ComputeMonthlyPlanShares(300, YearMonth{Year: 2024, Month: time.February})
	if len(shares) != 25 {
		t.Fatalf("expected 25 shares, got %d", len(shares))
	}
	for _, s := range shares {
		want := int64(13)
		if s.Date.Weekday() == time.Saturday {
			want = 7
		}
		if s.Qty != want {
			t.Fatalf("%s: expected %d, got %d", s.Date.Format("2006-01-02"), want, s.Qty)
		}
	}
}

func TestComputeMonthlyPlanShares_NoQuota(t *testing.T) {
	if shares := ComputeMonthlyPlanShares(0, YearMonth{Year: 2024, Month: time.August}); len(shares) != 0 {
		t.Fatalf("expected no shares for zero quota, got %d", len(shares))
	}
}

func TestSharesToPlans_SkipsExistingAndSplitsChannel(t *testing.T) {
	month := YearMonth{Year: 2024, Month: time.August}
	shares := ComputeMonthlyPlanShares(620, month)
	existing := map[string]bool{
		planKey(9, time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)): true,
		planKey(9, time.Date(2024, 8, 2, 0, 0, 0, 0, time.UTC)): true,
	}

	plans, skipped := sharesToPlans(9, 3, AllocationChannelDiscretionary, shares, existing)
	if skipped != 2 {
		t.Fatalf("expected 2 skipped, got %d", skipped)
	}
	if len(plans) != len(shares)-2 {
		t.Fatalf("expected %d plans, got %d", len(shares)-2, len(plans))
	}
	for _, p := range plans {
		if p.PlannedNormal != 0 || p.PlannedDiscretionary == 0 {
			t.Fatalf("expected discretionary-only plan, got %+v", p)
		}
		if p.TenantId != 9 || p.ProductId != 3 {
			t.Fatalf("unexpected key on plan %+v", p)
		}
	}

	// a second pass with everything already present creates nothing
	all := map[string]bool{}
	for _, s := range shares {
		all[planKey(9, s.Date)] = true
	}
	again, skippedAgain := sharesToPlans(9, 3, AllocationChannelNormal, shares, all)
	if len(again) != 0 || skippedAgain != len(shares) {
		t.Fatalf("expected rerun to be a no-op, got %d plans %d skipped", len(again), skippedAgain)
	}
}

func TestYearMonth(t *testing.T) {
	m, err := ParseYearMonth("2024-02")
	if err != nil {
		t.Fatalf("ParseYearMonth: %v", err)
	}
	if m.Days() != 29 {
		t.Fatalf("expected 29 days in 2024-02, got %d", m.Days())
	}
	if m.String() != "2024-02" {
		t.Fatalf("unexpected String(): %s", m.String())
	}
	if !m.LastDay().Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected LastDay: %s", m.LastDay())
	}
	if _, err := ParseYearMonth("2024/02"); err == nil {
		t.Fatalf("expected invalid month to fail")
	}
}
