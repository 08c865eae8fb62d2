package utils

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNormalizePhoneNumber(t *testing.T) {
	got, err := NormalizePhoneNumber("0812-3456-7890", DefaultPhoneRegion)
	if err != nil {
		t.Fatalf("NormalizePhoneNumber: %v", err)
	}
	if got != "+6281234567890" {
		t.Fatalf("normalized = %q, want +6281234567890", got)
	}

	again, err := NormalizePhoneNumber(got, DefaultPhoneRegion)
	if err != nil || again != got {
		t.Fatalf("E.164 input should round trip, got %q %v", again, err)
	}

	for _, bad := range []string{"12", "not a phone"} {
		if _, err := NormalizePhoneNumber(bad, DefaultPhoneRegion); !errors.Is(err, ErrorInvalidPhone) {
			t.Fatalf("NormalizePhoneNumber(%q) err = %v, want ErrorInvalidPhone", bad, err)
		}
	}
}

func TestCalculateLineAmounts(t *testing.T) {
	rate := decimal.RequireFromString("0.11")

	subtotal, tax := CalculateLineAmounts(decimal.NewFromInt(20000), 10, false, rate)
	if !subtotal.Equal(decimal.NewFromInt(200000)) || !tax.IsZero() {
		t.Fatalf("non-taxable = %s/%s", subtotal, tax)
	}

	// 19950 * 0.11 = 2194.5 rounds away from zero.
	subtotal, tax = CalculateLineAmounts(decimal.NewFromInt(19950), 1, true, rate)
	if !subtotal.Equal(decimal.NewFromInt(19950)) || !tax.Equal(decimal.NewFromInt(2195)) {
		t.Fatalf("taxable = %s/%s", subtotal, tax)
	}

	if _, tax := CalculateLineAmounts(decimal.NewFromInt(100), 3, true, decimal.Zero); !tax.IsZero() {
		t.Fatalf("zero rate tax = %s", tax)
	}
}

func TestDateHelpers(t *testing.T) {
	if got := DaysInMonth(2024, time.February); got != 29 {
		t.Fatalf("DaysInMonth(2024-02) = %d", got)
	}
	if got := DaysInMonth(2023, time.February); got != 28 {
		t.Fatalf("DaysInMonth(2023-02) = %d", got)
	}
	if got := DaysInMonth(2024, time.December); got != 31 {
		t.Fatalf("DaysInMonth(2024-12) = %d", got)
	}

	if _, err := ParseDate("2024-13-45"); err == nil {
		t.Fatalf("expected error for invalid date")
	}

	// 20:00 UTC on the 31st is already the 1st in Jakarta (UTC+7).
	instant := time.Date(2024, time.January, 31, 20, 0, 0, 0, time.UTC)
	day, err := ConvertToDate(instant, "")
	if err != nil {
		t.Fatalf("ConvertToDate: %v", err)
	}
	if want := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC); !day.Equal(want) {
		t.Fatalf("ConvertToDate = %s, want %s", day, want)
	}
}

func TestUniqueSliceKeepsFirstOccurrence(t *testing.T) {
	got := UniqueSlice([]int{3, 1, 3, 2, 1})
	if len(got) != 3 || got[0] != 3 || got[1] != 1 || got[2] != 2 {
		t.Fatalf("UniqueSlice = %v", got)
	}
}

func TestExecTemplateOptionalFilter(t *testing.T) {
	sql := "SELECT 1 FROM t WHERE a = @a{{ if .withB }} AND b = @b{{ end }}"

	with, err := ExecTemplate(sql, map[string]interface{}{"withB": true})
	if err != nil || !strings.Contains(with, "AND b = @b") {
		t.Fatalf("with filter = %q %v", with, err)
	}
	without, err := ExecTemplate(sql, map[string]interface{}{})
	if err != nil || strings.Contains(without, "AND b") {
		t.Fatalf("without filter = %q %v", without, err)
	}
}

func TestObtainLockWithoutRedisIsNoop(t *testing.T) {
	release, err := ObtainLock(context.Background(), "test", "k", time.Second, "helper_test.go", "TestObtainLockWithoutRedisIsNoop")
	if err != nil || release == nil {
		t.Fatalf("ObtainLock = %v", err)
	}
	release()
}

func TestContextIdentity(t *testing.T) {
	ctx := SetTenantIdInContext(context.Background(), 4)
	ctx = SetRoleInContext(ctx, "PANGKALAN")
	if id, ok := GetTenantIdFromContext(ctx); !ok || id != 4 {
		t.Fatalf("tenant id = %d %v", id, ok)
	}
	if IsAdminContext(ctx) {
		t.Fatalf("pangkalan must not be admin")
	}
	if !IsAdminContext(SetIsAdminInContext(ctx, true)) {
		t.Fatalf("admin flag not honoured")
	}
}
