package reports

import (
	"bytes"
	"testing"
	"time"

	"github.com/mmdatafocus/lpg_backend/models"
	"github.com/xuri/excelize/v2"
)

func TestWriteMonthlyRollupExcel(t *testing.T) {
	month := models.YearMonth{Year: 2024, Month: time.February}
	rollups := BuildMonthlyRollup([]*models.Tenant{{ID: 1, Name: "Pangkalan A", MonthlyQuota: 300}}, month,
		nil, []DailyAmount{{TenantId: 1, Date: time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), Normal: 12}})

	var buf bytes.Buffer
	if err := WriteMonthlyRollupExcel(&buf, month.String(), rollups); err != nil {
		t.Fatalf("WriteMonthlyRollupExcel: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	if v, _ := f.GetCellValue(summarySheet, "A3"); v != "Pangkalan A" {
		t.Fatalf("expected tenant name in A3, got %q", v)
	}
	if v, _ := f.GetCellValue(summarySheet, "G3"); v != "288" {
		t.Fatalf("expected remaining 288 in G3, got %q", v)
	}
	rows, err := f.GetRows(dailySheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	// header + one row per calendar day
	if len(rows) != 30 {
		t.Fatalf("expected 30 daily rows, got %d", len(rows))
	}
	if rows[3][1] != "2024-02-03" || rows[3][4] != "12" {
		t.Fatalf("unexpected row for 2024-02-03: %v", rows[3])
	}
}
