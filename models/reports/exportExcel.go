package reports

import (
	"fmt"
	"io"

	"github.com/mmdatafocus/lpg_backend/utils"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	dailySheet   = "Daily"
)

var summaryHeadings = []string{
	"Tenant", "Allocated", "Planned Normal", "Planned Discretionary",
	"Distributed Normal", "Distributed Discretionary", "Remaining", "Grand Total",
}

var dailyHeadings = []string{
	"Tenant", "Date", "Planned Normal", "Planned Discretionary", "Distributed Normal", "Distributed Discretionary",
}

func setRow(f *excelize.File, sheet string, rowNo int, values ...interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// BuildMonthlyRollupWorkbook renders rollups as a two-sheet workbook (totals and per-day rows).
func BuildMonthlyRollupWorkbook(month string, rollups []TenantRollup) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(dailySheet); err != nil {
		return nil, err
	}

	if err := setRow(f, summarySheet, 1, fmt.Sprintf("Monthly allocation %s", month)); err != nil {
		return nil, err
	}
	headings := make([]interface{}, len(summaryHeadings))
	for i, h := range summaryHeadings {
		headings[i] = h
	}
	if err := setRow(f, summarySheet, 2, headings...); err != nil {
		return nil, err
	}
	for i, r := range rollups {
		if err := setRow(f, summarySheet, i+3, r.TenantName, r.Allocated, r.PlannedNormal, r.PlannedDiscretionary,
			r.DistributedNormal, r.DistributedDiscretionary, r.Remaining, r.GrandTotal); err != nil {
			return nil, err
		}
	}

	daily := make([]interface{}, len(dailyHeadings))
	for i, h := range dailyHeadings {
		daily[i] = h
	}
	if err := setRow(f, dailySheet, 1, daily...); err != nil {
		return nil, err
	}
	rowNo := 2
	for _, r := range rollups {
		for _, d := range r.Days {
			if err := setRow(f, dailySheet, rowNo, r.TenantName, d.Date.Format(utils.DateLayout),
				d.PlannedNormal, d.PlannedDiscretionary, d.DistributedNormal, d.DistributedDiscretionary); err != nil {
				return nil, err
			}
			rowNo++
		}
	}
	return f, nil
}

func WriteMonthlyRollupExcel(w io.Writer, month string, rollups []TenantRollup) error {
	f, err := BuildMonthlyRollupWorkbook(month, rollups)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}
