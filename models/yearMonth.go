package models

import (
	"fmt"
	"time"

	"github.com/mmdatafocus/lpg_backend/utils"
)

// YearMonth is a calendar month, formatted "2006-01".
type YearMonth struct {
	Year  int
	Month time.Month
}

func ParseYearMonth(value string) (YearMonth, error) {
	t, err := time.Parse("2006-01", value)
	if err != nil {
		return YearMonth{}, fmt.Errorf("invalid month %q (want YYYY-MM): %w", value, err)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

func (m YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m YearMonth) IsValid() bool {
	return m.Year > 0 && m.Month >= time.January && m.Month <= time.December
}

func (m YearMonth) FirstDay() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

func (m YearMonth) LastDay() time.Time {
	return time.Date(m.Year, m.Month, m.Days(), 0, 0, 0, 0, time.UTC)
}

func (m YearMonth) Days() int {
	return utils.DaysInMonth(m.Year, m.Month)
}

func (m YearMonth) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *YearMonth) UnmarshalText(b []byte) error {
	v, err := ParseYearMonth(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
