package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MonthLayout: bills.month は "YYYY-MM"
const MonthLayout = "2006-01"

// Rates は請求生成時に使った単価のスナップショット
type Rates struct {
	DailyRate            decimal.Decimal
	NVPlateRate          decimal.Decimal
	RoomRent             decimal.Decimal
	WaterCharges         decimal.Decimal
	ElectricityCharges   decimal.Decimal
	EstablishmentCharges decimal.Decimal
}

func (r Rates) Fixed() decimal.Decimal {
	return r.RoomRent.Add(r.WaterCharges).Add(r.ElectricityCharges).Add(r.EstablishmentCharges)
}

// Amount = 出席日数×日額 + Non-Veg 日数×追加単価 + 固定費
func (r Rates) Amount(presentDays, nonVegDays int) decimal.Decimal {
	food := r.DailyRate.Mul(decimal.NewFromInt(int64(presentDays)))
	nv := r.NVPlateRate.Mul(decimal.NewFromInt(int64(nonVegDays)))
	return food.Add(nv).Add(r.Fixed())
}

type Bill struct {
	ID          uint64
	ULID        string
	StudentID   uint64
	RegNum      string
	StudentName string
	Month       string
	Amount      decimal.Decimal
	IsPaid      bool
	GeneratedOn time.Time
	Rates
}

// ParseMonth accepts "YYYY-MM".
func ParseMonth(s string) (int, time.Month, error) {
	t, err := time.Parse(MonthLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("month must be YYYY-MM: %q", s)
	}
	return t.Year(), t.Month(), nil
}

// MonthLabel: "2025-01" → "January 2025"。解釈できなければそのまま
func MonthLabel(s string) string {
	y, m, err := ParseMonth(s)
	if err != nil {
		return s
	}
	return fmt.Sprintf("%s %d", m, y)
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func (b Bill) ToDTO() BillResponse {
	return BillResponse{
		ID:                   b.ID,
		ULID:                 b.ULID,
		Student:              b.StudentID,
		StudentRegNum:        b.RegNum,
		StudentName:          b.StudentName,
		Month:                b.Month,
		Amount:               money(b.Amount),
		IsPaid:               b.IsPaid,
		GeneratedDate:        b.GeneratedOn.Format("2006-01-02"),
		DailyRate:            money(b.DailyRate),
		NVPlateRate:          money(b.NVPlateRate),
		RoomRent:             money(b.RoomRent),
		WaterCharges:         money(b.WaterCharges),
		ElectricityCharges:   money(b.ElectricityCharges),
		EstablishmentCharges: money(b.EstablishmentCharges),
	}
}
