package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"mess-backend/internal/attendance"
)

// Breakdown は請求書の明細表示用。丸めは表示時のみ
type Breakdown struct {
	DaysInMonth int
	PresentDays int
	AbsentDays  int
	VegCount    int
	NonVegCount int
	FoodBase    decimal.Decimal // PresentDays × DailyRate
	NonVegAddOn decimal.Decimal // NonVegCount × NVPlateRate
	FoodCost    decimal.Decimal
	FixedCost   decimal.Decimal
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Calculate counts only present records of the target month. AbsentDays is informational.
func Calculate(r Rates, records []attendance.Record, year int, month time.Month) Breakdown {
	b := Breakdown{DaysInMonth: daysIn(year, month)}
	for _, rec := range records {
		if !rec.IsPresent || rec.Date.Year() != year || rec.Date.Month() != month {
			continue
		}
		b.PresentDays++
		switch rec.MealType {
		case attendance.MealVeg:
			b.VegCount++
		case attendance.MealNonVeg:
			b.NonVegCount++
		}
	}
	b.AbsentDays = b.DaysInMonth - b.PresentDays

	b.FoodBase = r.DailyRate.Mul(decimal.NewFromInt(int64(b.PresentDays)))
	b.NonVegAddOn = r.NVPlateRate.Mul(decimal.NewFromInt(int64(b.NonVegCount)))
	b.FoodCost = b.FoodBase.Add(b.NonVegAddOn)
	b.FixedCost = r.Fixed()
	return b
}
