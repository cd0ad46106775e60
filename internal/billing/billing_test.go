package billing

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"mess-backend/internal/attendance"
	"mess-backend/internal/profiles"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleRates() Rates {
	return Rates{
		DailyRate:            d("65"),
		NVPlateRate:          d("27"),
		RoomRent:             d("150"),
		WaterCharges:         d("125"),
		ElectricityCharges:   d("150"),
		EstablishmentCharges: d("275"),
	}
}

// 2025-01 に出席20日（うち Non-Veg 5日）、欠席2日、別月の出席1日
func januaryRecords() []attendance.Record {
	var recs []attendance.Record
	id := uint64(1)
	for day := 1; day <= 20; day++ {
		meal := attendance.MealVeg
		if day <= 5 {
			meal = attendance.MealNonVeg
		}
		recs = append(recs, attendance.Record{ID: id, Date: time.Date(2025, time.January, day, 0, 0, 0, 0, time.UTC), IsPresent: true, MealType: meal})
		id++
	}
	recs = append(recs,
		attendance.Record{ID: 90, Date: time.Date(2025, time.January, 21, 0, 0, 0, 0, time.UTC), IsPresent: false, MealType: attendance.MealNonVeg},
		attendance.Record{ID: 91, Date: time.Date(2025, time.January, 22, 0, 0, 0, 0, time.UTC), IsPresent: false},
		attendance.Record{ID: 92, Date: time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC), IsPresent: true, MealType: attendance.MealNonVeg},
	)
	return recs
}

func TestCalculate(t *testing.T) {
	b := Calculate(sampleRates(), januaryRecords(), 2025, time.January)

	assert.Equal(t, 31, b.DaysInMonth)
	assert.Equal(t, 20, b.PresentDays)
	assert.Equal(t, 11, b.AbsentDays)
	assert.Equal(t, 15, b.VegCount)
	assert.Equal(t, 5, b.NonVegCount)
	assert.True(t, d("1300").Equal(b.FoodBase))
	assert.True(t, d("135").Equal(b.NonVegAddOn))
	assert.True(t, d("1435").Equal(b.FoodCost), b.FoodCost.String())
	assert.True(t, d("700").Equal(b.FixedCost))
}

func TestCalculateLeapFebruary(t *testing.T) {
	assert.Equal(t, 29, Calculate(Rates{}, nil, 2024, time.February).DaysInMonth)
	assert.Equal(t, 28, Calculate(Rates{}, nil, 2025, time.February).AbsentDays)
}

func TestRatesAmount(t *testing.T) {
	assert.Equal(t, "2135.00", sampleRates().Amount(20, 5).StringFixed(2))
	assert.Equal(t, "700.00", sampleRates().Amount(0, 0).StringFixed(2))
}

func TestLatestHighestIDWins(t *testing.T) {
	bills := []Bill{
		{ID: 3, Month: "2025-01", Amount: d("100")},
		{ID: 7, Month: "2025-01", Amount: d("300")},
		{ID: 5, Month: "2025-01", Amount: d("200")},
		{ID: 9, Month: "2025-02"},
	}
	b, ok := Latest(bills, "2025-01")
	require.True(t, ok)
	assert.Equal(t, uint64(7), b.ID)

	_, ok = Latest(bills, "2024-12")
	assert.False(t, ok)

	b, ok = LatestOverall(bills)
	require.True(t, ok)
	assert.Equal(t, uint64(9), b.ID)

	_, ok = LatestOverall(nil)
	assert.False(t, ok)
}

func TestAuthoritative(t *testing.T) {
	bills := []Bill{
		{ID: 3, StudentID: 1, Month: "2025-01"},
		{ID: 4, StudentID: 2, Month: "2025-01"},
		{ID: 7, StudentID: 1, Month: "2025-01"},
		{ID: 5, StudentID: 1, Month: "2025-01"},
	}
	got := Authoritative(bills)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(7), got[0].ID)
	assert.Equal(t, uint64(4), got[1].ID)
}

func TestAuthoritativeResponses(t *testing.T) {
	got := AuthoritativeResponses([]BillResponse{
		{ID: 3, Student: 1, Month: "2025-01", IsPaid: true},
		{ID: 8, Student: 1, Month: "2025-02"},
		{ID: 7, Student: 1, Month: "2025-01"},
	})
	require.Len(t, got, 2)
	assert.Equal(t, uint64(7), got[0].ID)
	assert.False(t, got[0].IsPaid)
	assert.Equal(t, uint64(8), got[1].ID)
}

func sampleInvoice(t *testing.T) Invoice {
	t.Helper()
	bill := Bill{
		ID:     7,
		ULID:   "01JH8Z3V6W9Q2K4M5N6P7R8S9T",
		Month:  "2025-01",
		Amount: d("2000.5"), // 単価変更後の古い金額でもそのまま表示する
		Rates:  sampleRates(),
	}
	p := profiles.Profile{UserID: 11, RegNum: "2101", Branch: "MCA", Year: 2, Username: "ravi"}
	inv, err := NewInvoice(Header{Name: "S.V.U. College", Subtitle: "Hostel For Men, Tirupathi", Footer: "S.V.U. Hostel Application - Minor Project"}, bill, januaryRecords(), p,
		time.Date(2025, time.February, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return inv
}

func TestNewInvoiceRows(t *testing.T) {
	inv := sampleInvoice(t)

	want := []string{
		"Food Charges (Veg/Base)", "Non-Veg Add-ons", "Room Rent", "Water Charges",
		"Electricity Charges", "Establishment Charges", "TOTAL AMOUNT DUE",
	}
	require.Len(t, inv.Rows, len(want))
	for i, w := range want {
		assert.Equal(t, w, inv.Rows[i].Description)
	}

	assert.Equal(t, Row{Description: "Food Charges (Veg/Base)", Count: "20 Days", Rate: "65.00", Amount: "1300.00"}, inv.Rows[0])
	assert.Equal(t, Row{Description: "Non-Veg Add-ons", Count: "5 Plates", Rate: "27.00", Amount: "135.00"}, inv.Rows[1])
	assert.Equal(t, Row{Description: "Room Rent", Count: "-", Rate: "-", Amount: "150.00"}, inv.Rows[2])

	total := inv.Rows[6]
	assert.True(t, total.Bold)
	assert.Equal(t, "2000.50", total.Amount, "stored amount, not 1435 + 700")

	assert.Equal(t, "Mess_Bill_2025-01_2101.pdf", inv.Filename())
	assert.Equal(t, []string{"This is an electronically generated invoice.", "S.V.U. Hostel Application - Minor Project"}, inv.Footer)
}

func TestNewInvoiceFooterFromHeader(t *testing.T) {
	bill := Bill{ID: 1, Month: "2025-01", Amount: decimal.NewFromInt(700)}
	inv, err := NewInvoice(Header{Name: "Other Hostel", Footer: "Other Hostel Mess Office"}, bill, nil, profiles.Profile{RegNum: "9"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"This is an electronically generated invoice.", "Other Hostel Mess Office"}, inv.Footer)

	inv, err = NewInvoice(Header{Name: "Other Hostel"}, bill, nil, profiles.Profile{RegNum: "9"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"This is an electronically generated invoice."}, inv.Footer)
}

func TestNewInvoiceBadMonth(t *testing.T) {
	_, err := NewInvoice(Header{}, Bill{Month: "January 2025"}, nil, profiles.Profile{}, time.Now())
	assert.Error(t, err)
}

func TestRenderPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPDF(sampleInvoice(t), &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestWriteXLSX(t *testing.T) {
	bills := []Bill{
		{ID: 7, ULID: "01JH8Z3V6W9Q2K4M5N6P7R8S9T", RegNum: "2101", StudentName: "ravi", Month: "2025-01", Amount: d("2135"), IsPaid: true, Rates: sampleRates()},
		{ID: 8, ULID: "01JH8Z3V6W9Q2K4M5N6P7R8S9V", RegNum: "2102", StudentName: "suresh", Month: "2025-01", Amount: d("700"), Rates: sampleRates()},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX("2025-01", bills, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Bills 2025-01")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Reg No", rows[0][2])
	assert.Equal(t, "2101", rows[1][2])
	assert.Equal(t, "2135", rows[1][11])
	assert.Equal(t, "Yes", rows[1][12])
	assert.Equal(t, "No", rows[2][12])
}

func TestParseMonth(t *testing.T) {
	y, m, err := ParseMonth(" 2025-01 ")
	require.NoError(t, err)
	assert.Equal(t, 2025, y)
	assert.Equal(t, time.January, m)

	_, _, err = ParseMonth("2025-13")
	assert.Error(t, err)
	assert.Equal(t, "March 2024", MonthLabel("2024-03"))
	assert.Equal(t, "garbage", MonthLabel("garbage"))
}
