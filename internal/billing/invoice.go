package billing

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"mess-backend/internal/attendance"
	"mess-backend/internal/profiles"
)

const (
	invoiceTitle = "MESS BILL INVOICE"
	footerNote   = "This is an electronically generated invoice."
)

// Header は config.Institution から作る。Footer は空なら印字しない
type Header struct {
	Name     string
	Subtitle string
	Footer   string
}

type Row struct {
	Description string
	Count       string // "20 Days" / "5 Plates" / "-"
	Rate        string
	Amount      string
	Bold        bool
}

// Invoice は1学生1か月分の請求書
type Invoice struct {
	Header      Header
	Title       string
	Month       string
	Number      string
	GeneratedOn time.Time

	StudentName string
	RegNum      string
	Branch      string
	Year        int

	Breakdown Breakdown
	Rows      []Row
	Footer    []string
}

// NewInvoice lays out the itemized rows. The Total row always shows the bill's stored amount.
func NewInvoice(h Header, bill Bill, records []attendance.Record, p profiles.Profile, now time.Time) (Invoice, error) {
	year, month, err := ParseMonth(bill.Month)
	if err != nil {
		return Invoice{}, err
	}
	br := Calculate(bill.Rates, records, year, month)

	inv := Invoice{
		Header:      h,
		Title:       invoiceTitle,
		Month:       bill.Month,
		Number:      bill.ULID,
		GeneratedOn: now,
		StudentName: p.Username,
		RegNum:      p.RegNum,
		Branch:      p.Branch,
		Year:        p.Year,
		Breakdown:   br,
		Footer:      []string{footerNote},
	}
	if h.Footer != "" {
		inv.Footer = append(inv.Footer, h.Footer)
	}
	inv.Rows = []Row{
		{Description: "Food Charges (Veg/Base)", Count: strconv.Itoa(br.PresentDays) + " Days", Rate: money(bill.DailyRate), Amount: money(br.FoodBase)},
		{Description: "Non-Veg Add-ons", Count: strconv.Itoa(br.NonVegCount) + " Plates", Rate: money(bill.NVPlateRate), Amount: money(br.NonVegAddOn)},
		fixedRow("Room Rent", bill.RoomRent),
		fixedRow("Water Charges", bill.WaterCharges),
		fixedRow("Electricity Charges", bill.ElectricityCharges),
		fixedRow("Establishment Charges", bill.EstablishmentCharges),
		{Description: "TOTAL AMOUNT DUE", Amount: money(bill.Amount), Bold: true},
	}
	return inv, nil
}

func fixedRow(desc string, v decimal.Decimal) Row {
	return Row{Description: desc, Count: "-", Rate: "-", Amount: money(v)}
}

// Filename: Mess_Bill_<month>_<reg_num>.pdf
func (inv Invoice) Filename() string {
	return fmt.Sprintf("Mess_Bill_%s_%s.pdf", inv.Month, inv.RegNum)
}
