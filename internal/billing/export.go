package billing

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

var exportHeader = []any{
	"Bill ID", "Invoice No", "Reg No", "Name", "Month",
	"Daily Rate", "NV Plate Rate", "Room Rent", "Water", "Electricity", "Establishment",
	"Amount", "Paid",
}

// WriteXLSX writes one row per bill. Amount cells are numeric.
func WriteXLSX(month string, bills []Bill, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Bills " + month
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("billing: xlsx sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1D4ED8"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "M1", headerStyle); err != nil {
		return err
	}

	for i, b := range bills {
		paid := "No"
		if b.IsPaid {
			paid = "Yes"
		}
		row := []any{
			b.ID, b.ULID, b.RegNum, b.StudentName, b.Month,
			b.DailyRate.InexactFloat64(), b.NVPlateRate.InexactFloat64(),
			b.RoomRent.InexactFloat64(), b.WaterCharges.InexactFloat64(),
			b.ElectricityCharges.InexactFloat64(), b.EstablishmentCharges.InexactFloat64(),
			b.Amount.InexactFloat64(), paid,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(sheet, "B", "B", 30)
	_ = f.SetColWidth(sheet, "C", "D", 16)

	return f.Write(w)
}
