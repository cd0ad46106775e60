package billing

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

var (
	primaryColor   = [3]int{29, 78, 216}
	secondaryColor = [3]int{55, 65, 81}
	totalFill      = [3]int{240, 240, 240}
)

// RenderPDF writes the invoice as a single A4 page.
func RenderPDF(inv Invoice, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-16)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(150, 150, 150)
		for _, line := range inv.Footer {
			pdf.CellFormat(0, 4, line, "", 1, "C", false, 0, "")
		}
	})
	pdf.AddPage()

	// ヘッダー帯
	pdf.SetFillColor(primaryColor[0], primaryColor[1], primaryColor[2])
	pdf.Rect(0, 0, 210, 40, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(0, 12)
	pdf.CellFormat(210, 8, inv.Header.Name, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.SetX(0)
	pdf.CellFormat(210, 8, inv.Header.Subtitle, "", 1, "C", false, 0, "")

	// メタ情報
	pdf.SetTextColor(secondaryColor[0], secondaryColor[1], secondaryColor[2])
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Text(14, 55, inv.Title)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(14, 62, "Month: "+inv.Month)
	pdf.Text(14, 68, "Invoice Date: "+inv.GeneratedOn.Format("02/01/2006"))
	if inv.Number != "" {
		pdf.Text(100, 62, "Invoice No: "+inv.Number)
		if err := placeQR(pdf, inv.Number, 170, 44, 26); err != nil {
			return err
		}
	}
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(14, 72, 196, 72)

	// 学生情報
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Text(14, 80, "Student Details:")
	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(14, 86, "Name: "+inv.StudentName)
	pdf.Text(14, 92, "Reg No: "+inv.RegNum)
	pdf.Text(100, 86, "Branch: "+inv.Branch)
	pdf.Text(100, 92, fmt.Sprintf("Year: %d", inv.Year))

	// 明細表
	widths := []float64{80, 34, 30, 38}
	pdf.SetXY(14, 100)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(primaryColor[0], primaryColor[1], primaryColor[2])
	pdf.SetTextColor(255, 255, 255)
	for i, h := range []string{"Description", "Days/Count", "Rate", "Amount (Rs.)"} {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetTextColor(secondaryColor[0], secondaryColor[1], secondaryColor[2])
	for _, r := range inv.Rows {
		if r.Bold {
			pdf.SetFont("Helvetica", "B", 9)
			pdf.SetFillColor(totalFill[0], totalFill[1], totalFill[2])
			pdf.CellFormat(widths[0]+widths[1]+widths[2], 8, r.Description, "1", 0, "L", true, 0, "")
			pdf.CellFormat(widths[3], 8, r.Amount, "1", 1, "L", true, 0, "")
			continue
		}
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(widths[0], 8, r.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 8, r.Count, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 8, r.Rate, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 8, r.Amount, "1", 1, "L", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("billing: render pdf: %w", err)
	}
	return pdf.Output(w)
}

func placeQR(pdf *gofpdf.Fpdf, content string, x, y, size float64) error {
	png, err := qrcode.Encode(content, qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("billing: qr: %w", err)
	}
	opt := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("invoice-qr", opt, bytes.NewReader(png))
	pdf.ImageOptions("invoice-qr", x, y, size, size, false, opt, 0, "")
	return nil
}
