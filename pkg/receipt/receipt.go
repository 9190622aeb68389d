package receipt

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/noah-isme/school-fees-api/internal/models"
)

// Data holds everything a fee receipt shows. The renderer is deterministic:
// identical Data yields an identical document.
type Data struct {
	SchoolName    string
	StudentName   string
	ClassName     string
	TransactionID string
	Mode          string
	Date          time.Time
	Amount        int64
	Balance       int64
	Breakdown     models.ComponentAmounts
}

// Renderer produces PDF fee receipts.
type Renderer struct{}

// NewRenderer constructs a receipt renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render creates the receipt document.
func (r *Renderer) Render(data Data) ([]byte, error) {
	if data.StudentName == "" {
		return nil, fmt.Errorf("receipt requires a student name")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(data.Date)
	pdf.SetModificationDate(data.Date)
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	title := data.SchoolName
	if title == "" {
		title = "Fee Receipt"
	}
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 7, "Fee Payment Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "", 10)
	info := [][2]string{
		{"Student", data.StudentName},
		{"Class", data.ClassName},
		{"Transaction ID", data.TransactionID},
		{"Payment Mode", data.Mode},
		{"Date", data.Date.UTC().Format("02 Jan 2006 15:04")},
	}
	for _, pair := range info {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(45, 7, pair[0], "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 7, pair[1], "", 1, "", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(120, 8, "Component", "1", 0, "", false, 0, "")
	pdf.CellFormat(60, 8, "Amount (Rs.)", "1", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, comp := range models.AllComponents {
		amount, ok := data.Breakdown[comp]
		if !ok {
			continue
		}
		pdf.CellFormat(120, 7, componentLabel(comp), "1", 0, "", false, 0, "")
		pdf.CellFormat(60, 7, fmt.Sprintf("%d", amount), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(120, 8, "Total Paid", "1", 0, "", false, 0, "")
	pdf.CellFormat(60, 8, fmt.Sprintf("%d", data.Amount), "1", 1, "R", false, 0, "")
	pdf.CellFormat(120, 8, "Balance Due", "1", 0, "", false, 0, "")
	pdf.CellFormat(60, 8, fmt.Sprintf("%d", data.Balance), "1", 1, "R", false, 0, "")

	pdf.Ln(8)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 6, "This is a system generated receipt and does not require a signature.", "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

func componentLabel(c models.FeeComponent) string {
	switch c {
	case models.ComponentTuitionFirstTerm:
		return "Tuition - First Term"
	case models.ComponentTuitionSecondTerm:
		return "Tuition - Second Term"
	case models.ComponentTransport:
		return "Transport"
	case models.ComponentKit:
		return "Kit"
	}
	return string(c)
}
