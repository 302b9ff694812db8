package complaint

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/gyeh/billaudit/internal/model"
	"github.com/gyeh/billaudit/internal/normalize"
)

const letterTitle = "FORMAL COMPLAINT - MEDICAL BILL OVERCHARGING"

// Letter is what goes on the PDF.
type Letter struct {
	Text             string
	Items            []model.LineItem // overpriced items for the summary table
	TotalCharged     float64
	PotentialSavings float64
	Currency         string // defaults to INR
	Date             time.Time
}

// LetterFromAudit pairs a drafted text with the audit it complains about.
func LetterFromAudit(text string, result *model.AuditResult, date time.Time) Letter {
	return Letter{
		Text:             text,
		Items:            result.FlaggedItems(),
		TotalCharged:     result.TotalAmount,
		PotentialSavings: result.PotentialSavings,
		Date:             date,
	}
}

// RenderPDF writes letter as an A4 PDF to w.
func RenderPDF(w io.Writer, letter Letter) error {
	cur := letter.Currency
	if cur == "" {
		cur = "INR"
	}
	date := letter.Date
	if date.IsZero() {
		date = time.Now()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(letterTitle, false)
	pdf.SetCreator("billaudit", false)
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AddPage()
	// Core fonts are cp1252; the rupee sign has no glyph there.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(s string) string { return tr(strings.ReplaceAll(s, "₹", "Rs ")) }

	pdf.SetFont("Helvetica", "B", 15)
	pdf.MultiCell(0, 8, letterTitle, "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, "Date: "+date.Format("2 January 2006"), "", 1, "L", false, 0, "")
	pdf.Ln(4)
	pdf.MultiCell(0, 5.5, text(letter.Text), "", "L", false)
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, "Bill Summary", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Total Charged: %s %s", cur, normalize.Amount(letter.TotalCharged).StringFixed(2)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(204, 0, 0)
	pdf.CellFormat(0, 6, fmt.Sprintf("Total Potential Savings: %s %s", cur, normalize.Amount(letter.PotentialSavings).StringFixed(2)), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	if len(letter.Items) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, "Overpriced Items", "", 1, "L", false, 0, "")

		widths := []float64{84, 30, 30, 30}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range []string{"Service", "Charged", "Standard", "Excess"} {
			align := "R"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 7, h, "1", 0, align, true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Helvetica", "", 10)
		for _, it := range letter.Items {
			pdf.CellFormat(widths[0], 6, text(truncate(it.Service, 48)), "1", 0, "L", false, 0, "")
			pdf.CellFormat(widths[1], 6, normalize.Amount(it.Price).StringFixed(2), "1", 0, "R", false, 0, "")
			pdf.CellFormat(widths[2], 6, normalize.Amount(it.StandardPrice).StringFixed(2), "1", 0, "R", false, 0, "")
			pdf.CellFormat(widths[3], 6, normalize.Amount(it.Savings).StringFixed(2), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
