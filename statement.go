package walletgo

import (
	"fmt"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

const (
	stmtDateLayout = "2006-01-02"
)

type statement struct {
	AcctID    snowflake.ID
	Opening   decimal.Decimal
	Closing   decimal.Decimal
	Movements []Movement
	IssuedAt  time.Time
}

// openingBalance walks the history back from the current balance.
func openingBalance(closing decimal.Decimal, mvs []Movement) decimal.Decimal {
	opening := closing
	for _, m := range mvs {
		opening = opening.Sub(m.Signed())
	}
	return opening
}

func (s statement) render(w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Statement %s", s.AcctID), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Account statement")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Account: %s", s.AcctID))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Issued: %s", s.IssuedAt.Format(stmtDateLayout)))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Opening balance: %s", s.Opening.StringFixed(2)))
	pdf.Ln(10)

	widths := []float64{35, 35, 45, 45}
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range []string{"Date", "Type", "Amount", "Balance"} {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	running := s.Opening
	for _, m := range s.Movements {
		running = running.Add(m.Signed())
		typ := "withdrawal"
		if m.IsDeposit() {
			typ = "deposit"
		}
		pdf.CellFormat(widths[0], 6, m.Date().Format(stmtDateLayout), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, typ, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, m.Signed().StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, running.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Closing balance: %s", s.Closing.StringFixed(2)))

	return pdf.Output(w)
}
