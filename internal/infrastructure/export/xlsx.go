package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"finanzas/internal/domain/ledger"
)

const (
	// ContentType is the MIME type of the workbook WriteXLSX produces.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	sheetName = "Historial"
)

var headers = []string{"Fecha", "Nombre", "Categoría", "Tipo", "Monto", "Estado", "Vencimiento"}

// WriteXLSX writes entries as a single-sheet workbook followed by the
// summary of those entries.
func WriteXLSX(w io.Writer, entries []*ledger.Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := fill(&sheet{cells: f, name: sheetName}, entries); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// fill lays out the header row, one row per entry and the totals block.
func fill(s *sheet, entries []*ledger.Entry) error {
	for i, header := range headers {
		s.set(i+1, 1, header)
	}

	for i, e := range entries {
		row := i + 2
		s.set(1, row, e.CreatedAt.Format("02/01/2006"))
		s.set(2, row, e.Name)
		s.set(3, row, e.Category)
		s.set(4, row, string(e.Kind))
		s.set(5, row, e.Amount.InexactFloat64())
		s.set(6, row, statusLabel(e))
		if e.DueDate != nil {
			s.set(7, row, e.DueDate.Format("02/01/2006"))
		}
	}

	summary := ledger.Summarize(entries)
	row := len(entries) + 3
	totals := []struct {
		label string
		value float64
	}{
		{"Balance", summary.Balance.InexactFloat64()},
		{"Ingresos cobrados", summary.SettledIncome.InexactFloat64()},
		{"Egresos pagados", summary.SettledExpenses.InexactFloat64()},
		{"Por cobrar", summary.PendingIncome.InexactFloat64()},
		{"Por pagar", summary.PendingExpenses.InexactFloat64()},
	}
	for i, t := range totals {
		s.set(4, row+i, t.label)
		s.set(5, row+i, t.value)
	}

	return s.err
}

type cellSetter interface {
	SetCellValue(sheet, cell string, value any) error
}

// sheet writes cells of one worksheet and keeps the first error. Later
// writes are skipped once one has failed.
type sheet struct {
	cells cellSetter
	name  string
	err   error
}

func (s *sheet) set(col, row int, value any) {
	if s.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		s.err = fmt.Errorf("failed to address cell: %w", err)
		return
	}
	if err := s.cells.SetCellValue(s.name, cell, value); err != nil {
		s.err = fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
}

// FileName returns the download name for an export taken at the given stamp.
func FileName(stamp string) string {
	return fmt.Sprintf("finanzas_%s.xlsx", stamp)
}

func statusLabel(e *ledger.Entry) string {
	switch {
	case e.Paid && e.Kind == ledger.KindIncome:
		return "Cobrado"
	case e.Paid:
		return "Pagado"
	case e.Kind == ledger.KindIncome:
		return "Por cobrar"
	default:
		return "Por pagar"
	}
}
