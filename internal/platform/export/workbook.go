package export

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/labdesk/labdesk/pkg/labmodels"
)

// Workbook builds an XLSX file with one sheet per dataset, in Datasets order.
func (s *Service) Workbook(ctx context.Context, q Query) ([]byte, error) {
	tables := make([]*Table, 0, len(Datasets))
	for _, name := range Datasets {
		t, err := s.Table(ctx, name, q)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return buildWorkbook(tables)
}

func buildWorkbook(tables []*Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("workbook style: %w", err)
	}

	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", t.Sheet); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(t.Sheet); err != nil {
			return nil, fmt.Errorf("add sheet %s: %w", t.Sheet, err)
		}
		if err := writeSheet(f, t, bold); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, t *Table, headerStyle int) error {
	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(t.Sheet, "A1", &header); err != nil {
		return fmt.Errorf("%s header: %w", t.Sheet, err)
	}
	if err := f.SetRowStyle(t.Sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("%s header style: %w", t.Sheet, err)
	}

	for i, row := range t.Rows {
		cells := make([]any, len(row))
		for j, c := range row {
			cells[j] = sheetValue(c)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(t.Sheet, cell, &cells); err != nil {
			return fmt.Errorf("%s row %d: %w", t.Sheet, i+2, err)
		}
	}

	last, err := excelize.ColumnNumberToName(len(t.Header))
	if err != nil {
		return err
	}
	return f.SetColWidth(t.Sheet, "A", last, 18)
}

// sheetValue keeps amounts numeric so spreadsheet formulas work on them.
func sheetValue(v any) any {
	switch c := v.(type) {
	case decimal.Decimal:
		return c.InexactFloat64()
	case labmodels.Date, time.Time:
		return cellString(c)
	}
	return v
}
