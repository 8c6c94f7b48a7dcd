package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes t with a header row.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write %s header: %w", t.Name, err)
	}
	record := make([]string, len(t.Header))
	for _, row := range t.Rows {
		for i, cell := range row {
			record[i] = cellString(cell)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write %s row: %w", t.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSV loads dataset and writes it to w.
func (s *Service) CSV(ctx context.Context, w io.Writer, dataset string, q Query) error {
	t, err := s.Table(ctx, dataset, q)
	if err != nil {
		return err
	}
	return WriteCSV(w, t)
}
