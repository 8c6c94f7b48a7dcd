package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
)

const (
	backupStamp = "20060102_150405"
	mimeXLSX    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeCSV     = "text/csv"
)

// csvFiles names each dataset inside a backup's csv directory.
var csvFiles = map[string]string{
	DatasetPatients: "patients.csv",
	DatasetReports:  "blood_reports.csv",
	DatasetBills:    "bills.csv",
	DatasetResults:  "test_results.csv",
}

// Backup writes the full workbook and every dataset as CSV to the archiver,
// all named with the same timestamp. It returns the object names written.
func (s *Service) Backup(ctx context.Context) ([]string, error) {
	if s.archive == nil {
		return nil, errors.New("backup: no archiver configured")
	}
	stamp := s.now().Format(backupStamp)

	tables := make([]*Table, 0, len(Datasets))
	for _, name := range Datasets {
		t, err := s.Table(ctx, name, Query{})
		if err != nil {
			return nil, fmt.Errorf("backup %s: %w", name, err)
		}
		tables = append(tables, t)
	}

	book, err := buildWorkbook(tables)
	if err != nil {
		return nil, err
	}
	var written []string
	name := fmt.Sprintf("lab_data_backup_%s.xlsx", stamp)
	if err := s.archive.Put(ctx, name, book, mimeXLSX); err != nil {
		return written, err
	}
	written = append(written, name)

	for _, t := range tables {
		var buf bytes.Buffer
		if err := WriteCSV(&buf, t); err != nil {
			return written, err
		}
		name := fmt.Sprintf("csv_backup_%s/%s", stamp, csvFiles[t.Name])
		if err := s.archive.Put(ctx, name, buf.Bytes(), mimeCSV); err != nil {
			return written, err
		}
		written = append(written, name)
	}

	s.logger.Info().Str("stamp", stamp).Int("files", len(written)).Msg("backup written")
	return written, nil
}
