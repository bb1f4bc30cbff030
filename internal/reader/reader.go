// Package reader loads rows from processor residual files (CSV and XLSX).
package reader

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Rows is a parsed file: the header row plus every data row.
type Rows struct {
	Header []string
	Data   [][]string
}

// ReadFile parses a residual file by extension. Unsupported extensions are a
// file-level failure.
func ReadFile(path string) (*Rows, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(path)
	case ".xlsx":
		return ReadXLSX(path)
	default:
		return nil, eris.Errorf("reader: unsupported file type %s", filepath.Ext(path))
	}
}

// ReadCSV reads a CSV file with the first row as header. Some processors
// prepend a title row with fewer cells than the header; it is skipped.
func ReadCSV(path string) (*Rows, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "reader: open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // allow variable fields
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "reader: parse csv %s", path)
	}
	if len(records) >= 2 && len(records[0]) < len(records[1]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, eris.Errorf("reader: %s is empty", path)
	}

	return &Rows{
		Header: trimAll(records[0]),
		Data:   records[1:],
	}, nil
}

// ReadXLSX reads the first worksheet of an XLSX file with the first row as
// header.
func ReadXLSX(path string) (*Rows, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "reader: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("reader: %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	var rows [][]string
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("reader: %s is empty", path)
	}

	return &Rows{
		Header: trimAll(rows[0]),
		Data:   rows[1:],
	}, nil
}

func trimAll(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = strings.TrimSpace(c)
	}
	return out
}
