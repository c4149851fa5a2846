package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Simplici0/boqview/internal/boq"
)

// ErrUnsupportedFormat is returned for anything but .csv and .xlsx files.
var ErrUnsupportedFormat = errors.New("unsupported file format: must be .csv or .xlsx")

var headerCodes = map[string]bool{
	"code":      true,
	"item code": true,
	"item":      true,
}

// Parse reads BOQ rows from an uploaded file, picking the reader from the file
// extension.
func Parse(r io.Reader, fileName string) ([]boq.Record, error) {
	var (
		raw [][]string
		err error
	)
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		raw, err = parseCSV(r)
	case ".xlsx":
		raw, err = parseExcel(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, fileName)
	}
	if err != nil {
		return nil, err
	}
	return toRecords(raw), nil
}

func parseCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}

func parseExcel(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}
	return rows, nil
}

func toRecords(raw [][]string) []boq.Record {
	if len(raw) > 0 && isHeader(raw[0]) {
		raw = raw[1:]
	}

	out := make([]boq.Record, 0, len(raw))
	for _, cells := range raw {
		var rec boq.Record
		blank := true
		for i := 0; i < len(rec) && i < len(cells); i++ {
			rec[i] = strings.TrimSpace(cells[i])
			if rec[i] != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func isHeader(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	first := strings.TrimPrefix(cells[0], "\ufeff")
	return headerCodes[strings.ToLower(strings.TrimSpace(first))]
}
