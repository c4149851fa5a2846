package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Simplici0/boqview/internal/boq"
	"github.com/Simplici0/boqview/internal/pricing"
)

// Line is one exported BOQ row with its display depth.
type Line struct {
	Row        boq.Row
	Depth      int
	Aggregated bool
}

// Data is everything GenerateExcel writes.
type Data struct {
	Title   string
	Source  string
	Created string
	Policy  string
	Lines   []Line
	Totals  pricing.Totals
}

// FromSheet collects the recomputed rows of s in input order.
func FromSheet(title, source, created string, s *boq.Sheet) Data {
	rows := s.Rows()
	lines := make([]Line, len(rows))
	for i, r := range rows {
		lines[i] = Line{Row: r, Depth: s.Depth(r.Code), Aggregated: s.Aggregated(i)}
	}
	policy := ""
	if p := s.Policy(); p != nil {
		policy = p.Name()
	}
	return Data{
		Title:   title,
		Source:  source,
		Created: created,
		Policy:  policy,
		Lines:   lines,
		Totals:  s.Totals(),
	}
}

const (
	headerRow = 5
	lastCol   = "H"
)

// GenerateExcel renders data as a single-sheet workbook and returns its bytes.
func GenerateExcel(data Data) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(data.Title)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	widths := map[string]float64{"A": 16, "B": 48, "C": 10, "D": 8, "E": 14, "F": 16, "G": 10, "H": 16}
	for col, w := range widths {
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return nil, fmt.Errorf("set col width %s: %w", col, err)
		}
	}

	st, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	if err := f.MergeCell(sheet, "A1", lastCol+"1"); err != nil {
		return nil, fmt.Errorf("merge title: %w", err)
	}
	f.SetCellValue(sheet, "A1", sanitizeExcelCell(data.Title))
	f.SetCellStyle(sheet, "A1", lastCol+"1", st.title)

	var info []string
	if data.Source != "" {
		info = append(info, "Source: "+data.Source)
	}
	if data.Created != "" {
		info = append(info, "Created: "+data.Created)
	}
	if data.Policy != "" {
		info = append(info, "Rollup: "+data.Policy)
	}
	for i, text := range info {
		cell := fmt.Sprintf("A%d", i+2)
		f.SetCellValue(sheet, cell, sanitizeExcelCell(text))
		f.SetCellStyle(sheet, cell, cell, st.subtitle)
	}

	for i, label := range boq.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		f.SetCellValue(sheet, cell, label)
	}
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", headerRow), fmt.Sprintf("%s%d", lastCol, headerRow), st.header)

	row := headerRow + 1
	for _, l := range data.Lines {
		r := l.Row
		n := fmt.Sprint(row)

		f.SetCellValue(sheet, "A"+n, sanitizeExcelCell(r.Code))
		f.SetCellValue(sheet, "B"+n, strings.Repeat("  ", l.Depth)+sanitizeExcelCell(r.Description))
		setAmount(f, sheet, "C"+n, r.Quantity)
		f.SetCellValue(sheet, "D"+n, sanitizeExcelCell(r.Unit))
		setAmount(f, sheet, "E"+n, r.Rate)
		setAmount(f, sheet, "F"+n, r.Subtotal)
		setAmount(f, sheet, "G"+n, r.Markup)
		setAmount(f, sheet, "H"+n, r.Total)

		style := st.item
		if l.Aggregated {
			style = st.aggregate
		}
		f.SetCellStyle(sheet, "A"+n, lastCol+n, style)
		row++
	}

	row++
	n := fmt.Sprint(row)
	f.SetCellValue(sheet, "E"+n, "Grand total:")
	f.SetCellStyle(sheet, "E"+n, "E"+n, st.summaryLabel)
	f.SetCellValue(sheet, "F"+n, data.Totals.Subtotal)
	f.SetCellValue(sheet, "H"+n, data.Totals.Total)
	f.SetCellStyle(sheet, "F"+n, lastCol+n, st.summaryValue)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

type styles struct {
	title, subtitle, header, item, aggregate, summaryLabel, summaryValue int
}

func newStyles(f *excelize.File) (styles, error) {
	var (
		st  styles
		err error
	)
	amount := "#,##0.00"

	if st.title, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}}); err != nil {
		return st, fmt.Errorf("create title style: %w", err)
	}
	if st.subtitle, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Size: 10, Color: "#555555"}}); err != nil {
		return st, fmt.Errorf("create subtitle style: %w", err)
	}
	st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#333333"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorders(),
	})
	if err != nil {
		return st, fmt.Errorf("create header style: %w", err)
	}
	st.item, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Size: 10},
		Border:       thinBorders(),
		CustomNumFmt: &amount,
	})
	if err != nil {
		return st, fmt.Errorf("create item style: %w", err)
	}
	st.aggregate, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true, Size: 10},
		Fill:         excelize.Fill{Type: "pattern", Color: []string{"#F2F2F2"}, Pattern: 1},
		Border:       thinBorders(),
		CustomNumFmt: &amount,
	})
	if err != nil {
		return st, fmt.Errorf("create aggregate style: %w", err)
	}
	st.summaryLabel, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return st, fmt.Errorf("create summary label style: %w", err)
	}
	st.summaryValue, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true, Size: 11},
		CustomNumFmt: &amount,
	})
	if err != nil {
		return st, fmt.Errorf("create summary value style: %w", err)
	}
	return st, nil
}

func setAmount(f *excelize.File, sheet, cell string, c boq.Cell) {
	if !c.Set {
		return
	}
	f.SetCellValue(sheet, cell, c.Value)
}

// sheetName trims title to a valid worksheet name.
func sheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '-'
		}
		return r
	}, strings.TrimSpace(title))
	if runes := []rune(name); len(runes) > 31 {
		name = string(runes[:31])
	}
	if name == "" {
		name = "BOQ"
	}
	return name
}

// sanitizeExcelCell prefixes a quote to text that Excel would read as a formula.
func sanitizeExcelCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{Type: side, Color: "#000000", Style: 1}
	}
	return borders
}
