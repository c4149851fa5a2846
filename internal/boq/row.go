package boq

import (
	"strconv"
	"strings"
	"unicode"
)

// Provenance tags where a cell value came from.
type Provenance int

const (
	// Computed values are derived by the engine and replaced on every recompute.
	Computed Provenance = iota
	// Uploaded values came from the source data and are never overwritten by the
	// derived pass.
	Uploaded
)

func (p Provenance) String() string {
	if p == Uploaded {
		return "uploaded"
	}
	return "computed"
}

// Cell is one numeric field of a row. Set is false for a blank cell.
type Cell struct {
	Value      float64
	Set        bool
	Provenance Provenance
}

// Blank reports whether the cell holds no value.
func (c Cell) Blank() bool { return !c.Set }

// Uploaded reports whether the cell was supplied by the source data.
func (c Cell) Uploaded() bool { return c.Set && c.Provenance == Uploaded }

func computed(v float64) Cell { return Cell{Value: v, Set: true, Provenance: Computed} }

// Record is one raw input line in the fixed column order
// CODE, DESCRIPTION, QTY, UNIT, RATE, SUBTOTAL, MARKUP, TOTAL.
type Record [8]string

// Column positions within a Record.
const (
	ColCode = iota
	ColDescription
	ColQuantity
	ColUnit
	ColRate
	ColSubtotal
	ColMarkup
	ColTotal
)

// Columns are the header labels in Record order.
var Columns = [8]string{"CODE", "DESCRIPTION", "QTY", "UNIT", "RATE", "SUBTOTAL", "MARKUP", "TOTAL"}

// Row is one BOQ line item.
type Row struct {
	// Index is the row's position in the input; it breaks parent ties.
	Index       int
	Code        string
	Description string
	Unit        string
	Quantity    Cell
	Rate        Cell
	Subtotal    Cell
	Markup      Cell
	Total       Cell
}

// IsRate reports whether the row is a rate row.
func (r Row) IsRate() bool { return IsRateCode(r.Code) }

// NewRow materializes a row from raw text. Quantity and rate that do not parse
// become 0; a markup that does not parse is left blank. Subtotal, markup and total
// are tagged uploaded whenever their text is non-empty.
func NewRow(index int, rec Record) Row {
	r := Row{
		Index:       index,
		Code:        strings.TrimSpace(rec[ColCode]),
		Description: strings.TrimSpace(rec[ColDescription]),
		Unit:        strings.TrimSpace(rec[ColUnit]),
		Quantity:    textCell(rec[ColQuantity]),
		Rate:        textCell(rec[ColRate]),
		Subtotal:    textCell(rec[ColSubtotal]),
		Markup:      textCell(rec[ColMarkup]),
		Total:       textCell(rec[ColTotal]),
	}
	if r.Markup.Set {
		if _, ok := ParseAmount(rec[ColMarkup]); !ok {
			r.Markup = Cell{}
		}
	}
	return r
}

// RowsFromRecords materializes records in order.
func RowsFromRecords(records []Record) []Row {
	rows := make([]Row, len(records))
	for i, rec := range records {
		rows[i] = NewRow(i, rec)
	}
	return rows
}

// ParseAmount parses free numeric text such as "$1,234.50", "12%" or "(300)".
// ok is false when the text is blank or holds no number.
func ParseAmount(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")") {
		negative = true
		text = text[1 : len(text)-1]
	}

	var b strings.Builder
	for _, r := range text {
		switch {
		case unicode.IsDigit(r), r == '.', r == '-', r == '+', r == 'e', r == 'E':
			b.WriteRune(r)
		case r == ',', r == '%', r == '_', unicode.IsSpace(r), unicode.Is(unicode.Sc, r):
		default:
			return 0, false
		}
	}

	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

// textCell sets the cell for any non-blank text; text that does not parse
// counts as 0.
func textCell(text string) Cell {
	if strings.TrimSpace(text) == "" {
		return Cell{}
	}
	v, _ := ParseAmount(text)
	return Cell{Value: v, Set: true, Provenance: Uploaded}
}
