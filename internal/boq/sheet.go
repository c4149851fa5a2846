package boq

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Simplici0/boqview/internal/pricing"
)

var (
	// ErrRowNotFound is returned when an edit targets a position outside the sheet.
	ErrRowNotFound = errors.New("row not found")
	// ErrNotEditable is returned when an edit targets a row whose values are rolled up.
	ErrNotEditable = errors.New("row is an aggregate and cannot be edited")
	// ErrUnknownField is returned for edits of anything but quantity, rate or markup.
	ErrUnknownField = errors.New("unknown field")
)

// Field names a leaf value that can be edited.
type Field string

const (
	FieldQuantity Field = "quantity"
	FieldRate     Field = "rate"
	FieldMarkup   Field = "markup"
)

// Sheet owns one loaded BOQ: its rows, their hierarchy and the recomputed
// values. It is not safe for concurrent use.
type Sheet struct {
	opts       options
	base       []Row
	rows       []Row
	aggregated []bool
	h          *Hierarchy
}

// NewSheet returns an empty sheet.
func NewSheet(opts ...Option) *Sheet {
	s := &Sheet{opts: newOptions(opts)}
	s.h = Build(nil, opts...)
	return s
}

// LoadRows replaces the sheet content and rebuilds the hierarchy. Row order is
// kept and Index is reset to the position in rows.
func (s *Sheet) LoadRows(rows []Row) {
	s.base = make([]Row, len(rows))
	copy(s.base, rows)
	for i := range s.base {
		s.base[i].Index = i
	}
	s.h = Build(s.base, WithParentFinder(s.opts.finder), WithLogger(s.opts.logger))
	s.rows = append([]Row(nil), s.base...)
	_, s.aggregated = rollup(s.base, s.h, s.opts.policy)

	s.opts.logger.Debug("rows loaded",
		zap.Int("rows", len(s.base)),
		zap.Int("roots", len(s.h.Roots())))
}

// RunDerivedCalculations fills subtotal and total from quantity, rate and markup
// wherever they were not uploaded.
func (s *Sheet) RunDerivedCalculations() {
	Derive(s.base)
	s.rows = append(s.rows[:0], s.base...)
}

// RecomputeRollups recomputes every aggregate from the current leaf values.
func (s *Sheet) RecomputeRollups() {
	s.rows, s.aggregated = rollup(s.base, s.h, s.opts.policy)
}

// Recompute runs the derived pass followed by the rollups.
func (s *Sheet) Recompute() {
	s.RunDerivedCalculations()
	s.RecomputeRollups()
}

// Hierarchy returns a read-only copy of the hierarchy index.
func (s *Sheet) Hierarchy() Snapshot {
	return s.h.Snapshot()
}

// Index returns the hierarchy index itself.
func (s *Sheet) Index() *Hierarchy {
	return s.h
}

// Policy returns the inclusion policy in use.
func (s *Sheet) Policy() Policy {
	return s.opts.policy
}

// Len returns the number of rows.
func (s *Sheet) Len() int {
	return len(s.rows)
}

// Rows returns a copy of the rows with their current values.
func (s *Sheet) Rows() []Row {
	return append([]Row(nil), s.rows...)
}

// Row returns the row at position i.
func (s *Sheet) Row(i int) (Row, bool) {
	if i < 0 || i >= len(s.rows) {
		return Row{}, false
	}
	return s.rows[i], true
}

// Aggregated reports whether the row at position i has contributors and so holds
// rolled-up values after RecomputeRollups. It depends on codes only.
func (s *Sheet) Aggregated(i int) bool {
	return i >= 0 && i < len(s.aggregated) && s.aggregated[i]
}

// Edit sets a leaf value of the row at position i from text and recomputes the
// whole sheet. Blank text clears the value.
func (s *Sheet) Edit(i int, field Field, text string) error {
	if i < 0 || i >= len(s.base) {
		return fmt.Errorf("%w: position %d", ErrRowNotFound, i)
	}
	if s.Aggregated(i) {
		return fmt.Errorf("%w: %s", ErrNotEditable, s.base[i].Code)
	}

	cell := textCell(text)
	r := &s.base[i]
	switch field {
	case FieldQuantity:
		r.Quantity = cell
	case FieldRate:
		r.Rate = cell
	case FieldMarkup:
		if _, ok := ParseAmount(text); !ok {
			cell = Cell{}
		}
		r.Markup = cell
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	s.Recompute()
	s.opts.logger.Debug("row edited",
		zap.String("code", r.Code),
		zap.String("field", string(field)))
	return nil
}

// Totals sums the top-level rows: roots of the tree and rate rows whose base
// code has no row.
func (s *Sheet) Totals() pricing.Totals {
	var lines []pricing.Line
	seen := make(map[string]bool)
	for _, r := range s.rows {
		if seen[r.Code] || !s.topLevel(r.Code) {
			continue
		}
		seen[r.Code] = true
		lines = append(lines, pricing.Line{Subtotal: r.Subtotal.Value, Total: r.Total.Value})
	}
	return pricing.Summarize(lines)
}

// Depth returns the display depth of a row: its tree depth, one below its base
// for rate rows, and 0 for rows outside the tree.
func (s *Sheet) Depth(code string) int {
	d, _ := s.h.Depth(code)
	return d
}

func (s *Sheet) topLevel(code string) bool {
	if code == "" {
		return false
	}
	if IsRateCode(code) {
		return !s.h.Contains(BaseCode(code))
	}
	if !s.h.Contains(code) {
		return false
	}
	_, hasParent := s.h.Parent(code)
	return !hasParent
}
