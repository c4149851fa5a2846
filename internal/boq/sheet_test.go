package boq

import (
	"errors"
	"testing"
)

func demoSheet(opts ...Option) *Sheet {
	s := NewSheet(opts...)
	s.LoadRows(RowsFromRecords([]Record{
		rec("1.1.0.0", "Substructure", "", "", "", "", "", ""),
		rec("1.1.1.0", "Earthworks", "", "", "", "", "", ""),
		rec("1.1.1.0.R1", "Excavation", "10", "m3", "15", "", "", ""),
		rec("1.1.1.1", "Backfill", "4", "m3", "5", "", "", ""),
		rec("1.1.2.0", "Concrete", "2", "m3", "100", "", "10", ""),
		rec("4.2.1.0.R1", "Loose rate", "", "", "", "50", "", ""),
	}))
	s.Recompute()
	return s
}

func TestSheetEditRecomputesAncestors(t *testing.T) {
	s := demoSheet()

	top, _ := s.Row(0)
	nearlyEqual(t, "initial subtotal", top.Subtotal.Value, 150)

	if err := s.Edit(2, FieldRate, "20"); err != nil {
		t.Fatalf("edit rate: %v", err)
	}
	top, _ = s.Row(0)
	nearlyEqual(t, "subtotal after edit", top.Subtotal.Value, 200)
	mid, _ := s.Row(1)
	nearlyEqual(t, "earthworks after edit", mid.Subtotal.Value, 200)

	if err := s.Edit(2, FieldQuantity, ""); err != nil {
		t.Fatalf("clear quantity: %v", err)
	}
	top, _ = s.Row(0)
	if top.Subtotal.Set {
		t.Fatalf("no included values left, aggregate should be blank: %+v", top.Subtotal)
	}
}

func TestSheetEditMarkup(t *testing.T) {
	s := demoSheet(WithPolicy(RateAndTrueLeaf{}))

	if err := s.Edit(4, FieldMarkup, "25%"); err != nil {
		t.Fatalf("edit markup: %v", err)
	}
	r, _ := s.Row(4)
	nearlyEqual(t, "concrete total", r.Total.Value, 250)

	if err := s.Edit(4, FieldMarkup, "lots"); err != nil {
		t.Fatalf("edit markup: %v", err)
	}
	r, _ = s.Row(4)
	if r.Markup.Set {
		t.Fatalf("unparseable markup should be absent")
	}
	nearlyEqual(t, "concrete total without markup", r.Total.Value, 200)
}

func TestSheetEditErrors(t *testing.T) {
	s := demoSheet()

	if err := s.Edit(99, FieldRate, "1"); !errors.Is(err, ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}
	if err := s.Edit(-1, FieldRate, "1"); !errors.Is(err, ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}
	if err := s.Edit(0, FieldQuantity, "3"); !errors.Is(err, ErrNotEditable) {
		t.Fatalf("expected ErrNotEditable, got %v", err)
	}
	if err := s.Edit(3, Field("description"), "x"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestSheetAggregatedIsKnownBeforeRecompute(t *testing.T) {
	s := NewSheet()
	s.LoadRows(codesOnly("1.1.0.0", "1.1.1.0", "1.1.1.0.R1"))

	if !s.Aggregated(0) || !s.Aggregated(1) || s.Aggregated(2) {
		t.Fatalf("aggregated flags wrong: %v %v %v", s.Aggregated(0), s.Aggregated(1), s.Aggregated(2))
	}
	if s.Aggregated(7) {
		t.Fatalf("out of range positions are not aggregated")
	}
}

func TestSheetTotalsIncludeOrphanRates(t *testing.T) {
	s := demoSheet()
	totals := s.Totals()

	// 1.1.0.0 carries the excavation rate (150); the orphan rate adds 50.
	nearlyEqual(t, "subtotal", totals.Subtotal, 200)
	nearlyEqual(t, "total", totals.Total, 200)
}

func TestSheetDepthAndSnapshot(t *testing.T) {
	s := demoSheet()

	if d := s.Depth("1.1.1.0.R1"); d != 2 {
		t.Fatalf("rate depth = %d", d)
	}
	if d := s.Depth("4.2.1.0.R1"); d != 0 {
		t.Fatalf("orphan rate depth = %d", d)
	}
	snap := s.Hierarchy()
	if snap.ParentOf["1.1.1.1"] != "1.1.1.0" {
		t.Fatalf("snapshot parent = %q", snap.ParentOf["1.1.1.1"])
	}
	if got := snap.RateChildrenOf["4.2.1.0"]; len(got) != 1 {
		t.Fatalf("orphan rate should be indexed under its base, got %v", got)
	}
	if s.Len() != 6 {
		t.Fatalf("len = %d", s.Len())
	}
	if _, ok := s.Row(6); ok {
		t.Fatalf("row 6 should not exist")
	}
}

func TestSheetLoadRowsResetsIndexAndCopies(t *testing.T) {
	rows := codesOnly("1.1.0.0", "1.1.1.0")
	rows[0].Index, rows[1].Index = 40, 41

	s := NewSheet()
	s.LoadRows(rows)
	rows[0].Code = "changed"

	r, _ := s.Row(1)
	if r.Index != 1 {
		t.Fatalf("index = %d, want 1", r.Index)
	}
	if r0, _ := s.Row(0); r0.Code != "1.1.0.0" {
		t.Fatalf("sheet shares storage with the caller")
	}
}
