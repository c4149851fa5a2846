package boq

import (
	"math"
	"testing"
)

func rec(code, desc, qty, unit, rate, subtotal, markup, total string) Record {
	return Record{code, desc, qty, unit, rate, subtotal, markup, total}
}

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func TestParseAmount(t *testing.T) {
	ok := map[string]float64{
		"100":          100,
		"$1,234.50":    1234.5,
		"12%":          12,
		" 7.5 % ":      7.5,
		"(300)":        -300,
		"-42":          -42,
		"€ 99":         99,
		"₹1,23,456.00": 123456,
		"1e3":          1000,
	}
	for text, want := range ok {
		got, parsed := ParseAmount(text)
		if !parsed {
			t.Fatalf("ParseAmount(%q) failed", text)
		}
		nearlyEqual(t, text, got, want)
	}

	for _, text := range []string{"", "   ", "abc", "n/a", "$", "12 units"} {
		if _, parsed := ParseAmount(text); parsed {
			t.Fatalf("ParseAmount(%q) should fail", text)
		}
	}
}

func TestNewRowProvenanceAndDefaults(t *testing.T) {
	r := NewRow(3, rec(" 1.1.1.1 ", "Sub A", "abc", "m2", "$20", "", "n/a", "$1,000.00"))

	if r.Index != 3 || r.Code != "1.1.1.1" || r.Description != "Sub A" || r.Unit != "m2" {
		t.Fatalf("unexpected row header: %+v", r)
	}
	if !r.Quantity.Set || r.Quantity.Value != 0 {
		t.Fatalf("unparseable quantity should be set to 0, got %+v", r.Quantity)
	}
	nearlyEqual(t, "rate", r.Rate.Value, 20)
	if !r.Subtotal.Blank() {
		t.Fatalf("blank subtotal text should give a blank cell, got %+v", r.Subtotal)
	}
	if !r.Markup.Blank() {
		t.Fatalf("unparseable markup should be absent, got %+v", r.Markup)
	}
	if !r.Total.Uploaded() {
		t.Fatalf("total with text should be uploaded, got %+v", r.Total)
	}
	nearlyEqual(t, "total", r.Total.Value, 1000)
}

func TestRowsFromRecordsKeepsOrder(t *testing.T) {
	rows := RowsFromRecords([]Record{
		rec("1.1.1.0", "", "", "", "", "", "", ""),
		rec("1.1.1.0.R1", "", "", "", "", "", "", ""),
	})
	if len(rows) != 2 || rows[0].Index != 0 || rows[1].Index != 1 {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if rows[0].IsRate() || !rows[1].IsRate() {
		t.Fatalf("rate detection wrong: %+v", rows)
	}
}

func TestProvenanceString(t *testing.T) {
	if Uploaded.String() != "uploaded" || Computed.String() != "computed" {
		t.Fatalf("unexpected provenance names %q %q", Uploaded, Computed)
	}
}
