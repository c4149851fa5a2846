package boq

import (
	"reflect"
	"testing"
)

func TestDeriveComputesSubtotalAndTotal(t *testing.T) {
	rows := RowsFromRecords([]Record{
		rec("1.1.1.1", "priced", "5", "m", "$20", "", "", ""),
		rec("1.1.1.2", "marked up", "2", "m", "50", "", "10%", ""),
	})
	Derive(rows)

	if rows[0].Subtotal.Provenance != Computed || !rows[0].Subtotal.Set {
		t.Fatalf("expected computed subtotal, got %+v", rows[0].Subtotal)
	}
	nearlyEqual(t, "subtotal[0]", rows[0].Subtotal.Value, 100)
	nearlyEqual(t, "total[0]", rows[0].Total.Value, 100)
	nearlyEqual(t, "subtotal[1]", rows[1].Subtotal.Value, 100)
	nearlyEqual(t, "total[1]", rows[1].Total.Value, 110)
}

func TestDeriveKeepsUploadedValues(t *testing.T) {
	rows := RowsFromRecords([]Record{
		rec("1.1.1.1", "", "5", "", "20", "$80", "", ""),
		rec("1.1.1.2", "", "5", "", "20", "", "50%", "999"),
	})
	Derive(rows)

	if !rows[0].Subtotal.Uploaded() {
		t.Fatalf("uploaded subtotal lost provenance: %+v", rows[0].Subtotal)
	}
	nearlyEqual(t, "subtotal[0]", rows[0].Subtotal.Value, 80)
	nearlyEqual(t, "total[0]", rows[0].Total.Value, 80)
	if rows[0].Total.Provenance != Computed {
		t.Fatalf("total derived from uploaded subtotal should be computed")
	}

	nearlyEqual(t, "subtotal[1]", rows[1].Subtotal.Value, 100)
	nearlyEqual(t, "total[1]", rows[1].Total.Value, 999)
}

func TestDeriveLeavesBlanksWithoutPricing(t *testing.T) {
	rows := RowsFromRecords([]Record{
		rec("1.1.1.0", "header", "", "", "", "", "10", ""),
		rec("1.1.1.1", "no rate", "5", "", "", "", "", ""),
		rec("1.1.1.2", "zero qty", "0", "", "12", "", "", ""),
	})
	Derive(rows)

	for i, r := range rows {
		if r.Subtotal.Set || r.Total.Set {
			t.Fatalf("row %d should stay blank, got subtotal=%+v total=%+v", i, r.Subtotal, r.Total)
		}
	}
}

func TestDeriveIsIdempotent(t *testing.T) {
	rows := RowsFromRecords([]Record{
		rec("1.1.1.1", "", "3", "", "7", "", "5", ""),
		rec("1.1.1.2", "", "3", "", "7", "40", "", ""),
		rec("1.1.1.3", "", "", "", "", "", "", "12"),
	})
	Derive(rows)
	first := append([]Row(nil), rows...)
	Derive(rows)

	if !reflect.DeepEqual(first, rows) {
		t.Fatalf("second derive changed rows:\n%+v\n%+v", first, rows)
	}
}

func TestDeriveReplacesStaleComputedValues(t *testing.T) {
	rows := RowsFromRecords([]Record{rec("1.1.1.1", "", "2", "", "10", "", "", "")})
	Derive(rows)
	rows[0].Rate = Cell{}
	Derive(rows)

	if rows[0].Subtotal.Set || rows[0].Total.Set {
		t.Fatalf("computed values should be cleared once rate is removed: %+v", rows[0])
	}
}
