package boq

import (
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func codesOnly(codes ...string) []Row {
	records := make([]Record, len(codes))
	for i, c := range codes {
		records[i] = Record{c}
	}
	return RowsFromRecords(records)
}

func assertParent(t *testing.T, h *Hierarchy, code, want string) {
	t.Helper()
	got, ok := h.Parent(code)
	if want == "" {
		if ok {
			t.Fatalf("expected %q to be a root, got parent %q", code, got)
		}
		return
	}
	if !ok || got != want {
		t.Fatalf("parent of %q = %q (ok=%v), want %q", code, got, ok, want)
	}
}

func TestBuildPicksMostSpecificCoveringPredecessor(t *testing.T) {
	h := Build(codesOnly("4.1.1.0", "4.1.0.0", "4.1.1.5"))

	assertParent(t, h, "4.1.1.0", "")
	assertParent(t, h, "4.1.0.0", "")
	assertParent(t, h, "4.1.1.5", "4.1.1.0")
}

func TestBuildBreaksTiesByLatestIndex(t *testing.T) {
	h := Build(codesOnly("3.1.1.0", "3.1.0.2", "3.1.1.2"))

	assertParent(t, h, "3.1.0.2", "")
	assertParent(t, h, "3.1.1.2", "3.1.0.2")
}

func TestBuildOnlyLooksBackwards(t *testing.T) {
	h := Build(codesOnly("5.1.1.1", "5.1.1.0"))

	assertParent(t, h, "5.1.1.1", "")
	assertParent(t, h, "5.1.1.0", "")
}

func TestBuildChainDepthsAndChildren(t *testing.T) {
	h := Build(codesOnly("1.1.0.0", "1.1.1.0", "1.1.1.0.R1", "1.1.1.1", "1.1.2.0", "1.1.1.1.R1", "1.1.1.1.R2"))

	assertParent(t, h, "1.1.1.0", "1.1.0.0")
	assertParent(t, h, "1.1.1.1", "1.1.1.0")
	assertParent(t, h, "1.1.2.0", "1.1.0.0")

	depths := map[string]int{
		"1.1.0.0":    0,
		"1.1.1.0":    1,
		"1.1.1.1":    2,
		"1.1.2.0":    1,
		"1.1.1.0.R1": 2,
		"1.1.1.1.R2": 3,
	}
	for code, want := range depths {
		got, ok := h.Depth(code)
		if !ok || got != want {
			t.Fatalf("depth of %q = %d (ok=%v), want %d", code, got, ok, want)
		}
	}

	if got := h.Children("1.1.0.0"); !reflect.DeepEqual(got, []string{"1.1.1.0", "1.1.2.0"}) {
		t.Fatalf("children of 1.1.0.0 = %v", got)
	}
	if got := h.RateChildren("1.1.1.1"); !reflect.DeepEqual(got, []string{"1.1.1.1.R1", "1.1.1.1.R2"}) {
		t.Fatalf("rate children of 1.1.1.1 = %v", got)
	}
	if !h.HasChildren("1.1.1.1") || h.IsTrueLeaf("1.1.1.1") {
		t.Fatalf("1.1.1.1 has rate rows and is not a true leaf")
	}
	if !h.IsTrueLeaf("1.1.2.0") {
		t.Fatalf("1.1.2.0 should be a true leaf")
	}
	if h.IsTrueLeaf("1.1.1.0.R1") {
		t.Fatalf("rate rows are never true leaves")
	}
	if got := h.Roots(); !reflect.DeepEqual(got, []string{"1.1.0.0"}) {
		t.Fatalf("roots = %v", got)
	}
}

func TestBuildRestrictsParentsToTradePrefix(t *testing.T) {
	h := Build(codesOnly("1.1.0.0", "1.2.0.0", "1.2.3.0", "1.1.3.0"))

	assertParent(t, h, "1.2.3.0", "1.2.0.0")
	assertParent(t, h, "1.1.3.0", "1.1.0.0")
}

func TestBuildDuplicateCodeIsNotItsOwnParent(t *testing.T) {
	h := Build(codesOnly("6.1.1.0", "6.1.1.0"))

	assertParent(t, h, "6.1.1.0", "")
	if got := h.Codes(); len(got) != 1 {
		t.Fatalf("duplicate code should be placed once, got %v", got)
	}
	if len(h.Children("6.1.1.0")) != 0 {
		t.Fatalf("duplicate code must not become its own child")
	}
}

func TestBuildAttachesRateRowsToMissingBase(t *testing.T) {
	h := Build(codesOnly("7.1.1.0.R1", "7.1.2.0"))

	if got := h.RateChildren("7.1.1.0"); !reflect.DeepEqual(got, []string{"7.1.1.0.R1"}) {
		t.Fatalf("rate children of missing base = %v", got)
	}
	if h.Contains("7.1.1.0") {
		t.Fatalf("missing base must not become a tree node")
	}
	if _, ok := h.Depth("7.1.1.0.R1"); ok {
		t.Fatalf("orphan rate rows have no depth")
	}
	if got := h.Roots(); !reflect.DeepEqual(got, []string{"7.1.2.0"}) {
		t.Fatalf("roots = %v", got)
	}
}

func TestBuildMalformedCodesBecomeIsolatedRootsAndAreLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	h := Build(codesOnly("8.1.0.0", "8.1.x.0", "8.1.1.0", "9"), WithLogger(zap.New(core)))

	assertParent(t, h, "8.1.x.0", "")
	assertParent(t, h, "8.1.1.0", "8.1.0.0")
	assertParent(t, h, "9", "")

	if got := logs.FilterMessage("malformed item code, treating as isolated root").Len(); got != 2 {
		t.Fatalf("expected 2 malformed code warnings, got %d", got)
	}
}

func TestDepthCutsParentLoops(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	h := &Hierarchy{
		order:          []string{"1.1.1.0", "1.1.2.0", "1.1.3.0"},
		parentOf:       map[string]string{"1.1.1.0": "1.1.2.0", "1.1.2.0": "1.1.1.0", "1.1.3.0": "1.1.1.0"},
		childrenOf:     map[string][]string{"1.1.1.0": {"1.1.2.0", "1.1.3.0"}, "1.1.2.0": {"1.1.1.0"}},
		rateChildrenOf: map[string][]string{},
		depthOf:        map[string]int{},
		log:            zap.New(core),
	}
	h.computeDepths()

	assertParent(t, h, "1.1.1.0", "1.1.2.0")
	assertParent(t, h, "1.1.2.0", "")
	want := map[string]int{"1.1.2.0": 0, "1.1.1.0": 1, "1.1.3.0": 2}
	for code, d := range want {
		if got, ok := h.Depth(code); !ok || got != d {
			t.Fatalf("depth of %q = %d (ok=%v), want %d", code, got, ok, d)
		}
	}
	if got := h.Children("1.1.1.0"); !reflect.DeepEqual(got, []string{"1.1.3.0"}) {
		t.Fatalf("children of 1.1.1.0 = %v", got)
	}
	if got := h.Roots(); !reflect.DeepEqual(got, []string{"1.1.2.0"}) {
		t.Fatalf("roots = %v", got)
	}
	if got := logs.FilterMessage("parent chain loops, cutting it").Len(); got != 1 {
		t.Fatalf("expected 1 loop warning, got %d", got)
	}
}

func TestBuildSkipsEmptyCodes(t *testing.T) {
	h := Build(codesOnly("", "1.1.0.0", "", "1.1.1.0"))

	if got := h.Codes(); !reflect.DeepEqual(got, []string{"1.1.0.0", "1.1.1.0"}) {
		t.Fatalf("codes = %v", got)
	}
	assertParent(t, h, "1.1.1.0", "1.1.0.0")
}

func TestBuildIsDeterministicAcrossStrategies(t *testing.T) {
	rows := codesOnly(
		"1.1.0.0", "1.1.1.0", "1.1.1.0.R1", "1.1.1.1", "2.1.0.0", "1.1.1.2",
		"2.1.4.0", "1.1.2.0", "2.1.4.4", "1.1.0.7", "1.1.2.7", "2.1.x.1", "1.1.2.7.R3",
	)

	linear := Build(rows, WithParentFinder(LinearScan{})).Snapshot()
	again := Build(rows, WithParentFinder(LinearScan{})).Snapshot()
	grouped := Build(rows, WithParentFinder(TradeGrouped{})).Snapshot()

	if !reflect.DeepEqual(linear, again) {
		t.Fatalf("rebuilding the same rows changed the index")
	}
	if !reflect.DeepEqual(linear, grouped) {
		t.Fatalf("strategies disagree:\nlinear:  %+v\ngrouped: %+v", linear, grouped)
	}
	if linear.ParentOf["1.1.2.7"] != "1.1.0.7" {
		t.Fatalf("parent of 1.1.2.7 = %q", linear.ParentOf["1.1.2.7"])
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	h := Build(codesOnly("1.1.0.0", "1.1.1.0"))
	s := h.Snapshot()
	s.ChildrenOf["1.1.0.0"][0] = "mutated"
	s.ParentOf["1.1.1.0"] = "mutated"

	if h.Children("1.1.0.0")[0] != "1.1.1.0" {
		t.Fatalf("snapshot shares children slices with the index")
	}
	assertParent(t, h, "1.1.1.0", "1.1.0.0")
	if p, ok := h.Snapshot().ParentOf["1.1.0.0"]; !ok || p != "" {
		t.Fatalf("roots should map to an empty parent in snapshots")
	}
}
