package boq

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPolicy is returned by PolicyByName.
var ErrUnknownPolicy = errors.New("unknown rollup policy")

// Policy decides which structurally contributing rows are summed into an
// ancestor. r carries its own values from before the rollup.
type Policy interface {
	Name() string
	Includes(r Row, h *Hierarchy) bool
}

// RateOnly sums rate rows only.
type RateOnly struct{}

func (RateOnly) Name() string { return "rate-only" }

func (RateOnly) Includes(r Row, _ *Hierarchy) bool { return r.IsRate() }

// RateAndValued sums rate rows and any row holding a non-zero subtotal or total.
// Intermediate nodes that carry their own values are counted on top of their
// descendants.
type RateAndValued struct{}

func (RateAndValued) Name() string { return "rate-valued" }

func (RateAndValued) Includes(r Row, _ *Hierarchy) bool {
	if r.IsRate() {
		return true
	}
	return (r.Subtotal.Set && r.Subtotal.Value != 0) || (r.Total.Set && r.Total.Value != 0)
}

// RateAndUploaded sums rate rows and rows whose subtotal or total was uploaded.
type RateAndUploaded struct{}

func (RateAndUploaded) Name() string { return "rate-uploaded" }

func (RateAndUploaded) Includes(r Row, _ *Hierarchy) bool {
	return r.IsRate() || r.Subtotal.Uploaded() || r.Total.Uploaded()
}

// RateAndTrueLeaf sums rate rows and rows with neither children nor rates.
type RateAndTrueLeaf struct{}

func (RateAndTrueLeaf) Name() string { return "rate-leaf" }

func (RateAndTrueLeaf) Includes(r Row, h *Hierarchy) bool {
	return r.IsRate() || h.IsTrueLeaf(r.Code)
}

// Policies lists the built-in policies.
func Policies() []Policy {
	return []Policy{RateOnly{}, RateAndValued{}, RateAndUploaded{}, RateAndTrueLeaf{}}
}

// PolicyByName resolves a built-in policy; "" selects RateAndUploaded.
func PolicyByName(name string) (Policy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return RateAndUploaded{}, nil
	}
	for _, p := range Policies() {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}

// Rollup returns a copy of rows in which every non-rate row with at least one
// structural contributor carries the sums of its included contributors. Quantity
// is cleared on those rows. rows must hold pre-rollup values; they are not
// modified.
func Rollup(rows []Row, h *Hierarchy, p Policy) []Row {
	out, _ := rollup(rows, h, p)
	return out
}

func rollup(rows []Row, h *Hierarchy, p Policy) ([]Row, []bool) {
	if p == nil {
		p = RateAndUploaded{}
	}

	out := make([]Row, len(rows))
	copy(out, rows)
	aggregated := make([]bool, len(rows))

	codes := make([]Code, len(rows))
	for i, r := range rows {
		codes[i] = ParseCode(r.Code)
	}

	for i, node := range rows {
		if node.Code == "" || codes[i].Rate {
			continue
		}

		var (
			structural      bool
			subtotal, total Cell
		)
		for j, r := range rows {
			if j == i || r.Code == "" || !contributes(codes[i], codes[j]) {
				continue
			}
			structural = true
			if !p.Includes(r, h) {
				continue
			}
			subtotal = addCell(subtotal, r.Subtotal)
			total = addCell(total, r.Total)
		}
		if !structural {
			continue
		}

		aggregated[i] = true
		out[i].Quantity = Cell{}
		out[i].Subtotal = subtotal
		out[i].Total = total
	}
	return out, aggregated
}

// contributes reports whether r sits under node: a rate row attached to node or
// to one of its descendants, or a non-rate descendant.
func contributes(node, r Code) bool {
	if !r.Rate {
		return isDescendant(node, r)
	}
	base := r
	base.Raw = r.Base
	base.Rate = false
	return base.Raw == node.Raw || isDescendant(node, base)
}

func addCell(sum, c Cell) Cell {
	if !c.Set {
		return sum
	}
	return computed(sum.Value + c.Value)
}
