package boq

import (
	"go.uber.org/zap"
)

// Node is a non-rate row as seen by a ParentFinder.
type Node struct {
	Index int
	Code  Code
}

// ParentFinder selects, for every node, the position in nodes of its parent or
// -1 for a root. Implementations must pick, among earlier nodes of the same trade
// prefix that cover the node, the most specific one and break ties by the largest
// index.
type ParentFinder interface {
	FindParents(nodes []Node) []int
}

// LinearScan compares every node with all earlier nodes.
type LinearScan struct{}

// FindParents implements ParentFinder.
func (LinearScan) FindParents(nodes []Node) []int {
	parents := make([]int, len(nodes))
	for j, n := range nodes {
		best := -1
		for i := 0; i < j; i++ {
			best = pickParent(nodes, best, i, n)
		}
		parents[j] = best
	}
	return parents
}

// TradeGrouped buckets nodes by trade prefix first and only scans the bucket.
type TradeGrouped struct{}

// FindParents implements ParentFinder.
func (TradeGrouped) FindParents(nodes []Node) []int {
	buckets := make(map[string][]int)
	parents := make([]int, len(nodes))
	for j, n := range nodes {
		best := -1
		if n.Code.Valid {
			for _, i := range buckets[n.Code.Trade] {
				best = pickParent(nodes, best, i, n)
			}
			buckets[n.Code.Trade] = append(buckets[n.Code.Trade], j)
		}
		parents[j] = best
	}
	return parents
}

// pickParent returns whichever of best and candidate should parent n. Candidates
// are offered in increasing index order, so an equal specificity replaces best.
func pickParent(nodes []Node, best, candidate int, n Node) int {
	c := nodes[candidate]
	if c.Code.Trade != n.Code.Trade || !covers(c.Code, n.Code) {
		return best
	}
	if best < 0 {
		return candidate
	}
	cs, bs := c.Code.Specificity(), nodes[best].Code.Specificity()
	if cs > bs || (cs == bs && c.Index > nodes[best].Index) {
		return candidate
	}
	return best
}

// Hierarchy is the parent/child index inferred from a row list. It is built once
// per load and not modified afterwards.
type Hierarchy struct {
	order          []string
	parentOf       map[string]string
	childrenOf     map[string][]string
	rateChildrenOf map[string][]string
	depthOf        map[string]int
	log            *zap.Logger
}

// Snapshot is a read-only copy of the index. Roots map to "" in ParentOf.
type Snapshot struct {
	ParentOf       map[string]string   `json:"parent_of"`
	ChildrenOf     map[string][]string `json:"children_of"`
	RateChildrenOf map[string][]string `json:"rate_children_of"`
	DepthOf        map[string]int      `json:"depth_of"`
}

// Build infers the hierarchy of rows. Rows with an empty code are ignored. When a
// code appears more than once only its first occurrence is placed in the tree;
// later occurrences still serve as parent candidates.
func Build(rows []Row, opts ...Option) *Hierarchy {
	o := newOptions(opts)

	h := &Hierarchy{
		parentOf:       make(map[string]string),
		childrenOf:     make(map[string][]string),
		rateChildrenOf: make(map[string][]string),
		depthOf:        make(map[string]int),
		log:            o.logger,
	}

	var nodes []Node
	for _, r := range rows {
		if r.Code == "" {
			continue
		}
		c := ParseCode(r.Code)
		if c.Rate {
			h.rateChildrenOf[c.Base] = appendUnique(h.rateChildrenOf[c.Base], c.Raw)
			continue
		}
		if !c.Valid {
			o.logger.Warn("malformed item code, treating as isolated root",
				zap.String("code", c.Raw), zap.Int("row", r.Index))
		}
		nodes = append(nodes, Node{Index: r.Index, Code: c})
	}

	parents := o.finder.FindParents(nodes)
	placed := make(map[string]bool, len(nodes))
	for j, n := range nodes {
		code := n.Code.Raw
		if placed[code] {
			o.logger.Debug("duplicate item code", zap.String("code", code), zap.Int("row", n.Index))
			continue
		}
		placed[code] = true
		h.order = append(h.order, code)

		p := parents[j]
		if p < 0 || nodes[p].Code.Raw == code {
			continue
		}
		parent := nodes[p].Code.Raw
		h.parentOf[code] = parent
		h.childrenOf[parent] = appendUnique(h.childrenOf[parent], code)
	}

	h.computeDepths()
	return h
}

func (h *Hierarchy) computeDepths() {
	for _, code := range h.order {
		h.depth(code, make(map[string]bool))
	}
}

// depth walks the parent chain of code. A chain that comes back to a code
// already on the walk is cut there: that code loses its parent and becomes a root.
func (h *Hierarchy) depth(code string, walk map[string]bool) int {
	if d, ok := h.depthOf[code]; ok {
		return d
	}
	walk[code] = true
	d := 0
	if p, ok := h.parentOf[code]; ok {
		if walk[p] {
			h.log.Warn("parent chain loops, cutting it", zap.String("code", code), zap.String("parent", p))
			h.unlink(code, p)
		} else {
			d = h.depth(p, walk) + 1
		}
	}
	h.depthOf[code] = d
	return d
}

func (h *Hierarchy) unlink(code, parent string) {
	delete(h.parentOf, code)
	var children []string
	for _, c := range h.childrenOf[parent] {
		if c != code {
			children = append(children, c)
		}
	}
	if len(children) == 0 {
		delete(h.childrenOf, parent)
		return
	}
	h.childrenOf[parent] = children
}

// Contains reports whether code is a non-rate node of the tree.
func (h *Hierarchy) Contains(code string) bool {
	_, ok := h.depthOf[code]
	return ok
}

// Codes returns the non-rate codes in input order.
func (h *Hierarchy) Codes() []string {
	return append([]string(nil), h.order...)
}

// Parent returns the parent of code; ok is false for roots and unknown codes.
func (h *Hierarchy) Parent(code string) (string, bool) {
	p, ok := h.parentOf[code]
	return p, ok
}

// Children returns the non-rate children of code in discovery order.
func (h *Hierarchy) Children(code string) []string {
	return h.childrenOf[code]
}

// RateChildren returns the rate codes attached to a base code.
func (h *Hierarchy) RateChildren(code string) []string {
	return h.rateChildrenOf[code]
}

// Depth returns the depth of a non-rate code. Rate codes sit one level below
// their base; a rate code whose base is not a row reports depth 0 and ok false.
func (h *Hierarchy) Depth(code string) (int, bool) {
	if d, ok := h.depthOf[code]; ok {
		return d, true
	}
	if IsRateCode(code) {
		if d, ok := h.depthOf[BaseCode(code)]; ok {
			return d + 1, true
		}
	}
	return 0, false
}

// HasChildren reports whether code has a non-rate child or an attached rate row.
func (h *Hierarchy) HasChildren(code string) bool {
	return len(h.childrenOf[code]) > 0 || len(h.rateChildrenOf[code]) > 0
}

// IsTrueLeaf reports whether code is a non-rate node with no children of any kind.
func (h *Hierarchy) IsTrueLeaf(code string) bool {
	return h.Contains(code) && !h.HasChildren(code)
}

// Roots returns the parentless non-rate codes in input order.
func (h *Hierarchy) Roots() []string {
	var roots []string
	for _, code := range h.order {
		if _, ok := h.parentOf[code]; !ok {
			roots = append(roots, code)
		}
	}
	return roots
}

// Snapshot copies the index for rendering collaborators.
func (h *Hierarchy) Snapshot() Snapshot {
	s := Snapshot{
		ParentOf:       make(map[string]string, len(h.order)),
		ChildrenOf:     make(map[string][]string, len(h.childrenOf)),
		RateChildrenOf: make(map[string][]string, len(h.rateChildrenOf)),
		DepthOf:        make(map[string]int, len(h.depthOf)),
	}
	for _, code := range h.order {
		s.ParentOf[code] = h.parentOf[code]
	}
	for k, v := range h.childrenOf {
		s.ChildrenOf[k] = append([]string(nil), v...)
	}
	for k, v := range h.rateChildrenOf {
		s.RateChildrenOf[k] = append([]string(nil), v...)
	}
	for k, v := range h.depthOf {
		s.DepthOf[k] = v
	}
	return s
}

func appendUnique(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}
