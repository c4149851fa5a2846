package boq

// Outline tracks which nodes of a hierarchy are expanded. Every node starts
// collapsed, so only roots and rate rows without a base row are visible.
type Outline struct {
	h        *Hierarchy
	expanded map[string]bool
}

// NewOutline returns a fully collapsed outline over h.
func NewOutline(h *Hierarchy) *Outline {
	return &Outline{h: h, expanded: make(map[string]bool)}
}

// Expanded reports whether code is expanded.
func (o *Outline) Expanded(code string) bool {
	return o.expanded[code]
}

// Expand shows the immediate children and rate rows of code.
func (o *Outline) Expand(code string) {
	if o.h.HasChildren(code) {
		o.expanded[code] = true
	}
}

// Collapse hides the whole subtree of code. Descendants are collapsed as well, so
// expanding code again reveals one level only.
func (o *Outline) Collapse(code string) {
	delete(o.expanded, code)
	for _, child := range o.h.Children(code) {
		o.Collapse(child)
	}
}

// Toggle flips code and returns whether it is now expanded.
func (o *Outline) Toggle(code string) bool {
	if o.expanded[code] {
		o.Collapse(code)
		return false
	}
	o.Expand(code)
	return o.expanded[code]
}

// ExpandAll expands every node that has children.
func (o *Outline) ExpandAll() {
	for _, code := range o.h.Codes() {
		o.Expand(code)
	}
}

// CollapseAll collapses every node.
func (o *Outline) CollapseAll() {
	o.expanded = make(map[string]bool)
}

// Visible reports whether the row with code is shown.
func (o *Outline) Visible(code string) bool {
	if code == "" {
		return true
	}
	if IsRateCode(code) {
		base := BaseCode(code)
		if !o.h.Contains(base) {
			return true
		}
		return o.expanded[base] && o.Visible(base)
	}
	p, ok := o.h.Parent(code)
	if !ok {
		return true
	}
	return o.expanded[p] && o.Visible(p)
}

// VisibleRows filters rows down to the visible ones, keeping order.
func (o *Outline) VisibleRows(rows []Row) []Row {
	var out []Row
	for _, r := range rows {
		if o.Visible(r.Code) {
			out = append(out, r)
		}
	}
	return out
}
