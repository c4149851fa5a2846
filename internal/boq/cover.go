package boq

// Covers reports whether parent's slot pattern subsumes child's. A zero slot in
// parent matches anything; slots past the end of parent are unconstrained.
func Covers(parent, child string) bool {
	return covers(ParseCode(parent), ParseCode(child))
}

// IsDescendant is Covers restricted to distinct, non-rate children.
func IsDescendant(parent, child string) bool {
	return isDescendant(ParseCode(parent), ParseCode(child))
}

func covers(parent, child Code) bool {
	if !parent.Valid || !child.Valid {
		return false
	}
	if parent.Trade != child.Trade {
		return false
	}
	for i, slot := range parent.Slots {
		if slot == 0 {
			continue
		}
		if i >= len(child.Slots) || child.Slots[i] != slot {
			return false
		}
	}
	return true
}

func isDescendant(parent, child Code) bool {
	if child.Rate || parent.Base == child.Base {
		return false
	}
	return covers(parent, child)
}
