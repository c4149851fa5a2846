package boq

import (
	"math"
	"strconv"
	"strings"
)

// Code is an item code decomposed once into the parts the hierarchy and rollup
// passes compare.
type Code struct {
	Raw   string
	Base  string
	Trade string
	Slots []float64
	Rate  bool
	// Valid is false when the code has fewer than two segments or a slot that is
	// not an integer.
	Valid bool
}

// ParseCode decomposes an item code. It never fails: malformed codes come back
// with Valid unset.
func ParseCode(code string) Code {
	code = strings.TrimSpace(code)
	c := Code{Raw: code, Base: BaseCode(code), Rate: IsRateCode(code)}

	segments := strings.Split(c.Base, ".")
	if c.Base == "" || len(segments) < 2 {
		return c
	}
	c.Trade = segments[0] + "." + segments[1]
	c.Slots = parseSlots(segments[2:])
	c.Valid = true
	for _, s := range c.Slots {
		if math.IsNaN(s) {
			c.Valid = false
			break
		}
	}
	return c
}

// Specificity is the number of non-zero slots.
func (c Code) Specificity() int {
	n := 0
	for _, s := range c.Slots {
		if s != 0 {
			n++
		}
	}
	return n
}

// IsRateCode reports whether code ends in a ".R<digits>" segment.
func IsRateCode(code string) bool {
	_, ok := rateSuffix(code)
	return ok
}

// BaseCode strips a trailing ".R<digits>" segment.
func BaseCode(code string) string {
	if i, ok := rateSuffix(code); ok {
		return code[:i]
	}
	return code
}

// TradePrefix returns the first two segments of the base code, or "" when the
// code has fewer than two.
func TradePrefix(code string) string {
	return ParseCode(code).Trade
}

// NumericSlots returns the slots after the trade prefix. Segments that are not
// integers come back as NaN.
func NumericSlots(code string) []float64 {
	return ParseCode(code).Slots
}

// Specificity counts the non-zero slots of code.
func Specificity(code string) int {
	return ParseCode(code).Specificity()
}

// WellFormed reports whether code has a trade prefix and integer slots only.
func WellFormed(code string) bool {
	return ParseCode(code).Valid
}

// rateSuffix returns the index of the dot that starts a trailing ".R<digits>".
func rateSuffix(code string) (int, bool) {
	i := strings.LastIndex(code, ".R")
	if i < 0 {
		return 0, false
	}
	digits := code[i+2:]
	if digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	return i, true
}

func parseSlots(segments []string) []float64 {
	slots := make([]float64, len(segments))
	for i, seg := range segments {
		n, err := strconv.ParseInt(strings.TrimSpace(seg), 10, 64)
		if err != nil {
			slots[i] = math.NaN()
			continue
		}
		slots[i] = float64(n)
	}
	return slots
}
