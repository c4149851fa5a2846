// Package pricing holds the money arithmetic of a BOQ line.
package pricing

// LineInput represents the priced inputs of one BOQ line.
type LineInput struct {
	Quantity      float64
	Rate          float64
	MarkupPercent float64
	HasMarkup     bool
}

// Breakdown contains the intermediate values of a line calculation.
type Breakdown struct {
	Subtotal float64
	Markup   float64
}

// Result groups the line output.
type Result struct {
	Breakdown Breakdown
	Total     float64
	// Priced is false when quantity or rate is zero and no subtotal was derived.
	Priced bool
}

// Calculate derives subtotal and total of a line from quantity, rate and markup.
func Calculate(in LineInput) Result {
	subtotal, ok := Subtotal(in.Quantity, in.Rate)
	if !ok {
		return Result{}
	}
	total := subtotal
	if in.HasMarkup {
		total = ApplyMarkup(subtotal, in.MarkupPercent)
	}
	return Result{
		Breakdown: Breakdown{Subtotal: subtotal, Markup: total - subtotal},
		Total:     total,
		Priced:    true,
	}
}

// Subtotal is quantity times rate; ok is false when either is zero.
func Subtotal(quantity, rate float64) (float64, bool) {
	if quantity == 0 || rate == 0 {
		return 0, false
	}
	return quantity * rate, true
}

// ApplyMarkup raises subtotal by percent.
func ApplyMarkup(subtotal, percent float64) float64 {
	return subtotal * (1.0 + percent/100.0)
}

// Totals contains roll-up values over a set of lines.
type Totals struct {
	Subtotal float64
	Markup   float64
	Total    float64
}

// Line is a finished line as summed by Summarize.
type Line struct {
	Subtotal float64
	Total    float64
}

// Summarize adds up finished lines.
func Summarize(lines []Line) Totals {
	var t Totals
	for _, l := range lines {
		t.Subtotal += l.Subtotal
		t.Total += l.Total
	}
	t.Markup = t.Total - t.Subtotal
	return t
}
