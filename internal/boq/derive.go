package boq

import "github.com/Simplici0/boqview/internal/pricing"

// Derive fills blank or computed subtotal and total cells from quantity, rate and
// markup. Uploaded cells are left alone, so running it twice changes nothing.
func Derive(rows []Row) {
	for i := range rows {
		deriveRow(&rows[i])
	}
}

func deriveRow(r *Row) {
	if !r.Subtotal.Uploaded() {
		line := pricing.Calculate(pricing.LineInput{
			Quantity:      r.Quantity.Value,
			Rate:          r.Rate.Value,
			MarkupPercent: r.Markup.Value,
			HasMarkup:     r.Markup.Set,
		})
		r.Subtotal = Cell{}
		if line.Priced {
			r.Subtotal = computed(line.Breakdown.Subtotal)
		}
	}

	if r.Total.Uploaded() {
		return
	}
	r.Total = Cell{}
	if !r.Subtotal.Set {
		return
	}
	total := r.Subtotal.Value
	if r.Markup.Set {
		total = pricing.ApplyMarkup(total, r.Markup.Value)
	}
	r.Total = computed(total)
}
