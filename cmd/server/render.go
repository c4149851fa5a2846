package main

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Simplici0/boqview/internal/boq"
	"github.com/Simplici0/boqview/internal/workspace"
)

var templateFuncs = template.FuncMap{
	"money":  formatMoney,
	"cell":   formatCell,
	"markup": formatMarkup,
	"indent": func(depth int) int { return depth * 20 },
	"ago":    func(t time.Time) string { return humanize.Time(t) },
	"count":  func(n int) string { return humanize.Comma(int64(n)) },
}

// renderTemplate executes page into a buffer and only then writes status, so a
// failing template still yields a clean 500.
func (s *server) renderTemplate(w http.ResponseWriter, status int, page string, data any) {
	templates, err := template.New("layout.html").Funcs(templateFuncs).ParseFiles(
		filepath.Join(s.templatesDir, "layout.html"),
		filepath.Join(s.templatesDir, page),
	)
	if err != nil {
		s.log.Error("parse template", "page", page, "error", err)
		http.Error(w, "failed to parse template", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		s.log.Error("render template", "page", page, "error", err)
		http.Error(w, "failed to render template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func formatMoney(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

func formatCell(c boq.Cell) string {
	if !c.Set {
		return ""
	}
	return formatMoney(c.Value)
}

func formatMarkup(c boq.Cell) string {
	if !c.Set {
		return ""
	}
	return strconv.FormatFloat(c.Value, 'f', -1, 64) + "%"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type cellPayload struct {
	Value      float64 `json:"value"`
	Provenance string  `json:"provenance"`
}

type rowPayload struct {
	Position    int          `json:"position"`
	Code        string       `json:"code"`
	Description string       `json:"description"`
	Unit        string       `json:"unit"`
	Quantity    *cellPayload `json:"quantity"`
	Rate        *cellPayload `json:"rate"`
	Subtotal    *cellPayload `json:"subtotal"`
	Markup      *cellPayload `json:"markup"`
	Total       *cellPayload `json:"total"`
	Depth       int          `json:"depth"`
	Aggregated  bool         `json:"aggregated"`
}

type rowsPayload struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Policy    string       `json:"policy"`
	Rows      []rowPayload `json:"rows"`
	Hierarchy boq.Snapshot `json:"hierarchy"`
	Totals    struct {
		Subtotal float64 `json:"subtotal"`
		Markup   float64 `json:"markup"`
		Total    float64 `json:"total"`
	} `json:"totals"`
}

func newRowsPayload(d workspace.Detail) rowsPayload {
	p := rowsPayload{
		ID:        d.BOQ.ID,
		Title:     d.BOQ.Title,
		Policy:    d.Policy,
		Rows:      make([]rowPayload, len(d.Rows)),
		Hierarchy: d.Hierarchy,
	}
	p.Totals.Subtotal = d.Totals.Subtotal
	p.Totals.Markup = d.Totals.Markup
	p.Totals.Total = d.Totals.Total

	for i, vr := range d.Rows {
		r := vr.Row
		p.Rows[i] = rowPayload{
			Position:    vr.Position,
			Code:        r.Code,
			Description: r.Description,
			Unit:        r.Unit,
			Quantity:    newCellPayload(r.Quantity),
			Rate:        newCellPayload(r.Rate),
			Subtotal:    newCellPayload(r.Subtotal),
			Markup:      newCellPayload(r.Markup),
			Total:       newCellPayload(r.Total),
			Depth:       vr.Depth,
			Aggregated:  vr.Aggregated,
		}
	}
	return p
}

func newCellPayload(c boq.Cell) *cellPayload {
	if !c.Set {
		return nil
	}
	return &cellPayload{Value: c.Value, Provenance: c.Provenance.String()}
}
