package workspace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Simplici0/boqview/internal/boq"
	"github.com/Simplici0/boqview/internal/export"
	"github.com/Simplici0/boqview/internal/pricing"
	"github.com/Simplici0/boqview/internal/store"
)

// Store is the persistence the workspace reads from and writes edits to.
type Store interface {
	GetBOQ(ctx context.Context, id string) (store.Document, error)
	UpdateRowField(ctx context.Context, id string, position int, field boq.Field, text string) (time.Time, error)
}

// maxViewers bounds the outlines kept per BOQ. Past it the oldest state is
// dropped and those viewers start collapsed again.
const maxViewers = 512

// Workspace caches loaded BOQs. Each BOQ has its own lock, so requests on the
// same BOQ run one at a time while different BOQs proceed in parallel.
type Workspace struct {
	store  Store
	log    *zap.Logger
	opts   []boq.Option
	mu     sync.Mutex
	loaded map[string]*entry
}

type entry struct {
	mu       sync.Mutex
	info     store.BOQ
	sheet    *boq.Sheet
	outlines map[string]*boq.Outline
	order    []string
}

// ViewRow is a visible row with what a renderer needs to draw it.
type ViewRow struct {
	Position    int
	Row         boq.Row
	Depth       int
	HasChildren bool
	Expanded    bool
	Aggregated  bool
}

// View is the visible part of a BOQ.
type View struct {
	BOQ       store.BOQ
	Policy    string
	Rows      []ViewRow
	TotalRows int
	Totals    pricing.Totals
}

// Detail is the full recomputed BOQ, regardless of what is expanded.
type Detail struct {
	BOQ       store.BOQ
	Policy    string
	Rows      []ViewRow
	Hierarchy boq.Snapshot
	Totals    pricing.Totals
}

func New(s Store, log *zap.Logger, opts ...boq.Option) *Workspace {
	if log == nil {
		log = zap.NewNop()
	}
	return &Workspace{
		store:  s,
		log:    log,
		opts:   append([]boq.Option{boq.WithLogger(log)}, opts...),
		loaded: make(map[string]*entry),
	}
}

func (w *Workspace) open(ctx context.Context, id string) (*entry, error) {
	w.mu.Lock()
	e, ok := w.loaded[id]
	w.mu.Unlock()
	if ok {
		return e, nil
	}

	doc, err := w.store.GetBOQ(ctx, id)
	if err != nil {
		return nil, err
	}

	sheet := boq.NewSheet(w.opts...)
	sheet.LoadRows(boq.RowsFromRecords(doc.Records))
	sheet.RunDerivedCalculations()
	sheet.RecomputeRollups()

	e = &entry{info: doc.BOQ, sheet: sheet, outlines: make(map[string]*boq.Outline)}

	w.mu.Lock()
	defer w.mu.Unlock()
	if existing, ok := w.loaded[id]; ok {
		return existing, nil
	}
	w.loaded[id] = e
	w.log.Info("boq loaded", zap.String("boq_id", id), zap.Int("rows", sheet.Len()))
	return e, nil
}

// View returns the rows of a BOQ visible to viewer, loading it on first use.
// Each viewer has its own expand/collapse state.
func (w *Workspace) View(ctx context.Context, id, viewer string) (View, error) {
	e, err := w.open(ctx, id)
	if err != nil {
		return View{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	outline := e.outline(viewer)
	all := e.rows(outline)
	visible := make([]ViewRow, 0, len(all))
	for _, vr := range all {
		if outline.Visible(vr.Row.Code) {
			visible = append(visible, vr)
		}
	}
	return View{
		BOQ:       e.info,
		Policy:    e.sheet.Policy().Name(),
		Rows:      visible,
		TotalRows: len(all),
		Totals:    e.sheet.Totals(),
	}, nil
}

// Detail returns every row of a BOQ together with its hierarchy index.
func (w *Workspace) Detail(ctx context.Context, id string) (Detail, error) {
	e, err := w.open(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	return Detail{
		BOQ:       e.info,
		Policy:    e.sheet.Policy().Name(),
		Rows:      e.rows(nil),
		Hierarchy: e.sheet.Hierarchy(),
		Totals:    e.sheet.Totals(),
	}, nil
}

// Export collects the data for a spreadsheet download.
func (w *Workspace) Export(ctx context.Context, id string) (export.Data, error) {
	e, err := w.open(ctx, id)
	if err != nil {
		return export.Data{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	return export.FromSheet(e.info.Title, e.info.SourceFile, e.info.CreatedAt.Format("2006-01-02"), e.sheet), nil
}

// Toggle expands or collapses code for viewer and returns whether it is now
// expanded.
func (w *Workspace) Toggle(ctx context.Context, id, viewer, code string) (bool, error) {
	e, err := w.open(ctx, id)
	if err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.outline(viewer).Toggle(code), nil
}

func (w *Workspace) ExpandAll(ctx context.Context, id, viewer string) error {
	e, err := w.open(ctx, id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.outline(viewer).ExpandAll()
	return nil
}

func (w *Workspace) CollapseAll(ctx context.Context, id, viewer string) error {
	e, err := w.open(ctx, id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.outline(viewer).CollapseAll()
	return nil
}

// Edit changes one leaf value. The stored row text is updated first and the
// loaded sheet recomputed afterwards, so a reload gives the same result.
func (w *Workspace) Edit(ctx context.Context, id string, position int, field boq.Field, text string) error {
	e, err := w.open(ctx, id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.sheet.Row(position)
	if !ok {
		return fmt.Errorf("%w: position %d", boq.ErrRowNotFound, position)
	}
	if e.sheet.Aggregated(position) {
		return fmt.Errorf("%w: %s", boq.ErrNotEditable, r.Code)
	}
	switch field {
	case boq.FieldQuantity, boq.FieldRate, boq.FieldMarkup:
	default:
		return fmt.Errorf("%w: %q", boq.ErrUnknownField, field)
	}

	updated, err := w.store.UpdateRowField(ctx, id, position, field, text)
	if err != nil {
		return fmt.Errorf("save edit: %w", err)
	}
	e.info.UpdatedAt = updated
	if err := e.sheet.Edit(position, field, text); err != nil {
		return err
	}
	w.log.Debug("boq edited",
		zap.String("boq_id", id),
		zap.Int("position", position),
		zap.String("field", string(field)))
	return nil
}

// Evict drops a BOQ from the cache; the next access reloads it.
func (w *Workspace) Evict(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.loaded, id)
}

// outline returns the expand/collapse state of viewer, creating a collapsed one
// on first use. e.mu must be held.
func (e *entry) outline(viewer string) *boq.Outline {
	if o, ok := e.outlines[viewer]; ok {
		return o
	}
	if len(e.order) >= maxViewers {
		oldest := e.order[0]
		e.order = e.order[1:]
		delete(e.outlines, oldest)
	}
	o := boq.NewOutline(e.sheet.Index())
	e.outlines[viewer] = o
	e.order = append(e.order, viewer)
	return o
}

// rows lists every row. Expanded is taken from outline and is false when
// outline is nil.
func (e *entry) rows(outline *boq.Outline) []ViewRow {
	h := e.sheet.Index()
	rows := e.sheet.Rows()
	out := make([]ViewRow, len(rows))
	for i, r := range rows {
		out[i] = ViewRow{
			Position:    i,
			Row:         r,
			Depth:       e.sheet.Depth(r.Code),
			HasChildren: r.Code != "" && !r.IsRate() && h.HasChildren(r.Code),
			Expanded:    outline != nil && outline.Expanded(r.Code),
			Aggregated:  e.sheet.Aggregated(i),
		}
	}
	return out
}
