package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/boqview/internal/boq"
)

// ErrNotFound is returned when a BOQ or one of its rows does not exist.
var ErrNotFound = errors.New("not found")

const timeLayout = "2006-01-02 15:04:05.000000"

// BOQ is the summary of a stored bill of quantities.
type BOQ struct {
	ID         string
	Title      string
	SourceFile string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Rows       int
}

// Document is a BOQ with its raw rows in upload order.
type Document struct {
	BOQ
	Records []boq.Record
}

// Store persists BOQs and their raw row text in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

var fieldColumns = map[boq.Field]string{
	boq.FieldQuantity: "quantity",
	boq.FieldRate:     "rate",
	boq.FieldMarkup:   "markup",
}

// CreateBOQ stores a new BOQ with its rows and returns its summary.
func (s *Store) CreateBOQ(ctx context.Context, title, fileName string, records []boq.Record) (BOQ, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = strings.TrimSpace(fileName)
	}
	now := s.now().UTC()
	b := BOQ{
		ID:         uuid.NewString(),
		Title:      title,
		SourceFile: fileName,
		CreatedAt:  now,
		UpdatedAt:  now,
		Rows:       len(records),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return BOQ{}, fmt.Errorf("begin create boq transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO boqs (id, title, source_file, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, b.ID, b.Title, b.SourceFile, now.Format(timeLayout), now.Format(timeLayout)); err != nil {
		_ = tx.Rollback()
		return BOQ{}, fmt.Errorf("insert boq: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO boq_rows (boq_id, position, code, description, quantity, unit, rate, subtotal, markup, total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return BOQ{}, fmt.Errorf("prepare row insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		if _, err := stmt.ExecContext(ctx, b.ID, i,
			rec[boq.ColCode], rec[boq.ColDescription], rec[boq.ColQuantity], rec[boq.ColUnit],
			rec[boq.ColRate], rec[boq.ColSubtotal], rec[boq.ColMarkup], rec[boq.ColTotal],
		); err != nil {
			_ = tx.Rollback()
			return BOQ{}, fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return BOQ{}, fmt.Errorf("commit create boq transaction: %w", err)
	}
	return b, nil
}

// ListBOQs returns BOQs newest first. A non-empty query filters on title and
// source file name.
func (s *Store) ListBOQs(ctx context.Context, query string) ([]BOQ, error) {
	query = strings.TrimSpace(query)
	search := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			b.id,
			b.title,
			b.source_file,
			b.created_at,
			b.updated_at,
			(SELECT COUNT(*) FROM boq_rows r WHERE r.boq_id = b.id)
		FROM boqs b
		WHERE (? = '' OR b.title LIKE ? OR b.source_file LIKE ?)
		ORDER BY b.created_at DESC, b.rowid DESC
	`, query, search, search)
	if err != nil {
		return nil, fmt.Errorf("query boqs: %w", err)
	}
	defer rows.Close()

	out := make([]BOQ, 0)
	for rows.Next() {
		b, err := scanBOQ(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boqs: %w", err)
	}
	return out, nil
}

// CountBOQs returns the number of stored BOQs.
func (s *Store) CountBOQs(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM boqs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count boqs: %w", err)
	}
	return n, nil
}

// GetBOQ loads a BOQ and its raw rows.
func (s *Store) GetBOQ(ctx context.Context, id string) (Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			b.id,
			b.title,
			b.source_file,
			b.created_at,
			b.updated_at,
			(SELECT COUNT(*) FROM boq_rows r WHERE r.boq_id = b.id)
		FROM boqs b
		WHERE b.id = ?
	`, id)
	b, err := scanBOQ(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("boq %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Document{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT code, description, quantity, unit, rate, subtotal, markup, total
		FROM boq_rows
		WHERE boq_id = ?
		ORDER BY position
	`, id)
	if err != nil {
		return Document{}, fmt.Errorf("query boq rows: %w", err)
	}
	defer rows.Close()

	doc := Document{BOQ: b, Records: make([]boq.Record, 0, b.Rows)}
	for rows.Next() {
		var rec boq.Record
		if err := rows.Scan(&rec[0], &rec[1], &rec[2], &rec[3], &rec[4], &rec[5], &rec[6], &rec[7]); err != nil {
			return Document{}, fmt.Errorf("scan boq row: %w", err)
		}
		doc.Records = append(doc.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return Document{}, fmt.Errorf("iterate boq rows: %w", err)
	}
	return doc, nil
}

// UpdateRowField replaces the raw text of one editable field of a row and returns
// the new updated_at of the BOQ.
func (s *Store) UpdateRowField(ctx context.Context, id string, position int, field boq.Field, text string) (time.Time, error) {
	column, ok := fieldColumns[field]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", boq.ErrUnknownField, field)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("begin update row transaction: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE boq_rows SET `+column+` = ? WHERE boq_id = ? AND position = ?`,
		strings.TrimSpace(text), id, position)
	if err != nil {
		_ = tx.Rollback()
		return time.Time{}, fmt.Errorf("update boq row: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return time.Time{}, fmt.Errorf("update boq row: %w", err)
	}
	if affected == 0 {
		_ = tx.Rollback()
		return time.Time{}, fmt.Errorf("boq %s row %d: %w", id, position, ErrNotFound)
	}

	updated := s.now().UTC().Truncate(time.Microsecond)
	if _, err := tx.ExecContext(ctx, `UPDATE boqs SET updated_at = ? WHERE id = ?`,
		updated.Format(timeLayout), id); err != nil {
		_ = tx.Rollback()
		return time.Time{}, fmt.Errorf("touch boq: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return time.Time{}, fmt.Errorf("commit update row transaction: %w", err)
	}
	return updated, nil
}

// DeleteBOQ removes a BOQ and its rows.
func (s *Store) DeleteBOQ(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM boqs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete boq: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete boq: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("boq %s: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBOQ(sc scanner) (BOQ, error) {
	var (
		b                BOQ
		created, updated string
	)
	if err := sc.Scan(&b.ID, &b.Title, &b.SourceFile, &created, &updated, &b.Rows); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return BOQ{}, err
		}
		return BOQ{}, fmt.Errorf("scan boq: %w", err)
	}
	b.CreatedAt = parseTime(created)
	b.UpdatedAt = parseTime(updated)
	return b, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
