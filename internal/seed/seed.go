package seed

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/Simplici0/boqview/internal/auth"
	"github.com/Simplici0/boqview/internal/store"
	"github.com/Simplici0/boqview/internal/tabular"
)

const (
	demoTitle    = "Demo house"
	demoFileName = "demo.csv"
)

//go:embed demo.csv
var demoCSV []byte

// Config contains the values required by startup seed.
type Config struct {
	AdminEmail    string
	AdminPassword string
	Demo          bool
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

// Run executes the startup seed in an idempotent way.
func Run(ctx context.Context, db *sql.DB, cfg Config) (Stats, error) {
	stats := Stats{}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}
	inserted, err := auth.EnsureUser(ctx, tx, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		_ = tx.Rollback()
		return Stats{}, fmt.Errorf("seed admin user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}
	if inserted {
		stats.Inserts++
	}

	if cfg.Demo {
		ok, err := ensureDemoBOQ(ctx, store.New(db))
		if err != nil {
			return stats, err
		}
		if ok {
			stats.Inserts++
		}
	}

	return stats, nil
}

func ensureDemoBOQ(ctx context.Context, st *store.Store) (bool, error) {
	n, err := st.CountBOQs(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	records, err := tabular.Parse(bytes.NewReader(demoCSV), demoFileName)
	if err != nil {
		return false, fmt.Errorf("parse demo boq: %w", err)
	}
	if _, err := st.CreateBOQ(ctx, demoTitle, demoFileName, records); err != nil {
		return false, fmt.Errorf("insert demo boq: %w", err)
	}
	return true, nil
}
