package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Simplici0/boqview/internal/auth"
	"github.com/Simplici0/boqview/internal/boq"
	"github.com/Simplici0/boqview/internal/config"
	"github.com/Simplici0/boqview/internal/db"
	"github.com/Simplici0/boqview/internal/logger"
	"github.com/Simplici0/boqview/internal/migrations"
	"github.com/Simplici0/boqview/internal/seed"
	"github.com/Simplici0/boqview/internal/store"
	"github.com/Simplici0/boqview/internal/workspace"
)

type server struct {
	auth         *auth.Service
	store        *store.Store
	ws           *workspace.Workspace
	log          *logger.Logger
	templatesDir string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	for _, key := range cfg.Missing() {
		log.Warn("environment variable is not set", "key", key)
	}

	policy, err := boq.PolicyByName(cfg.RollupPolicy)
	if err != nil {
		fatal(log, "invalid rollup policy", err)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		fatal(log, "failed to open database", err)
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		fatal(log, "failed to run database migrations", err)
	}

	ctx := context.Background()
	stats, err := seed.Run(ctx, database, seed.Config{
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
		Demo:          cfg.IsDev(),
	})
	if err != nil {
		fatal(log, "failed to seed database", err)
	}
	log.Info("seed complete", "inserts", stats.Inserts)

	st := store.New(database)
	srv := &server{
		auth:         auth.NewService(database, cfg.SessionSecret),
		store:        st,
		ws:           workspace.New(st, log.Zap(), boq.WithPolicy(policy)),
		log:          log,
		templatesDir: cfg.TemplatesDir,
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info("listening", "addr", httpServer.Addr, "policy", policy.Name(), "env", cfg.Env)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal(log, "server stopped", err)
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))
	r.Get("/", s.handleHome)
	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLoginSubmit)
	r.Post("/logout", s.handleLogout)

	r.Get("/boqs", s.handleBOQList)
	r.Get("/boqs/{id}", s.handleBOQView)
	r.Get("/boqs/{id}/rows.json", s.handleRowsJSON)
	r.Get("/boqs/{id}/export.xlsx", s.handleExport)
	r.Post("/boqs/{id}/toggle", s.handleToggle)
	r.Post("/boqs/{id}/expand-all", s.handleExpandAll)
	r.Post("/boqs/{id}/collapse-all", s.handleCollapseAll)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/boqs", s.handleBOQUpload)
		r.Post("/boqs/{id}/rows/{pos}", s.handleRowEdit)
		r.Post("/boqs/{id}/delete", s.handleBOQDelete)
	})

	return r
}

func fatal(log *logger.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	log.Sync()
	os.Exit(1)
}
