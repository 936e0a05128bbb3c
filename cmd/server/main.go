package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/liamcoop/credit/artifact"
	"github.com/liamcoop/credit/audit"
	"github.com/liamcoop/credit/internal/config"
	"github.com/liamcoop/credit/internal/logger"
	"github.com/liamcoop/credit/policy"
	"github.com/liamcoop/credit/scoring"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}
	log := logger.New(cfg.Log)

	engineOpts := []scoring.Option{scoring.WithLogger(log)}
	if cfg.RiskPolicyFile != "" {
		p, err := policy.LoadFile(cfg.RiskPolicyFile)
		if err != nil {
			logger.Fatal("failed to load risk policy", "path", cfg.RiskPolicyFile, "error", err)
		}
		log.Info("risk policy loaded", "path", cfg.RiskPolicyFile, "tiers", len(p.Tiers()))
		engineOpts = append(engineOpts, scoring.WithRiskClassifier(p))
	}

	engine := scoring.NewEngine(artifact.DirLoader{Dir: cfg.ArtifactDir}, engineOpts...)

	opts := Options{
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
	}

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		db, err = audit.Open(ctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			logger.Fatal("failed to connect to database", "error", err)
		}
		defer db.Close()

		opts.Store = audit.NewPostgresStore(db)
		opts.DB = db
		log.Info("recording decisions in postgres")
	} else {
		log.Info("DATABASE_URL not set, recording decisions in memory")
	}

	server := NewServer(engine, opts)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "addr", httpServer.Addr, "mode", engine.Mode())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("server shutdown error", "error", err)
	}
	if err := logger.Shutdown(ctx); err != nil {
		log.Error("logger shutdown error", "error", err)
	}

	log.Info("server stopped")
}
