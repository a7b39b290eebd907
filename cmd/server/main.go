package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	emailPkg "clubledger/internal/adapters/email"
	web "clubledger/internal/adapters/http"
	"clubledger/internal/adapters/http/perf"
	"clubledger/internal/adapters/storage"
	accountStore "clubledger/internal/adapters/storage/account"
	catalogStore "clubledger/internal/adapters/storage/catalog"
	ledgerStore "clubledger/internal/adapters/storage/ledger"
	milestoneStore "clubledger/internal/adapters/storage/milestone"
	notificationStore "clubledger/internal/adapters/storage/notification"
	outboxStorePkg "clubledger/internal/adapters/storage/outbox"
	streakStore "clubledger/internal/adapters/storage/streak"
	"clubledger/internal/adapters/storage/uow"
	"clubledger/internal/application/orchestrators"
	"clubledger/internal/application/scheduler"
	"clubledger/internal/config"
	"clubledger/internal/domain/outbox"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("server_exit", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level, _ := cfg.SlogLevel()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// WAL mode, foreign keys and busy timeout come from the DSN pragmas.
	db, err := sql.Open("sqlite", cfg.DBPath+storage.DSNPragmas)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Connection pool settings for WAL mode
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	if err := storage.MigrateDB(db, cfg.DBPath); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	// Performance instrumentation: wrap DB with timing, create collector
	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector, cfg.SlowQueryMs)

	stores := &web.Stores{
		AccountStore:      accountStore.NewSQLiteStore(timedDB),
		LedgerStore:       ledgerStore.NewSQLiteStore(timedDB),
		StreakStore:       streakStore.NewSQLiteStore(timedDB),
		MilestoneStore:    milestoneStore.NewSQLiteStore(timedDB),
		CatalogStore:      catalogStore.NewSQLiteStore(timedDB),
		NotificationStore: notificationStore.NewSQLiteStore(timedDB),
		OutboxStore:       outboxStorePkg.NewSQLiteStore(timedDB),
	}

	// Starter catalog for development databases only
	if !cfg.IsProduction() {
		if err := orchestrators.ExecuteSeedCatalog(ctx, orchestrators.SeedCatalogDeps{ItemStore: stores.CatalogStore}); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
	}

	// Configure email sender
	var sender emailPkg.Sender
	if cfg.ResendKey != "" {
		sender = emailPkg.NewResendSender(cfg.ResendKey, cfg.EmailFrom, cfg.ReplyTo)
		slog.Info("email_sender_configured", "provider", "resend")
	} else {
		sender = emailPkg.NewNoopSender()
		if cfg.IsProduction() {
			slog.Warn("email_delivery_disabled", "reason", config.Prefix+"_RESEND_KEY is not set")
		} else {
			slog.Info("email_sender_configured", "provider", "noop")
		}
	}

	processor := orchestrators.NewOutboxProcessor(stores.OutboxStore, map[string]orchestrators.ActionExecutor{
		outbox.ActionTypeProgressEmail: &orchestrators.ProgressEmailExecutor{Sender: sender, From: cfg.EmailFrom},
	})

	sched := scheduler.New(processor)
	if err := sched.RegisterOutbox(cfg.OutboxCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	handler := web.NewMux(ctx, stores, web.Services{
		Runner: uow.NewRunner(timedDB, cfg.TxMaxAttempts),
		Outbox: processor,
		Policy: policy,
		Health: db.PingContext,
	}, collector, web.Options{
		RateLimitPerMinute: cfg.RateLimit,
		SlowRequestMs:      cfg.SlowRequestMs,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_starting",
			"version", version,
			"addr", cfg.Addr,
			"env", cfg.Env,
			"schema", storage.LatestSchemaVersion(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
