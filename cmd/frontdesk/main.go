// cmd/frontdesk/main.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"frontdesk/internal/catalog"
	"frontdesk/internal/config"
	"frontdesk/internal/journal"
	"frontdesk/internal/library"
	"frontdesk/internal/logging"
	"frontdesk/internal/protocol"
	"frontdesk/internal/session"
	"frontdesk/internal/telemetry"
	"frontdesk/internal/transport"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "frontdesk:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnvironment()
	if err != nil {
		return err
	}
	logger, err := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, version)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error("flush traces", "error", err)
		}
	}()

	store, err := catalog.LoadBookstore(cfg.BooksFile)
	if err != nil {
		return err
	}

	opts := []library.Option{library.WithLogger(logger)}
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		pg := journal.NewPostgres(db)
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		opts = append(opts, library.WithJournal(pg), library.WithSnapshots(pg))
	} else {
		dir, err := journal.NewDir(cfg.DataDir)
		if err != nil {
			return err
		}
		opts = append(opts, library.WithSnapshots(dir))
	}

	lib, err := library.New(store, opts...)
	if err != nil {
		return err
	}
	if err := lib.Load(ctx); err != nil {
		logger.Error("load snapshots, starting empty", "error", err)
	}
	if cfg.AdminPassword != "" {
		if err := lib.EnsureEmployee(ctx, cfg.AdminUser, cfg.AdminPassword); err != nil {
			return fmt.Errorf("create employee account: %w", err)
		}
	} else {
		logger.Warn("no admin password configured, employee account not created")
	}

	proxy := session.NewProxy(lib, logger.With("component", "session"))
	srv := protocol.NewServer(proxy, logger.With("component", "protocol"))
	handler := transport.NewHandler(srv, logger.With("component", "transport"))

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("starting frontdesk", "addr", cfg.Addr, "books", cfg.BooksFile, "version", version)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if err := lib.Save(shutdownCtx); err != nil {
		return fmt.Errorf("save snapshots: %w", err)
	}
	logger.Info("state saved")
	return nil
}
