package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rpggio/tally/internal/auth"
	"github.com/rpggio/tally/internal/config"
	"github.com/rpggio/tally/internal/domain/project"
	"github.com/rpggio/tally/internal/domain/user"
	"github.com/rpggio/tally/internal/domain/vote"
	"github.com/rpggio/tally/internal/ledger"
	"github.com/rpggio/tally/internal/mcp"
	"github.com/rpggio/tally/internal/sqlite"
	"github.com/rpggio/tally/internal/transport"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logWriter := io.Writer(os.Stdout)
	if cfg.Log.Path != "" {
		if err := ensureDir(cfg.Log.Path); err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			rotator := &lumberjack.Logger{
				Filename:   cfg.Log.Path,
				MaxSize:    cfg.Log.MaxSizeMB,
				MaxBackups: cfg.Log.MaxBackups,
				MaxAge:     cfg.Log.MaxAgeDays,
			}
			defer rotator.Close()
			logWriter = rotator
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	if cfg.DB.Path != ":memory:" {
		if err := ensureDir(cfg.DB.Path); err != nil {
			return fmt.Errorf("prepare database path: %w", err)
		}
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	chain, err := ledger.NewChain(ctx, sqlite.NewBlockStore(db))
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	ledgerClient := ledger.NewGuard(chain, ledger.GuardConfig{
		Timeout:          cfg.Ledger.Timeout,
		Retries:          cfg.Ledger.Retries,
		Backoff:          cfg.Ledger.Backoff,
		FailureThreshold: cfg.Ledger.FailureThreshold,
		OpenTimeout:      cfg.Ledger.OpenTimeout,
		Logger:           logger,
	})

	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("create token issuer: %w", err)
	}

	projectRepo := sqlite.NewProjectRepository(db)

	userSvc := user.NewService(sqlite.NewUserRepository(db), issuer, logger)
	projectSvc := project.NewService(projectRepo, ledgerClient, logger)
	voteSvc := vote.NewService(sqlite.NewVoteRepository(db), projectRepo, ledgerClient, logger,
		vote.WithLeaseTTL(cfg.Ledger.LeaseTTL),
	)

	if cfg.Auth.AdminEmail != "" {
		if _, err := userSvc.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	scheduler, err := vote.NewScheduler(voteSvc, cfg.Ledger.ReconcileSchedule, logger)
	if err != nil {
		return fmt.Errorf("schedule reconciler: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	var mcpHandler http.Handler
	if cfg.MCP.Enabled {
		mcpServer := mcp.NewServer(mcp.Config{
			Services: mcp.Services{Projects: projectSvc, Votes: voteSvc},
			Resolver: issuer,
			Logger:   logger,
		})
		mcpHandler = mcp.NewHTTPHandler(mcpServer, cfg.MCP.SessionTimeout)
	}

	router := transport.NewServer(transport.Config{
		Services: transport.Services{Users: userSvc, Projects: projectSvc, Votes: voteSvc},
		Resolver: issuer,
		MCP:      mcpHandler,
		Logger:   logger,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "mcp", cfg.MCP.Enabled, "ledger_blocks", chain.Len())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	return waitForShutdown(logger, httpServer, cfg.Server.ShutdownTimeout, errCh)
}

func ensureDir(path string) error {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(logger *slog.Logger, server *http.Server, timeout time.Duration, errCh <-chan error) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
