package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/memotime/internal/config"
	"github.com/dukerupert/memotime/internal/database"
	"github.com/dukerupert/memotime/internal/logging"
	"github.com/dukerupert/memotime/internal/server"
)

const cleanupInterval = 5 * time.Minute

// flags mirror the MEMOTIME_* variables and win over them when set.
type flags struct {
	port      int
	dbDriver  string
	dbDSN     string
	logLevel  string
	logFormat string
	rateLimit int
	envFile   string
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:           "memotime",
		Short:         "Notes and task timers over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, f)
		},
	}

	pf := root.PersistentFlags()
	pf.IntVar(&f.port, "port", 0, "HTTP listen port (MEMOTIME_PORT)")
	pf.StringVar(&f.dbDriver, "db-driver", "", "database driver: sqlite or postgres (MEMOTIME_DB_DRIVER)")
	pf.StringVar(&f.dbDSN, "db", "", "database file path or connection URL (MEMOTIME_DB_DSN)")
	pf.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error (MEMOTIME_LOG_LEVEL)")
	pf.StringVar(&f.logFormat, "log-format", "", "text or json (MEMOTIME_LOG_FORMAT)")
	pf.IntVar(&f.rateLimit, "rate-limit", 0, "requests per minute per client IP, 0 disables (MEMOTIME_RATE_LIMIT)")
	pf.StringVar(&f.envFile, "env-file", ".env", "dotenv file to read before the environment")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd, f)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or upgrade the schema and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(cmd, f)
				if err != nil {
					return err
				}
				logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
				if err := database.Migrate(cmd.Context(), cfg.Database()); err != nil {
					return err
				}
				logger.Info("schema up to date", "driver", cfg.DBDriver)
				return nil
			},
		},
	)
	return root
}

// loadConfig layers explicitly set flags over the environment.
func loadConfig(cmd *cobra.Command, f *flags) (config.Config, error) {
	cfg, err := config.Load(f.envFile)
	if err != nil {
		return config.Config{}, err
	}

	changed := cmd.Flags().Changed
	if changed("port") {
		cfg.Port = f.port
	}
	if changed("db-driver") {
		cfg.DBDriver = f.dbDriver
	}
	if changed("db") {
		cfg.DBDSN = f.dbDSN
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
	if changed("rate-limit") {
		cfg.RateLimit = f.rateLimit
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, f *flags) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	srv := server.New(db, server.Options{RateLimit: cfg.RateLimit}, logger)
	defer srv.Close()

	if rl := srv.RateLimiter(); rl != nil {
		go func() {
			ticker := time.NewTicker(cleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					rl.Cleanup()
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("memotime listening", "addr", httpServer.Addr, "driver", cfg.DBDriver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Hijacked WebSocket connections are not tracked by Shutdown.
	srv.Close()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
