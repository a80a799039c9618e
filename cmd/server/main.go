package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iudanet/vidsync/internal/server"
	"github.com/iudanet/vidsync/internal/server/jwt"
	"github.com/iudanet/vidsync/internal/server/middleware"
	"github.com/iudanet/vidsync/internal/server/storage"
	"github.com/iudanet/vidsync/internal/server/storage/boltdb"
	"github.com/iudanet/vidsync/internal/server/storage/sqlite"
	vsync "github.com/iudanet/vidsync/internal/sync"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

type config struct {
	addr            string
	dbPath          string
	dbDriver        string
	jwtSecret       string
	logLevel        string
	logFormat       string
	rateLimitWindow time.Duration
	tokenTTL        time.Duration
	rateLimit       int
}

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	issueToken := flag.String("issue-token", "", "Print a signed token for the given actor id and exit")

	cfg := config{}
	flag.StringVar(&cfg.addr, "addr", ":8080", "HTTP listen address")
	flag.StringVar(&cfg.dbPath, "db", "vidsync.db", "Database file path")
	flag.StringVar(&cfg.dbDriver, "db-driver", "sqlite", "Database driver: sqlite or bolt")
	flag.StringVar(&cfg.jwtSecret, "jwt-secret", "", "Secret for actor tokens (empty enables insecure X-Actor-ID header mode)")
	flag.StringVar(&cfg.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&cfg.logFormat, "log-format", "text", "Log format: text or json")
	flag.IntVar(&cfg.rateLimit, "rate-limit", 120, "Requests per actor per window")
	flag.DurationVar(&cfg.rateLimitWindow, "rate-limit-window", time.Minute, "Rate limit window")
	flag.DurationVar(&cfg.tokenTTL, "token-ttl", 24*time.Hour, "Actor token lifetime")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *issueToken != "" {
		if err := printActorToken(cfg, *issueToken); err != nil {
			fmt.Fprintf(os.Stderr, "failed to issue token: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	logger := setupLogger(cfg.logLevel, cfg.logFormat)

	if err := run(logger, cfg); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, cfg config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer closeStore()

	coord := vsync.NewCoordinator(logger, store)

	var actorMW func(http.Handler) http.Handler
	if cfg.jwtSecret != "" {
		tokenSvc := jwt.NewService(cfg.jwtSecret, cfg.tokenTTL)
		actorMW = middleware.ActorMiddleware(logger, tokenSvc)
	} else {
		logger.Warn("jwt secret not set, falling back to X-Actor-ID header identification")
		actorMW = middleware.ActorHeaderMiddleware(logger)
	}

	handler := server.NewRouter(logger, store, coord, actorMW, server.Config{
		Version:         Version,
		RateLimit:       cfg.rateLimit,
		RateLimitWindow: cfg.rateLimitWindow,
	})

	srv := &http.Server{
		Addr:              cfg.addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errC := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"addr", cfg.addr,
			"db_driver", cfg.dbDriver,
			"version", Version)
		errC <- srv.ListenAndServe()
	}()

	select {
	case err := <-errC:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

// openStorage открывает хранилище по выбранному драйверу
func openStorage(ctx context.Context, cfg config) (storage.EntityStorage, func(), error) {
	switch cfg.dbDriver {
	case "sqlite":
		st, err := sqlite.New(ctx, cfg.dbPath)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	case "bolt":
		st, err := boltdb.New(ctx, cfg.dbPath)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown db driver: %q", cfg.dbDriver)
	}
}

func setupLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// printActorToken выпускает токен актора для передачи клиенту вне полосы
func printActorToken(cfg config, actorID string) error {
	if cfg.jwtSecret == "" {
		return errors.New("-jwt-secret is required to issue tokens")
	}

	tokenSvc := jwt.NewService(cfg.jwtSecret, cfg.tokenTTL)
	token, expiresIn, err := tokenSvc.GenerateActorToken(actorID)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", token)
	fmt.Fprintf(os.Stderr, "expires in %d seconds\n", expiresIn)
	return nil
}

func printVersion() {
	fmt.Printf("vidsync server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
