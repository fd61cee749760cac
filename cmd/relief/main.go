package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/shelterstock/relief/internal/api"
	"github.com/shelterstock/relief/internal/config"
	"github.com/shelterstock/relief/internal/db"
	"github.com/shelterstock/relief/internal/idempotency"
	"github.com/shelterstock/relief/internal/model"
	"github.com/shelterstock/relief/internal/observability"
	"github.com/shelterstock/relief/internal/store"
	"github.com/shelterstock/relief/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("relief", flag.ContinueOnError)
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "")
	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "")
	fs.StringVar(&cfg.LogFile, "log", cfg.LogFile, "")
	fs.StringVar(&cfg.LogFile, "l", cfg.LogFile, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: relief [flags]

Flags override the matching RELIEF_* environment variables.
  -d, -db <path>          SQLite database path (RELIEF_DB, default: relief.sqlite3)
  -a, -addr <host:port>   listen address (RELIEF_ADDR, default: :8080)
  -l, -log <path>         log file path (RELIEF_LOG_FILE)
  -h, -help               show this help and exit

Other settings: RELIEF_ENV, RELIEF_ADMIN_USER, RELIEF_LOG_FORMAT,
RELIEF_REDIS_ADDR, RELIEF_IDEMPOTENCY_TTL, RELIEF_RATE_LIMIT,
RELIEF_READ_TIMEOUT, RELIEF_WRITE_TIMEOUT, RELIEF_REQUEST_TIMEOUT,
RELIEF_SHUTDOWN_TIMEOUT.
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	logger, closeLog, err := newLogger(cfg.LogFormat, cfg.LogFile, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	err = run(cfg)
	closeLog()
	if err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}
	slog.Info("database ready", "path", cfg.DBPath)

	if err := bootstrapAdmin(ctx, database, cfg.AdminUser); err != nil {
		return err
	}

	// Load JWT secret from database (auto-generated on first run).
	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("getting JWT secret: %w", err)
	}

	var idem *idempotency.Store
	if cfg.RedisAddr != "" {
		client, err := idempotency.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer client.Close()
		idem = idempotency.NewStore(client, cfg.IdempotencyTTL)
		slog.Info("idempotency keys enabled", "redis", cfg.RedisAddr, "ttl", cfg.IdempotencyTTL)
	} else {
		slog.Warn("RELIEF_REDIS_ADDR not set, Idempotency-Key headers are ignored")
	}

	metrics := observability.NewMetrics()
	svc := workflow.NewService(database, idem, metrics)

	router := api.NewRouter(database, api.RouterConfig{
		JWTSecret:      jwtSecret,
		Service:        svc,
		Metrics:        metrics,
		RateLimit:      cfg.RateLimit,
		RequestTimeout: cfg.RequestTimeout,
		Production:     cfg.IsProduction(),
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server started", "addr", cfg.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped, closing database")
	return nil
}

// bootstrapAdmin creates the first admin account when none exists and
// prints its generated password once.
func bootstrapAdmin(ctx context.Context, database *sql.DB, username string) error {
	n, err := store.CountAdmins(ctx, database)
	if err != nil {
		return fmt.Errorf("counting admins: %w", err)
	}
	if n > 0 {
		return nil
	}

	password, err := generatePassword(16)
	if err != nil {
		return fmt.Errorf("generating password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if _, err := store.CreateUser(ctx, database, username, string(hash), model.RoleAdmin, nil); err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
	fmt.Println()
	return nil
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
