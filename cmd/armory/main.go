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

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/armory/internal/api"
	"github.com/erazemk/armory/internal/auth"
	"github.com/erazemk/armory/internal/blob"
	"github.com/erazemk/armory/internal/config"
	"github.com/erazemk/armory/internal/db"
	"github.com/erazemk/armory/internal/metrics"
	"github.com/erazemk/armory/internal/qr"
	"github.com/erazemk/armory/internal/registry"
	"github.com/erazemk/armory/internal/store"
)

// purgeInterval is how often expired revoked tokens are removed.
const purgeInterval = time.Hour

type flags struct {
	configPath string
	dbPath     string
	addr       string
	adminUser  string
	logPath    string
}

func parseFlags(args []string) (*flags, error) {
	fs := flag.NewFlagSet("armory", flag.ContinueOnError)
	f := &flags{}

	fs.StringVar(&f.configPath, "config", "", "")
	fs.StringVar(&f.configPath, "c", "", "")
	fs.StringVar(&f.dbPath, "db", "", "")
	fs.StringVar(&f.dbPath, "d", "", "")
	fs.StringVar(&f.addr, "addr", "", "")
	fs.StringVar(&f.addr, "a", "", "")
	fs.StringVar(&f.adminUser, "user", "", "")
	fs.StringVar(&f.adminUser, "u", "", "")
	fs.StringVar(&f.logPath, "log", "", "")
	fs.StringVar(&f.logPath, "l", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: armory [flags]

Flags:
  -c, -config <path>      YAML config file (default: $CONFIG_PATH or ./config.yaml)
  -d, -db <path>          SQLite database path (default: armory.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        admin username on first run (default: Admin)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Flags override the config file and ARMORY_* environment variables.
`)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return f, nil
}

// apply overrides cfg with the flags that were set.
func (f *flags) apply(cfg *config.Config) {
	if f.dbPath != "" {
		cfg.Database.Path = f.dbPath
	}
	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
	if f.adminUser != "" {
		cfg.Admin.Username = f.adminUser
	}
	if f.logPath != "" {
		cfg.Log.Path = f.logPath
	}
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	f.apply(cfg)

	closeLog, err := setupLogger(cfg.Log.SlogLevel(), cfg.Log.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg); err != nil {
		slog.Error("fatal", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Auto-init a fresh database with an admin account.
	if _, err := os.Stat(cfg.Database.Path); os.IsNotExist(err) {
		password, err := initDatabase(cfg.Database.Path, cfg.Admin.Username)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		printInitResult(cfg.Database.Path, cfg.Admin.Username, password)
		fmt.Println()
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	slog.Info("database ready", "path", cfg.Database.Path)

	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("loading jwt secret: %w", err)
	}

	blobs, err := blob.Open(ctx, blob.Config{
		Driver: cfg.Blob.Driver,
		FSRoot: cfg.Blob.FSRoot,
		S3: blob.S3Config{
			Bucket:          cfg.Blob.S3.Bucket,
			Region:          cfg.Blob.S3.Region,
			Endpoint:        cfg.Blob.S3.Endpoint,
			PathStyle:       cfg.Blob.S3.PathStyle,
			AccessKeyID:     cfg.Blob.S3.AccessKeyID,
			SecretAccessKey: cfg.Blob.S3.SecretAccessKey,
		},
	})
	if err != nil {
		return fmt.Errorf("opening blob store: %w", err)
	}
	slog.Info("blob store ready", "driver", blobs.Driver())

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	qrService := qr.NewService(database, blobs, qr.NewRenderer(cfg.QR.Size), m, cfg.QR.QueueSize)
	router := api.NewRouter(api.Deps{
		DB:          database,
		Tokens:      auth.NewTokens(jwtSecret, cfg.Server.TokenTTL),
		Registry:    registry.New(database, qrService, m),
		QR:          qrService,
		Metrics:     m,
		MetricsPath: cfg.Metrics.Path,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return qrService.Run(gctx, cfg.QR.Workers)
	})

	g.Go(func() error {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case now := <-ticker.C:
				n, err := store.PurgeRevokedTokens(gctx, database, now)
				if err != nil {
					slog.Warn("purging revoked tokens", "error", err)
					continue
				}
				if n > 0 {
					slog.Debug("purged revoked tokens", "count", n)
				}
			}
		}
	})

	g.Go(func() error {
		slog.Info("server started", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped, closing database")
	return nil
}
