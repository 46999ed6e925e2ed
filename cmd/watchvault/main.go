package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/voyagen/watchvault/internal/cache"
	"github.com/voyagen/watchvault/internal/config"
	"github.com/voyagen/watchvault/internal/omdb"
	"github.com/voyagen/watchvault/internal/scheduler"
	"github.com/voyagen/watchvault/internal/server"
	"github.com/voyagen/watchvault/internal/service"
	"github.com/voyagen/watchvault/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Optional config file path (YAML); else use env DATABASE_URL")
	refreshNow := flag.Bool("refresh-now", false, "Run the scheduled ratings refresh once at startup")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	setupLogging(cfg)

	ctx := context.Background()

	var appStore store.Store
	switch cfg.Store {
	case config.StoreMemory:
		appStore = store.NewMemory()
		fmt.Fprintln(os.Stderr, "using in-memory store (entries are lost on exit)")
	default:
		pg, err := openPostgres(ctx, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		defer pg.Close()
		appStore = pg
	}

	metadata := omdb.NewClient(cfg.OMDbAPIKey, cfg.OMDbBaseURL, cfg.UserAgent, cfg.Timeout)
	if metadata.Configured() {
		fmt.Fprintln(os.Stderr, "OMDb lookups enabled")
	} else {
		fmt.Fprintln(os.Stderr, "OMDb lookups disabled (OMDB_API_KEY not set)")
	}

	// Connect to Redis if REDIS_URL is configured.
	var (
		rds    *cache.Redis
		queue  service.Queue
		locker service.Locker
	)
	if cfg.RedisURL != "" {
		rds, err = cache.New(cfg.RedisURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "redis: %v\n", err)
			os.Exit(1)
		}
		defer rds.Close()

		if err := rds.Ping(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "redis ping: %v\n", err)
			os.Exit(1)
		}

		appStore = store.NewCachedStore(appStore, rds)
		jobs := service.RedisJobs{Redis: rds}
		queue, locker = jobs, jobs
		fmt.Fprintln(os.Stderr, "redis connected (caching and ratings jobs enabled)")
	} else {
		fmt.Fprintln(os.Stderr, "redis disabled (REDIS_URL not set)")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	refresher := &service.Refresher{
		Store:       appStore,
		Metadata:    metadata,
		Locker:      locker,
		Concurrency: cfg.RefreshConcurrency,
	}

	// The worker needs somewhere to take jobs from and something to look them up with.
	if rds != nil && metadata.Configured() {
		go service.RunRatingsWorker(ctx, service.RedisJobs{Redis: rds}, refresher)
	}

	if cfg.RefreshSchedule != "" && metadata.Configured() {
		sched := scheduler.New(0)
		ratingsJob := scheduler.RatingsRefreshJob{Refresher: refresher}
		if err := sched.AddJob(cfg.RefreshSchedule, ratingsJob); err != nil {
			fmt.Fprintf(os.Stderr, "scheduler: %v\n", err)
			os.Exit(1)
		}
		sched.Start()
		defer sched.Stop()
		log.Printf("ratings refresh scheduled (%s)", cfg.RefreshSchedule)

		if *refreshNow {
			go func() {
				if err := sched.RunJobNow(ratingsJob.Name()); err != nil {
					log.Printf("startup ratings refresh: %v", err)
				}
			}()
		}
	} else if *refreshNow {
		log.Println("-refresh-now ignored: needs OMDB_API_KEY and a REFRESH_SCHEDULE")
	}

	srv := server.New(appStore, cfg, metadata, queue)
	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging sends the standard logger to stdout and, when LOG_FILE is set,
// to a size-rotated file as well.
func setupLogging(cfg *config.Config) {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if cfg.LogFile == "" {
		return
	}
	fw := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, fw))
}

// openPostgres prepares the schema and connects.
func openPostgres(ctx context.Context, cfg *config.Config) (*store.Postgres, error) {
	absMigrations := migrationsDir(cfg.MigrationsPath)

	// Title search uses a trigram index.
	if err := store.EnsureExtension(cfg.DatabaseURL, "pg_trgm"); err != nil {
		return nil, fmt.Errorf("pg_trgm: %w", err)
	}
	if err := store.RunMigrations(cfg.DatabaseURL, "file://"+absMigrations); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	return pg, nil
}

// migrationsDir resolves dir against the working directory, falling back to
// the directory next to the executable.
func migrationsDir(dir string) string {
	dir = strings.TrimPrefix(dir, "file://")
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	if _, err := os.Stat(abs); err != nil && !filepath.IsAbs(dir) {
		if exe, e := os.Executable(); e == nil {
			abs = filepath.Join(filepath.Dir(exe), dir)
		}
	}
	return abs
}
