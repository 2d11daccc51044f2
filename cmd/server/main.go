package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/todmy/faers-signals/internal/api"
	"github.com/todmy/faers-signals/internal/auth"
	"github.com/todmy/faers-signals/internal/cache"
	"github.com/todmy/faers-signals/internal/config"
	"github.com/todmy/faers-signals/internal/logging"
	"github.com/todmy/faers-signals/internal/signal"
	"github.com/todmy/faers-signals/internal/storage"
)

func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "faers-signals",
		Short:         "FAERS drug-event disproportionality signal service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (default ./config.yaml)")

	rootCmd.AddCommand(serveCmd(&configFile))
	rootCmd.AddCommand(migrateCmd(&configFile))
	rootCmd.AddCommand(analyzeCmd(&configFile))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := ossignal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, *configFile)
		},
	}
}

func migrateCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configFile, os.Stdout)
			if err != nil {
				return err
			}

			db, err := openDB(cmd.Context(), cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			return storage.Migrate(db, logger)
		},
	}
}

func runServer(ctx context.Context, configFile string) error {
	cfg, logger, err := loadConfig(configFile, os.Stdout)
	if err != nil {
		return err
	}
	if err := cfg.ValidateForServing(); err != nil {
		return err
	}

	db, err := openDB(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.MigrateOnStart {
		if err := storage.Migrate(db, logger); err != nil {
			return err
		}
	}

	engine, err := signal.NewService(cfg.Analysis.SignalConfig(), logger)
	if err != nil {
		return err
	}

	resultCache, closeCache, err := buildCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	authService := auth.NewJWTService(auth.Config{
		SecretKey:     cfg.Auth.JWTSecret,
		TokenDuration: cfg.Auth.TokenDuration,
	}, auth.NewPostgresRepository(db))

	server := api.NewServer(api.Dependencies{
		Auth:     authService,
		Engine:   engine,
		Cases:    storage.NewPostgresCaseRepository(db),
		Analyses: storage.NewPostgresAnalysisRepository(db),
		Cache:    resultCache,
		Logger:   logger,
	})

	logger.WithFields(logrus.Fields{
		"min_count": cfg.Analysis.MinCount,
		"alpha":     cfg.Analysis.Alpha,
		"workers":   cfg.Analysis.Workers,
	}).Info("Starting faers-signals server")

	return server.Run(ctx, cfg.Server.Address())
}

// loadConfig reads and validates configuration and builds a logger writing to logOut
func loadConfig(configFile string, logOut io.Writer) (*config.Config, *logrus.Logger, error) {
	manager, err := config.NewManager(configFile)
	if err != nil {
		return nil, nil, err
	}
	if err := manager.Validate(); err != nil {
		return nil, nil, err
	}

	cfg := manager.GetConfig()
	return cfg, logging.New(cfg.Logging.Level, cfg.Logging.Format, logOut), nil
}

// openDB is swapped out by tests that run commands against sqlmock
var openDB = openDatabase

func openDatabase(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// buildCache returns the in-process LRU, fronting Redis when an address is configured
func buildCache(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (cache.Cache, func(), error) {
	memory, err := cache.NewMemoryCache(cfg.Cache.MemorySize)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Redis.Addr == "" {
		return memory, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).WithField("addr", cfg.Redis.Addr).Warn("Redis unavailable, using in-process cache only")
		client.Close()
		return memory, func() {}, nil
	}

	shared := cache.NewRedisCache(client, cfg.Cache.KeyPrefix, cfg.Cache.TTL)
	return cache.NewTiered(memory, shared, logger), func() { client.Close() }, nil
}
