package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vetcare/practice/internal/config"
	"github.com/vetcare/practice/internal/platform/db"
	"github.com/vetcare/practice/internal/platform/events"
	"github.com/vetcare/practice/internal/platform/logging"
	"github.com/vetcare/practice/internal/platform/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "practice-server",
		Short: "Veterinary practice records API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads and validates configuration. Flags bound to v take
// precedence over the environment.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg, err := config.LoadFrom(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
	cmd.Flags().String("port", "", "Port to listen on (overrides PORT)")
	cmd.Flags().String("store", "", "Store driver: memory, mongo or postgres (overrides STORE_DRIVER)")
	_ = v.BindPFlag("PORT", cmd.Flags().Lookup("port"))
	_ = v.BindPFlag("STORE_DRIVER", cmd.Flags().Lookup("store"))
	return cmd
}

func migrateCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage store indexes",
	}
	cmd.PersistentFlags().String("store", "", "Store driver (overrides STORE_DRIVER)")
	_ = v.BindPFlag("STORE_DRIVER", cmd.PersistentFlags().Lookup("store"))

	// migrate up
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Create collections and their indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			backend, err := openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer backend.Close(context.Background())

			cols := openCollections(backend)
			if err := cols.migrate(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ensured indexes on %d collection(s) in %s store.\n", len(cols.status()), backend.Name())
			return nil
		},
	})

	// migrate status
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show collections, their indexes and record counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			backend, err := openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer backend.Close(context.Background())

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Store: %s\n", backend.Name())
			fmt.Fprintf(out, "%-20s %-8s %s\n", "COLLECTION", "RECORDS", "INDEXES")
			for _, s := range openCollections(backend).status() {
				n, err := s.count(ctx)
				if err != nil {
					return fmt.Errorf("count %s: %w", s.name, err)
				}
				fmt.Fprintf(out, "%-20s %-8d %s\n", s.name, n, indexNames(s.indexes))
			}
			return nil
		},
	})

	return cmd
}

// openBackend connects to the configured store.
func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return store.NewMemory(), nil
	case config.DriverMongo:
		m, err := store.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, db.PoolConfig{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return nil, err
		}
		return store.NewPostgres(pool), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func runServer(cfg *config.Config) error {
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	defer backend.Close(context.Background())
	logger.Info().Str("driver", backend.Name()).Msg("connected to store")

	cols := openCollections(backend)
	if err := cols.migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure indexes")
	}

	// Change events are optional; without NATS they are dropped.
	pub := events.Nop()
	if cfg.NATSURL != "" {
		nc, err := events.ConnectNATS(cfg.NATSURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer nc.Close()
		pub = nc
		logger.Info().Str("url", cfg.NATSURL).Msg("publishing change events")
	}

	var reg *prometheus.Registry
	if cfg.MetricsEnabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	e := newServer(cfg, deps{
		backend: backend,
		cols:    cols,
		pub:     pub,
		reg:     reg,
		logger:  logger,
	})

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

