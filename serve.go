package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexbotov/slotsrv/internal/api"
	"github.com/alexbotov/slotsrv/internal/audit"
	"github.com/alexbotov/slotsrv/internal/auth"
	"github.com/alexbotov/slotsrv/internal/config"
	"github.com/alexbotov/slotsrv/internal/control"
	"github.com/alexbotov/slotsrv/internal/database"
	"github.com/alexbotov/slotsrv/internal/engine"
	"github.com/alexbotov/slotsrv/internal/game"
	"github.com/alexbotov/slotsrv/internal/jackpot"
	"github.com/alexbotov/slotsrv/internal/metrics"
	"github.com/alexbotov/slotsrv/internal/rng"
	"github.com/alexbotov/slotsrv/internal/slotconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	var db *database.DB
	if cfg.Database.Enabled {
		var err error
		db, err = database.New(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Info("database ready", zap.String("driver", cfg.Database.Driver))
	}

	legacy, err := game.NewLegacyMachine(cfg.Legacy.Paytable)
	if err != nil {
		return err
	}
	jp, err := jackpot.New(cfg.Jackpot.Floor, cfg.JackpotRate(), jackpot.WithID(cfg.Jackpot.ID))
	if err != nil {
		return err
	}
	store, closeStore, err := jackpotStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeStore()

	machines, err := machineProvider(cfg, db)
	if err != nil {
		return err
	}

	src := rng.New()
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := engine.Deps{
		RNG:      src,
		Legacy:   legacy,
		Jackpot:  jp,
		Store:    store,
		Machines: machines,
		Records:  engine.NewMemoryRecorder(0),
		Audit:    audit.New(nil, log),
		Metrics:  metrics.New(reg),
		Logger:   log,
		LargeWin: cfg.Server.LargeWin,
	}
	opts := api.Options{
		RNG:     src,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Logger:  log,
	}
	if db != nil {
		deps.Records = engine.NewPGRecorder(db.DB)
		deps.Audit = audit.New(db.DB, log)
		opts.DB = db.DB
	}
	deps.Control = control.New(opts.DB, deps.Audit)
	if err := deps.Control.LoadState(ctx); err != nil {
		return err
	}
	opts.Control = deps.Control
	opts.Audit = deps.Audit
	if cfg.Auth.Enabled {
		opts.Auth = auth.New(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	}

	eng, err := engine.New(deps)
	if err != nil {
		return err
	}
	restoreCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = eng.RestoreJackpot(restoreCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to restore jackpot: %w", err)
	}
	opts.Engine = eng

	h := api.New(opts)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      h.SetupRouter(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("jackpot_store", cfg.Jackpot.Store),
			zap.String("machines", cfg.Machines.Source),
			zap.Bool("auth", cfg.Auth.Enabled))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// jackpotStore opens the configured jackpot persistence. The returned
// close func is never nil.
func jackpotStore(ctx context.Context, cfg *config.Config, db *database.DB) (jackpot.Store, func(), error) {
	switch cfg.Jackpot.Store {
	case "postgres":
		return jackpot.NewPGStore(db.DB), func() {}, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return jackpot.NewRedisStore(rdb, cfg.Redis.Prefix), func() { rdb.Close() }, nil
	default:
		return jackpot.NewMemoryStore(), func() {}, nil
	}
}

func machineProvider(cfg *config.Config, db *database.DB) (slotconfig.Provider, error) {
	if cfg.Machines.Source == "postgres" {
		return slotconfig.NewRepository(db.DB), nil
	}
	fs, err := slotconfig.LoadFile(cfg.Machines.File)
	if err != nil {
		return nil, err
	}
	return fs, nil
}
