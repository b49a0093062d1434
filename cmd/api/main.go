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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/corvusHold/courier/internal/config"
	dsvc "github.com/corvusHold/courier/internal/dispatch/service"
	emailsvc "github.com/corvusHold/courier/internal/email/service"
	evsvc "github.com/corvusHold/courier/internal/events/service"
	"github.com/corvusHold/courier/internal/logger"
	rl "github.com/corvusHold/courier/internal/platform/ratelimit"
	"github.com/corvusHold/courier/internal/queue"
	qdomain "github.com/corvusHold/courier/internal/queue/domain"
	qrepo "github.com/corvusHold/courier/internal/queue/repository"
	"github.com/corvusHold/courier/internal/tenants"
	trepo "github.com/corvusHold/courier/internal/tenants/repository"
)

func main() {
	_ = godotenv.Load()

	if handleCLICommand(os.Args[1:]) {
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(exitConfig)
	}

	log := logger.New(cfg.AppEnv)
	log.Info().Str("addr", cfg.AppAddr).Str("config", cfg.String()).Msg("starting courier")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("courier stopped with error")
	}
	log.Info().Msg("courier stopped")
}

// run wires the queue store, producer API and dispatcher, and blocks until ctx is done
// or one of them fails.
func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	store, limiter, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("queue store close failed")
		}
	}()

	// The tenant directory is optional; without it every tenant warms up from the start.
	var (
		pgPool    *pgxpool.Pool
		dirPinger pinger
	)
	if cfg.DatabaseURL != "" {
		pgCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		if pgPool, err = pgxpool.NewWithConfig(ctx, pgCfg); err != nil {
			return fmt.Errorf("create pg pool: %w", err)
		}
		defer pgPool.Close()
		dirPinger = trepo.New(pgPool)
	} else {
		log.Warn().Msg("DATABASE_URL is empty, tenant warm-up uses the starting quota")
	}
	directory := tenants.NewDirectory(pgPool, cfg.TenantCacheTTL)

	sender, err := emailsvc.NewSender(ctx, cfg, logger.Component(log, "email"))
	if err != nil {
		return fmt.Errorf("email sender: %w", err)
	}

	quota := dsvc.NewQuota(store, directory, dsvc.QuotaConfig{
		DailyQuota:  cfg.DailyQuota,
		WarmupStart: cfg.WarmupStart,
		WarmupDays:  cfg.WarmupDays,
		Strict:      cfg.WarmupStrict,
	}, logger.Component(log, "quota"))

	dispatcher := dsvc.NewDispatcher(store, dsvc.NewDomainFilter(cfg.ThrowawayDomains), quota, sender, dsvc.Config{
		MaxRetries:   cfg.MaxRetries,
		PollInterval: cfg.PollInterval,
		SendTimeout:  cfg.SendTimeout,
	})
	dispatcher.SetLogger(logger.Component(log, "dispatcher"))
	dispatcher.SetPublisher(evsvc.NewLogger(logger.Component(log, "events")))

	e := newEcho(cfg.CORSAllowedOrigins)
	producer := queue.Register(e, store, quota, queue.RateLimit{
		Store:  limiter,
		Limit:  cfg.SendRateLimit,
		Window: cfg.SendRateWindow,
	}, logger.Component(log, "api"))
	e.GET("/healthz", healthHandler(store, dirPinger))

	if n, err := producer.Depth(ctx); err != nil {
		log.Warn().Err(err).Msg("queue store not reachable at startup, dispatcher will keep polling")
	} else {
		log.Info().Int64("queue_depth", n).Str("backend", cfg.QueueBackend).Msg("queue opened")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := e.Start(cfg.AppAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := dispatcher.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown error")
		}
		return nil
	})
	return g.Wait()
}

// openStore opens the configured queue backend and the matching rate limit store.
// Redis-backed queues share their client with the limiter so limits hold across replicas.
func openStore(ctx context.Context, cfg config.Config) (qdomain.Store, rl.Store, error) {
	switch cfg.QueueBackend {
	case config.QueueBackendSQLite:
		s, err := qrepo.OpenSQLite(ctx, cfg.QueueSQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite queue: %w", err)
		}
		return s, rl.NewMemoryStore(), nil
	default:
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		return qrepo.NewRedisStore(client, cfg.QueueKey), rl.NewRedisStore(client), nil
	}
}
