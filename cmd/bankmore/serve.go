package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/baharkarakas/bankmore/internal/api"
	"github.com/baharkarakas/bankmore/internal/auth"
	"github.com/baharkarakas/bankmore/internal/cache"
	"github.com/baharkarakas/bankmore/internal/config"
	"github.com/baharkarakas/bankmore/internal/db"
	"github.com/baharkarakas/bankmore/internal/events"
	"github.com/baharkarakas/bankmore/internal/gateway"
	"github.com/baharkarakas/bankmore/internal/idempotency"
	"github.com/baharkarakas/bankmore/internal/ledger"
	"github.com/baharkarakas/bankmore/internal/logger"
	"github.com/baharkarakas/bankmore/internal/metrics"
	"github.com/baharkarakas/bankmore/internal/models"
	"github.com/baharkarakas/bankmore/internal/repository"
	"github.com/baharkarakas/bankmore/internal/repository/postgres"
	"github.com/baharkarakas/bankmore/internal/services"
	"github.com/baharkarakas/bankmore/internal/worker"
)

// app holds what every subcommand shares once config is loaded and the
// database is reachable.
type app struct {
	ctx     context.Context
	cfg     config.Config
	log     *slog.Logger
	db      *pgxpool.Pool
	repos   repository.Repositories
	tm      *auth.TokenManager
	service string
}

func run(service string, fn func(*app) error) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Env, service)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	if cfg.Migrate || service == "migrate" {
		if err := db.RunMigrations(ctx, pool, log); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	}

	metrics.Init()
	a := &app{
		ctx:     ctx,
		cfg:     cfg,
		log:     log,
		db:      pool,
		repos:   postgres.NewRepositories(pool),
		tm:      auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL, cfg.ServiceTokenTTL),
		service: service,
	}
	return fn(a)
}

func (a *app) balances() cache.Balances {
	if a.cfg.BalanceCache == "postgres" {
		return cache.NewPostgres(a.db, a.log)
	}
	return cache.NewMemory()
}

func (a *app) idempotency(scope string) *idempotency.Store {
	policy := idempotency.ProceedInFlight
	if a.cfg.IdempotencyRejectInFlight {
		policy = idempotency.RejectInFlight
	}
	return idempotency.New(a.repos.Idempotency, scope, policy, a.log)
}

func (a *app) accountClient() *gateway.Client {
	return gateway.NewClient(a.cfg.AccountAPIBaseURL, a.cfg.GatewayTimeout, a.tm.ServiceTokens(a.service), a.log)
}

// serve runs h until the context is cancelled, then shuts down gracefully.
func (a *app) serve(ctx context.Context, h http.Handler) error {
	srv := &http.Server{
		Addr:              ":" + a.cfg.HTTPPort,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		a.log.Info("server starting", "port", a.cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	a.log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runAccountAPI(a *app) error {
	c := a.balances()
	l := ledger.New(a.repos.Accounts, a.repos.Movements, c, a.cfg.BalanceCacheTTL, a.log)
	svc := services.NewAccountService(a.repos, l, a.idempotency("movement"), c, a.tm, a.log)
	return a.serve(a.ctx, api.NewAccountRouter(a.cfg, a.tm, svc))
}

func runTransferAPI(a *app) error {
	bus, err := events.OpenPostgres(a.ctx, a.db, a.log)
	if err != nil {
		return err
	}
	defer bus.Close()

	client := a.accountClient()
	svc := services.NewTransferService(a.repos, client, client, a.idempotency("transfer"), bus, a.balances(),
		services.TransferOptions{CompensateOnFailure: a.cfg.CompensateOnFailure}, a.log)
	return a.serve(a.ctx, api.NewTransferRouter(a.cfg, a.tm, svc))
}

func (a *app) feeService(bus events.Publisher) *services.FeeService {
	client := a.accountClient()
	return services.NewFeeService(a.repos.Fees, client, client, bus, a.balances(), a.cfg.TransferFee, a.log)
}

func (a *app) consumer(bus *events.Postgres, fees *services.FeeService) (*events.Consumer, *worker.Pool) {
	pool := worker.NewPool(a.cfg.Workers)
	c := events.NewConsumer(bus, pool, events.ConsumerConfig{
		Group:        a.cfg.ConsumerGroup,
		Topic:        models.TopicTransferCompleted,
		BatchSize:    a.cfg.EventsBatchSize,
		PollInterval: a.cfg.EventsPollInterval,
	}, fees.Handle, a.log)
	return c, pool
}

func runFeeAPI(a *app, withConsumer bool) error {
	bus, err := events.OpenPostgres(a.ctx, a.db, a.log)
	if err != nil {
		return err
	}
	defer bus.Close()
	fees := a.feeService(bus)

	g, ctx := errgroup.WithContext(a.ctx)
	g.Go(func() error { return a.serve(ctx, api.NewFeeRouter(a.cfg, a.tm, fees)) })
	if withConsumer {
		c, pool := a.consumer(bus, fees)
		defer pool.Stop()
		g.Go(func() error { return c.Run(ctx) })
	}
	return g.Wait()
}

func runFeeConsumer(a *app) error {
	bus, err := events.OpenPostgres(a.ctx, a.db, a.log)
	if err != nil {
		return err
	}
	defer bus.Close()

	c, pool := a.consumer(bus, a.feeService(bus))
	defer pool.Stop()
	return c.Run(a.ctx)
}
