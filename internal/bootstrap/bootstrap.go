// Package bootstrap wires configuration into the running service: backing
// stores, provider adapters behind circuit breakers, and the aggregation and
// lifecycle services on top of them.
package bootstrap

import (
	"context"
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"rampcore/internal/application"
	"rampcore/internal/config"
	"rampcore/internal/domain"
	infraconfig "rampcore/internal/infrastructure/config"
	httpserver "rampcore/internal/infrastructure/http"
	"rampcore/internal/infrastructure/httpx"
	"rampcore/internal/infrastructure/logx"
	"rampcore/internal/infrastructure/pg"
	"rampcore/internal/infrastructure/provider"
	redisstore "rampcore/internal/infrastructure/redis"
)

var ErrMissingDBURL = errors.New("DATABASE_URL is required")

func ProvideLogger() *zap.Logger { return logx.L() }

func ProvideConfig() config.Config { return config.Load() }

func ProvideDB(ctx context.Context, log *zap.Logger, cfg config.Config) (*pg.DB, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, func() {}, ErrMissingDBURL
	}
	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, func() {}, err
	}
	if err := pg.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, func() {}, err
	}
	cleanup := func() {
		log.Info("closing pg")
		db.Close()
	}
	return db, cleanup, nil
}

func ProvideRedisClient(cfg config.Config) (*redis.Client, func(), error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return client, func() { _ = client.Close() }, nil
}

type Stores struct {
	Pending  application.PendingStore
	Archive  application.ArchiveRepo
	RefCache application.ReferenceCache
	Idem     application.IdempotencyStore
}

func ProvideStores(db *pg.DB, client *redis.Client, cfg config.Config) Stores {
	return Stores{
		Pending:  redisstore.NewPendingStore(client, cfg.PendingMaxAge),
		Archive:  pg.NewArchiveRepo(db),
		RefCache: redisstore.NewReferenceCache(client, cfg.RefCacheTTL),
		Idem:     redisstore.NewIdempotencyStore(client, cfg.IdempotencyTTL),
	}
}

func apiClient(pc config.ProviderConfig) *httpx.Client {
	return &httpx.Client{
		HTTP:    &http.Client{Timeout: infraconfig.DefaultProviderTimeout},
		BaseURL: pc.BaseURL,
		Tokens:  httpx.StaticToken(pc.APIKey),
	}
}

// ProvideAdapters builds the fan-out set. Every live adapter sits behind a
// circuit breaker; an adapter with no API key configured is left out.
func ProvideAdapters(cfg config.Config) []application.ProviderAdapter {
	if cfg.Providers != "live" {
		var out []application.ProviderAdapter
		for id, rate := range map[domain.ProviderID]int64{
			domain.ProviderMeld:    41000,
			domain.ProviderMoonPay: 41250,
			domain.ProviderOnRamp:  40900,
		} {
			out = append(out, provider.NewFake(id, decimal.New(1, 0).Div(decimal.NewFromInt(rate))))
		}
		return out
	}

	var out []application.ProviderAdapter
	add := func(pc config.ProviderConfig, ad application.ProviderAdapter) {
		if pc.APIKey == "" {
			return
		}
		out = append(out, provider.WithBreaker(ad))
	}
	add(cfg.Meld, &provider.Meld{Client: apiClient(cfg.Meld), PartnerID: cfg.MeldPartnerID})
	add(cfg.OnRamp, &provider.OnRamp{Client: apiClient(cfg.OnRamp), AppID: cfg.OnRampAppID})
	add(cfg.MoonPay, &provider.MoonPay{Client: apiClient(cfg.MoonPay)})
	add(cfg.Changelly, &provider.Changelly{Client: apiClient(cfg.Changelly)})
	add(cfg.Exolix, &provider.Exolix{Client: apiClient(cfg.Exolix)})
	add(cfg.FinchPay, &provider.FinchPay{Client: apiClient(cfg.FinchPay)})
	return out
}

func ProvideOrchestrator(adapters []application.ProviderAdapter, stores Stores, cfg config.Config, log *zap.Logger) *application.Orchestrator {
	return application.NewOrchestrator(adapters, stores.Pending, stores.Archive, stores.Idem,
		application.WithPollInterval(cfg.PollInterval),
		application.WithMaxAge(cfg.PendingMaxAge),
		application.WithOrchestratorLogger(log),
	)
}

func ProvideEngine(cfg config.Config, adapters []application.ProviderAdapter, orch *application.Orchestrator, stores Stores, log *zap.Logger) *application.Engine {
	agg := application.NewAggregator(adapters,
		application.NewLimitsResolver(log),
		application.WithAggregatorLogger(log))
	return application.NewEngine(agg, orch, adapters, stores.Archive, stores.RefCache, log,
		application.WithQuoteDebounce(cfg.QuoteDebounce))
}

// App is the fully wired service plus its teardown.
type App struct {
	Engine  *application.Engine
	Orch    *application.Orchestrator
	Handler http.Handler
	Ping    func(ctx context.Context) error
}

func InitApp(ctx context.Context) (*App, func(), error) {
	log := ProvideLogger()
	cfg := ProvideConfig()

	db, closeDB, err := ProvideDB(ctx, log, cfg)
	if err != nil {
		return nil, func() {}, err
	}
	rdb, closeRedis, err := ProvideRedisClient(cfg)
	if err != nil {
		closeDB()
		return nil, func() {}, err
	}

	stores := ProvideStores(db, rdb, cfg)
	adapters := ProvideAdapters(cfg)
	orch := ProvideOrchestrator(adapters, stores, cfg, log)
	engine := ProvideEngine(cfg, adapters, orch, stores, log)

	srv := httpserver.NewServer(engine, httpserver.WithPing(db.Ping))
	app := &App{
		Engine:  engine,
		Orch:    orch,
		Handler: httpserver.NewRouter(srv),
		Ping:    db.Ping,
	}
	cleanup := func() {
		orch.Close()
		closeRedis()
		closeDB()
	}
	return app, cleanup, nil
}
