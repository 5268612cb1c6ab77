package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finanzas-server/src/api"
	"finanzas-server/src/config"
	"finanzas-server/src/db"
	sqldb "finanzas-server/src/db/sql"
	"finanzas-server/src/events"
	"finanzas-server/src/handlers"
	"finanzas-server/src/logger"
	"finanzas-server/src/service"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	logger.SetDefault(log)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("DB connection failed")
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
	}

	cache, err := db.NewCache(cfg.CacheMaxCost)
	if err != nil {
		log.Fatal().Err(err).Msg("cache init failed")
	}
	defer cache.Close()

	var (
		rdb *redis.Client
		bus events.Bus = events.NewMemoryBus()
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis connection failed")
		}
		defer rdb.Close()
		bus = events.NewRedisBus(rdb, log)
	}

	svc := service.NewTransactionService(sqldb.NewStore(pool),
		service.WithCache(cache),
		service.WithEvents(bus),
		service.WithBaseCurrency(cfg.BaseCurrency),
	)

	// Router
	router := api.NewRouter(api.Deps{
		Pool:         pool,
		Transactions: svc,
		Cache:        cache,
		Events:       bus,
		Redis:        rdb,
		Log:          log,
		Auth: handlers.AuthConfig{
			Secret:           []byte(cfg.JWTSecret),
			TokenTTL:         cfg.JWTTTL,
			RequireAllowlist: cfg.RegistrationAllowlist,
		},
		BaseCurrency: cfg.BaseCurrency,
		CORSOrigins:  cfg.CORSOrigins,
		DemoMode:     cfg.DemoMode,
		RateLimit: api.RateLimit{
			Limit:  cfg.RateLimit,
			Window: cfg.RateLimitWindow,
			Block:  cfg.RateLimitBlock,
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	log.Info().Str("port", cfg.Port).Str("base_currency", cfg.BaseCurrency).Msg("API server running")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}
