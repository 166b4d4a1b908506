package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"    // .env loading for local runs
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/mission-control/internal/config"
	"github.com/iliyamo/mission-control/internal/database"
	"github.com/iliyamo/mission-control/internal/handler"
	"github.com/iliyamo/mission-control/internal/logging"
	"github.com/iliyamo/mission-control/internal/middleware"
	"github.com/iliyamo/mission-control/internal/queue"
	"github.com/iliyamo/mission-control/internal/repository"
	"github.com/iliyamo/mission-control/internal/router"
	"github.com/iliyamo/mission-control/internal/service"
)

// stores bundles the storage backend selected by STORAGE_BACKEND.
type stores struct {
	pings  repository.PingStore
	users  repository.UserStore
	tokens repository.TokenStore
	db     *sql.DB
}

func main() {
	_ = godotenv.Load() // a missing .env is fine outside local development

	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Str("backend", cfg.Storage).Msg("storage init failed")
	}
	if st.db != nil {
		defer st.db.Close()
	}

	// Redis is optional: without it rate limiting and caching pass through.
	rdb := config.NewRedisClient()
	if rdb == nil {
		logging.Warn().Msg("redis unavailable; rate limit and cache disabled")
	} else {
		defer rdb.Close()
	}

	opts := []service.Option{service.WithLatestLimit(cfg.LatestLimit)}
	if cfg.EventsEnabled {
		opts = append(opts, service.WithPublisher(service.NewAMQPPublisher(cfg.RabbitURL)))
		go func() {
			if err := queue.StartPingConsumer(ctx, cfg.RabbitURL, cfg.EventLogDir); err != nil && !errors.Is(err, context.Canceled) {
				logging.Error().Err(err).Msg("ping consumer stopped")
			}
		}()
	}
	pings := service.NewPingService(st.pings, opts...)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger())

	checks := map[string]handler.Pinger{}
	if st.db != nil {
		checks["mysql"] = st.db
	}
	if rdb != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	router.RegisterRoutes(e, handler.NewHealthHandler(checks))
	protected := router.Protected(e, cfg.JWTSecret, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, st.users, st.tokens), protected)
	router.RegisterPings(protected, handler.NewPingHandler(pings), middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	addr := ":" + cfg.Port
	go func() {
		logging.Info().Str("addr", addr).Str("env", cfg.Env).Str("backend", cfg.Storage).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// openStores wires the MySQL repositories (after applying the schema) or
// the in-memory stores.
func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	if cfg.Storage == config.BackendMemory {
		return &stores{
			pings:  repository.NewMemoryPingStore(nil),
			users:  repository.NewMemoryUserStore(nil),
			tokens: repository.NewMemoryTokenStore(nil),
		}, nil
	}

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &stores{
		pings:  repository.NewPingRepo(db),
		users:  repository.NewUserRepo(db),
		tokens: repository.NewTokenRepo(db),
		db:     db,
	}, nil
}
