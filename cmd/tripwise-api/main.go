// README: Entry point; loads config, wires services, starts the HTTP server and the conversation sweeper.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tripwise/internal/app"
	"tripwise/internal/config"
	httptransport "tripwise/internal/http"
	"tripwise/internal/http/middleware"
	"tripwise/internal/infra"
	"tripwise/internal/metrics"
	"tripwise/internal/modules/aiusage"
	"tripwise/internal/modules/conversation"
	"tripwise/internal/modules/dialogue"
	"tripwise/internal/modules/intent"
	"tripwise/internal/modules/planner"
	"tripwise/internal/modules/search"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := infra.NewLogger("tripwise-api", "info")
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := infra.NewLogger("tripwise-api", cfg.LogLevel)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("tripwise-api stopped")
	}
	log.Info().Msg("tripwise-api stopped")
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var pool *pgxpool.Pool
	if cfg.DB.DSN != "" {
		p, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return err
		}
		defer p.Close()
		pool = p
		log.Info().Msg("token ledger: postgres")
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		c, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			return err
		}
		defer c.Close()
		rdb = c
		log.Info().Str("addr", cfg.Redis.Addr).Msg("provider cache: redis")
	}

	llm, closeLLM, err := app.NewLLM(ctx, cfg.LLM, log)
	if err != nil {
		return err
	}
	defer closeLLM()

	quota := aiusage.NewService(app.NewLedger(pool))
	plans := planner.NewService(llm,
		planner.WithQuota(quota),
		planner.WithLogger(log.With().Str("component", "planner").Logger()),
		planner.WithMetrics(m),
	)

	store := conversation.NewStore(
		conversation.WithExpiry(cfg.Conversation.Expiry),
		conversation.WithHistoryLimit(cfg.Conversation.HistoryLimit),
		conversation.WithLogger(log.With().Str("component", "conversation").Logger()),
	)
	defer store.Close()

	dialogueOpts := []dialogue.Option{
		dialogue.WithLogger(log.With().Str("component", "dialogue").Logger()),
		dialogue.WithMetrics(m),
	}
	if plans.Available() {
		dialogueOpts = append(dialogueOpts, dialogue.WithEnhancer(plans))
	}
	dlg := dialogue.NewService(store, intent.NewExtractor(), dialogueOpts...)

	searchOpts := []search.Option{
		search.WithHistory(store),
		search.WithLogger(log.With().Str("component", "search").Logger()),
		search.WithMetrics(m),
	}
	geo, err := app.NewGeocoder(cfg.Maps, log)
	if err != nil {
		return err
	}
	if geo != nil {
		searchOpts = append(searchOpts, search.WithGeocoder(geo))
	}
	searches := search.NewService(app.NewAmadeus(cfg.Amadeus, rdb, log), searchOpts...)

	sweeper, err := app.StartSweeper(store, cfg.Conversation.SweepInterval, m, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := sweeper.Stop(); err != nil {
			log.Warn().Err(err).Msg("stop sweeper")
		}
	}()

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Dialogue:       dlg,
		Conversations:  store,
		Sweeper:        store,
		Planner:        plans,
		Search:         searches,
		Metrics:        m,
		Gatherer:       reg,
		RateLimiter:    middleware.NewRateLimiter(cfg.RateLimit.PerUserRPS, cfg.RateLimit.Burst),
		Logger:         log,
		GatewayTimeout: cfg.HTTP.GatewayTimeout,
	})

	server := httptransport.NewServer(httptransport.ServerConfig{
		Addr:            cfg.HTTP.Addr,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, router, log)
	return server.Run(ctx)
}
