// README: Builds the LLM, data-provider and geocoder clients from configuration.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tripwise/internal/ai"
	"tripwise/internal/config"
	"tripwise/internal/maps"
	"tripwise/internal/modules/aiusage"
	"tripwise/internal/provider/amadeus"
)

// NewLLM returns the configured provider, or nil with a warning when no key is set.
// The returned close func is never nil.
func NewLLM(ctx context.Context, cfg config.LLMConfig, log zerolog.Logger) (ai.LLMProvider, func(), error) {
	noop := func() {}
	key := cfg.LLMKey()
	if key == "" {
		log.Warn().Str("provider", cfg.Provider).Msg("no LLM API key configured; plan enhancement disabled")
		return nil, noop, nil
	}

	switch strings.ToLower(cfg.Provider) {
	case "groq":
		p, err := ai.NewChatCompletionsProvider(cfg.GroqBaseURL, key, cfg.GroqModel, cfg.Timeout)
		if err != nil {
			return nil, noop, fmt.Errorf("groq provider: %w", err)
		}
		log.Info().Str("provider", p.Name()).Str("model", cfg.GroqModel).Msg("LLM provider ready")
		return p, noop, nil
	default:
		p, err := ai.NewGeminiProvider(ctx, key, cfg.GeminiModel)
		if err != nil {
			return nil, noop, fmt.Errorf("gemini provider: %w", err)
		}
		log.Info().Str("provider", p.Name()).Str("model", cfg.GeminiModel).Msg("LLM provider ready")
		return p, p.Close, nil
	}
}

// NewAmadeus builds the data-provider client. rdb, when non-nil, backs the response
// cache; otherwise the cache lives in process.
func NewAmadeus(cfg config.AmadeusConfig, rdb *redis.Client, log zerolog.Logger) *amadeus.Client {
	var cache amadeus.ResponseCache = amadeus.NewMemoryCache(cfg.CacheTTL)
	if rdb != nil {
		cache = amadeus.NewRedisCache(rdb)
	}
	c := amadeus.NewClient(cfg.ClientID, cfg.ClientSecret,
		amadeus.WithBaseURL(cfg.BaseURL),
		amadeus.WithRateLimit(cfg.RatePerSec, cfg.Burst),
		amadeus.WithCache(cache, cfg.CacheTTL),
		amadeus.WithTimeout(cfg.Timeout),
		amadeus.WithLogger(log),
	)
	if !c.Configured() {
		log.Warn().Msg("amadeus credentials missing; searches will return 503")
	}
	return c
}

// NewGeocoder returns nil when no Maps key is configured.
func NewGeocoder(cfg config.MapsConfig, log zerolog.Logger) (*maps.Geocoder, error) {
	if cfg.APIKey == "" {
		log.Info().Msg("no maps key configured; activity search needs coordinates")
		return nil, nil
	}
	return maps.NewGeocoder(cfg.APIKey)
}

// NewLedger picks the Postgres ledger when a pool is available.
func NewLedger(pool *pgxpool.Pool) aiusage.Ledger {
	if pool != nil {
		return aiusage.NewPGStore(pool)
	}
	return aiusage.NewMemoryStore(nil)
}
