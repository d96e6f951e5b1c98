// README: Config loader: .env via godotenv, then TRIPWISE_* environment via envconfig.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const prefix = "TRIPWISE"

type HTTPConfig struct {
	Addr            string        `envconfig:"ADDR" default:":8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	// GatewayTimeout bounds each LLM call made on behalf of a request.
	GatewayTimeout time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"45s"`
}

type LLMConfig struct {
	// Provider is "gemini" or "groq". An empty key for the chosen provider disables the gateway.
	Provider    string        `envconfig:"PROVIDER" default:"gemini"`
	GeminiKey   string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel string        `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	GroqKey     string        `envconfig:"GROQ_API_KEY"`
	GroqModel   string        `envconfig:"GROQ_MODEL" default:"llama-3.3-70b-versatile"`
	GroqBaseURL string        `envconfig:"GROQ_BASE_URL" default:"https://api.groq.com/openai/v1"`
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"40s"`
}

type AmadeusConfig struct {
	ClientID     string        `envconfig:"CLIENT_ID"`
	ClientSecret string        `envconfig:"CLIENT_SECRET"`
	BaseURL      string        `envconfig:"BASE_URL" default:"https://test.api.amadeus.com"`
	RatePerSec   float64       `envconfig:"RATE_PER_SEC" default:"10"`
	Burst        int           `envconfig:"BURST" default:"5"`
	CacheTTL     time.Duration `envconfig:"CACHE_TTL" default:"15m"`
	Timeout      time.Duration `envconfig:"TIMEOUT" default:"20s"`
}

type MapsConfig struct {
	APIKey string `envconfig:"API_KEY"`
}

type RedisConfig struct {
	// Addr enables the shared provider cache; empty keeps the cache in process.
	Addr string `envconfig:"ADDR"`
}

type DBConfig struct {
	// DSN enables the Postgres token ledger; empty uses the in-memory ledger.
	DSN string `envconfig:"DSN"`
}

type ConversationConfig struct {
	Expiry        time.Duration `envconfig:"EXPIRY" default:"24h"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"1h"`
	HistoryLimit  int           `envconfig:"HISTORY_LIMIT" default:"10"`
}

type RateLimitConfig struct {
	PerUserRPS float64 `envconfig:"PER_USER_RPS" default:"5"`
	Burst      int     `envconfig:"BURST" default:"10"`
}

type Config struct {
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	HTTP         HTTPConfig
	LLM          LLMConfig
	Amadeus      AmadeusConfig
	Maps         MapsConfig
	Redis        RedisConfig
	DB           DBConfig
	Conversation ConversationConfig
	RateLimit    RateLimitConfig
}

// Load reads .env files when present, then the TRIPWISE_* environment. Variables
// already set in the environment win over .env entries.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch strings.ToLower(c.LLM.Provider) {
	case "gemini", "groq":
	default:
		return fmt.Errorf("config: unknown LLM provider %q", c.LLM.Provider)
	}
	if c.Conversation.Expiry <= 0 {
		return errors.New("config: conversation expiry must be positive")
	}
	if c.Conversation.SweepInterval <= 0 {
		return errors.New("config: sweep interval must be positive")
	}
	if c.Conversation.HistoryLimit <= 0 {
		return errors.New("config: history limit must be positive")
	}
	return nil
}

// LLMKey returns the API key of the selected provider.
func (c LLMConfig) LLMKey() string {
	if strings.EqualFold(c.Provider, "groq") {
		return c.GroqKey
	}
	return c.GeminiKey
}
