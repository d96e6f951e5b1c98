// README: Smoke and load runner against a live tripwise-api; prints PASS/FAIL/PENDING/SKIP per case.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	results := NewRunner(cfg).RunAll(ctx)

	fmt.Println("\n== Summary ==")
	counts := map[string]int{}
	for _, r := range results {
		counts[r.Status]++
	}
	fmt.Printf("PASS=%d FAIL=%d PENDING=%d SKIP=%d\n",
		counts[StatusPass], counts[StatusFail], counts[StatusPending], counts[StatusSkip])

	if counts[StatusFail] > 0 || (cfg.Strict && counts[StatusPending] > 0) {
		os.Exit(1)
	}
}

// Config is read from TRIPWISE_BENCH_* first; command-line flags override it.
type Config struct {
	BaseURL       string        `envconfig:"BASE_URL" default:"http://localhost:8080"`
	DSN           string        `envconfig:"DSN"`
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	MigrationPath string        `envconfig:"MIGRATION" default:"migrations/0001_ai_usage.sql"`
	Strict        bool          `envconfig:"STRICT"`
	Timeout       time.Duration `envconfig:"TIMEOUT" default:"2m"`
	Concurrency   int           `envconfig:"CONCURRENCY" default:"20"`
	Duration      time.Duration `envconfig:"DURATION" default:"10s"`
}

func loadConfig(args []string) (Config, error) {
	var cfg Config
	if err := envconfig.Process("TRIPWISE_BENCH", &cfg); err != nil {
		return Config{}, fmt.Errorf("bench env: %w", err)
	}

	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "API base URL")
	fs.StringVar(&cfg.DSN, "dsn", cfg.DSN, "Postgres DSN (optional)")
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address (optional)")
	fs.StringVar(&cfg.MigrationPath, "migration", cfg.MigrationPath, "Migration SQL whose tables must exist")
	fs.BoolVar(&cfg.Strict, "strict", cfg.Strict, "Fail on pending cases")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Total timeout")
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Workers for concurrency and load cases")
	fs.DurationVar(&cfg.Duration, "duration", cfg.Duration, "Load case duration")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.Concurrency <= 0 {
		return Config{}, fmt.Errorf("concurrency must be positive, got %d", cfg.Concurrency)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg, nil
}
