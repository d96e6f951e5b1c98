// README: travelctl runs the travel assistant in process: chat REPL, intent extraction, plan enhancement and searches.
package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tripwise/internal/app"
	"tripwise/internal/config"
	"tripwise/internal/infra"
	"tripwise/internal/modules/aiusage"
	"tripwise/internal/modules/conversation"
	"tripwise/internal/modules/dialogue"
	"tripwise/internal/modules/intent"
	"tripwise/internal/modules/planner"
	"tripwise/internal/modules/search"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// env holds the services a command needs; built once per invocation.
type env struct {
	cfg     config.Config
	log     zerolog.Logger
	store   *conversation.Store
	planner *planner.Service
	closers []func()
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

func (e *env) dialogue() *dialogue.Service {
	opts := []dialogue.Option{dialogue.WithLogger(e.log)}
	if e.planner.Available() {
		opts = append(opts, dialogue.WithEnhancer(e.planner))
	}
	return dialogue.NewService(e.store, intent.NewExtractor(), opts...)
}

func (e *env) search() (*search.Service, error) {
	opts := []search.Option{search.WithHistory(e.store), search.WithLogger(e.log)}
	geo, err := app.NewGeocoder(e.cfg.Maps, e.log)
	if err != nil {
		return nil, err
	}
	if geo != nil {
		opts = append(opts, search.WithGeocoder(geo))
	}
	return search.NewService(app.NewAmadeus(e.cfg.Amadeus, nil, e.log), opts...), nil
}

func newEnv(ctx context.Context, debug bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if debug {
		level = "debug"
	} else if level == "info" {
		level = "warn"
	}
	e := &env{cfg: cfg, log: infra.NewConsoleLogger("travelctl", level)}

	llm, closeLLM, err := app.NewLLM(ctx, cfg.LLM, e.log)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, closeLLM)
	e.planner = planner.NewService(llm,
		planner.WithQuota(aiusage.NewService(app.NewLedger(nil))),
		planner.WithLogger(e.log),
	)
	e.store = conversation.NewStore(
		conversation.WithExpiry(cfg.Conversation.Expiry),
		conversation.WithHistoryLimit(cfg.Conversation.HistoryLimit),
	)
	e.closers = append(e.closers, e.store.Close)
	return e, nil
}

type envKey struct{}

func envFrom(cmd *cobra.Command) *env {
	return cmd.Context().Value(envKey{}).(*env)
}

// NewRootCmd constructs the root CLI command; exposed for unit testing.
func NewRootCmd() *cobra.Command {
	var debug bool
	root := &cobra.Command{
		Use:           "travelctl",
		Short:         "Plan trips from the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			e, err := newEnv(cmd.Context(), debug)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), envKey{}, e))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			envFrom(cmd).close()
		},
	}
	root.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	root.AddCommand(newChatCmd(), newExtractCmd(), newEnhanceCmd(), newSearchCmd())
	return root
}
