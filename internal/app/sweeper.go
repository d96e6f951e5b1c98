package app

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"tripwise/internal/metrics"
)

type sweepable interface {
	Sweep() []string
	Len() int
}

// Sweeper evicts expired conversations on a fixed interval.
type Sweeper struct {
	scheduler gocron.Scheduler
}

// StartSweeper schedules store sweeps every interval and starts the scheduler.
func StartSweeper(store sweepable, interval time.Duration, m *metrics.Collectors, log zerolog.Logger) (*Sweeper, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			// The store logs non-empty sweeps itself.
			removed := store.Sweep()
			m.ObserveSweep(len(removed), store.Len())
		}),
		gocron.WithName("conversation_sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("schedule sweep: %w", err)
	}
	s.Start()
	log.Info().Dur("interval", interval).Msg("conversation sweeper started")
	return &Sweeper{scheduler: s}, nil
}

func (s *Sweeper) Stop() error {
	return s.scheduler.Shutdown()
}
