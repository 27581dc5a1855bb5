package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Sweeper drops stale cache entries and reports how many were removed.
type Sweeper interface {
	Sweep() int
}

// Refresher refreshes one location, bypassing the cache.
type Refresher interface {
	Refresh(ctx context.Context, q weather.LocationQuery) (weather.WeatherPayload, error)
}

// Config controls which jobs run and how often. A zero interval disables
// the corresponding job.
type Config struct {
	SweepInterval time.Duration
	WarmInterval  time.Duration
	WarmLocations []weather.LocationQuery
	// WarmTimeout bounds one warm-up round per location.
	WarmTimeout time.Duration
}

// Scheduler runs periodic cache maintenance.
type Scheduler struct {
	scheduler *gocron.Scheduler
	sweeper   Sweeper
	refresher Refresher
	cfg       Config
	logger    *zap.Logger
}

// New creates a new Scheduler.
func New(cfg Config, sweeper Sweeper, refresher Refresher, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WarmTimeout <= 0 {
		cfg.WarmTimeout = 30 * time.Second
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		sweeper:   sweeper,
		refresher: refresher,
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "scheduler")),
	}
}

// Start schedules the configured jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	scheduled := 0

	if s.cfg.SweepInterval > 0 && s.sweeper != nil {
		if _, err := s.scheduler.Every(s.cfg.SweepInterval).Do(s.Sweep); err != nil {
			return err
		}
		scheduled++
	}

	if s.cfg.WarmInterval > 0 && s.refresher != nil && len(s.cfg.WarmLocations) > 0 {
		if _, err := s.scheduler.Every(s.cfg.WarmInterval).Do(s.Warm); err != nil {
			return err
		}
		scheduled++
	}

	if scheduled == 0 {
		s.logger.Info("no jobs configured; nothing to schedule")
		return nil
	}

	s.scheduler.StartAsync()
	return nil
}

// Sweep runs one cache sweep.
func (s *Scheduler) Sweep() {
	if n := s.sweeper.Sweep(); n > 0 {
		s.logger.Debug("swept stale cache entries", zap.Int("removed", n))
	}
}

// Warm refreshes every configured location concurrently.
func (s *Scheduler) Warm() {
	s.logger.Info("running cache warm-up job", zap.Int("locations", len(s.cfg.WarmLocations)))

	var wg sync.WaitGroup
	for _, q := range s.cfg.WarmLocations {
		q := q
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WarmTimeout)
			defer cancel()

			if _, err := s.refresher.Refresh(ctx, q); err != nil {
				s.logger.Warn("warm-up failed", zap.String("key", q.Key()), zap.Error(err))
			}
		}()
	}
	wg.Wait()
	s.logger.Info("completed cache warm-up job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
