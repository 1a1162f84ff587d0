package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hokkaidev/task-curation-api/internal/clock"
	"github.com/hokkaidev/task-curation-api/internal/curation"
	"github.com/hokkaidev/task-curation-api/internal/repository"
	"go.uber.org/zap"
)

// Config controls when the daily fan-out runs and how wide it goes.
type Config struct {
	// Hour is the UTC hour of day the daily run triggers.
	Hour int
	// Workers bounds how many user runs execute concurrently.
	Workers int
	// TickInterval is how often the loop checks whether a run is due.
	TickInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Minute
	}
	return c
}

// Scheduler fans out one curation run per eligible user, once per day. Users
// are independent units of work; per-user failures are logged and do not stop
// the fan-out.
type Scheduler struct {
	users repository.UserRepository
	job   *curation.UserCurationJob
	clk   clock.Clock
	cfg   Config
	log   *zap.Logger

	mu      sync.Mutex
	lastRun time.Time
}

// New creates a Scheduler.
func New(users repository.UserRepository, job *curation.UserCurationJob, clk clock.Clock, cfg Config, log *zap.Logger) *Scheduler {
	return &Scheduler{
		users: users,
		job:   job,
		clk:   clk,
		cfg:   cfg.withDefaults(),
		log:   log.Named("scheduler"),
	}
}

// Run blocks until the context is cancelled, triggering the daily fan-out at
// the configured hour.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.due() {
				continue
			}
			// The day is consumed only after a successful enumeration so a
			// transient failure retries on the next tick.
			if err := s.RunOnce(ctx); err != nil {
				s.log.Error("daily curation fan-out failed", zap.Error(err))
				continue
			}
			s.markRan()
		}
	}
}

// due reports whether the daily run should fire: configured hour reached and
// no run recorded for today yet.
func (s *Scheduler) due() bool {
	now := s.clk.Now().UTC()
	if now.Hour() < s.cfg.Hour {
		return false
	}
	today := clock.Today(s.clk)

	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.lastRun.Equal(today)
}

// markRan records today as done.
func (s *Scheduler) markRan() {
	today := clock.Today(s.clk)
	s.mu.Lock()
	s.lastRun = today
	s.mu.Unlock()
}

// RunOnce enumerates eligible users and runs one curation job per user over a
// bounded worker pool. Per-user failures are logged, not returned; only a
// failed enumeration is an error. Exposed for on-demand triggers.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	users, err := s.users.ListEligibleForCuration()
	if err != nil {
		return fmt.Errorf("failed to enumerate eligible users: %w", err)
	}

	s.log.Info("daily curation fan-out starting", zap.Int("users", len(users)))

	sem := make(chan struct{}, s.cfg.Workers)
	var wg sync.WaitGroup
	for i := range users {
		user := users[i]
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := s.job.Run(ctx, &user); err != nil {
				s.log.Error("user curation run failed",
					zap.Uint64("user_id", user.ID), zap.Error(err))
			}
		}()
	}
	wg.Wait()

	s.log.Info("daily curation fan-out finished", zap.Int("users", len(users)))
	return nil
}
