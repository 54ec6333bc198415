package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Sweeper drops idle entries older than ttl and reports how many it removed
type Sweeper interface {
	Sweep(ttl time.Duration) int
	Len() int
}

// Scheduler periodically evicts idle session city memory.
type Scheduler struct {
	scheduler *gocron.Scheduler
	memory    Sweeper
	ttl       time.Duration
	interval  time.Duration
	logger    *zap.Logger
}

// New creates a new Scheduler.
func New(memory Sweeper, ttl, interval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		memory:    memory,
		ttl:       ttl,
		interval:  interval,
		logger:    logger.With(zap.String("component", "scheduler")),
	}
}

// Start schedules the sweep job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.ttl <= 0 {
		s.logger.Info("session memory TTL disabled; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().WaitForSchedule().Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("session memory sweep scheduled",
		zap.Int("every_minutes", minutes), zap.Duration("ttl", s.ttl))
	return nil
}

// RunOnce performs a single sweep.
func (s *Scheduler) RunOnce() {
	removed := s.memory.Sweep(s.ttl)
	s.logger.Debug("swept idle sessions",
		zap.Int("removed", removed), zap.Int("remaining", s.memory.Len()))
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
