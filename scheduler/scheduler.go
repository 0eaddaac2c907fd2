// Package scheduler runs the named background sweeps: daily and weekly
// guild maintenance and the leaderboard refresh. Each sweep runs on its
// own ticker with panic isolation, so a crashing sweep never takes the
// process down.
package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// SweepFn is one scheduled sweep.
type SweepFn func()

type sweepEntry struct {
	ticker *time.Ticker
	stopCh chan struct{}
}

// Scheduler owns the background sweep goroutines.
type Scheduler struct {
	mu     sync.Mutex
	sweeps map[string]*sweepEntry
	logger *zap.Logger
	stopCh chan struct{}
}

func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		sweeps: make(map[string]*sweepEntry),
		stopCh: make(chan struct{}),
		logger: logger,
	}
}

// Every registers a sweep on a fixed interval, replacing any sweep
// already registered under the same name.
func (s *Scheduler) Every(name string, interval time.Duration, fn SweepFn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.sweeps[name]; ok {
		close(old.stopCh)
		delete(s.sweeps, name)
	}

	entry := &sweepEntry{
		ticker: time.NewTicker(interval),
		stopCh: make(chan struct{}),
	}
	s.sweeps[name] = entry

	go func() {
		for {
			select {
			case <-entry.ticker.C:
				s.run(name, fn)
			case <-entry.stopCh:
				entry.ticker.Stop()
				return
			case <-s.stopCh:
				entry.ticker.Stop()
				return
			}
		}
	}()
	s.logger.Info("sweep registered", zap.String("name", name), zap.Duration("interval", interval))
}

// RunNow executes a sweep immediately on the caller's goroutine, with the
// same panic isolation as scheduled runs. The admin maintenance endpoints
// use it.
func (s *Scheduler) RunNow(name string, fn SweepFn) {
	s.run(name, fn)
}

func (s *Scheduler) run(name string, fn SweepFn) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sweep panicked",
				zap.String("sweep", name),
				zap.Any("recover", r))
		}
	}()
	fn()
}

// Remove stops and unregisters a sweep by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.sweeps[name]; ok {
		close(entry.stopCh)
		delete(s.sweeps, name)
	}
}

// Names returns the registered sweep names.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.sweeps))
	for name := range s.sweeps {
		names = append(names, name)
	}
	return names
}

// Stop halts every sweep. Safe to call more than once.
func (s *Scheduler) Stop() {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
}
