// Package scheduler drives periodic housekeeping from a single ticker:
// session expiry, call timeouts and login throttle cleanup.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lingualink/internal/logger"
)

// Task is one unit of work run on every tick.
type Task struct {
	Name string
	Run  func(ctx context.Context)
}

// Scheduler runs its tasks in order on one goroutine. A task that panics
// is logged and does not stop the others.
type Scheduler struct {
	tick  time.Duration
	tasks []Task
	log   logger.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

func New(tick time.Duration, log logger.Logger, tasks ...Task) *Scheduler {
	if tick <= 0 {
		tick = time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{tick: tick, tasks: tasks, log: log.With(logger.Component("scheduler"))}
}

// Add appends a task. It must be called before Start.
func (s *Scheduler) Add(t Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, t)
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(ctx, s.stop, s.done)
	s.log.Info("scheduler started", logger.Duration("tick", s.tick), logger.Int("tasks", len(s.tasks)))
	return nil
}

// Stop ends the loop and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	<-done
	s.log.Info("scheduler stopped")
	return nil
}

// RunOnce runs every task immediately on the caller's goroutine.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	tasks := make([]Task, len(s.tasks))
	copy(tasks, s.tasks)
	s.mu.Unlock()

	for _, t := range tasks {
		s.runTask(ctx, t)
	}
}

func (s *Scheduler) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-stop:
			return
		case <-ctx.Done():
			s.log.Debug("scheduler context cancelled")
			return
		}
	}
}

func (s *Scheduler) runTask(ctx context.Context, t Task) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("task panicked", logger.String("task", t.Name), logger.Err(fmt.Errorf("%v", r)))
		}
	}()
	t.Run(ctx)
}
