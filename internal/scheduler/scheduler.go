// Package scheduler runs the due-post publisher on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/newsnexus/internal/logging"
	"github.com/dmitrijs2005/newsnexus/internal/publisher"
)

const DefaultInterval = 60 * time.Second

// Runner is the per-tick work, implemented by publisher.Service.
type Runner interface {
	PublishDue(ctx context.Context) (publisher.Summary, error)
}

var ErrAlreadyStarted = errors.New("scheduler already started")

// Scheduler is an owned background task. Start runs one tick immediately and
// then one per interval, each in its own goroutine so a slow tick does not
// delay the next query. Stop cancels the timer and waits for running ticks;
// ticks themselves are never interrupted.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	log      logging.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	loop   chan struct{}
	ticks  sync.WaitGroup
}

func New(r Runner, interval time.Duration, l logging.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if l == nil {
		l = logging.Nop{}
	}
	return &Scheduler{runner: r, interval: interval, log: l.With("module", "scheduler")}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.loop = make(chan struct{})

	go s.run(ctx, s.loop)
	s.log.Info(ctx, "scheduler started", "interval", s.interval)
	return nil
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	s.spawn(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.spawn(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// spawn starts one tick detached from ctx cancellation.
func (s *Scheduler) spawn(ctx context.Context) {
	s.ticks.Add(1)
	go func() {
		defer s.ticks.Done()
		s.tick(context.WithoutCancel(ctx))
	}()
}

func (s *Scheduler) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error(ctx, "scheduler tick panicked", "panic", fmt.Sprint(r))
		}
	}()

	if _, err := s.runner.PublishDue(ctx); err != nil {
		s.log.Error(ctx, "scheduler tick failed", "error", err)
	}
}

// Stop cancels the timer and waits for in-flight ticks. It is safe to call
// more than once and on a scheduler that never started.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, loop := s.cancel, s.loop
	s.cancel, s.loop = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-loop
	s.ticks.Wait()
	s.log.Info(context.Background(), "scheduler stopped")
}
