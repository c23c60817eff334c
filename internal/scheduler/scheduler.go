// Package scheduler runs named periodic tasks cooperatively: runs of
// different tasks never overlap, and each task re-arms only after its run
// finishes.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Func is the body of a periodic task.
type Func func(ctx context.Context) error

// Task is a registered periodic task.
type Task struct {
	name     string
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
	runs     atomic.Int64
	failures atomic.Int64
	errLog   rate.Sometimes
}

// Name returns the task name.
func (t *Task) Name() string { return t.name }

// Runs returns how many times the task body has run.
func (t *Task) Runs() int64 { return t.runs.Load() }

// Failures returns how many runs returned an error or panicked.
func (t *Task) Failures() int64 { return t.failures.Load() }

// Cancel stops the task and waits for an in-flight run to finish.
func (t *Task) Cancel() {
	t.cancel()
	<-t.done
}

// Done is closed once the task has stopped.
func (t *Task) Done() <-chan struct{} { return t.done }

// Scheduler owns a set of named tasks.
type Scheduler struct {
	log zerolog.Logger

	mu     sync.Mutex
	tasks  map[string]*Task
	closed bool

	// held while any task body runs
	runMu sync.Mutex
}

// New creates an empty scheduler.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		log:   log.With().Str("component", "scheduler").Logger(),
		tasks: map[string]*Task{},
	}
}

// Every registers fn to run every interval, first after one interval.
// Registering a name that is already scheduled replaces the old task.
func (s *Scheduler) Every(ctx context.Context, name string, interval time.Duration, fn Func) (*Task, error) {
	return s.schedule(ctx, name, interval, fn, false)
}

// EveryNow is Every with an immediate first run.
func (s *Scheduler) EveryNow(ctx context.Context, name string, interval time.Duration, fn Func) (*Task, error) {
	return s.schedule(ctx, name, interval, fn, true)
}

func (s *Scheduler) schedule(ctx context.Context, name string, interval time.Duration, fn Func, now bool) (*Task, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("task %s: interval must be positive, got %s", name, interval)
	}

	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		name:     name,
		interval: interval,
		cancel:   cancel,
		done:     make(chan struct{}),
		errLog:   rate.Sometimes{First: 3, Interval: time.Minute},
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return nil, fmt.Errorf("task %s: scheduler stopped", name)
	}
	prev := s.tasks[name]
	s.tasks[name] = t
	s.mu.Unlock()

	if prev != nil {
		prev.Cancel()
		s.log.Debug().Str("task", name).Msg("replaced scheduled task")
	}

	go s.loop(ctx, t, fn, now)
	return t, nil
}

func (s *Scheduler) loop(ctx context.Context, t *Task, fn Func, now bool) {
	defer close(t.done)
	defer s.forget(t)

	if now {
		s.run(ctx, t, fn)
	}

	timer := time.NewTimer(t.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.run(ctx, t, fn)
			timer.Reset(t.interval)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, t *Task, fn Func) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if ctx.Err() != nil {
		return
	}

	err := safeCall(ctx, fn)
	t.runs.Add(1)
	if err == nil {
		return
	}

	t.failures.Add(1)
	t.errLog.Do(func() {
		s.log.Error().Err(err).Str("task", t.name).Int64("failures", t.failures.Load()).Msg("scheduled task failed")
	})
}

func safeCall(ctx context.Context, fn Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

func (s *Scheduler) forget(t *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tasks[t.name] == t {
		delete(s.tasks, t.name)
	}
}

// Task returns the task registered under name.
func (s *Scheduler) Task(name string) (*Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[name]
	return t, ok
}

// Stop cancels every task and waits for them to finish. The scheduler
// rejects new tasks afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.closed = true
	tasks := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	for _, t := range tasks {
		t.Cancel()
	}
	s.log.Debug().Int("tasks", len(tasks)).Msg("scheduler stopped")
}
