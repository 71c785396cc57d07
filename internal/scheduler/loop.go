package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rescale/rescale-space/internal/logging"
)

// Loop is the single goroutine that owns an engine. Frame callbacks run on a
// fixed interval; posted callbacks run as soon as the loop is free. Every
// callback runs through the executor, so a GUI toolkit can hop onto its own
// thread.
type Loop struct {
	interval time.Duration
	exec     func(func())
	log      *logging.Logger

	mu     sync.Mutex
	frame  []func()
	posted []func()
	wake   chan struct{}

	frames   atomic.Uint64
	running  atomic.Bool
	stopChan chan struct{}
	stopOnce sync.Once
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithExecutor runs each batch of callbacks through exec.
func WithExecutor(exec func(func())) LoopOption {
	return func(l *Loop) { l.exec = exec }
}

// WithLogger sets the logger used for recovered callback panics.
func WithLogger(log *logging.Logger) LoopOption {
	return func(l *Loop) { l.log = log }
}

// NewLoop creates a loop that fires frames every interval.
func NewLoop(interval time.Duration, opts ...LoopOption) *Loop {
	l := &Loop{
		interval: interval,
		exec:     func(fn func()) { fn() },
		log:      logging.NewNop(),
		wake:     make(chan struct{}, 1),
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RequestTick queues fn for the next frame. Safe from any goroutine.
func (l *Loop) RequestTick(fn func()) {
	l.mu.Lock()
	l.frame = append(l.frame, fn)
	l.mu.Unlock()
}

// Post queues fn for the next loop turn. Safe from any goroutine and never blocks.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.posted = append(l.posted, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Frames returns the number of frames that ran callbacks.
func (l *Loop) Frames() uint64 {
	return l.frames.Load()
}

// Run drives the loop until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return fmt.Errorf("loop already running")
	}
	defer l.running.Store(false)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stopChan:
			return nil
		case <-l.wake:
			l.runBatch(l.take(&l.posted))
		case <-ticker.C:
			if batch := l.take(&l.frame); len(batch) > 0 {
				l.frames.Add(1)
				l.runBatch(batch)
			}
		}
	}
}

// Stop ends Run. Safe to call more than once.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopChan)
	})
}

func (l *Loop) take(q *[]func()) []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	batch := *q
	*q = nil
	return batch
}

func (l *Loop) runBatch(batch []func()) {
	if len(batch) == 0 {
		return
	}
	l.exec(func() {
		for _, fn := range batch {
			l.safeCall(fn)
		}
	})
}

func (l *Loop) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error().
				Str("stack", string(debug.Stack())).
				Msgf("Loop callback panic: %v", r)
		}
	}()
	fn()
}
