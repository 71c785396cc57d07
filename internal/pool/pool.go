// Package pool provides a bounded free-list of reusable renderable handles.
//
// Unlike sync.Pool, the idle list is deterministic and capped: a handle released
// while the pool is full is discarded (passed to the discard hook) instead of kept,
// so memory stays bounded after a burst of visible items scrolls away.
package pool

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rescale/rescale-space/internal/logging"
)

// Factory creates a fresh handle.
type Factory[H any] func() (H, error)

// ResetFunc strips every per-item binding and state from h before reuse.
type ResetFunc[H any] func(h H) error

// Options configures a Pool.
type Options[H any] struct {
	Name    string // used in log lines, e.g. the item kind
	MaxIdle int    // idle handles kept; releases beyond this are discarded
	Batch   int    // handles created per factory burst when idle is empty (min 1)
	Factory Factory[H]
	Reset   ResetFunc[H]
	// Discard receives handles the pool drops: overflow, failed resets, Drain.
	Discard func(H)
	Logger  *logging.Logger
}

// Stats reports lifetime pool counters.
type Stats struct {
	Idle        int
	Created     int64 // factory successes
	Reused      int64 // gets served from the idle list
	Discarded   int64 // handles dropped on release or drain
	FactoryErrs int64
	ResetErrs   int64
}

// Pool hands out and reclaims handles of one kind.
// Not safe for concurrent use; callers run it on the render goroutine.
type Pool[H any] struct {
	name    string
	maxIdle int
	batch   int
	factory Factory[H]
	reset   ResetFunc[H]
	discard func(H)
	log     *logging.Logger

	idle []H

	created     atomic.Int64
	reused      atomic.Int64
	discarded   atomic.Int64
	factoryErrs atomic.Int64
	resetErrs   atomic.Int64
}

// ErrNoFactory is returned by New when no factory is configured.
var ErrNoFactory = errors.New("pool: factory is required")

// New creates a pool. MaxIdle below zero is treated as zero.
func New[H any](opts Options[H]) (*Pool[H], error) {
	if opts.Factory == nil {
		return nil, ErrNoFactory
	}
	if opts.MaxIdle < 0 {
		opts.MaxIdle = 0
	}
	if opts.Batch < 1 {
		opts.Batch = 1
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &Pool[H]{
		name:    opts.Name,
		maxIdle: opts.MaxIdle,
		batch:   opts.Batch,
		factory: opts.Factory,
		reset:   opts.Reset,
		discard: opts.Discard,
		log:     opts.Logger,
		idle:    make([]H, 0, min(opts.MaxIdle, 64)),
	}, nil
}

// Get pops an idle handle, or creates a batch and returns the first.
func (p *Pool[H]) Get() (H, error) {
	if n := len(p.idle); n > 0 {
		h := p.idle[n-1]
		var zero H
		p.idle[n-1] = zero
		p.idle = p.idle[:n-1]
		p.reused.Add(1)
		return h, nil
	}

	h, err := p.create()
	if err != nil {
		var zero H
		return zero, err
	}

	// Prefill to absorb burst demand; stop quietly at the first failure
	for i := 1; i < p.batch && len(p.idle) < p.maxIdle; i++ {
		extra, err := p.create()
		if err != nil {
			break
		}
		p.idle = append(p.idle, extra)
	}
	return h, nil
}

// Release resets h and keeps it if the idle list has room.
// A handle whose reset fails is discarded, never pooled half-reset.
func (p *Pool[H]) Release(h H) {
	if p.reset != nil {
		if err := p.safeReset(h); err != nil {
			p.resetErrs.Add(1)
			p.log.Warn().Err(err).Str("pool", p.name).Msg("Handle reset failed, discarding")
			p.drop(h)
			return
		}
	}
	if len(p.idle) >= p.maxIdle {
		p.drop(h)
		return
	}
	p.idle = append(p.idle, h)
}

// Size returns the number of idle handles.
func (p *Pool[H]) Size() int {
	return len(p.idle)
}

// MaxIdle returns the idle cap.
func (p *Pool[H]) MaxIdle() int {
	return p.maxIdle
}

// Drain discards every idle handle.
func (p *Pool[H]) Drain() {
	for _, h := range p.idle {
		p.drop(h)
	}
	clear(p.idle)
	p.idle = p.idle[:0]
}

// Stats returns a snapshot of the pool counters.
func (p *Pool[H]) Stats() Stats {
	return Stats{
		Idle:        len(p.idle),
		Created:     p.created.Load(),
		Reused:      p.reused.Load(),
		Discarded:   p.discarded.Load(),
		FactoryErrs: p.factoryErrs.Load(),
		ResetErrs:   p.resetErrs.Load(),
	}
}

func (p *Pool[H]) create() (h H, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pool %s: factory panic: %v", p.name, r)
		}
		if err != nil {
			p.factoryErrs.Add(1)
			p.log.Warn().Err(err).Str("pool", p.name).Msg("Handle factory failed")
		}
	}()
	h, err = p.factory()
	if err == nil {
		p.created.Add(1)
	}
	return h, err
}

func (p *Pool[H]) safeReset(h H) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pool %s: reset panic: %v", p.name, r)
		}
	}()
	return p.reset(h)
}

func (p *Pool[H]) drop(h H) {
	p.discarded.Add(1)
	if p.discard == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.Warn().Str("pool", p.name).Msgf("Discard hook panic: %v", r)
		}
	}()
	p.discard(h)
}
