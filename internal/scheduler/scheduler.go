package scheduler

import "github.com/rescale/rescale-space/internal/logging"

// Scheduler coalesces render requests into one pass per tick and carries
// chunked work across ticks. It is not safe for concurrent use; every method
// runs on the goroutine that owns the ticker's callbacks.
type Scheduler struct {
	ticker Ticker
	pass   func()
	log    *logging.Logger

	pending  bool
	paused   bool
	dirty    bool // a render was requested or due while paused
	held     []func()
	disposed bool
	requests uint64
	passes   uint64
}

// New creates a scheduler that runs pass on each coalesced tick.
func New(ticker Ticker, pass func(), log *logging.Logger) *Scheduler {
	if log == nil {
		log = logging.NewNop()
	}
	return &Scheduler{ticker: ticker, pass: pass, log: log}
}

// ScheduleRender requests a pass on the next tick. Calls made before that tick
// fires fold into the same pass.
func (s *Scheduler) ScheduleRender() {
	if s.disposed {
		return
	}
	s.requests++
	if s.paused {
		s.dirty = true
		return
	}
	if s.pending {
		return
	}
	s.pending = true
	s.ticker.RequestTick(s.fire)
}

// fire clears pending before the pass so a request made during the pass gets
// its own tick.
func (s *Scheduler) fire() {
	s.pending = false
	if s.disposed {
		return
	}
	if s.paused {
		s.dirty = true
		return
	}
	s.passes++
	s.pass()
}

// Defer runs fn at the next loop turn (or tick), holding it while paused.
func (s *Scheduler) Defer(fn func()) {
	if s.disposed {
		return
	}
	if s.paused {
		s.held = append(s.held, fn)
		return
	}
	s.enqueue(fn)
}

func (s *Scheduler) enqueue(fn func()) {
	run := func() {
		if s.disposed {
			return
		}
		if s.paused {
			s.held = append(s.held, fn)
			return
		}
		fn()
	}
	if p, ok := s.ticker.(Poster); ok {
		p.Post(run)
		return
	}
	s.ticker.RequestTick(run)
}

// Pause stops tick consumption. Requests made while paused are remembered,
// not replayed.
func (s *Scheduler) Pause() {
	if s.disposed || s.paused {
		return
	}
	s.paused = true
	s.log.Debug().Msg("Scheduler paused")
}

// Resume restarts held work and schedules a pass if anything changed while paused.
func (s *Scheduler) Resume() {
	if s.disposed || !s.paused {
		return
	}
	s.paused = false
	held := s.held
	s.held = nil
	for _, fn := range held {
		s.enqueue(fn)
	}
	if s.dirty {
		s.dirty = false
		s.ScheduleRender()
	}
	s.log.Debug().Int("held", len(held)).Msg("Scheduler resumed")
}

// Dispose drops pending and held work; later calls are no-ops.
func (s *Scheduler) Dispose() {
	s.disposed = true
	s.pending = false
	s.held = nil
}

// Pending reports whether a pass is scheduled and not yet run.
func (s *Scheduler) Pending() bool { return s.pending }

// Paused reports whether the scheduler is paused.
func (s *Scheduler) Paused() bool { return s.paused }

// Passes returns the number of passes started by ticks.
func (s *Scheduler) Passes() uint64 { return s.passes }

// Requests returns the number of ScheduleRender calls accepted.
func (s *Scheduler) Requests() uint64 { return s.requests }
