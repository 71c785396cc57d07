// Package scheduler coalesces render requests into at most one pass per frame
// and spreads long passes across frames.
package scheduler

// Ticker delivers callbacks on the next animation frame.
// Callbacks registered while a frame is running wait for the following frame.
type Ticker interface {
	RequestTick(fn func())
}

// Poster is implemented by tickers that can also run a callback at the next
// loop turn without waiting for a frame. Chunked work prefers it when present.
type Poster interface {
	Post(fn func())
}

// ManualTicker is a Ticker driven explicitly by Tick. Tests and headless
// sweeps use it to step frames deterministically.
type ManualTicker struct {
	queue []func()
	ticks int
}

// NewManualTicker creates an idle manual ticker.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{}
}

// RequestTick queues fn for the next Tick.
func (m *ManualTicker) RequestTick(fn func()) {
	m.queue = append(m.queue, fn)
}

// Tick runs the callbacks queued before this call and returns how many ran.
func (m *ManualTicker) Tick() int {
	run := m.queue
	m.queue = nil
	m.ticks++
	for _, fn := range run {
		fn()
	}
	return len(run)
}

// Pending returns the number of callbacks waiting for the next Tick.
func (m *ManualTicker) Pending() int {
	return len(m.queue)
}

// Ticks returns how many frames have been stepped.
func (m *ManualTicker) Ticks() int {
	return m.ticks
}

// Flush steps frames until nothing is queued or limit frames have run.
// It returns the number of frames stepped.
func (m *ManualTicker) Flush(limit int) int {
	n := 0
	for n < limit && len(m.queue) > 0 {
		m.Tick()
		n++
	}
	return n
}
