package pool

import (
	"errors"
	"testing"
)

type handle struct {
	id    int
	bound string
}

func newCounterPool(t *testing.T, maxIdle, batch int) (*Pool[*handle], *int, *[]*handle) {
	t.Helper()
	next := 0
	var discarded []*handle
	p, err := New(Options[*handle]{
		Name:    "test",
		MaxIdle: maxIdle,
		Batch:   batch,
		Factory: func() (*handle, error) {
			next++
			return &handle{id: next}, nil
		},
		Reset: func(h *handle) error {
			h.bound = ""
			return nil
		},
		Discard: func(h *handle) { discarded = append(discarded, h) },
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p, &next, &discarded
}

func TestNewRequiresFactory(t *testing.T) {
	if _, err := New(Options[*handle]{}); !errors.Is(err, ErrNoFactory) {
		t.Errorf("New() error = %v, want ErrNoFactory", err)
	}
}

func TestReleaseBeyondMaxIsDiscarded(t *testing.T) {
	p, _, discarded := newCounterPool(t, 2, 1)

	h1, _ := p.Get()
	h2, _ := p.Get()
	h3, _ := p.Get()

	p.Release(h1)
	p.Release(h2)
	p.Release(h3)

	if p.Size() != 2 {
		t.Fatalf("Size = %d, want 2", p.Size())
	}
	if len(*discarded) != 1 || (*discarded)[0] != h3 {
		t.Fatalf("discarded = %v, want [h3]", *discarded)
	}

	// h3 must not come back out of the pool
	for i := 0; i < 2; i++ {
		h, _ := p.Get()
		if h == h3 {
			t.Fatal("discarded handle was handed out again")
		}
	}
}

func TestReleaseResetsHandle(t *testing.T) {
	p, _, _ := newCounterPool(t, 4, 1)
	h, _ := p.Get()
	h.bound = "/a"
	p.Release(h)

	got, _ := p.Get()
	if got != h {
		t.Fatal("expected the released handle back")
	}
	if got.bound != "" {
		t.Errorf("reused handle still bound to %q", got.bound)
	}
	if s := p.Stats(); s.Reused != 1 {
		t.Errorf("Reused = %d, want 1", s.Reused)
	}
}

func TestGetBatchPrefill(t *testing.T) {
	p, created, _ := newCounterPool(t, 10, 4)
	if _, err := p.Get(); err != nil {
		t.Fatal(err)
	}
	if *created != 4 {
		t.Errorf("factory calls = %d, want 4", *created)
	}
	if p.Size() != 3 {
		t.Errorf("Size = %d, want 3 prefilled", p.Size())
	}
}

func TestGetBatchPrefillRespectsMax(t *testing.T) {
	p, created, _ := newCounterPool(t, 1, 8)
	if _, err := p.Get(); err != nil {
		t.Fatal(err)
	}
	if *created != 2 || p.Size() != 1 {
		t.Errorf("created=%d idle=%d, want 2 and 1", *created, p.Size())
	}
}

func TestFactoryFailure(t *testing.T) {
	calls := 0
	p, _ := New(Options[*handle]{
		Name:    "failing",
		MaxIdle: 2,
		Factory: func() (*handle, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("no surface")
			}
			if calls == 2 {
				panic("driver crashed")
			}
			return &handle{id: calls}, nil
		},
	})

	if _, err := p.Get(); err == nil {
		t.Error("Get() succeeded with a failing factory")
	}
	if _, err := p.Get(); err == nil {
		t.Error("Get() succeeded with a panicking factory")
	}
	h, err := p.Get()
	if err != nil || h == nil {
		t.Fatalf("Get() after recovery = %v, %v", h, err)
	}
	if s := p.Stats(); s.FactoryErrs != 2 || s.Created != 1 || s.Idle != 0 {
		t.Errorf("Stats = %+v", s)
	}
}

func TestResetFailureDiscards(t *testing.T) {
	var discarded []*handle
	p, _ := New(Options[*handle]{
		MaxIdle: 5,
		Factory: func() (*handle, error) { return &handle{}, nil },
		Reset: func(h *handle) error {
			if h.bound == "bad" {
				return errors.New("cannot detach")
			}
			if h.bound == "panic" {
				panic("boom")
			}
			return nil
		},
		Discard: func(h *handle) { discarded = append(discarded, h) },
	})

	a, _ := p.Get()
	a.bound = "bad"
	b, _ := p.Get()
	b.bound = "panic"
	p.Release(a)
	p.Release(b)

	if p.Size() != 0 {
		t.Errorf("Size = %d, want 0", p.Size())
	}
	if len(discarded) != 2 {
		t.Errorf("discarded %d handles, want 2", len(discarded))
	}
	if s := p.Stats(); s.ResetErrs != 2 {
		t.Errorf("ResetErrs = %d, want 2", s.ResetErrs)
	}
}

func TestIdleNeverExceedsMax(t *testing.T) {
	p, _, _ := newCounterPool(t, 3, 2)
	var live []*handle
	for round := 0; round < 20; round++ {
		for i := 0; i < round%7; i++ {
			h, _ := p.Get()
			live = append(live, h)
		}
		for len(live) > round%3 {
			p.Release(live[0])
			live = live[1:]
		}
		if p.Size() > p.MaxIdle() {
			t.Fatalf("round %d: Size %d > max %d", round, p.Size(), p.MaxIdle())
		}
	}
}

func TestDrain(t *testing.T) {
	p, _, discarded := newCounterPool(t, 5, 1)
	for i := 0; i < 3; i++ {
		h, _ := p.Get()
		defer p.Release(h)
	}
	a, _ := p.Get()
	b, _ := p.Get()
	p.Release(a)
	p.Release(b)

	p.Drain()
	if p.Size() != 0 {
		t.Errorf("Size = %d after Drain", p.Size())
	}
	if len(*discarded) != 2 {
		t.Errorf("discarded = %d, want 2", len(*discarded))
	}
}

func TestZeroMaxIdleKeepsNothing(t *testing.T) {
	p, _, discarded := newCounterPool(t, 0, 4)
	h, _ := p.Get()
	if p.Size() != 0 {
		t.Errorf("prefill ignored MaxIdle=0, Size = %d", p.Size())
	}
	p.Release(h)
	if p.Size() != 0 || len(*discarded) != 1 {
		t.Errorf("Size=%d discarded=%d, want 0 and 1", p.Size(), len(*discarded))
	}
}
