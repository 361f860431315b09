package testutil

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"wishlist-go/internal/wishlist"
)

// StubClock returns a controllable time and runs scheduled callbacks only when
// Advance moves past their deadline. Safe for concurrent use.
type StubClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*stubTimer
}

type stubTimer struct {
	clock   *StubClock
	when    time.Time
	seq     int
	f       func()
	stopped bool
	fired   bool
}

// NewStubClock creates a StubClock set to the given time.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock set to 2024-01-15 10:30:00 UTC.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules f to run once the clock has been advanced by d.
func (c *StubClock) AfterFunc(d time.Duration, f func()) wishlist.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &stubTimer{clock: c, when: c.now.Add(d), seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *stubTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward by d and runs every callback whose deadline
// has passed, in deadline order. Callbacks run on the calling goroutine with
// the clock unlocked, so they may schedule further timers.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()

	for {
		t := c.nextDue()
		if t == nil {
			return
		}
		t.f()
	}
}

// Pending returns the number of scheduled callbacks that have not fired or
// been stopped.
func (c *StubClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (c *StubClock) nextDue() *stubTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	live := c.timers[:0]
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	c.timers = live

	sort.Slice(c.timers, func(i, j int) bool {
		if c.timers[i].when.Equal(c.timers[j].when) {
			return c.timers[i].seq < c.timers[j].seq
		}
		return c.timers[i].when.Before(c.timers[j].when)
	})

	if len(c.timers) == 0 || c.timers[0].when.After(c.now) {
		return nil
	}
	t := c.timers[0]
	t.fired = true
	return t
}

// StubIDGenerator returns sequential IDs: "id-1", "id-2", etc.
type StubIDGenerator struct {
	mu      sync.Mutex
	counter int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("id-%d", g.counter)
}

var (
	_ wishlist.Clock     = (*StubClock)(nil)
	_ wishlist.Scheduler = (*StubClock)(nil)
)
