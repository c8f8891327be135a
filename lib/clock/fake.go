// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake returns a FakeClock initialized to the given time. Time stands
// still until Advance is called; waiters registered by After, Sleep,
// and NewTicker fire when the clock advances past their deadline.
//
// FakeClock is safe for concurrent use by multiple goroutines.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// FakeClock is a deterministic Clock for testing. Time advances only
// when Advance is called.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	ch       chan time.Time
	interval time.Duration // zero for one-shot waiters
	stopped  bool
}

// Now returns the fake current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d, firing every waiter whose
// deadline is reached, in deadline order. Ticker waiters re-arm at
// their interval and may fire multiple times in one Advance.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := c.current.Add(d)
	for {
		next := c.nextDeadlineLocked(target)
		if next == nil {
			break
		}
		c.current = next.deadline
		select {
		case next.ch <- c.current:
		default: // capacity-1 channel full: drop, like time.Ticker
		}
		if next.interval > 0 {
			next.deadline = next.deadline.Add(next.interval)
		} else {
			next.stopped = true
		}
	}
	c.current = target
	c.compactLocked()
}

func (c *FakeClock) nextDeadlineLocked(limit time.Time) *fakeWaiter {
	var earliest *fakeWaiter
	for _, waiter := range c.waiters {
		if waiter.stopped || waiter.deadline.After(limit) {
			continue
		}
		if earliest == nil || waiter.deadline.Before(earliest.deadline) {
			earliest = waiter
		}
	}
	return earliest
}

func (c *FakeClock) compactLocked() {
	active := c.waiters[:0]
	for _, waiter := range c.waiters {
		if !waiter.stopped {
			active = append(active, waiter)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].deadline.Before(active[j].deadline) })
	c.waiters = active
}

// After returns a channel that receives the fake time once the clock
// advances past d from now.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	waiter := &fakeWaiter{deadline: c.current.Add(d), ch: make(chan time.Time, 1)}
	c.waiters = append(c.waiters, waiter)
	return waiter.ch
}

// NewTicker returns a Ticker that fires every interval of fake time.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	waiter := &fakeWaiter{deadline: c.current.Add(d), ch: make(chan time.Time, 1), interval: d}
	c.waiters = append(c.waiters, waiter)
	return &Ticker{
		C: waiter.ch,
		stopFunc: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			waiter.stopped = true
		},
	}
}

// Sleep blocks until the clock advances past d. Another goroutine must
// call Advance or Sleep deadlocks; that is the point.
func (c *FakeClock) Sleep(d time.Duration) {
	<-c.After(d)
}
