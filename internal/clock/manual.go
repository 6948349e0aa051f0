package clock

import (
	"sync"
	"time"
)

// ManualClock is a deterministic AlarmClock for tests. Time only moves via
// Set or Advance, and alarms only fire when FireAlarms is called.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	alarms []*manualAlarm
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now(timezone int) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.In(time.FixedZone("", timezone*3600))
}

func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *ManualClock) NewRecurringAlarm(period time.Duration, fn func()) Alarm {
	c.mu.Lock()
	defer c.mu.Unlock()
	a := &manualAlarm{clock: c, fn: fn}
	c.alarms = append(c.alarms, a)
	return a
}

// FireAlarms runs every registered, unstopped alarm once.
func (c *ManualClock) FireAlarms() {
	c.mu.Lock()
	alarms := append([]*manualAlarm(nil), c.alarms...)
	c.mu.Unlock()
	for _, a := range alarms {
		if !a.stopped() {
			a.fn()
		}
	}
}

type manualAlarm struct {
	clock *ManualClock
	fn    func()
	mu    sync.Mutex
	dead  bool
}

func (a *manualAlarm) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dead = true
}

func (a *manualAlarm) stopped() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dead
}
