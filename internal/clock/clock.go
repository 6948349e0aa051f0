package clock

import (
	"sync"
	"time"
)

// AlarmClock supplies the current time per timezone and drives periodic
// work. It is injected everywhere "now" is consulted so tests can pin time.
type AlarmClock interface {
	// Now returns the current instant observed in the fixed-offset zone
	// given in whole hours east of UTC.
	Now(timezone int) time.Time

	// NewRecurringAlarm invokes fn every period until the alarm is stopped.
	NewRecurringAlarm(period time.Duration, fn func()) Alarm
}

// Alarm is a handle on a recurring alarm.
type Alarm interface {
	Stop()
}

// SystemClock is the production AlarmClock backed by the time package.
type SystemClock struct{}

func NewSystemClock() *SystemClock { return &SystemClock{} }

func (*SystemClock) Now(timezone int) time.Time {
	return time.Now().In(time.FixedZone("", timezone*3600))
}

func (*SystemClock) NewRecurringAlarm(period time.Duration, fn func()) Alarm {
	ticker := time.NewTicker(period)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()
	return &tickerAlarm{ticker: ticker, done: done}
}

type tickerAlarm struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (a *tickerAlarm) Stop() {
	a.once.Do(func() {
		a.ticker.Stop()
		close(a.done)
	})
}
