package scheduler

import (
	"context"
	"sync"
	"time"

	"WorkshopScheduler/internal/ports"
)

// Trigger fires every week on Day at Hour:Minute.
type Trigger struct {
	Day    time.Weekday
	Hour   int
	Minute int
}

// WeeklyScheduler runs a job at each trigger time in a fixed location.
type WeeklyScheduler struct {
	triggers []Trigger
	loc      *time.Location
	now      func() time.Time

	mu   sync.Mutex
	stop chan struct{}
}

var _ ports.Scheduler = (*WeeklyScheduler)(nil)

// NewWeeklyScheduler builds a scheduler for triggers evaluated in loc (UTC when nil).
func NewWeeklyScheduler(triggers []Trigger, loc *time.Location) *WeeklyScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &WeeklyScheduler{
		triggers: append([]Trigger(nil), triggers...),
		loc:      loc,
		now:      time.Now,
	}
}

// Next returns the first trigger time strictly after after.
func (w *WeeklyScheduler) Next(after time.Time) (time.Time, bool) {
	local := after.In(w.loc)
	y, m, d := local.Date()

	var best time.Time
	found := false
	for offset := 0; offset <= 7; offset++ {
		for _, t := range w.triggers {
			candidate := time.Date(y, m, d+offset, t.Hour, t.Minute, 0, 0, w.loc)
			if candidate.Weekday() != t.Day || !candidate.After(after) {
				continue
			}
			if !found || candidate.Before(best) {
				best, found = candidate, true
			}
		}
		if found {
			return best, true
		}
	}
	return time.Time{}, false
}

// Start launches the trigger loop. A second Start before Stop is a no-op.
func (w *WeeklyScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil || len(w.triggers) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stop != nil {
		return nil
	}

	stop := make(chan struct{})
	w.stop = stop

	go func() {
		for {
			next, ok := w.Next(w.now())
			if !ok {
				return
			}
			timer := time.NewTimer(time.Until(next))
			select {
			case <-timer.C:
				job(next)
			case <-ctx.Done():
				timer.Stop()
				return
			case <-stop:
				timer.Stop()
				return
			}
		}
	}()

	return nil
}

// Stop halts the trigger goroutine.
func (w *WeeklyScheduler) Stop(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stop == nil {
		return nil
	}
	close(w.stop)
	w.stop = nil
	return nil
}
