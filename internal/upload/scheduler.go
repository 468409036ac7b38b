package upload

import (
	"sort"
	"sync"
	"time"
)

// TimerScheduler runs callbacks on runtime timers.
type TimerScheduler struct{}

func (TimerScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

// ManualScheduler only runs callbacks when its clock is advanced. It stands in for
// TimerScheduler wherever elapsed time has to be simulated.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []scheduled
}

type scheduled struct {
	at  time.Duration
	seq int
	f   func()
}

// NewManualScheduler returns a scheduler whose clock starts at zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.pending = append(s.pending, scheduled{at: s.now + d, seq: s.seq, f: f})
}

// Advance moves the clock forward by d and runs every callback that came due, in
// due order. Callbacks run without the lock held.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due, rest []scheduled
	for _, p := range s.pending {
		if p.at <= s.now {
			due = append(due, p)
		} else {
			rest = append(rest, p)
		}
	}
	s.pending = rest
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at != due[j].at {
			return due[i].at < due[j].at
		}
		return due[i].seq < due[j].seq
	})
	for _, p := range due {
		p.f()
	}
}

// Pending reports how many callbacks have not fired yet.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
