// Package reveal implements the timed typewriter effect for dialogue lines:
// a growing prefix of the target string is exposed at a fixed per-character
// interval until the line is fully shown or the player skips ahead.
package reveal

import (
	"strings"
	"sync"
	"time"
)

// Speed is a text-reveal rate tier.
type Speed string

const (
	SpeedSlow   Speed = "slow"
	SpeedMedium Speed = "medium"
	SpeedFast   Speed = "fast"
)

// Interval returns the per-character delay for the tier. Fast is zero: the
// whole string appears at once with no incremental steps.
func (s Speed) Interval() time.Duration {
	switch s {
	case SpeedSlow:
		return 80 * time.Millisecond
	case SpeedMedium:
		return 40 * time.Millisecond
	case SpeedFast:
		return 0
	}
	return 40 * time.Millisecond
}

// ParseSpeed maps a config string to a tier, defaulting to medium.
func ParseSpeed(s string) Speed {
	switch Speed(strings.ToLower(strings.TrimSpace(s))) {
	case SpeedSlow:
		return SpeedSlow
	case SpeedMedium:
		return SpeedMedium
	case SpeedFast:
		return SpeedFast
	}
	return SpeedMedium
}

// Scheduler reveals one string at a time. Start replaces any in-progress
// reveal outright; there is no queueing. All methods are safe for use from
// the driving goroutine alongside the scheduler's own timer callbacks: a
// generation counter guarantees that no step of a cancelled reveal can land
// after Skip or a subsequent Start.
type Scheduler struct {
	mu    sync.Mutex
	speed Speed

	gen   int
	runes []rune
	shown int
	timer *time.Timer
}

// NewScheduler returns a scheduler with the given rate tier and no active
// reveal (IsComplete reports true until Start is called).
func NewScheduler(speed Speed) *Scheduler {
	return &Scheduler{speed: speed}
}

// SetSpeed changes the rate tier. The new tier takes effect on the next
// Start; an in-progress reveal keeps its original pacing.
func (s *Scheduler) SetSpeed(speed Speed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = speed
}

// Speed returns the current rate tier.
func (s *Scheduler) Speed() Speed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

// Start begins revealing text, cancelling any reveal still in progress. At
// the fast tier (or for empty text) the reveal completes immediately.
func (s *Scheduler) Start(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.cancelTimerLocked()
	s.runes = []rune(text)

	interval := s.speed.Interval()
	if interval <= 0 || len(s.runes) == 0 {
		s.shown = len(s.runes)
		return
	}

	s.shown = 0
	s.scheduleLocked(s.gen, interval)
}

// Skip jumps to the full text and marks the reveal complete. Any pending
// step is cancelled and can no longer apply.
func (s *Scheduler) Skip() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.cancelTimerLocked()
	s.shown = len(s.runes)
}

// IsComplete reports whether the full text is visible.
func (s *Scheduler) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shown >= len(s.runes)
}

// Text returns the currently revealed prefix.
func (s *Scheduler) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.runes[:s.shown])
}

// Full returns the complete target string regardless of reveal progress.
func (s *Scheduler) Full() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.runes)
}

func (s *Scheduler) scheduleLocked(gen int, interval time.Duration) {
	s.timer = time.AfterFunc(interval, func() {
		s.step(gen, interval)
	})
}

func (s *Scheduler) step(gen int, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A stale step from a reveal that was skipped or replaced.
	if gen != s.gen {
		return
	}

	s.shown++
	if s.shown < len(s.runes) {
		s.scheduleLocked(gen, interval)
	}
}

func (s *Scheduler) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
