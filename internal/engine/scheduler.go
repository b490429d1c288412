package engine

import (
	"sync"
	"time"

	"quizlive/internal/domain"
)

type schedulerPhase int

const (
	phaseIdle schedulerPhase = iota
	phaseCountdown
	phaseWindow
)

// Scheduler drives the timed question cycle for one session: a countdown per
// question, then a fixed leaderboard window, then the next question. One
// logical timer exists at any moment regardless of participant count.
//
// Callbacks fire outside the scheduler lock so they may re-arm it. Stale
// timer callbacks (cancelled or superseded arms) are discarded by checking
// phase and index before acting.
type Scheduler struct {
	window    time.Duration
	onExpire  func(index int) // countdown ran out (or was pre-empted) for index
	onElapsed func(index int) // leaderboard window after index finished

	mu    sync.Mutex
	phase schedulerPhase
	index int
	timer *time.Timer
}

func NewScheduler(window time.Duration, onExpire, onElapsed func(index int)) *Scheduler {
	return &Scheduler{window: window, onExpire: onExpire, onElapsed: onElapsed}
}

// ArmCountdown starts the countdown for a question. Re-arming the countdown
// already running for the same index is a no-op. A remaining duration of zero
// or less fires the expiry immediately, which is how a restarted owner
// resumes a question whose budget already ran out.
func (s *Scheduler) ArmCountdown(index int, remaining time.Duration) {
	s.mu.Lock()
	if s.phase == phaseCountdown && s.index == index {
		s.mu.Unlock()
		return
	}
	s.stopLocked()
	s.phase = phaseCountdown
	s.index = index
	if remaining < 0 {
		remaining = 0
	}
	s.timer = time.AfterFunc(remaining, func() { s.expire(index) })
	s.mu.Unlock()
}

// Preempt cancels the running countdown for index and jumps straight to the
// leaderboard window, exactly as if the countdown had expired. Reports false
// when no countdown for that index was running, in which case nothing
// happened — this is what keeps a manual advance from double-firing.
func (s *Scheduler) Preempt(index int) bool {
	s.mu.Lock()
	if s.phase != phaseCountdown || s.index != index {
		s.mu.Unlock()
		return false
	}
	s.stopLocked()
	s.beginWindowLocked(index)
	s.mu.Unlock()
	s.onExpire(index)
	return true
}

// Stop cancels any outstanding timer. Used when the session ends.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopLocked()
	s.phase = phaseIdle
	s.mu.Unlock()
}

func (s *Scheduler) expire(index int) {
	s.mu.Lock()
	if s.phase != phaseCountdown || s.index != index {
		s.mu.Unlock()
		return
	}
	s.beginWindowLocked(index)
	s.mu.Unlock()
	s.onExpire(index)
}

func (s *Scheduler) windowElapsed(index int) {
	s.mu.Lock()
	if s.phase != phaseWindow || s.index != index {
		s.mu.Unlock()
		return
	}
	s.phase = phaseIdle
	s.timer = nil
	s.mu.Unlock()
	s.onElapsed(index)
}

func (s *Scheduler) beginWindowLocked(index int) {
	s.phase = phaseWindow
	s.index = index
	s.timer = time.AfterFunc(s.window, func() { s.windowElapsed(index) })
}

func (s *Scheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// RemainingCountdown recomputes how much of the current question's budget is
// left from durable state alone: the session's start time, the per-question
// time limit and the fixed window length. Each earlier question consumed one
// full limit+window cycle. A restarted owner re-arms from this value instead
// of relying on lost in-memory timer state.
func RemainingCountdown(s domain.Session, timeLimit, window time.Duration, now time.Time) time.Duration {
	elapsed := now.Sub(s.StartTime)
	cycle := timeLimit + window
	offset := elapsed - time.Duration(s.CurrentQuestionIndex)*cycle
	return timeLimit - offset
}
