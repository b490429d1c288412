package engine

import (
	"time"

	"quizlive/internal/domain"
)

// Session transitions are linear (pending -> started -> ended) and owned by a
// single writer. Callers hold the runtime lock and publish the matching event
// before releasing it, so readers never observe a published index that
// disagrees with the durable record.

// Start moves a pending session to started, stamping StartTime and resetting
// the question index to 0. Any other starting status is an invalid transition.
func Start(s *domain.Session, questionCount int, now time.Time) error {
	if s.Status != domain.StatusPending {
		return domain.ErrInvalidTransition
	}
	if questionCount == 0 {
		return domain.ErrNoMoreQuestions
	}
	s.Status = domain.StatusStarted
	s.StartTime = now
	s.CurrentQuestionIndex = 0
	return nil
}

// Advance increments the question index. Legal only while started and only
// when questions remain; at the last question the caller should End instead.
func Advance(s *domain.Session, questionCount int) error {
	if s.Status != domain.StatusStarted {
		return domain.ErrInvalidTransition
	}
	if s.CurrentQuestionIndex >= questionCount-1 {
		return domain.ErrNoMoreQuestions
	}
	s.CurrentQuestionIndex++
	return nil
}

// End moves a started session to ended. Ending an already-ended session is a
// no-op, not an error.
func End(s *domain.Session) error {
	switch s.Status {
	case domain.StatusEnded:
		return nil
	case domain.StatusStarted:
		s.Status = domain.StatusEnded
		return nil
	default:
		return domain.ErrInvalidTransition
	}
}
