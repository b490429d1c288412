package engine_test

import (
	"errors"
	"testing"
	"time"

	"quizlive/internal/domain"
	"quizlive/internal/engine"
)

func TestStartOnlySucceedsOnce(t *testing.T) {
	sess := domain.Session{ID: "s1", Status: domain.StatusPending}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := engine.Start(&sess, 3, now); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if sess.Status != domain.StatusStarted {
		t.Fatalf("expected started, got %s", sess.Status)
	}
	if !sess.StartTime.Equal(now) {
		t.Fatalf("expected start time stamped")
	}
	if sess.CurrentQuestionIndex != 0 {
		t.Fatalf("expected index 0, got %d", sess.CurrentQuestionIndex)
	}

	if err := engine.Start(&sess, 3, now); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition on second start, got %v", err)
	}
}

func TestStartRejectsEmptyGame(t *testing.T) {
	sess := domain.Session{Status: domain.StatusPending}
	if err := engine.Start(&sess, 0, time.Now()); !errors.Is(err, domain.ErrNoMoreQuestions) {
		t.Fatalf("expected no more questions, got %v", err)
	}
}

func TestAdvanceBounds(t *testing.T) {
	sess := domain.Session{Status: domain.StatusPending}
	if err := engine.Advance(&sess, 2); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition before start, got %v", err)
	}

	_ = engine.Start(&sess, 2, time.Now())
	if err := engine.Advance(&sess, 2); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if sess.CurrentQuestionIndex != 1 {
		t.Fatalf("expected index 1, got %d", sess.CurrentQuestionIndex)
	}

	if err := engine.Advance(&sess, 2); !errors.Is(err, domain.ErrNoMoreQuestions) {
		t.Fatalf("expected no more questions at last index, got %v", err)
	}
	if sess.CurrentQuestionIndex != 1 {
		t.Fatalf("index must not move on failed advance, got %d", sess.CurrentQuestionIndex)
	}
}

func TestEndIsIdempotent(t *testing.T) {
	sess := domain.Session{Status: domain.StatusPending}

	if err := engine.End(&sess); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition from pending, got %v", err)
	}

	_ = engine.Start(&sess, 1, time.Now())
	if err := engine.End(&sess); err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if sess.Status != domain.StatusEnded {
		t.Fatalf("expected ended, got %s", sess.Status)
	}
	if err := engine.End(&sess); err != nil {
		t.Fatalf("second end must be a no-op, got %v", err)
	}
}
