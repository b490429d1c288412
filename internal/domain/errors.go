package domain

import "errors"

var (
	// ErrInvalidTransition is returned when a session transition is illegal
	// from the current status (e.g. starting a session twice).
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrNoMoreQuestions is returned by advance at the last question; the
	// caller should end the session instead. Never surfaced to end users.
	ErrNoMoreQuestions = errors.New("no more questions")
	// ErrSessionNotStarted rejects actions that require a running session.
	ErrSessionNotStarted = errors.New("session not started")
	// ErrSessionEnded rejects joins and actions on a finished session.
	ErrSessionEnded = errors.New("session has ended")
	// ErrSessionNotFound is returned when a session id is unknown.
	ErrSessionNotFound = errors.New("session not found")
	// ErrGameNotFound indicates the game content could not be loaded.
	ErrGameNotFound = errors.New("game not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrParticipantNotFound is returned when a participant id is unknown
	// to the session's registry.
	ErrParticipantNotFound = errors.New("participant not found in session")
)
