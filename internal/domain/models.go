package domain

import (
	"encoding/json"
	"time"
)

// SessionStatus is the lifecycle state of a live session.
// Transitions are linear: pending -> started -> ended.
type SessionStatus string

const (
	StatusPending SessionStatus = "pending"
	StatusStarted SessionStatus = "started"
	StatusEnded   SessionStatus = "ended"
)

// Session is the authoritative record of one play-through of a game.
// It is owned by a single writer (the host runtime); everyone else reads
// published snapshots.
type Session struct {
	ID                   string        `json:"id"`
	GameID               string        `json:"gameId"`
	Status               SessionStatus `json:"status"`
	CurrentQuestionIndex int           `json:"currentQuestionIndex"`
	StartTime            time.Time     `json:"startTime"`
}

// GameSettings holds per-game play configuration.
type GameSettings struct {
	TimeLimit int `json:"timeLimit"` // seconds per question
}

// Game is an immutable question set with its settings.
type Game struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Settings GameSettings `json:"settings"`
}

// QuestionType tags how a question is rendered and scored.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionMatching       QuestionType = "matching"
	QuestionDragAndDrop    QuestionType = "drag_and_drop"
)

// Choice is one selectable option of a question. Correctness is deliberately
// not part of the choice so questions can be broadcast to participants as-is;
// the correct choice lives in ReferenceAnswer, which never leaves the host.
type Choice struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is immutable and ordered within its game.
type Question struct {
	ID      string       `json:"id"`
	GameID  string       `json:"gameId"`
	Index   int          `json:"index"`
	Prompt  string       `json:"prompt"`
	Type    QuestionType `json:"type"`
	Choices []Choice     `json:"choices"`
}

// ReferenceAnswer is the correct-answer definition for one question, loaded
// once per session and read only by the scoring engine.
type ReferenceAnswer struct {
	QuestionID      string `json:"questionId"`
	CorrectChoiceID string `json:"correctChoiceId"`
}

// GameContent bundles everything the host runtime needs about a game.
// Fetched once on session attach: game first, then questions, then answers.
type GameContent struct {
	Game      Game              `json:"game"`
	Questions []Question        `json:"questions"`
	Answers   []ReferenceAnswer `json:"answers"`
}

// Participant is one joined device. IDs are unique per session, nicknames
// are not required to be.
type Participant struct {
	ID       string    `json:"id"`
	Nickname string    `json:"nickname"`
	Score    int       `json:"score"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Submission is the ephemeral answer event a participant emits. Payload shape
// depends on the question type: a choice id (JSON string) for multiple choice,
// a key->value object for matching.
type Submission struct {
	ParticipantID string          `json:"participantId"`
	QuestionID    string          `json:"questionId"`
	Type          QuestionType    `json:"questionType"`
	Payload       json.RawMessage `json:"payload"`
	TimeRemaining int             `json:"timeRemaining"` // seconds left on the countdown
}

// LedgerEntry is one accepted answer. The ledger holds at most one entry per
// (participant, question) pair; it is the de-duplication boundary.
type LedgerEntry struct {
	ParticipantID string          `json:"participantId"`
	QuestionID    string          `json:"questionId"`
	Payload       json.RawMessage `json:"payload"`
	ScoreDelta    int             `json:"scoreDelta"`
	AcceptedAt    time.Time       `json:"acceptedAt"`
}

// RankingEntry is a snapshot-friendly view of a participant's standing.
type RankingEntry struct {
	ParticipantID string `json:"participantId"`
	Nickname      string `json:"nickname"`
	Score         int    `json:"score"`
}

// Snapshot is the authoritative state a client fetches synchronously when it
// subscribes, since the fan-out channel does not replay missed events.
type Snapshot struct {
	Session  Session        `json:"session"`
	Question *Question      `json:"question,omitempty"` // live question, nil unless started
	Rankings []RankingEntry `json:"rankings"`
}
