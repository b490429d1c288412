package pubsub

import "quizlive/internal/domain"

// Event types carried on a session topic. State events flow host -> everyone;
// SubmitAnswer flows participant -> host and is consumed only by the host
// runtime's ingestion pipeline.
const (
	EventSessionUpdated    = "session_updated"
	EventQuestionChange    = "question_change"
	EventLeaderboard       = "leaderboard"
	EventParticipantJoined = "participant_joined"
	EventSubmitAnswer      = "submit_answer"
)

// QuestionChange announces the live question. The question carries no
// correctness metadata, so it is safe to broadcast verbatim.
type QuestionChange struct {
	CurrentQuestionIndex int             `json:"currentQuestionIndex"`
	Question             domain.Question `json:"question"`
}

// Leaderboard toggles the between-questions ranking display.
type Leaderboard struct {
	Show     bool                  `json:"show"`
	Rankings []domain.RankingEntry `json:"rankings,omitempty"`
}

// ParticipantJoined announces a new participant to everyone subscribed.
type ParticipantJoined struct {
	Participant domain.Participant `json:"participant"`
}
