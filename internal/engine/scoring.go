package engine

import (
	"encoding/json"
	"math"

	"quizlive/internal/domain"
)

const (
	multipleChoiceMaxPoints = 100
	matchingMaxPoints       = 200
)

// Score computes the score delta for an accepted submission. It is pure:
// identical (type, payload, timeRemaining, timeLimit) inputs always produce
// the identical delta. The result is a non-negative integer, rounded half up,
// and bounded by the type's maximum since timeRemaining <= timeLimit.
//
// drag_and_drop has no defined scoring rule yet: submissions are accepted by
// the ledger but always score 0.
func Score(q domain.Question, ref domain.ReferenceAnswer, payload json.RawMessage, timeRemaining, timeLimit int) int {
	if timeLimit <= 0 {
		return 0
	}
	if timeRemaining < 0 {
		timeRemaining = 0
	}
	if timeRemaining > timeLimit {
		timeRemaining = timeLimit
	}

	switch q.Type {
	case domain.QuestionMultipleChoice:
		var choiceID string
		if err := json.Unmarshal(payload, &choiceID); err != nil {
			return 0
		}
		if choiceID == "" || choiceID != ref.CorrectChoiceID {
			return 0
		}
		return timePoints(timeRemaining, timeLimit, multipleChoiceMaxPoints)
	case domain.QuestionMatching:
		var pairs map[string]string
		if err := json.Unmarshal(payload, &pairs); err != nil {
			return 0
		}
		// All-or-nothing: one mismatched pair forfeits the whole question.
		for key, value := range pairs {
			if key != value {
				return 0
			}
		}
		return timePoints(timeRemaining, timeLimit, matchingMaxPoints)
	default:
		return 0
	}
}

func timePoints(timeRemaining, timeLimit, max int) int {
	return int(math.Round(float64(timeRemaining) / float64(timeLimit) * float64(max)))
}
