package engine_test

import (
	"encoding/json"
	"testing"

	"quizlive/internal/domain"
	"quizlive/internal/engine"
)

func mcQuestion() (domain.Question, domain.ReferenceAnswer) {
	q := domain.Question{
		ID:   "q1",
		Type: domain.QuestionMultipleChoice,
		Choices: []domain.Choice{
			{ID: "c1", Text: "3"},
			{ID: "c2", Text: "4"},
		},
	}
	return q, domain.ReferenceAnswer{QuestionID: "q1", CorrectChoiceID: "c2"}
}

func TestMultipleChoiceScoring(t *testing.T) {
	q, ref := mcQuestion()

	tests := []struct {
		name          string
		choice        string
		timeRemaining int
		timeLimit     int
		want          int
	}{
		{"correct full time", "c2", 30, 30, 100},
		{"correct no time", "c2", 0, 30, 0},
		{"correct half time", "c2", 15, 30, 50},
		{"wrong choice", "c1", 30, 30, 0},
		{"rounds half up", "c2", 1, 40, 3}, // 2.5 -> 3
		{"remaining clamped to limit", "c2", 60, 30, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, _ := json.Marshal(tt.choice)
			got := engine.Score(q, ref, payload, tt.timeRemaining, tt.timeLimit)
			if got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestMatchingScoring(t *testing.T) {
	q := domain.Question{ID: "q2", Type: domain.QuestionMatching}

	allMatched, _ := json.Marshal(map[string]string{
		"paris": "paris", "rome": "rome", "berlin": "berlin", "madrid": "madrid", "oslo": "oslo",
	})
	oneOff, _ := json.Marshal(map[string]string{
		"paris": "paris", "rome": "rome", "berlin": "berlin", "madrid": "madrid", "oslo": "rome",
	})

	if got := engine.Score(q, domain.ReferenceAnswer{}, allMatched, 30, 30); got != 200 {
		t.Fatalf("expected full credit 200, got %d", got)
	}
	// One mismatch among five forfeits everything: no partial credit.
	if got := engine.Score(q, domain.ReferenceAnswer{}, oneOff, 30, 30); got != 0 {
		t.Fatalf("expected 0 for a single mismatch, got %d", got)
	}
	if got := engine.Score(q, domain.ReferenceAnswer{}, allMatched, 15, 30); got != 100 {
		t.Fatalf("expected 100 at half time, got %d", got)
	}
}

func TestDragAndDropScoresZero(t *testing.T) {
	q := domain.Question{ID: "q3", Type: domain.QuestionDragAndDrop}
	payload, _ := json.Marshal(map[string]any{"items": []string{"a", "b"}})
	if got := engine.Score(q, domain.ReferenceAnswer{}, payload, 30, 30); got != 0 {
		t.Fatalf("drag_and_drop has no scoring rule, expected 0, got %d", got)
	}
}

func TestScoringIsDeterministic(t *testing.T) {
	q, ref := mcQuestion()
	payload, _ := json.Marshal("c2")
	first := engine.Score(q, ref, payload, 17, 30)
	for i := 0; i < 100; i++ {
		if got := engine.Score(q, ref, payload, 17, 30); got != first {
			t.Fatalf("score changed across identical inputs: %d then %d", first, got)
		}
	}
}

func TestScoringRejectsMalformedPayloads(t *testing.T) {
	q, ref := mcQuestion()
	if got := engine.Score(q, ref, json.RawMessage(`{not json`), 30, 30); got != 0 {
		t.Fatalf("expected 0 for malformed payload, got %d", got)
	}
	if got := engine.Score(q, ref, json.RawMessage(`"c2"`), 30, 0); got != 0 {
		t.Fatalf("expected 0 for zero time limit, got %d", got)
	}
}
