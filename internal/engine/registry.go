package engine

import (
	"sort"
	"time"

	"quizlive/internal/domain"
)

type participantState struct {
	domain.Participant
	lastUpdated time.Time
}

// Registry tracks joined participants and their cumulative scores for one
// session. Scores only ever grow, and only through accepted ledger entries.
// Like the ledger, it relies on the runtime's single-writer serialization.
type Registry struct {
	participants map[string]*participantState
}

func NewRegistry() *Registry {
	return &Registry{participants: make(map[string]*participantState)}
}

// Add registers a participant. Re-adding an existing id refreshes the
// nickname but keeps the accumulated score.
func (r *Registry) Add(p domain.Participant) {
	if existing, ok := r.participants[p.ID]; ok {
		existing.Nickname = p.Nickname
		existing.lastUpdated = p.JoinedAt
		return
	}
	r.participants[p.ID] = &participantState{Participant: p, lastUpdated: p.JoinedAt}
}

// AddScore adds a non-negative delta to the participant's total and returns
// the new total.
func (r *Registry) AddScore(participantID string, delta int, now time.Time) (int, error) {
	p, ok := r.participants[participantID]
	if !ok {
		return 0, domain.ErrParticipantNotFound
	}
	if delta > 0 {
		p.Score += delta
	}
	p.lastUpdated = now
	return p.Score, nil
}

// Get returns a copy of the participant record.
func (r *Registry) Get(participantID string) (domain.Participant, bool) {
	p, ok := r.participants[participantID]
	if !ok {
		return domain.Participant{}, false
	}
	return p.Participant, true
}

// Len reports the number of joined participants.
func (r *Registry) Len() int {
	return len(r.participants)
}

// Rankings returns the scoreboard ordered by score descending; ties go to
// whoever reached the score first, then to nickname.
func (r *Registry) Rankings() []domain.RankingEntry {
	entries := make([]domain.RankingEntry, 0, len(r.participants))
	for _, p := range r.participants {
		entries = append(entries, domain.RankingEntry{
			ParticipantID: p.ID,
			Nickname:      p.Nickname,
			Score:         p.Score,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		pi := r.participants[entries[i].ParticipantID]
		pj := r.participants[entries[j].ParticipantID]
		if !pi.lastUpdated.Equal(pj.lastUpdated) {
			return pi.lastUpdated.Before(pj.lastUpdated)
		}
		return entries[i].Nickname < entries[j].Nickname
	})
	return entries
}
