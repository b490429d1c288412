package memory

import (
	"context"
	"sync"

	"quizlive/internal/domain"
)

// RecordStore is an in-memory implementation of engine.SessionStore, used for
// tests and single-process deployments without Postgres.
type RecordStore struct {
	mu           sync.RWMutex
	sessions     map[string]domain.Session
	participants map[string][]domain.Participant // sessionID -> participants
	answers      map[string][]domain.LedgerEntry // sessionID -> accepted answers
}

func NewRecordStore() *RecordStore {
	return &RecordStore{
		sessions:     make(map[string]domain.Session),
		participants: make(map[string][]domain.Participant),
		answers:      make(map[string][]domain.LedgerEntry),
	}
}

// SeedSession inserts a session record, typically status pending.
func (s *RecordStore) SeedSession(sess domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

func (s *RecordStore) GetSession(_ context.Context, id string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return sess, nil
}

func (s *RecordStore) UpdateSession(_ context.Context, sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; !ok {
		return domain.ErrSessionNotFound
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *RecordStore) InsertParticipant(_ context.Context, sessionID string, p domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[sessionID] = append(s.participants[sessionID], p)
	return nil
}

func (s *RecordStore) IncrementParticipantScore(_ context.Context, sessionID, participantID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.participants[sessionID]
	for i := range list {
		if list[i].ID == participantID {
			list[i].Score += delta
			return nil
		}
	}
	return domain.ErrParticipantNotFound
}

func (s *RecordStore) InsertAnswerEntry(_ context.Context, sessionID string, e domain.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[sessionID] = append(s.answers[sessionID], e)
	return nil
}

// AnswerCount reports persisted answers for a session, handy in tests.
func (s *RecordStore) AnswerCount(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.answers[sessionID])
}

// Participants returns a copy of the persisted participant rows.
func (s *RecordStore) Participants(sessionID string) []domain.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Participant, len(s.participants[sessionID]))
	copy(out, s.participants[sessionID])
	return out
}
