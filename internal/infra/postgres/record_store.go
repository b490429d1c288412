package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizlive/internal/domain"
)

// RecordStore implements engine.SessionStore on Postgres. Every operation is
// a single-row statement; the engine never needs cross-row transactions.
type RecordStore struct {
	pool *pgxpool.Pool
}

func NewRecordStore(pool *pgxpool.Pool) *RecordStore {
	return &RecordStore{pool: pool}
}

func (s *RecordStore) GetSession(ctx context.Context, id string) (domain.Session, error) {
	var (
		sess      = domain.Session{ID: id}
		status    string
		startTime *time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT game_id, status, current_question_index, start_time FROM game_sessions WHERE id=$1`, id,
	).Scan(&sess.GameID, &status, &sess.CurrentQuestionIndex, &startTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	sess.Status = domain.SessionStatus(status)
	if startTime != nil {
		sess.StartTime = *startTime
	}
	return sess, nil
}

func (s *RecordStore) UpdateSession(ctx context.Context, sess domain.Session) error {
	var startTime *time.Time
	if !sess.StartTime.IsZero() {
		startTime = &sess.StartTime
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE game_sessions SET status=$2, current_question_index=$3, start_time=$4 WHERE id=$1`,
		sess.ID, string(sess.Status), sess.CurrentQuestionIndex, startTime,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

func (s *RecordStore) InsertParticipant(ctx context.Context, sessionID string, p domain.Participant) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO participants (id, session_id, nickname, score, joined_at) VALUES ($1, $2, $3, $4, $5)`,
		p.ID, sessionID, p.Nickname, p.Score, p.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

func (s *RecordStore) IncrementParticipantScore(ctx context.Context, sessionID, participantID string, delta int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE participants SET score = score + $3 WHERE session_id=$1 AND id=$2`,
		sessionID, participantID, delta,
	)
	if err != nil {
		return fmt.Errorf("increment score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}

func (s *RecordStore) InsertAnswerEntry(ctx context.Context, sessionID string, e domain.LedgerEntry) error {
	// The ledger already de-duplicates in the owner process; the conflict
	// clause keeps redeliveries harmless at the row level too.
	_, err := s.pool.Exec(ctx,
		`INSERT INTO participant_answers (session_id, participant_id, question_id, payload, score_delta, accepted_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (participant_id, question_id) DO NOTHING`,
		sessionID, e.ParticipantID, e.QuestionID, []byte(e.Payload), e.ScoreDelta, e.AcceptedAt,
	)
	if err != nil {
		return fmt.Errorf("insert answer entry: %w", err)
	}
	return nil
}
