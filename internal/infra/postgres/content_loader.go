package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizlive/internal/domain"
)

// ContentLoader loads game content from Postgres. The game row comes first;
// questions and reference answers depend on it.
type ContentLoader struct {
	pool *pgxpool.Pool
}

func NewContentLoader(pool *pgxpool.Pool) *ContentLoader {
	return &ContentLoader{pool: pool}
}

func (l *ContentLoader) LoadContent(ctx context.Context, gameID string) (domain.GameContent, error) {
	game, err := l.loadGame(ctx, gameID)
	if err != nil {
		return domain.GameContent{}, err
	}
	questions, err := l.loadQuestions(ctx, gameID)
	if err != nil {
		return domain.GameContent{}, err
	}
	answers, err := l.loadAnswers(ctx, gameID)
	if err != nil {
		return domain.GameContent{}, err
	}
	return domain.GameContent{Game: game, Questions: questions, Answers: answers}, nil
}

func (l *ContentLoader) loadGame(ctx context.Context, gameID string) (domain.Game, error) {
	game := domain.Game{ID: gameID}
	var settings []byte
	err := l.pool.QueryRow(ctx, `SELECT title, settings FROM games WHERE id=$1`, gameID).
		Scan(&game.Title, &settings)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Game{}, domain.ErrGameNotFound
	}
	if err != nil {
		return domain.Game{}, fmt.Errorf("load game: %w", err)
	}
	if err := json.Unmarshal(settings, &game.Settings); err != nil {
		return domain.Game{}, fmt.Errorf("unmarshal game settings: %w", err)
	}
	return game, nil
}

func (l *ContentLoader) loadQuestions(ctx context.Context, gameID string) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, idx, prompt, question_type, choices FROM questions WHERE game_id=$1 ORDER BY idx`, gameID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		q := domain.Question{GameID: gameID}
		var (
			qtype   string
			choices []byte
		)
		if err := rows.Scan(&q.ID, &q.Index, &q.Prompt, &qtype, &choices); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Type = domain.QuestionType(qtype)
		if err := json.Unmarshal(choices, &q.Choices); err != nil {
			return nil, fmt.Errorf("unmarshal choices: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (l *ContentLoader) loadAnswers(ctx context.Context, gameID string) ([]domain.ReferenceAnswer, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT question_id, correct_choice_id FROM reference_answers
		 WHERE question_id IN (SELECT id FROM questions WHERE game_id=$1)`, gameID)
	if err != nil {
		return nil, fmt.Errorf("load reference answers: %w", err)
	}
	defer rows.Close()

	var answers []domain.ReferenceAnswer
	for rows.Next() {
		var a domain.ReferenceAnswer
		if err := rows.Scan(&a.QuestionID, &a.CorrectChoiceID); err != nil {
			return nil, fmt.Errorf("scan reference answer: %w", err)
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
