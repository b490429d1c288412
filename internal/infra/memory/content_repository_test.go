package memory_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"quizlive/internal/domain"
	"quizlive/internal/infra/memory"
)

type countingLoader struct {
	calls int64
	games map[string]domain.GameContent
}

func (l *countingLoader) LoadContent(_ context.Context, gameID string) (domain.GameContent, error) {
	atomic.AddInt64(&l.calls, 1)
	if content, ok := l.games[gameID]; ok {
		return content, nil
	}
	return domain.GameContent{}, domain.ErrGameNotFound
}

func sampleContent() domain.GameContent {
	return domain.GameContent{
		Game: domain.Game{ID: "game-1", Title: "Sample", Settings: domain.GameSettings{TimeLimit: 30}},
		Questions: []domain.Question{
			{ID: "q1", GameID: "game-1", Index: 0, Type: domain.QuestionMultipleChoice},
		},
		Answers: []domain.ReferenceAnswer{{QuestionID: "q1", CorrectChoiceID: "c1"}},
	}
}

func TestContentRepositoryCachesWithinTTL(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{games: map[string]domain.GameContent{"game-1": sampleContent()}}
	repo := memory.NewContentRepository(loader, time.Minute)

	for i := 0; i < 5; i++ {
		content, err := repo.GetContent(ctx, "game-1")
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if content.Game.ID != "game-1" || len(content.Questions) != 1 {
			t.Fatalf("wrong content: %+v", content)
		}
	}
	if got := atomic.LoadInt64(&loader.calls); got != 1 {
		t.Fatalf("expected one loader call, got %d", got)
	}
}

func TestContentRepositoryCollapsesConcurrentLoads(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{games: map[string]domain.GameContent{"game-1": sampleContent()}}
	repo := memory.NewContentRepository(loader, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.GetContent(ctx, "game-1"); err != nil {
				t.Errorf("get: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt64(&loader.calls); got != 1 {
		t.Fatalf("expected singleflight to collapse loads, got %d calls", got)
	}
}

func TestContentRepositoryMissNotCached(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{games: map[string]domain.GameContent{}}
	repo := memory.NewContentRepository(loader, time.Minute)

	if _, err := repo.GetContent(ctx, "missing"); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("expected game not found, got %v", err)
	}
	if _, err := repo.GetContent(ctx, "missing"); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("expected game not found, got %v", err)
	}
	// Failed loads are not cached; each lookup hits the loader again.
	if got := atomic.LoadInt64(&loader.calls); got != 2 {
		t.Fatalf("expected 2 loader calls, got %d", got)
	}
}
