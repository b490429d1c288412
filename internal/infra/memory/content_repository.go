package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizlive/internal/domain"
)

// ContentLoader fetches game content from a backing store.
type ContentLoader interface {
	LoadContent(ctx context.Context, gameID string) (domain.GameContent, error)
}

// ContentRepository caches game content with TTL to avoid refetching the
// immutable question set on every session attach.
type ContentRepository struct {
	loader ContentLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedContent
}

type cachedContent struct {
	content   domain.GameContent
	expiresAt time.Time
}

func NewContentRepository(loader ContentLoader, ttl time.Duration) *ContentRepository {
	return &ContentRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedContent),
	}
}

func (r *ContentRepository) GetContent(ctx context.Context, gameID string) (domain.GameContent, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[gameID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.content, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(gameID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[gameID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.content, nil
		}
		r.mu.RUnlock()

		content, err := r.loader.LoadContent(ctx, gameID)
		if err != nil {
			return domain.GameContent{}, err
		}

		r.mu.Lock()
		r.cache[gameID] = cachedContent{
			content:   content,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return content, nil
	})
	if err != nil {
		return domain.GameContent{}, err
	}
	return result.(domain.GameContent), nil
}

func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticContentLoader serves game content from an in-memory map (tests/demos).
type StaticContentLoader struct {
	games map[string]domain.GameContent
}

func NewStaticContentLoader(games map[string]domain.GameContent) *StaticContentLoader {
	return &StaticContentLoader{games: games}
}

func (l *StaticContentLoader) LoadContent(_ context.Context, gameID string) (domain.GameContent, error) {
	if content, ok := l.games[gameID]; ok {
		return content, nil
	}
	return domain.GameContent{}, domain.ErrGameNotFound
}
