package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizlive/internal/domain"
)

// ContentLoader fetches game content from a backing store (e.g. Postgres).
type ContentLoader interface {
	LoadContent(ctx context.Context, gameID string) (domain.GameContent, error)
}

// ContentRepository caches game content in Redis and falls back to a loader
// on cache miss. Content is stored as: SET game:{gameID}:content {json}.
// Game content is immutable during play, so a TTL-bounded cache is safe.
type ContentRepository struct {
	client *redis.Client
	loader ContentLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewContentRepository(client *redis.Client, loader ContentLoader, ttl time.Duration) *ContentRepository {
	return &ContentRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ContentRepository) GetContent(ctx context.Context, gameID string) (domain.GameContent, error) {
	key := r.contentKey(gameID)

	if content, ok := r.fromCache(ctx, key); ok {
		return content, nil
	}

	result, err, _ := r.sf.Do(gameID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if content, ok := r.fromCache(ctx, key); ok {
			return content, nil
		}

		content, err := r.loader.LoadContent(ctx, gameID)
		if err != nil {
			return domain.GameContent{}, err
		}

		if data, err := json.Marshal(content); err == nil {
			// best-effort fill
			_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		}
		return content, nil
	})
	if err != nil {
		return domain.GameContent{}, err
	}
	return result.(domain.GameContent), nil
}

func (r *ContentRepository) fromCache(ctx context.Context, key string) (domain.GameContent, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.GameContent{}, false
	}
	var content domain.GameContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return domain.GameContent{}, false
	}
	return content, true
}

func (r *ContentRepository) contentKey(gameID string) string {
	return "game:" + gameID + ":content"
}

func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
