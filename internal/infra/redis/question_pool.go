package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"dentallearn/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches the eligible daily quiz questions from the database.
type QuestionLoader interface {
	LoadEligibleQuestions(ctx context.Context) ([]domain.Question, error)
}

// PoolKey holds the JSON-encoded eligible pool.
const PoolKey = "dailyquiz:pool:eligible"

// QuestionPool caches the eligible pool in Redis and falls back to the loader
// on a miss. The cache is shared by every instance of the service.
type QuestionPool struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionPool(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionPool {
	return &QuestionPool{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *QuestionPool) EligibleDailyQuestions(ctx context.Context) ([]domain.Question, error) {
	if qs, ok := p.cached(ctx); ok {
		return qs, nil
	}

	result, err, _ := p.sf.Do(PoolKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if qs, ok := p.cached(ctx); ok {
			return qs, nil
		}

		qs, err := p.loader.LoadEligibleQuestions(ctx)
		if err != nil {
			return nil, err
		}

		raw, err := json.Marshal(qs)
		if err == nil {
			// best effort; a failed write only costs another load
			_ = p.client.Set(ctx, PoolKey, raw, p.ttlWithJitter()).Err()
		}
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops the shared cache entry.
func (p *QuestionPool) Invalidate(ctx context.Context) error {
	return InvalidatePool(ctx, p.client)
}

// InvalidatePool drops the shared cache entry, e.g. after a seed.
func InvalidatePool(ctx context.Context, client *redis.Client) error {
	return client.Del(ctx, PoolKey).Err()
}

func (p *QuestionPool) cached(ctx context.Context) ([]domain.Question, bool) {
	raw, err := p.client.Get(ctx, PoolKey).Bytes()
	if err != nil {
		// redis.Nil or a cache outage; either way the loader serves
		return nil, false
	}
	var qs []domain.Question
	if err := json.Unmarshal(raw, &qs); err != nil {
		return nil, false
	}
	return qs, true
}

func (p *QuestionPool) ttlWithJitter() time.Duration {
	if p.ttl <= 0 {
		return 0
	}
	jitterMax := int64(p.ttl) / 10
	p.rndMu.Lock()
	defer p.rndMu.Unlock()
	return p.ttl + time.Duration(p.rnd.Int63n(jitterMax+1))
}
