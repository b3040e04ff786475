package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"dentallearn/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches the eligible daily quiz questions from a backing store.
type QuestionLoader interface {
	LoadEligibleQuestions(ctx context.Context) ([]domain.Question, error)
}

// QuestionPool caches the eligible pool with a TTL to avoid a DB hit per quiz.
type QuestionPool struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	questions []domain.Question
	expiresAt time.Time
}

const poolKey = "eligible"

func NewQuestionPool(loader QuestionLoader, ttl time.Duration) *QuestionPool {
	return &QuestionPool{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *QuestionPool) EligibleDailyQuestions(ctx context.Context) ([]domain.Question, error) {
	if qs, ok := p.cached(p.clock()); ok {
		return qs, nil
	}

	result, err, _ := p.sf.Do(poolKey, func() (interface{}, error) {
		now := p.clock()
		if qs, ok := p.cached(now); ok {
			return qs, nil
		}

		qs, err := p.loader.LoadEligibleQuestions(ctx)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.questions = qs
		p.expiresAt = now.Add(p.ttlWithJitter())
		p.mu.Unlock()
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops the cached pool, e.g. after new questions are seeded.
func (p *QuestionPool) Invalidate() {
	p.mu.Lock()
	p.questions = nil
	p.expiresAt = time.Time{}
	p.mu.Unlock()
}

func (p *QuestionPool) cached(now time.Time) ([]domain.Question, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.questions != nil && p.expiresAt.After(now) {
		return p.questions, true
	}
	return nil, false
}

func (p *QuestionPool) ttlWithJitter() time.Duration {
	if p.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(p.ttl) / 10
	return p.ttl + time.Duration(p.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader is a loader backed by a fixed slice (tests, demo mode).
type StaticQuestionLoader struct {
	questions []domain.Question
}

func NewStaticQuestionLoader(questions []domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{questions: questions}
}

func (l *StaticQuestionLoader) LoadEligibleQuestions(_ context.Context) ([]domain.Question, error) {
	out := make([]domain.Question, 0, len(l.questions))
	for _, q := range l.questions {
		if q.EligibleForDaily {
			out = append(out, q)
		}
	}
	return out, nil
}
