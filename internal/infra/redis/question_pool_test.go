package redis

import (
	"context"
	"testing"
	"time"

	"dentallearn/internal/domain"
	"dentallearn/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestQuestionPoolCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		QuestionLoader: memory.NewStaticQuestionLoader(sampleQuestions()),
	}
	pool := NewQuestionPool(client, loader, time.Minute)

	qs, err := pool.EligibleDailyQuestions(context.Background())
	if err != nil {
		t.Fatalf("load pool: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists(PoolKey) {
		t.Fatalf("expected pool cached under %s", PoolKey)
	}

	// Second call should hit cache, loader not incremented.
	cached, err := pool.EligibleDailyQuestions(context.Background())
	if err != nil {
		t.Fatalf("load cached pool: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(cached) != len(qs) {
		t.Fatalf("expected %d cached questions, got %d", len(qs), len(cached))
	}
	tf, ok := cached[1].Kind.(domain.TrueFalse)
	if !ok || !tf.Answer {
		t.Fatalf("expected true/false kind to survive the cache, got %#v", cached[1].Kind)
	}

	mr.FastForward(2 * time.Minute)
	_, _ = pool.EligibleDailyQuestions(context.Background())
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls=%d", loader.calls)
	}

	if err := pool.Invalidate(context.Background()); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists(PoolKey) {
		t.Fatalf("expected cache key removed")
	}
}

func TestQuestionPoolSurvivesRedisOutage(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := newClient(mr)
	mr.Close()

	loader := &countingLoader{
		QuestionLoader: memory.NewStaticQuestionLoader(sampleQuestions()),
	}
	pool := NewQuestionPool(client, loader, time.Minute)

	qs, err := pool.EligibleDailyQuestions(context.Background())
	if err != nil {
		t.Fatalf("expected loader fallback, got %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(qs))
	}
}

type countingLoader struct {
	memory.QuestionLoader
	calls int
}

func (l *countingLoader) LoadEligibleQuestions(ctx context.Context) ([]domain.Question, error) {
	l.calls++
	return l.QuestionLoader.LoadEligibleQuestions(ctx)
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:     "q1",
			Text:   "Which instrument measures pocket depth?",
			Points: 10,
			Kind: domain.SingleChoice{Choices: []domain.Choice{
				{ID: "a", Text: "Periodontal probe", Correct: true},
				{ID: "b", Text: "Explorer"},
			}},
			EligibleForDaily: true,
		},
		{
			ID:               "q2",
			Text:             "Chlorhexidine stains teeth with prolonged use.",
			Points:           5,
			Kind:             domain.TrueFalse{Answer: true},
			EligibleForDaily: true,
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
