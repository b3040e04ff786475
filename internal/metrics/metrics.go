// Package metrics exposes gamification counters to Prometheus.
package metrics

import (
	"errors"
	"strconv"

	"dentallearn/internal/app"
	"dentallearn/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dentallearn"

// Collector implements app.Observer.
type Collector struct {
	streakUpdates   *prometheus.CounterVec
	quizCompletions *prometheus.CounterVec
	quizRejections  *prometheus.CounterVec
	quizPoints      prometheus.Histogram
}

var _ app.Observer = (*Collector)(nil)

// New registers the collectors on reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		streakUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streak_updates_total",
			Help:      "Streak updates by outcome (started or continued).",
		}, []string{"outcome"}),
		quizCompletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "daily_quiz_completions_total",
			Help:      "Completed daily quizzes.",
		}, []string{"perfect"}),
		quizRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "daily_quiz_rejections_total",
			Help:      "Daily quiz submissions refused, by reason.",
		}, []string{"reason"}),
		quizPoints: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "daily_quiz_points",
			Help:      "Points earned per completed daily quiz, bonus included.",
			Buckets:   prometheus.LinearBuckets(0, 25, 8),
		}),
	}
	for _, col := range []prometheus.Collector{c.streakUpdates, c.quizCompletions, c.quizRejections, c.quizPoints} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) QuizCompleted(result app.AttemptResult) {
	c.quizCompletions.WithLabelValues(strconv.FormatBool(result.Perfect)).Inc()
	c.quizPoints.Observe(float64(result.TotalPoints))
}

func (c *Collector) QuizRejected(err error) {
	c.quizRejections.WithLabelValues(RejectionReason(err)).Inc()
}

func (c *Collector) StreakRecorded(state domain.StreakState) {
	outcome := "continued"
	if state.CurrentStreak <= 1 {
		outcome = "started"
	}
	c.streakUpdates.WithLabelValues(outcome).Inc()
}

// RejectionReason maps a submission error to a bounded label value.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyCompleted):
		return "already_completed"
	case errors.Is(err, domain.ErrScoreMismatch):
		return "score_mismatch"
	case errors.Is(err, domain.ErrQuizClosed):
		return "closed"
	case errors.Is(err, domain.ErrAttemptIncomplete):
		return "incomplete"
	case errors.Is(err, domain.ErrQuestionOutOfOrder), errors.Is(err, domain.ErrInvalidResponse):
		return "invalid_answer"
	case errors.Is(err, domain.ErrNoEligibleQuestions):
		return "no_questions"
	case errors.Is(err, domain.ErrStorage):
		return "storage"
	default:
		return "other"
	}
}
