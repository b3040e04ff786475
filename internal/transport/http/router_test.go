package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dentallearn/internal/app"
	"dentallearn/internal/domain"
	"dentallearn/internal/infra/memory"
	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router  *gin.Engine
	service *app.Gamification
}

type serverOptions struct {
	pool     []domain.Question
	attempts app.AttemptStore
	clock    func() time.Time
}

func newTestServer(t *testing.T, opts serverOptions) testServer {
	t.Helper()
	cal, err := domain.NewCalendar("Europe/Paris")
	require.NoError(t, err)
	clock := opts.clock
	if clock == nil {
		now := time.Date(2026, 10, 19, 10, 0, 0, 0, cal.Location())
		clock = func() time.Time { return now }
	}

	if opts.pool == nil {
		opts.pool = testQuestions(12)
	}
	if opts.attempts == nil {
		opts.attempts = memory.NewAttemptStore()
	}

	quiz := app.NewDailyQuizEngineWithClock(
		memory.NewQuestionPool(memory.NewStaticQuestionLoader(opts.pool), time.Minute),
		opts.attempts,
		app.QuizSettings{},
		clock,
	)
	streaks := app.NewStreakTrackerWithClock(memory.NewStreakStore(), cal, clock)
	board := app.NewLeaderboardServiceWithClock(memory.NewWeeklyPoints(), cal, app.NewLeaderboardFeed(), clock)
	service := app.NewGamificationWithClock(quiz, streaks, board, cal, nil, clock)

	log := zap.NewNop()
	router := NewRouter(RouterConfig{
		Service: service,
		Auth:    NewAuthenticator(testSecret, log),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
		Log: log,
	})
	return testServer{router: router, service: service}
}

func testQuestions(n int) []domain.Question {
	qs := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		qs = append(qs, domain.Question{
			ID:     fmt.Sprintf("q%02d", i),
			Text:   fmt.Sprintf("Question %d", i),
			Points: 10,
			Kind: domain.SingleChoice{Choices: []domain.Choice{
				{ID: "a", Text: "Wrong"},
				{ID: "b", Text: "Right", Correct: true},
			}},
			EligibleForDaily: true,
		})
	}
	return qs
}

func signToken(t *testing.T, subject string, method jwt.SigningMethod, key interface{}) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.StandardClaims{
		Subject:   subject,
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	})
	raw, err := token.SignedString(key)
	require.NoError(t, err)
	return raw
}

func tokenFor(t *testing.T, userID string) string {
	return signToken(t, userID, jwt.SigningMethodHS256, []byte(testSecret))
}

func (s testServer) do(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, userID))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

// perfectBody fetches the user's quiz and answers every question correctly.
func perfectBody(t *testing.T, s testServer, userID string) map[string]interface{} {
	t.Helper()
	w := s.do(t, http.MethodGet, "/api/v1/daily-quiz", userID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var quiz dailyQuizResponse
	decode(t, w, &quiz)

	ids := make([]string, 0, len(quiz.Questions))
	answers := make([]map[string]interface{}, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		ids = append(ids, q.ID)
		answers = append(answers, map[string]interface{}{"questionId": q.ID, "choiceId": "b"})
	}
	return map[string]interface{}{"quizDate": quiz.Date, "questionIds": ids, "answers": answers}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	w := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "# metrics")
}

func TestAPIRequiresValidToken(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	w := s.do(t, http.MethodGet, "/api/v1/streaks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	cases := map[string]string{
		"wrong secret": signToken(t, "u1", jwt.SigningMethodHS256, []byte("other")),
		"no subject":   signToken(t, "", jwt.SigningMethodHS256, []byte(testSecret)),
		"alg none":     signToken(t, "u1", jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType),
		"garbage":      "not-a-jwt",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/streaks", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestGetDailyQuizHidesAnswers(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	w := s.do(t, http.MethodGet, "/api/v1/daily-quiz", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "is_correct")
	assert.NotContains(t, w.Body.String(), "Correct")

	var quiz dailyQuizResponse
	decode(t, w, &quiz)
	assert.Equal(t, "available", quiz.State)
	assert.Equal(t, domain.MustDate("2026-10-19"), quiz.Date)
	assert.Equal(t, 60, quiz.TimeoutSeconds)
	require.Len(t, quiz.Questions, app.DefaultDailyQuizSize)
	assert.Equal(t, "single_choice", quiz.Questions[0].Type)
	assert.Len(t, quiz.Questions[0].Choices, 2)

	again := s.do(t, http.MethodGet, "/api/v1/daily-quiz", "u1", nil)
	assert.Equal(t, w.Body.String(), again.Body.String())
}

func TestDailyQuizFlow(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	w := s.do(t, http.MethodGet, "/api/v1/daily-quiz/status", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"pending"`)

	body := perfectBody(t, s, "u1")
	body["score"] = 10
	body["totalPoints"] = 150
	body["totalQuestions"] = 10
	w = s.do(t, http.MethodPost, "/api/v1/daily-quiz", "u1", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result submitResponse
	decode(t, w, &result)
	assert.Equal(t, 10, result.Score)
	assert.Equal(t, 100, result.BasePoints)
	assert.Equal(t, 50, result.Bonus)
	assert.Equal(t, 150, result.TotalPoints)
	assert.True(t, result.Perfect)
	assert.Equal(t, 1, result.Streak.CurrentStreak)

	w = s.do(t, http.MethodGet, "/api/v1/daily-quiz", "u1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"state":"completed"}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/daily-quiz", "u1", body)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/daily-quiz/status", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status statusResponse
	decode(t, w, &status)
	assert.Equal(t, "completed", status.State)
	require.NotNil(t, status.Attempt)
	assert.Equal(t, 150, status.Attempt.TotalPoints)
}

func TestSubmitRejectsTamperedResults(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	body := perfectBody(t, s, "u1")
	body["totalPoints"] = 9999
	w := s.do(t, http.MethodPost, "/api/v1/daily-quiz", "u1", body)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	body = perfectBody(t, s, "u1")
	answers := body["answers"].([]map[string]interface{})
	body["answers"] = answers[:5]
	w = s.do(t, http.MethodPost, "/api/v1/daily-quiz", "u1", body)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	body = perfectBody(t, s, "u1")
	answers = body["answers"].([]map[string]interface{})
	answers[0] = map[string]interface{}{"questionId": answers[0]["questionId"]}
	w = s.do(t, http.MethodPost, "/api/v1/daily-quiz", "u1", body)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/daily-quiz", "u1", "not an object")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// nothing was stored, the real attempt is still open
	body = perfectBody(t, s, "u1")
	w = s.do(t, http.MethodPost, "/api/v1/daily-quiz", "u1", body)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestSubmitAcrossMidnight(t *testing.T) {
	cal, err := domain.NewCalendar("Europe/Paris")
	require.NoError(t, err)
	now := time.Date(2026, 10, 19, 23, 58, 0, 0, cal.Location())
	s := newTestServer(t, serverOptions{clock: func() time.Time { return now }})

	body := perfectBody(t, s, "u1")
	assert.Equal(t, domain.MustDate("2026-10-19"), body["quizDate"])
	now = now.Add(4 * time.Minute)

	w := s.do(t, http.MethodPost, "/api/v1/daily-quiz", "u1", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp submitResponse
	decode(t, w, &resp)
	require.NotNil(t, resp.Streak.LastActivityDate)
	assert.Equal(t, domain.MustDate("2026-10-19"), *resp.Streak.LastActivityDate)

	// the new day is still open
	w = s.do(t, http.MethodGet, "/api/v1/daily-quiz/status", "u1", nil)
	var status statusResponse
	decode(t, w, &status)
	assert.Equal(t, "pending", status.State)
	assert.Equal(t, domain.MustDate("2026-10-20"), status.Date)

	stale := perfectBody(t, s, "u2")
	stale["quizDate"] = "2026-10-18"
	w = s.do(t, http.MethodPost, "/api/v1/daily-quiz", "u2", stale)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
}

func TestSubmitWithTimeoutsAndBooleans(t *testing.T) {
	pool := []domain.Question{
		{ID: "tf", Text: "True?", Points: 5, Kind: domain.TrueFalse{Answer: true}, EligibleForDaily: true},
		{ID: "sc", Text: "Pick", Points: 10, Kind: domain.SingleChoice{Choices: []domain.Choice{
			{ID: "a", Text: "A", Correct: true},
			{ID: "b", Text: "B"},
		}}, EligibleForDaily: true},
	}
	s := newTestServer(t, serverOptions{pool: pool})

	w := s.do(t, http.MethodGet, "/api/v1/daily-quiz", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var quiz dailyQuizResponse
	decode(t, w, &quiz)
	require.Len(t, quiz.Questions, 2)

	answers := make([]map[string]interface{}, 0, 2)
	for _, q := range quiz.Questions {
		if q.ID == "tf" {
			assert.Empty(t, q.Choices)
			answers = append(answers, map[string]interface{}{"questionId": "tf", "value": true})
		} else {
			answers = append(answers, map[string]interface{}{"questionId": "sc", "timedOut": true})
		}
	}
	w = s.do(t, http.MethodPost, "/api/v1/daily-quiz", "u1", map[string]interface{}{"answers": answers})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result submitResponse
	decode(t, w, &result)
	assert.Equal(t, 1, result.Score)
	assert.Equal(t, 5, result.TotalPoints)
	assert.Zero(t, result.Bonus)
}

func TestEmptyPoolIsSoftState(t *testing.T) {
	s := newTestServer(t, serverOptions{pool: []domain.Question{}})

	w := s.do(t, http.MethodGet, "/api/v1/daily-quiz", "u1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"state":"unavailable"}`, w.Body.String())
}

type downAttempts struct{}

func (downAttempts) GetAttempt(context.Context, string, domain.Date) (domain.DailyQuizAttempt, bool, error) {
	return domain.DailyQuizAttempt{}, false, errors.New("connection reset")
}

func (downAttempts) InsertAttempt(context.Context, domain.DailyQuizAttempt) error {
	return errors.New("connection reset")
}

func TestStorageFailureAsksForRetry(t *testing.T) {
	s := newTestServer(t, serverOptions{attempts: downAttempts{}})

	w := s.do(t, http.MethodGet, "/api/v1/daily-quiz", "u1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"retry":true`)
}

func TestStreakEndpoints(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	w := s.do(t, http.MethodGet, "/api/v1/streaks", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"currentStreak":0,"longestStreak":0,"atRisk":false}`, w.Body.String())

	for i := 0; i < 2; i++ {
		w = s.do(t, http.MethodPost, "/api/v1/streaks/update", "u1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"currentStreak":1,"longestStreak":1,"lastActivityDate":"2026-10-19","atRisk":false}`, w.Body.String())
	}
}

func TestLeaderboardCurrent(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	for _, user := range []string{"alice", "bob"} {
		w := s.do(t, http.MethodPost, "/api/v1/daily-quiz", user, perfectBody(t, s, user))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := s.do(t, http.MethodGet, "/api/v1/leaderboard/current?window=1", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var view struct {
		Week         string `json:"week"`
		Participants int    `json:"participants"`
	}
	decode(t, w, &view)
	assert.Equal(t, "2026-W43", view.Week)
	assert.Equal(t, 2, view.Participants)

	body := w.Body.String()
	// equal points: alice wins the tie on id
	assert.True(t, strings.Index(body, `"alice"`) < strings.Index(body, `"bob"`), body)
	assert.Contains(t, body, `"evolution":"NEW"`)

	w = s.do(t, http.MethodGet, "/api/v1/leaderboard/current?window=0", "bob", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/leaderboard/current", "carol", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `"me"`)
}
