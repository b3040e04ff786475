package http

import (
	"net/http"

	"dentallearn/internal/app"
	"dentallearn/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type dailyQuizRoutes struct {
	service *app.Gamification
	log     *zap.Logger
}

func newDailyQuizRoutes(handler *gin.RouterGroup, service *app.Gamification, log *zap.Logger) {
	r := &dailyQuizRoutes{service: service, log: log}
	h := handler.Group("/daily-quiz")
	{
		h.GET("", r.getQuestions)
		h.GET("/status", r.getStatus)
		h.POST("", r.submit)
	}
}

type choiceResponse struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// questionResponse is a question as shown to the player, without its answer.
type questionResponse struct {
	ID      string           `json:"id"`
	Text    string           `json:"text"`
	Type    string           `json:"questionType"`
	Points  int              `json:"points"`
	Choices []choiceResponse `json:"choices,omitempty"`
}

func toQuestionResponse(q domain.Question) questionResponse {
	out := questionResponse{ID: q.ID, Text: q.Text, Points: q.Points}
	if q.Kind != nil {
		out.Type = string(q.Kind.Type())
	}
	if sc, ok := q.Kind.(domain.SingleChoice); ok {
		out.Choices = make([]choiceResponse, len(sc.Choices))
		for i, c := range sc.Choices {
			out.Choices[i] = choiceResponse{ID: c.ID, Text: c.Text}
		}
	}
	return out
}

type dailyQuizResponse struct {
	State          string             `json:"state"`
	Date           domain.Date        `json:"date"`
	TimeoutSeconds int                `json:"timeoutSeconds"`
	Questions      []questionResponse `json:"questions"`
}

func (r *dailyQuizRoutes) getQuestions(c *gin.Context) {
	userID := userIDFrom(c)
	date, questions, err := r.service.TodayQuestions(c.Request.Context(), userID)
	if err != nil {
		writeError(c, r.log, "failed to load daily quiz", err)
		return
	}

	resp := dailyQuizResponse{
		State:          "available",
		Date:           date,
		TimeoutSeconds: int(r.service.Settings().QuestionTimeout.Seconds()),
		Questions:      make([]questionResponse, len(questions)),
	}
	for i, q := range questions {
		resp.Questions[i] = toQuestionResponse(q)
	}
	c.JSON(http.StatusOK, resp)
}

type statusResponse struct {
	State   string                   `json:"state"`
	Date    domain.Date              `json:"date"`
	Attempt *domain.DailyQuizAttempt `json:"attempt,omitempty"`
}

func (r *dailyQuizRoutes) getStatus(c *gin.Context) {
	date, attempt, done, err := r.service.TodayStatus(c.Request.Context(), userIDFrom(c))
	if err != nil {
		writeError(c, r.log, "failed to load daily quiz status", err)
		return
	}
	if !done {
		c.JSON(http.StatusOK, statusResponse{State: "pending", Date: date})
		return
	}
	c.JSON(http.StatusOK, statusResponse{State: "completed", Date: date, Attempt: &attempt})
}

// answerRequest carries exactly one of ChoiceID, Value or TimedOut.
type answerRequest struct {
	QuestionID string  `json:"questionId" binding:"required"`
	ChoiceID   *string `json:"choiceId"`
	Value      *bool   `json:"value"`
	TimedOut   bool    `json:"timedOut"`
}

func (a answerRequest) response() domain.Response {
	switch {
	case a.TimedOut:
		return domain.TimedOut{}
	case a.ChoiceID != nil:
		return domain.ChoiceResponse{ChoiceID: *a.ChoiceID}
	case a.Value != nil:
		return domain.BooleanResponse{Value: *a.Value}
	default:
		return nil
	}
}

// submitRequest echoes the date the quiz was served with, so a quiz finished
// just after midnight still counts for its own day.
type submitRequest struct {
	QuizDate       *domain.Date    `json:"quizDate"`
	QuestionIDs    []string        `json:"questionIds"`
	Answers        []answerRequest `json:"answers" binding:"required,dive"`
	Score          *int            `json:"score"`
	TotalPoints    *int            `json:"totalPoints"`
	TotalQuestions *int            `json:"totalQuestions"`
}

type submitResponse struct {
	Score          int                `json:"score"`
	TotalQuestions int                `json:"totalQuestions"`
	BasePoints     int                `json:"basePoints"`
	Bonus          int                `json:"bonus"`
	TotalPoints    int                `json:"totalPoints"`
	Perfect        bool               `json:"perfect"`
	Streak         domain.StreakState `json:"streak"`
}

func (r *dailyQuizRoutes) submit(c *gin.Context) {
	userID := userIDFrom(c)

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.log.Info("invalid daily quiz submission", zap.Error(err), zap.String(userIDKey, userID))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sub := app.Submission{
		QuizDate:            req.QuizDate,
		QuestionIDs:         req.QuestionIDs,
		Answers:             make([]app.SubmittedAnswer, len(req.Answers)),
		ClaimedScore:        req.Score,
		ClaimedPoints:       req.TotalPoints,
		ClaimedQuestionSize: req.TotalQuestions,
	}
	for i, a := range req.Answers {
		sub.Answers[i] = app.SubmittedAnswer{QuestionID: a.QuestionID, Response: a.response()}
	}

	out, err := r.service.SubmitDailyQuiz(c.Request.Context(), userID, sub)
	if err != nil {
		writeError(c, r.log, "failed to submit daily quiz", err)
		return
	}
	if out.Deferred != nil {
		r.log.Error("daily quiz stored but follow-up failed",
			zap.Error(out.Deferred),
			zap.String(userIDKey, userID),
			zap.Stringer("quiz_date", out.Result.Attempt.QuizDate),
		)
	}
	r.log.Info("daily quiz completed",
		zap.String(userIDKey, userID),
		zap.Stringer("quiz_date", out.Result.Attempt.QuizDate),
		zap.Int("score", out.Result.Score),
		zap.Int("total_points", out.Result.TotalPoints),
	)

	c.JSON(http.StatusOK, submitResponse{
		Score:          out.Result.Score,
		TotalQuestions: out.Result.TotalQuestions,
		BasePoints:     out.Result.BasePoints,
		Bonus:          out.Result.Bonus,
		TotalPoints:    out.Result.TotalPoints,
		Perfect:        out.Result.Perfect,
		Streak:         out.Streak,
	})
}
