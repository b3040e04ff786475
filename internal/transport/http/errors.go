package http

import (
	"errors"
	"net/http"

	"dentallearn/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrAlreadyCompleted):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoEligibleQuestions):
		return http.StatusOK
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidResponse),
		errors.Is(err, domain.ErrQuestionOutOfOrder),
		errors.Is(err, domain.ErrAttemptIncomplete),
		errors.Is(err, domain.ErrScoreMismatch),
		errors.Is(err, domain.ErrQuizClosed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Completed and unavailable quizzes are states the
// client shows, not failures.
func writeError(c *gin.Context, log *zap.Logger, msg string, err error) {
	status := statusFor(err)
	fields := []zap.Field{zap.Error(err), zap.String(userIDKey, userIDFrom(c))}

	switch {
	case errors.Is(err, domain.ErrAlreadyCompleted):
		c.JSON(status, gin.H{"state": "completed"})
		return
	case errors.Is(err, domain.ErrNoEligibleQuestions):
		log.Warn("daily quiz pool is empty", fields...)
		c.JSON(status, gin.H{"state": "unavailable"})
		return
	}

	if status >= http.StatusInternalServerError {
		log.Error(msg, fields...)
	} else {
		log.Info(msg, fields...)
	}

	body := gin.H{"error": msg}
	switch status {
	case http.StatusServiceUnavailable:
		body["retry"] = true
	case http.StatusUnprocessableEntity, http.StatusNotFound:
		body["detail"] = err.Error()
	}
	c.JSON(status, body)
}
