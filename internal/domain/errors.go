package domain

import "errors"

var (
	// ErrAlreadyCompleted is returned when the daily quiz for a date is already finished.
	ErrAlreadyCompleted = errors.New("daily quiz already completed")
	// ErrNoEligibleQuestions indicates the daily question pool is empty.
	ErrNoEligibleQuestions = errors.New("no eligible daily quiz questions")
	// ErrNotFound is returned when a referenced user, question or attempt is absent.
	ErrNotFound = errors.New("not found")
	// ErrStorage marks failures of the backing store; the only retryable class.
	ErrStorage = errors.New("storage unavailable")
	// ErrInvalidResponse indicates a response whose shape does not match the question.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrInvalidQuestion indicates question content that cannot be decoded.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrQuestionOutOfOrder indicates an answer for a question other than the current one.
	ErrQuestionOutOfOrder = errors.New("question answered out of order")
	// ErrAttemptIncomplete is returned when completing an attempt with unanswered questions.
	ErrAttemptIncomplete = errors.New("attempt has unanswered questions")
	// ErrScoreMismatch indicates client-claimed results that disagree with the server tally.
	ErrScoreMismatch = errors.New("submitted score does not match answers")
	// ErrQuizClosed indicates a submission for a day whose quiz can no longer be completed.
	ErrQuizClosed = errors.New("daily quiz is closed for that date")
	// ErrUnauthorized indicates a missing or invalid identity token.
	ErrUnauthorized = errors.New("unauthorized")
)

type storageError struct {
	op  string
	err error
}

// StorageError wraps err so that errors.Is(err, ErrStorage) holds while the
// driver error stays inspectable.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &storageError{op: op, err: err}
}

func (e *storageError) Error() string {
	return e.op + ": " + e.err.Error()
}

func (e *storageError) Unwrap() []error {
	return []error{ErrStorage, e.err}
}
