package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// QuestionType tags the shape of a question's answer options.
type QuestionType string

const (
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionTrueFalse    QuestionType = "true_false"
)

// QuestionKind is the per-type answer definition of a question. Exactly one of
// SingleChoice or TrueFalse.
type QuestionKind interface {
	Type() QuestionType
	check(Response) (bool, string, error)
}

// Choice is one option of a single-choice question.
type Choice struct {
	ID      string `json:"id" yaml:"id"`
	Text    string `json:"text" yaml:"text"`
	Correct bool   `json:"is_correct" yaml:"correct"`
}

// SingleChoice questions have exactly one correct choice.
type SingleChoice struct {
	Choices []Choice
}

func (SingleChoice) Type() QuestionType { return QuestionSingleChoice }

func (k SingleChoice) check(r Response) (bool, string, error) {
	resp, ok := r.(ChoiceResponse)
	if !ok {
		return false, "", fmt.Errorf("%w: single choice question expects a choice", ErrInvalidResponse)
	}
	for _, c := range k.Choices {
		if c.ID == resp.ChoiceID {
			return c.Correct, c.ID, nil
		}
	}
	return false, "", fmt.Errorf("%w: unknown choice %q", ErrInvalidResponse, resp.ChoiceID)
}

// CorrectChoice returns the id of the choice marked correct.
func (k SingleChoice) CorrectChoice() string {
	for _, c := range k.Choices {
		if c.Correct {
			return c.ID
		}
	}
	return ""
}

// TrueFalse questions store the expected boolean.
type TrueFalse struct {
	Answer bool
}

func (TrueFalse) Type() QuestionType { return QuestionTrueFalse }

func (k TrueFalse) check(r Response) (bool, string, error) {
	resp, ok := r.(BooleanResponse)
	if !ok {
		return false, "", fmt.Errorf("%w: true/false question expects a boolean", ErrInvalidResponse)
	}
	return resp.Value == k.Answer, strconv.FormatBool(resp.Value), nil
}

// Question is read-only content consumed by the daily quiz.
type Question struct {
	ID               string
	Text             string
	Kind             QuestionKind
	Points           int
	EligibleForDaily bool
}

// Check grades r against q. It returns whether the answer is correct and the
// selected value as recorded for analytics. A timeout is always incorrect.
func (q Question) Check(r Response) (bool, string, error) {
	if _, ok := r.(TimedOut); ok {
		return false, "", nil
	}
	if r == nil {
		return false, "", fmt.Errorf("%w: empty response", ErrInvalidResponse)
	}
	if q.Kind == nil {
		return false, "", fmt.Errorf("%w: question %s has no answer definition", ErrInvalidQuestion, q.ID)
	}
	return q.Kind.check(r)
}

// Response is a user's answer to one question: ChoiceResponse, BooleanResponse
// or TimedOut.
type Response interface {
	isResponse()
}

// ChoiceResponse selects a choice of a single-choice question.
type ChoiceResponse struct {
	ChoiceID string
}

// BooleanResponse answers a true/false question.
type BooleanResponse struct {
	Value bool
}

// TimedOut records that the per-question timer expired. It scores as incorrect
// but is kept distinct from a chosen wrong answer.
type TimedOut struct{}

func (ChoiceResponse) isResponse()  {}
func (BooleanResponse) isResponse() {}
func (TimedOut) isResponse()        {}

type trueFalseOptions struct {
	CorrectAnswer *bool `json:"correct_answer"`
}

// DecodeQuestionKind builds the answer definition from the stored type tag and
// its options JSON. Single-choice options are an array of choices; true/false
// options are {"correct_answer": bool}.
func DecodeQuestionKind(typ QuestionType, options []byte) (QuestionKind, error) {
	switch typ {
	case QuestionSingleChoice:
		var choices []Choice
		if err := json.Unmarshal(options, &choices); err != nil {
			return nil, fmt.Errorf("%w: decode choices: %v", ErrInvalidQuestion, err)
		}
		kind := SingleChoice{Choices: choices}
		if err := kind.validate(); err != nil {
			return nil, err
		}
		return kind, nil
	case QuestionTrueFalse:
		var opts trueFalseOptions
		if err := json.Unmarshal(options, &opts); err != nil {
			return nil, fmt.Errorf("%w: decode true/false options: %v", ErrInvalidQuestion, err)
		}
		if opts.CorrectAnswer == nil {
			return nil, fmt.Errorf("%w: true/false question without correct_answer", ErrInvalidQuestion)
		}
		return TrueFalse{Answer: *opts.CorrectAnswer}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported question type %q", ErrInvalidQuestion, typ)
	}
}

// EncodeQuestionKind is the inverse of DecodeQuestionKind.
func EncodeQuestionKind(kind QuestionKind) (QuestionType, []byte, error) {
	switch k := kind.(type) {
	case SingleChoice:
		raw, err := json.Marshal(k.Choices)
		return QuestionSingleChoice, raw, err
	case TrueFalse:
		answer := k.Answer
		raw, err := json.Marshal(trueFalseOptions{CorrectAnswer: &answer})
		return QuestionTrueFalse, raw, err
	default:
		return "", nil, fmt.Errorf("%w: unknown question kind %T", ErrInvalidQuestion, kind)
	}
}

func (k SingleChoice) validate() error {
	if len(k.Choices) < 2 {
		return fmt.Errorf("%w: single choice question needs at least two choices", ErrInvalidQuestion)
	}
	seen := make(map[string]struct{}, len(k.Choices))
	correct := 0
	for _, c := range k.Choices {
		if c.ID == "" {
			return fmt.Errorf("%w: choice without id", ErrInvalidQuestion)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("%w: duplicate choice id %q", ErrInvalidQuestion, c.ID)
		}
		seen[c.ID] = struct{}{}
		if c.Correct {
			correct++
		}
	}
	if correct != 1 {
		return fmt.Errorf("%w: single choice question must have exactly one correct choice, has %d", ErrInvalidQuestion, correct)
	}
	return nil
}

// questionJSON is the cache/fixture envelope of a Question.
type questionJSON struct {
	ID               string          `json:"id"`
	Text             string          `json:"text"`
	Type             QuestionType    `json:"question_type"`
	Options          json.RawMessage `json:"options"`
	Points           int             `json:"points"`
	EligibleForDaily bool            `json:"eligible_for_daily_quiz"`
}

func (q Question) MarshalJSON() ([]byte, error) {
	typ, options, err := EncodeQuestionKind(q.Kind)
	if err != nil {
		return nil, err
	}
	return json.Marshal(questionJSON{
		ID:               q.ID,
		Text:             q.Text,
		Type:             typ,
		Options:          options,
		Points:           q.Points,
		EligibleForDaily: q.EligibleForDaily,
	})
}

func (q *Question) UnmarshalJSON(b []byte) error {
	var raw questionJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	kind, err := DecodeQuestionKind(raw.Type, raw.Options)
	if err != nil {
		return err
	}
	*q = Question{
		ID:               raw.ID,
		Text:             raw.Text,
		Kind:             kind,
		Points:           raw.Points,
		EligibleForDaily: raw.EligibleForDaily,
	}
	return nil
}
