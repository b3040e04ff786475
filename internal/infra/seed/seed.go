// Package seed loads question fixtures written in YAML. A fixture mirrors the
// questions table: the options block is the JSON stored next to question_type.
//
//	questions:
//	  - id: perio-probe
//	    text: Which instrument measures pocket depth?
//	    question_type: single_choice
//	    points: 10
//	    eligible_for_daily_quiz: true
//	    options:
//	      - {id: a, text: Periodontal probe, is_correct: true}
//	      - {id: b, text: Explorer, is_correct: false}
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"dentallearn/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var defaultFixture []byte

// QuestionWriter stores seeded questions.
type QuestionWriter interface {
	UpsertQuestions(ctx context.Context, questions []domain.Question) (int, error)
}

type fixture struct {
	Questions []fixtureQuestion `yaml:"questions"`
}

type fixtureQuestion struct {
	ID               string    `yaml:"id"`
	Text             string    `yaml:"text"`
	Type             string    `yaml:"question_type"`
	Points           *int      `yaml:"points"`
	EligibleForDaily bool      `yaml:"eligible_for_daily_quiz"`
	Options          yaml.Node `yaml:"options"`
}

const defaultPoints = 10

// Default returns the questions bundled with the binary.
func Default() ([]domain.Question, error) {
	return Parse(defaultFixture)
}

// LoadFile reads and parses a fixture file.
func LoadFile(path string) ([]domain.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a fixture document. Every question is validated the same way
// rows read back from Postgres are.
func Parse(data []byte) ([]domain.Question, error) {
	var f fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Questions))
	questions := make([]domain.Question, 0, len(f.Questions))
	for i, fq := range f.Questions {
		if fq.ID == "" {
			return nil, fmt.Errorf("question #%d: %w: missing id", i+1, domain.ErrInvalidQuestion)
		}
		if _, dup := seen[fq.ID]; dup {
			return nil, fmt.Errorf("question %s: %w: duplicate id", fq.ID, domain.ErrInvalidQuestion)
		}
		seen[fq.ID] = struct{}{}

		var options interface{}
		if err := fq.Options.Decode(&options); err != nil {
			return nil, fmt.Errorf("question %s: decode options: %w", fq.ID, err)
		}
		raw, err := json.Marshal(options)
		if err != nil {
			return nil, fmt.Errorf("question %s: encode options: %w", fq.ID, err)
		}
		kind, err := domain.DecodeQuestionKind(domain.QuestionType(fq.Type), raw)
		if err != nil {
			return nil, fmt.Errorf("question %s: %w", fq.ID, err)
		}

		points := defaultPoints
		if fq.Points != nil {
			points = *fq.Points
		}
		if points <= 0 {
			return nil, fmt.Errorf("question %s: %w: points must be positive, got %d", fq.ID, domain.ErrInvalidQuestion, points)
		}
		questions = append(questions, domain.Question{
			ID:               fq.ID,
			Text:             fq.Text,
			Kind:             kind,
			Points:           points,
			EligibleForDaily: fq.EligibleForDaily,
		})
	}
	return questions, nil
}

// Apply writes questions through w.
func Apply(ctx context.Context, w QuestionWriter, questions []domain.Question) (int, error) {
	if len(questions) == 0 {
		return 0, nil
	}
	return w.UpsertQuestions(ctx, questions)
}
