package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSingleChoice(t *testing.T) {
	kind, err := DecodeQuestionKind(QuestionSingleChoice, []byte(`[
		{"id":"a","text":"Amalgam","is_correct":false},
		{"id":"b","text":"Composite","is_correct":true}
	]`))
	require.NoError(t, err)

	sc, ok := kind.(SingleChoice)
	require.True(t, ok)
	assert.Equal(t, "b", sc.CorrectChoice())
}

func TestDecodeRejectsMalformedOptions(t *testing.T) {
	cases := map[string]struct {
		typ     QuestionType
		options string
	}{
		"no correct choice":   {QuestionSingleChoice, `[{"id":"a","is_correct":false},{"id":"b","is_correct":false}]`},
		"two correct choices": {QuestionSingleChoice, `[{"id":"a","is_correct":true},{"id":"b","is_correct":true}]`},
		"duplicate ids":       {QuestionSingleChoice, `[{"id":"a","is_correct":true},{"id":"a","is_correct":false}]`},
		"single choice":       {QuestionSingleChoice, `[{"id":"a","is_correct":true}]`},
		"missing answer":      {QuestionTrueFalse, `{}`},
		"wrong shape":         {QuestionTrueFalse, `[true]`},
		"unknown type":        {QuestionType("matching"), `{}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeQuestionKind(tc.typ, []byte(tc.options))
			assert.ErrorIs(t, err, ErrInvalidQuestion)
		})
	}
}

func TestQuestionCheck(t *testing.T) {
	single := Question{ID: "q1", Points: 10, Kind: SingleChoice{Choices: []Choice{
		{ID: "a", Correct: false},
		{ID: "b", Correct: true},
	}}}
	tf := Question{ID: "q2", Points: 5, Kind: TrueFalse{Answer: false}}

	correct, selected, err := single.Check(ChoiceResponse{ChoiceID: "b"})
	require.NoError(t, err)
	assert.True(t, correct)
	assert.Equal(t, "b", selected)

	correct, _, err = single.Check(ChoiceResponse{ChoiceID: "a"})
	require.NoError(t, err)
	assert.False(t, correct)

	_, _, err = single.Check(ChoiceResponse{ChoiceID: "z"})
	assert.ErrorIs(t, err, ErrInvalidResponse)

	_, _, err = single.Check(BooleanResponse{Value: true})
	assert.ErrorIs(t, err, ErrInvalidResponse)

	correct, selected, err = tf.Check(BooleanResponse{Value: false})
	require.NoError(t, err)
	assert.True(t, correct)
	assert.Equal(t, "false", selected)

	_, _, err = tf.Check(ChoiceResponse{ChoiceID: "a"})
	assert.ErrorIs(t, err, ErrInvalidResponse)

	correct, selected, err = tf.Check(TimedOut{})
	require.NoError(t, err)
	assert.False(t, correct)
	assert.Empty(t, selected)
}

func TestQuestionJSONEnvelope(t *testing.T) {
	q := Question{
		ID:               "q1",
		Text:             "Which material is light-cured?",
		Points:           10,
		EligibleForDaily: true,
		Kind: SingleChoice{Choices: []Choice{
			{ID: "a", Text: "Amalgam"},
			{ID: "b", Text: "Composite", Correct: true},
		}},
	}
	raw, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"question_type":"single_choice"`)

	var decoded Question
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, q, decoded)
}

func TestStorageErrorMatchesBoth(t *testing.T) {
	cause := assert.AnError
	err := StorageError("upsert streak", cause)
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, StorageError("noop", nil))
}

func TestEvolutionJSON(t *testing.T) {
	raw, err := json.Marshal([]Evolution{{New: true}, {Delta: 3}, {Delta: -2}, {}})
	require.NoError(t, err)
	assert.JSONEq(t, `["NEW",3,-2,0]`, string(raw))
}
