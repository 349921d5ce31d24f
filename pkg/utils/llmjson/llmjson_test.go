package llmjson_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/r-fujimoto/grind/pkg/model"
	"github.com/r-fujimoto/grind/pkg/utils/llmjson"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "plain json",
			raw:  `{"a":1}`,
			want: `{"a":1}`,
		},
		{
			name: "labeled fence",
			raw:  "```json\n{\"a\":1}\n```",
			want: "{\"a\":1}",
		},
		{
			name: "unlabeled fence",
			raw:  "```\n{\"a\":1}\n```",
			want: "{\"a\":1}",
		},
		{
			name: "leading and trailing commentary",
			raw:  `Sure, here is the JSON: {"a":1} hope that helps!`,
			want: `{"a":1}`,
		},
		{
			name: "fence with surrounding prose",
			raw:  "Here you go:\n```json\n{\"a\":1}\n```\nLet me know!",
			want: "{\"a\":1}",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := llmjson.Extract(tc.raw)
			gt.NoError(t, err)
			gt.Equal(t, tc.want, string(got))
		})
	}
}

func TestExtractControlCharacters(t *testing.T) {
	// A literal newline inside a string value is invalid JSON; the scrub
	// pass flattens it to a space instead of failing.
	var decoded struct {
		A string `json:"a"`
	}
	gt.NoError(t, llmjson.Unmarshal("{\"a\":\"line1\nline2\"}", &decoded))
	gt.Equal(t, "line1 line2", decoded.A)
}

func TestExtractUnrecoverable(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "no structure at all", raw: "I could not produce a question."},
		{name: "broken json", raw: `{"a": [1, 2`},
		{name: "empty", raw: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := llmjson.Extract(tc.raw)
			gt.Error(t, err)
			gt.True(t, errors.Is(err, model.ErrMalformedModelOutput))
		})
	}
}

func TestUnmarshal(t *testing.T) {
	var mcq model.MCQ
	raw := "```json\n{\"question\":\"Q\",\"options\":[\"a\",\"b\",\"c\",\"d\"],\"answer\":\"B\",\"explanation\":\"E\"}\n```"
	gt.NoError(t, llmjson.Unmarshal(raw, &mcq))
	gt.Equal(t, "Q", mcq.Question)
	gt.Equal(t, "B", mcq.AnswerLetter)
	gt.Equal(t, 4, len(mcq.Options))
}
