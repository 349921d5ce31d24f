package validate

import (
	"context"
	_ "embed"
	"text/template"

	"github.com/r-fujimoto/grind/pkg/model"
	"github.com/r-fujimoto/grind/pkg/utils/llmjson"
)

//go:embed prompt/feedback.md
var feedbackPromptRaw string

var feedbackPromptTmpl = template.Must(template.New("feedback").Parse(feedbackPromptRaw))

// FeedbackInput identifies one open-ended answer to evaluate via the legacy
// single-shot flow.
type FeedbackInput struct {
	DateKey  model.DateKey
	Section  model.Section
	Question string
	Answer   string
}

// ValidateAnswer is the legacy non-gated evaluation for plain open-ended
// answers: one call, no state machine, no progression rules. Kept for
// quizzes generated before STAR and coding questions existed. The result is
// written to the section's feedback field when a date key is supplied.
func (u *UseCase) ValidateAnswer(ctx context.Context, input FeedbackInput) (*model.AnswerFeedback, error) {
	if err := input.Section.Validate(); err != nil {
		return nil, err
	}

	text, err := u.complete(ctx, feedbackPromptTmpl, map[string]any{
		"Question": input.Question,
		"Answer":   input.Answer,
	})
	if err != nil {
		return nil, err
	}

	var feedback model.AnswerFeedback
	if err := llmjson.Unmarshal(text, &feedback); err != nil {
		return nil, err
	}

	if input.DateKey != "" {
		patch := model.QuizPatch{
			Kind:    model.PatchSectionFeedback,
			Section: input.Section,
		}
		if err := u.cache.Patch(ctx, input.DateKey, patch, &feedback); err != nil {
			return nil, err
		}
	}

	return &feedback, nil
}
