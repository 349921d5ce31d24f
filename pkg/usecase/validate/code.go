package validate

import (
	"context"
	_ "embed"
	"text/template"

	"github.com/r-fujimoto/grind/pkg/model"
	"github.com/r-fujimoto/grind/pkg/utils/llmjson"
	"github.com/r-fujimoto/grind/pkg/utils/logging"
)

//go:embed prompt/code_review.md
var codeReviewPromptRaw string

var codeReviewPromptTmpl = template.Must(template.New("code_review").Parse(codeReviewPromptRaw))

// CodeInput identifies one coding answer to review. DateKey may be empty, in
// which case the result is returned but not persisted.
type CodeInput struct {
	DateKey       model.DateKey
	QuestionIndex int
	Question      string
	Language      string
	Answer        string
}

// ValidateCode reviews a coding answer in one pass covering correctness,
// idiomatic style, and edge-case and security handling. A better solution is
// included only for imperfect answers. The result replaces any prior result
// for the question; there is no sequencing between coding questions.
func (u *UseCase) ValidateCode(ctx context.Context, input CodeInput) (*model.CodeResult, error) {
	text, err := u.complete(ctx, codeReviewPromptTmpl, map[string]any{
		"Question": input.Question,
		"Language": input.Language,
		"Answer":   input.Answer,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Score          int    `json:"score"`
		Feedback       string `json:"feedback"`
		BetterSolution string `json:"betterSolution"`
	}
	if err := llmjson.Unmarshal(text, &parsed); err != nil {
		return nil, err
	}

	result := &model.CodeResult{
		Answer:   input.Answer,
		Score:    clampScore(parsed.Score),
		Feedback: parsed.Feedback,
	}
	if result.Score < 10 {
		result.BetterSolution = parsed.BetterSolution
	}

	if input.DateKey != "" {
		patch := model.QuizPatch{
			Kind:     model.PatchCodeResult,
			Question: input.QuestionIndex,
		}
		if err := u.cache.Patch(ctx, input.DateKey, patch, result); err != nil {
			return nil, err
		}
		logging.From(ctx).Debug("persisted code review",
			"dateKey", input.DateKey, "question", input.QuestionIndex, "score", result.Score)
	}

	return result, nil
}
