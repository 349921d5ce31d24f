package validate

import (
	"context"
	_ "embed"
	"text/template"

	"github.com/r-fujimoto/grind/pkg/model"
	"github.com/r-fujimoto/grind/pkg/utils/llmjson"
	"github.com/r-fujimoto/grind/pkg/utils/logging"
)

//go:embed prompt/star_step.md
var starStepPromptRaw string

var starStepPromptTmpl = template.Must(template.New("star_step").Parse(starStepPromptRaw))

// stepDefinitions names what each STAR step must contain, quoted verbatim in
// the rubric prompt.
var stepDefinitions = map[model.StarStep]string{
	model.StepSituation: "Situation: the concrete context and background. Where, when, what was at stake, and why it mattered.",
	model.StepTask:      "Task: the speaker's specific responsibility or goal in that situation, distinct from what the team as a whole had to do.",
	model.StepAction:    "Action: the specific steps the speaker personally took, with enough detail to judge their contribution and reasoning.",
	model.StepResult:    "Result: the measurable outcome, what changed, and what the speaker learned.",
}

// StepInput identifies one STAR step answer to grade. DateKey may be empty,
// in which case the result is returned but not persisted.
type StepInput struct {
	DateKey       model.DateKey
	QuestionIndex int
	Step          model.StarStep
	Question      string
	Answer        string
}

// ValidateStep grades one STAR step answer 0-10 against the step's rubric.
// Below model.PassingScore the segment carries an improved rewrite of the
// answer. When a date key is supplied the segment is written into the
// matching question's progress slot via a field patch; sibling steps and
// other questions are never touched.
//
// Out-of-order submissions are graded all the same. Sequencing is enforced
// by the accepting layer, not here.
func (u *UseCase) ValidateStep(ctx context.Context, input StepInput) (*model.Segment, error) {
	if err := input.Step.Validate(); err != nil {
		return nil, err
	}

	text, err := u.complete(ctx, starStepPromptTmpl, map[string]any{
		"Step":       string(input.Step),
		"Definition": stepDefinitions[input.Step],
		"Threshold":  model.PassingScore,
		"Question":   input.Question,
		"Answer":     input.Answer,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Score    int    `json:"score"`
		Feedback string `json:"feedback"`
		Improved string `json:"improved"`
	}
	if err := llmjson.Unmarshal(text, &parsed); err != nil {
		return nil, err
	}

	segment := &model.Segment{
		Answer:   input.Answer,
		Score:    clampScore(parsed.Score),
		Feedback: parsed.Feedback,
	}
	if segment.Score < model.PassingScore {
		segment.Improved = parsed.Improved
	}

	if input.DateKey != "" {
		patch := model.QuizPatch{
			Kind:     model.PatchStarSegment,
			Question: input.QuestionIndex,
			Step:     input.Step,
		}
		if err := u.cache.Patch(ctx, input.DateKey, patch, segment); err != nil {
			return nil, err
		}
		logging.From(ctx).Debug("persisted star segment",
			"dateKey", input.DateKey, "question", input.QuestionIndex, "step", input.Step, "score", segment.Score)
	}

	return segment, nil
}
