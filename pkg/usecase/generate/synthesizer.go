package generate

import (
	"bytes"
	"context"
	_ "embed"
	"text/template"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/r-fujimoto/grind/pkg/adapter"
	"github.com/r-fujimoto/grind/pkg/model"
	"github.com/r-fujimoto/grind/pkg/utils/llmjson"
	"google.golang.org/genai"
)

//go:embed prompt/mcq.md
var mcqPromptRaw string

//go:embed prompt/open_ended.md
var openEndedPromptRaw string

//go:embed prompt/star.md
var starPromptRaw string

//go:embed prompt/coding.md
var codingPromptRaw string

var (
	mcqPromptTmpl       = template.Must(template.New("mcq").Parse(mcqPromptRaw))
	openEndedPromptTmpl = template.Must(template.New("open_ended").Parse(openEndedPromptRaw))
	starPromptTmpl      = template.Must(template.New("star").Parse(starPromptRaw))
	codingPromptTmpl    = template.Must(template.New("coding").Parse(codingPromptRaw))
)

const (
	starQuestionCount   = 5
	codingQuestionCount = 3

	synthMaxTokens   = 4096
	synthTemperature = float32(0.7)
	synthTopP        = float32(0.95)
)

func newQuestionID() string {
	return uuid.New().String()
}

func (u *UseCase) complete(ctx context.Context, tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", goerr.Wrap(err, "failed to execute prompt template", goerr.V("template", tmpl.Name()))
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		MaxOutputTokens:  synthMaxTokens,
		Temperature:      genai.Ptr(synthTemperature),
		TopP:             genai.Ptr(synthTopP),
	}

	resp, err := u.gemini.GenerateContent(ctx,
		[]*genai.Content{genai.NewContentFromText(buf.String(), genai.RoleUser)}, config)
	if err != nil {
		return "", err
	}

	return adapter.ResponseText(resp)
}

// synthesizeMCQ produces one four-option multiple choice question from a
// context passage. focus names what the passage is, so the prompt can frame
// the question.
func (u *UseCase) synthesizeMCQ(ctx context.Context, focus, passage string) (*model.MCQ, error) {
	text, err := u.complete(ctx, mcqPromptTmpl, map[string]any{
		"Focus":   focus,
		"Passage": passage,
	})
	if err != nil {
		return nil, err
	}

	var mcq model.MCQ
	if err := llmjson.Unmarshal(text, &mcq); err != nil {
		return nil, err
	}
	if err := mcq.Validate(); err != nil {
		return nil, goerr.Wrap(model.ErrMalformedModelOutput, "generated MCQ is invalid",
			goerr.V("raw", text))
	}
	return &mcq, nil
}

// synthesizeOpenEnded produces one free-form question with answering
// guidelines. Only the legacy single-shot feedback flow uses these; the daily
// pipeline generates STAR and coding questions instead.
func (u *UseCase) synthesizeOpenEnded(ctx context.Context, passage string) (*model.OpenEnded, error) {
	text, err := u.complete(ctx, openEndedPromptTmpl, map[string]any{"Passage": passage})
	if err != nil {
		return nil, err
	}

	var q model.OpenEnded
	if err := llmjson.Unmarshal(text, &q); err != nil {
		return nil, err
	}
	if q.Question == "" {
		return nil, goerr.Wrap(model.ErrMalformedModelOutput, "generated open-ended question is empty",
			goerr.V("raw", text))
	}
	return &q, nil
}

func (u *UseCase) synthesizeStarQuestions(ctx context.Context, resumeText string) ([]model.STARQuestion, error) {
	text, err := u.complete(ctx, starPromptTmpl, map[string]any{
		"Passage": resumeText,
		"Count":   starQuestionCount,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Questions []struct {
			Category string `json:"category"`
			Question string `json:"question"`
		} `json:"questions"`
	}
	if err := llmjson.Unmarshal(text, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Questions) != starQuestionCount {
		return nil, goerr.Wrap(model.ErrMalformedModelOutput, "unexpected STAR question count",
			goerr.V("want", starQuestionCount), goerr.V("got", len(parsed.Questions)))
	}

	questions := make([]model.STARQuestion, 0, starQuestionCount)
	for _, q := range parsed.Questions {
		if q.Question == "" {
			return nil, goerr.Wrap(model.ErrMalformedModelOutput, "empty STAR question", goerr.V("raw", text))
		}
		questions = append(questions, model.NewSTARQuestion(q.Category, q.Question))
	}
	return questions, nil
}

func (u *UseCase) synthesizeCodingQuestions(ctx context.Context, noteText string) ([]model.CodingQuestion, error) {
	text, err := u.complete(ctx, codingPromptTmpl, map[string]any{
		"Passage": noteText,
		"Count":   codingQuestionCount,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Questions []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Language    string `json:"language"`
			StarterCode string `json:"starterCode"`
		} `json:"questions"`
	}
	if err := llmjson.Unmarshal(text, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Questions) != codingQuestionCount {
		return nil, goerr.Wrap(model.ErrMalformedModelOutput, "unexpected coding question count",
			goerr.V("want", codingQuestionCount), goerr.V("got", len(parsed.Questions)))
	}

	questions := make([]model.CodingQuestion, 0, codingQuestionCount)
	for _, q := range parsed.Questions {
		if q.Title == "" || q.Description == "" {
			return nil, goerr.Wrap(model.ErrMalformedModelOutput, "incomplete coding question", goerr.V("raw", text))
		}
		questions = append(questions, model.CodingQuestion{
			ID:          newQuestionID(),
			Title:       q.Title,
			Description: q.Description,
			Language:    q.Language,
			StarterCode: q.StarterCode,
		})
	}
	return questions, nil
}
