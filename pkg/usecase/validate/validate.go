// Package validate grades free-form answers: STAR steps against per-step
// rubrics, coding answers in a single review pass, and the legacy open-ended
// feedback flow. Validators grade whatever they are handed; the sequential
// S -> T -> A -> R gate is deliberately NOT checked here. Callers accepting
// answers (CLI, HTTP) own that policy via model.STARQuestion.CanSubmit.
package validate

import (
	"bytes"
	"context"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/r-fujimoto/grind/pkg/adapter"
	"github.com/r-fujimoto/grind/pkg/repository"
	"google.golang.org/genai"
)

// UseCase grades answers and persists results as targeted field patches.
type UseCase struct {
	cache  repository.QuizCache
	gemini adapter.Gemini
}

func New(cache repository.QuizCache, gemini adapter.Gemini) *UseCase {
	return &UseCase{cache: cache, gemini: gemini}
}

const (
	gradeMaxTokens   = 2048
	gradeTemperature = float32(0.2)
	gradeTopP        = float32(0.9)
)

// complete renders a rubric prompt and returns the raw model reply. Grading
// runs at low temperature so scores stay stable across re-submissions.
func (u *UseCase) complete(ctx context.Context, tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", goerr.Wrap(err, "failed to execute rubric template", goerr.V("template", tmpl.Name()))
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		MaxOutputTokens:  gradeMaxTokens,
		Temperature:      genai.Ptr(gradeTemperature),
		TopP:             genai.Ptr(gradeTopP),
	}

	resp, err := u.gemini.GenerateContent(ctx,
		[]*genai.Content{genai.NewContentFromText(buf.String(), genai.RoleUser)}, config)
	if err != nil {
		return "", err
	}

	return adapter.ResponseText(resp)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}
