package validate_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/r-fujimoto/grind/pkg/model"
	"github.com/r-fujimoto/grind/pkg/repository"
	"github.com/r-fujimoto/grind/pkg/usecase/validate"
	"google.golang.org/genai"
)

// mockGemini is a mock implementation of adapter.Gemini for testing
type mockGemini struct {
	generateFunc func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

func (m *mockGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if m.generateFunc != nil {
		return m.generateFunc(ctx, contents, config)
	}
	return nil, errors.New("not implemented")
}

func (m *mockGemini) Embedding(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("not implemented")
}

func gradeReply(score int, feedback, improved string) *mockGemini {
	return &mockGemini{
		generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			text := fmt.Sprintf(`{"score":%d,"feedback":%q,"improved":%q,"betterSolution":%q}`,
				score, feedback, improved, improved)
			return &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{
					{Content: genai.NewContentFromText(text, genai.RoleModel)},
				},
			}, nil
		},
	}
}

func seededQuiz(t *testing.T, repo *repository.Memory) *model.QuizRecord {
	t.Helper()

	stars := make([]model.STARQuestion, 5)
	for i := range stars {
		stars[i] = model.NewSTARQuestion("delivery", fmt.Sprintf("star question %d", i))
	}
	coding := make([]model.CodingQuestion, 3)
	for i := range coding {
		coding[i] = model.CodingQuestion{
			ID:          fmt.Sprintf("code-%d", i),
			Title:       fmt.Sprintf("challenge %d", i),
			Description: "implement it",
			Language:    "go",
		}
	}

	quiz := &model.QuizRecord{
		DateKey:   "2026-08-30",
		Resume:    model.ResumeSection{StarQuestions: stars},
		Technical: model.TechnicalSection{CodingQuestions: coding},
		CreatedAt: time.Now(),
	}
	gt.NoError(t, repo.Put(context.Background(), quiz, 7*24*time.Hour))
	return quiz
}

func TestValidateStepPersists(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	seededQuiz(t, repo)

	uc := validate.New(repo, gradeReply(9, "solid situation", ""))
	segment, err := uc.ValidateStep(ctx, validate.StepInput{
		DateKey:       "2026-08-30",
		QuestionIndex: 2,
		Step:          model.StepSituation,
		Question:      "star question 2",
		Answer:        "we had an outage",
	})
	gt.NoError(t, err)
	gt.Equal(t, 9, segment.Score)
	gt.Equal(t, "we had an outage", segment.Answer)
	gt.True(t, segment.Passed())

	stored, err := repo.Get(ctx, "2026-08-30")
	gt.NoError(t, err)
	gt.NotNil(t, stored.Resume.StarQuestions[2].Progress.S)
	gt.Equal(t, 9, stored.Resume.StarQuestions[2].Progress.S.Score)

	// Sibling steps and every other question stay untouched.
	gt.Nil(t, stored.Resume.StarQuestions[2].Progress.T)
	gt.Nil(t, stored.Resume.StarQuestions[2].Progress.A)
	gt.Nil(t, stored.Resume.StarQuestions[2].Progress.R)
	for i, q := range stored.Resume.StarQuestions {
		if i != 2 {
			gt.Nil(t, q.Progress.S)
		}
	}
}

func TestValidateStepBelowThreshold(t *testing.T) {
	ctx := context.Background()
	uc := validate.New(repository.NewMemory(), gradeReply(5, "too vague", "improved answer"))

	// No date key: graded but not persisted.
	segment, err := uc.ValidateStep(ctx, validate.StepInput{
		Step:     model.StepTask,
		Question: "q",
		Answer:   "short",
	})
	gt.NoError(t, err)
	gt.Equal(t, 5, segment.Score)
	gt.False(t, segment.Passed())
	gt.Equal(t, "improved answer", segment.Improved)
}

func TestValidateStepPassingDropsRewrite(t *testing.T) {
	ctx := context.Background()
	uc := validate.New(repository.NewMemory(), gradeReply(8, "good", "unwanted rewrite"))

	segment, err := uc.ValidateStep(ctx, validate.StepInput{
		Step:     model.StepResult,
		Question: "q",
		Answer:   "we cut latency by 40%",
	})
	gt.NoError(t, err)
	gt.True(t, segment.Passed())
	gt.Equal(t, "", segment.Improved)
}

func TestValidateStepGradesOutOfOrder(t *testing.T) {
	// The validator deliberately does not enforce S -> T -> A -> R; invoked
	// directly it grades a step whose predecessors are missing. Gating is
	// the accepting layer's job.
	ctx := context.Background()
	repo := repository.NewMemory()
	seededQuiz(t, repo)

	uc := validate.New(repo, gradeReply(9, "fine", ""))
	segment, err := uc.ValidateStep(ctx, validate.StepInput{
		DateKey:       "2026-08-30",
		QuestionIndex: 0,
		Step:          model.StepResult,
		Question:      "star question 0",
		Answer:        "the result came first",
	})
	gt.NoError(t, err)
	gt.Equal(t, 9, segment.Score)

	stored, err := repo.Get(ctx, "2026-08-30")
	gt.NoError(t, err)
	gt.NotNil(t, stored.Resume.StarQuestions[0].Progress.R)
	gt.Nil(t, stored.Resume.StarQuestions[0].Progress.S)
}

func TestValidateStepScoreClamp(t *testing.T) {
	ctx := context.Background()
	uc := validate.New(repository.NewMemory(), gradeReply(42, "overenthusiastic model", ""))

	segment, err := uc.ValidateStep(ctx, validate.StepInput{
		Step:     model.StepSituation,
		Question: "q",
		Answer:   "a",
	})
	gt.NoError(t, err)
	gt.Equal(t, 10, segment.Score)
}

func TestValidateStepInvalid(t *testing.T) {
	uc := validate.New(repository.NewMemory(), gradeReply(9, "", ""))
	_, err := uc.ValidateStep(context.Background(), validate.StepInput{Step: "Q"})
	gt.Error(t, err)
}

func TestValidateCode(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	seededQuiz(t, repo)

	uc := validate.New(repo, gradeReply(7, "misses the empty-slice case", "func better() {}"))
	result, err := uc.ValidateCode(ctx, validate.CodeInput{
		DateKey:       "2026-08-30",
		QuestionIndex: 1,
		Question:      "implement it",
		Language:      "go",
		Answer:        "func solve() {}",
	})
	gt.NoError(t, err)
	gt.Equal(t, 7, result.Score)
	gt.Equal(t, "func better() {}", result.BetterSolution)

	stored, err := repo.Get(ctx, "2026-08-30")
	gt.NoError(t, err)
	gt.NotNil(t, stored.Technical.CodingQuestions[1].Progress)
	gt.Equal(t, 7, stored.Technical.CodingQuestions[1].Progress.Score)
	gt.Nil(t, stored.Technical.CodingQuestions[0].Progress)
	gt.Nil(t, stored.Technical.CodingQuestions[2].Progress)
}

func TestValidateCodePerfectScore(t *testing.T) {
	ctx := context.Background()
	uc := validate.New(repository.NewMemory(), gradeReply(10, "flawless", "should be dropped"))

	result, err := uc.ValidateCode(ctx, validate.CodeInput{
		Question: "q",
		Language: "go",
		Answer:   "func solve() {}",
	})
	gt.NoError(t, err)
	gt.Equal(t, 10, result.Score)
	gt.Equal(t, "", result.BetterSolution)
}

func TestValidateCodeLastWriteWins(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	seededQuiz(t, repo)

	first := validate.New(repo, gradeReply(4, "rough", "better"))
	_, err := first.ValidateCode(ctx, validate.CodeInput{
		DateKey: "2026-08-30", QuestionIndex: 0, Question: "q", Language: "go", Answer: "v1",
	})
	gt.NoError(t, err)

	second := validate.New(repo, gradeReply(9, "much better", "best"))
	_, err = second.ValidateCode(ctx, validate.CodeInput{
		DateKey: "2026-08-30", QuestionIndex: 0, Question: "q", Language: "go", Answer: "v2",
	})
	gt.NoError(t, err)

	stored, err := repo.Get(ctx, "2026-08-30")
	gt.NoError(t, err)
	gt.Equal(t, "v2", stored.Technical.CodingQuestions[0].Progress.Answer)
	gt.Equal(t, 9, stored.Technical.CodingQuestions[0].Progress.Score)
}

func TestValidateAnswerLegacy(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	seededQuiz(t, repo)

	gemini := &mockGemini{
		generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			text := `{"feedback":"decent","score":"6/10","improvementTips":["be specific","add numbers"]}`
			return &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{
					{Content: genai.NewContentFromText(text, genai.RoleModel)},
				},
			}, nil
		},
	}

	uc := validate.New(repo, gemini)
	feedback, err := uc.ValidateAnswer(ctx, validate.FeedbackInput{
		DateKey:  "2026-08-30",
		Section:  model.SectionTechnical,
		Question: "explain indexing",
		Answer:   "btrees",
	})
	gt.NoError(t, err)
	gt.Equal(t, "6/10", feedback.Score)
	gt.Equal(t, 2, len(feedback.ImprovementTips))

	stored, err := repo.Get(ctx, "2026-08-30")
	gt.NoError(t, err)
	gt.NotNil(t, stored.Technical.Feedback)
	gt.Equal(t, "decent", stored.Technical.Feedback.Feedback)
	gt.Nil(t, stored.Resume.Feedback)
}

func TestValidateMalformedReply(t *testing.T) {
	gemini := &mockGemini{
		generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{
					{Content: genai.NewContentFromText("no json here", genai.RoleModel)},
				},
			}, nil
		},
	}

	uc := validate.New(repository.NewMemory(), gemini)
	_, err := uc.ValidateStep(context.Background(), validate.StepInput{
		Step:     model.StepSituation,
		Question: "q",
		Answer:   "a",
	})
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrMalformedModelOutput))
}

func TestStepRubricNamesStep(t *testing.T) {
	var captured string
	gemini := &mockGemini{
		generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			captured = contents[0].Parts[0].Text
			return &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{
					{Content: genai.NewContentFromText(`{"score":9,"feedback":"ok","improved":""}`, genai.RoleModel)},
				},
			}, nil
		},
	}

	uc := validate.New(repository.NewMemory(), gemini)
	_, err := uc.ValidateStep(context.Background(), validate.StepInput{
		Step:     model.StepAction,
		Question: "the question",
		Answer:   "the answer",
	})
	gt.NoError(t, err)
	gt.True(t, strings.Contains(captured, "Action"))
	gt.True(t, strings.Contains(captured, "the question"))
	gt.True(t, strings.Contains(captured, "the answer"))
}
