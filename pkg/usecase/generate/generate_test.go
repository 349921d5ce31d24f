package generate_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/r-fujimoto/grind/pkg/model"
	"github.com/r-fujimoto/grind/pkg/repository"
	"github.com/r-fujimoto/grind/pkg/usecase/generate"
	"google.golang.org/genai"
)

const (
	mcqJSON = `{"question":"What does the passage imply?","options":["a","b","c","d"],"answer":"A","explanation":"a is right"}`

	starJSON = `{"questions":[
		{"category":"leadership","question":"q1"},
		{"category":"conflict","question":"q2"},
		{"category":"failure","question":"q3"},
		{"category":"delivery","question":"q4"},
		{"category":"judgment","question":"q5"}]}`

	codingJSON = `{"questions":[
		{"title":"t1","description":"d1","language":"go","starterCode":"func a(){}"},
		{"title":"t2","description":"d2","language":"go","starterCode":"func b(){}"},
		{"title":"t3","description":"d3","language":"go","starterCode":"func c(){}"}]}`
)

// mockGemini is a counting mock of adapter.Gemini. Without an override it
// answers each synthesis prompt with a canned, well-formed reply.
type mockGemini struct {
	mu            sync.Mutex
	generateCalls int
	embedCalls    int

	generateFunc  func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	embeddingFunc func(ctx context.Context, text string) ([]float32, error)
}

func (m *mockGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.mu.Lock()
	m.generateCalls++
	m.mu.Unlock()

	if m.generateFunc != nil {
		return m.generateFunc(ctx, contents, config)
	}
	return textResponse(cannedReply(promptOf(contents))), nil
}

func (m *mockGemini) Embedding(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.embedCalls++
	m.mu.Unlock()

	if m.embeddingFunc != nil {
		return m.embeddingFunc(ctx, text)
	}
	return []float32{1, 0}, nil
}

func (m *mockGemini) calls() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generateCalls, m.embedCalls
}

func promptOf(contents []*genai.Content) string {
	if len(contents) == 0 || len(contents[0].Parts) == 0 {
		return ""
	}
	return contents[0].Parts[0].Text
}

func cannedReply(prompt string) string {
	switch {
	case strings.Contains(prompt, "STAR"):
		return starJSON
	case strings.Contains(prompt, "coding"):
		return codingJSON
	default:
		return mcqJSON
	}
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: genai.NewContentFromText(text, genai.RoleModel)},
		},
	}
}

func seededRepo() *repository.Memory {
	repo := repository.NewMemory()
	repo.AddContext(&model.ContextRecord{ID: "lc1", Category: model.CategoryLeetcode, Text: "two sum problem", Embedding: []float32{1, 0}})
	repo.AddContext(&model.ContextRecord{ID: "rs1", Category: model.CategoryResume, Text: "led migration to Go services", Embedding: []float32{0.9, 0.1}})
	repo.AddContext(&model.ContextRecord{ID: "nt1", Category: model.CategoryNote, Text: "notes on database indexing", Embedding: []float32{0.8, 0.2}})
	return repo
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()
	repo := seededRepo()
	gemini := &mockGemini{}

	quiz, err := generate.New(repo, gemini).Generate(ctx, "2026-08-30", false)
	gt.NoError(t, err)

	gt.Equal(t, model.DateKey("2026-08-30"), quiz.DateKey)
	gt.Equal(t, "two sum problem", quiz.Leetcode.Problem)
	gt.NoError(t, quiz.Leetcode.AIQuestion.Validate())
	gt.Equal(t, 5, len(quiz.Resume.StarQuestions))
	gt.Equal(t, 3, len(quiz.Technical.CodingQuestions))

	// All progress starts empty.
	for _, q := range quiz.Resume.StarQuestions {
		step, ok := q.NextStep()
		gt.True(t, ok)
		gt.Equal(t, model.StepSituation, step)
	}
	for _, q := range quiz.Technical.CodingQuestions {
		gt.Nil(t, q.Progress)
	}

	// Two probe embeddings, five synthesis calls.
	gen, emb := gemini.calls()
	gt.Equal(t, 5, gen)
	gt.Equal(t, 2, emb)

	// The record is persisted as returned.
	stored, err := repo.Get(ctx, "2026-08-30")
	gt.NoError(t, err)
	gt.Equal(t, quiz.CreatedAt, stored.CreatedAt)
}

func TestGenerateIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := seededRepo()
	gemini := &mockGemini{}
	uc := generate.New(repo, gemini)

	first, err := uc.Generate(ctx, "2026-08-30", false)
	gt.NoError(t, err)
	genBefore, embBefore := gemini.calls()

	// Second non-forcing call is a pure cache hit: same record, zero new
	// remote calls.
	second, err := uc.Generate(ctx, "2026-08-30", false)
	gt.NoError(t, err)
	gt.Equal(t, first.DateKey, second.DateKey)
	gt.True(t, first.CreatedAt.Equal(second.CreatedAt))
	gt.Equal(t, first.Resume.StarQuestions[0].ID, second.Resume.StarQuestions[0].ID)

	genAfter, embAfter := gemini.calls()
	gt.Equal(t, genBefore, genAfter)
	gt.Equal(t, embBefore, embAfter)
}

func TestGenerateForce(t *testing.T) {
	ctx := context.Background()
	repo := seededRepo()
	gemini := &mockGemini{}
	uc := generate.New(repo, gemini)

	first, err := uc.Generate(ctx, "2026-08-30", false)
	gt.NoError(t, err)

	forced, err := uc.Generate(ctx, "2026-08-30", true)
	gt.NoError(t, err)

	// Force skips the cache check and regenerates: fresh question IDs, and
	// the new record replaces the old one.
	gt.NotEqual(t, first.Resume.StarQuestions[0].ID, forced.Resume.StarQuestions[0].ID)

	gen, emb := gemini.calls()
	gt.Equal(t, 10, gen)
	gt.Equal(t, 4, emb)

	stored, err := repo.Get(ctx, "2026-08-30")
	gt.NoError(t, err)
	gt.Equal(t, forced.Resume.StarQuestions[0].ID, stored.Resume.StarQuestions[0].ID)
}

func TestGenerateResumeFallback(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	repo.AddContext(&model.ContextRecord{ID: "lc1", Category: model.CategoryLeetcode, Text: "lc", Embedding: []float32{1, 0}})
	repo.AddContext(&model.ContextRecord{ID: "nt1", Category: model.CategoryNote, Text: "note", Embedding: []float32{1, 0}})
	// No embedding: invisible to similarity search, reachable via Any.
	repo.AddContext(&model.ContextRecord{ID: "rs1", Category: model.CategoryResume, Text: "resume excerpt"})

	quiz, err := generate.New(repo, &mockGemini{}).Generate(ctx, "2026-08-30", false)
	gt.NoError(t, err)
	gt.Equal(t, "resume excerpt", quiz.Resume.Context)
}

func TestGenerateInsufficientContext(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	// Only leetcode has content; resume and note starve even after fallback.
	repo.AddContext(&model.ContextRecord{ID: "lc1", Category: model.CategoryLeetcode, Text: "lc", Embedding: []float32{1, 0}})

	_, err := generate.New(repo, &mockGemini{}).Generate(ctx, "2026-08-30", false)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrInsufficientContext))

	// Every starved category is reported, not just the first.
	gt.True(t, strings.Contains(err.Error(), "resume"))
	gt.True(t, strings.Contains(err.Error(), "note"))
	gt.False(t, strings.Contains(err.Error(), "leetcode"))

	// Nothing was persisted.
	_, err = repo.Get(ctx, "2026-08-30")
	gt.True(t, errors.Is(err, model.ErrQuizNotFound))
}

func TestGenerateFailFast(t *testing.T) {
	ctx := context.Background()
	repo := seededRepo()
	gemini := &mockGemini{
		generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			prompt := promptOf(contents)
			if strings.Contains(prompt, "STAR") {
				return nil, errors.New("completion backend down")
			}
			return textResponse(cannedReply(prompt)), nil
		},
	}

	_, err := generate.New(repo, gemini).Generate(ctx, "2026-08-30", false)
	gt.Error(t, err)

	// One failed branch fails the whole step; no partial quiz is written.
	_, err = repo.Get(ctx, "2026-08-30")
	gt.True(t, errors.Is(err, model.ErrQuizNotFound))
}

func TestGenerateMalformedOutput(t *testing.T) {
	ctx := context.Background()
	repo := seededRepo()
	gemini := &mockGemini{
		generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return textResponse("I am sorry, I cannot produce JSON today."), nil
		},
	}

	_, err := generate.New(repo, gemini).Generate(ctx, "2026-08-30", false)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrMalformedModelOutput))

	_, err = repo.Get(ctx, "2026-08-30")
	gt.True(t, errors.Is(err, model.ErrQuizNotFound))
}

func TestGenerateBadDateKey(t *testing.T) {
	_, err := generate.New(repository.NewMemory(), &mockGemini{}).Generate(context.Background(), "not-a-date", false)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrInvalidDateKey))
}
