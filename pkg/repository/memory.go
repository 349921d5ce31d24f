package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/r-fujimoto/grind/pkg/model"
)

// Memory implements Repository in process memory. It mirrors the Firestore
// semantics the engine relies on, including retention expiry and targeted
// field patches.
type Memory struct {
	mu       sync.RWMutex
	contexts []*model.ContextRecord
	quizzes  map[model.DateKey]*model.QuizRecord

	// Now is the clock used for expiry checks. Overridable in tests.
	Now func() time.Time
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		quizzes: make(map[model.DateKey]*model.QuizRecord),
		Now:     time.Now,
	}
}

// AddContext registers a context record for retrieval.
func (r *Memory) AddContext(rec *model.ContextRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contexts = append(r.contexts, rec)
}

func (r *Memory) Search(ctx context.Context, vector []float32, category model.Category, limit int) ([]*model.ContextRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type scored struct {
		rec   *model.ContextRecord
		score float64
	}
	var candidates []scored
	for _, rec := range r.contexts {
		if rec.Category != category || len(rec.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, scored{rec: rec, score: dot(vector, rec.Embedding)})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	records := make([]*model.ContextRecord, 0, len(candidates))
	for _, c := range candidates {
		records = append(records, c.rec)
	}
	return records, nil
}

func (r *Memory) Any(ctx context.Context, category model.Category, limit int) ([]*model.ContextRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var records []*model.ContextRecord
	for _, rec := range r.contexts {
		if rec.Category != category {
			continue
		}
		records = append(records, rec)
		if len(records) >= limit {
			break
		}
	}
	return records, nil
}

func (r *Memory) Get(ctx context.Context, date model.DateKey) (*model.QuizRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	quiz, ok := r.quizzes[date]
	if !ok {
		return nil, goerr.Wrap(model.ErrQuizNotFound, "no quiz for date", goerr.V("dateKey", date))
	}
	if quiz.Expired(r.Now()) {
		return nil, goerr.Wrap(model.ErrQuizNotFound, "quiz expired", goerr.V("dateKey", date))
	}

	return cloneQuiz(quiz), nil
}

func (r *Memory) Put(ctx context.Context, quiz *model.QuizRecord, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	quiz.ExpiresAt = r.Now().Add(ttl)
	r.quizzes[quiz.DateKey] = cloneQuiz(quiz)
	return nil
}

func (r *Memory) Patch(ctx context.Context, date model.DateKey, patch model.QuizPatch, value any) error {
	if err := patch.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	quiz, ok := r.quizzes[date]
	if !ok {
		return goerr.Wrap(model.ErrQuizNotFound, "no quiz for date", goerr.V("dateKey", date))
	}

	switch patch.Kind {
	case model.PatchStarSegment:
		seg, ok := value.(*model.Segment)
		if !ok {
			return goerr.New("star patch value must be *model.Segment")
		}
		if patch.Question >= len(quiz.Resume.StarQuestions) {
			return goerr.New("star question index out of range", goerr.V("index", patch.Question))
		}
		quiz.Resume.StarQuestions[patch.Question].Progress.Set(patch.Step, seg)

	case model.PatchCodeResult:
		res, ok := value.(*model.CodeResult)
		if !ok {
			return goerr.New("code patch value must be *model.CodeResult")
		}
		if patch.Question >= len(quiz.Technical.CodingQuestions) {
			return goerr.New("coding question index out of range", goerr.V("index", patch.Question))
		}
		quiz.Technical.CodingQuestions[patch.Question].Progress = res

	case model.PatchSectionFeedback:
		fb, ok := value.(*model.AnswerFeedback)
		if !ok {
			return goerr.New("feedback patch value must be *model.AnswerFeedback")
		}
		if patch.Section == model.SectionResume {
			quiz.Resume.Feedback = fb
		} else {
			quiz.Technical.Feedback = fb
		}
	}
	return nil
}

func (r *Memory) ListRecent(ctx context.Context, limitDays int) ([]*model.QuizRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.Now()
	var quizzes []*model.QuizRecord
	for _, quiz := range r.quizzes {
		if quiz.Expired(now) {
			continue
		}
		quizzes = append(quizzes, cloneQuiz(quiz))
	}

	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].DateKey > quizzes[j].DateKey })
	if len(quizzes) > limitDays {
		quizzes = quizzes[:limitDays]
	}
	return quizzes, nil
}

// cloneQuiz deep-copies the question slices so stored state never aliases
// caller memory.
func cloneQuiz(quiz *model.QuizRecord) *model.QuizRecord {
	clone := *quiz
	clone.Resume.StarQuestions = append([]model.STARQuestion(nil), quiz.Resume.StarQuestions...)
	clone.Technical.CodingQuestions = append([]model.CodingQuestion(nil), quiz.Technical.CodingQuestions...)
	return &clone
}

func dot(a []float32, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
