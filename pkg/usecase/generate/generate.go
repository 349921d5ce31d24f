// Package generate implements the daily quiz pipeline: idempotent cache
// check, probe-based context retrieval, concurrent question synthesis, and
// persistence.
package generate

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/r-fujimoto/grind/pkg/adapter"
	"github.com/r-fujimoto/grind/pkg/model"
	"github.com/r-fujimoto/grind/pkg/repository"
	"github.com/r-fujimoto/grind/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// UseCase runs the generation pipeline.
type UseCase struct {
	repo   repository.Repository
	gemini adapter.Gemini
}

func New(repo repository.Repository, gemini adapter.Gemini) *UseCase {
	return &UseCase{repo: repo, gemini: gemini}
}

// Generate returns the quiz for a date, producing and persisting it on cache
// miss. With force=false the call is idempotent: a cached record is returned
// untouched and no model calls are made. With force=true the cache check is
// skipped and the freshly generated record overwrites whatever exists.
//
// Two concurrent misses for the same date can both reach synthesis; the
// later Put wins. That race is accepted, not guarded (no conditional
// create), so generation is idempotent but not exactly-once.
func (u *UseCase) Generate(ctx context.Context, date model.DateKey, force bool) (*model.QuizRecord, error) {
	if err := date.Validate(); err != nil {
		return nil, err
	}
	logger := logging.From(ctx)

	if !force {
		quiz, err := u.repo.Get(ctx, date)
		if err == nil {
			logger.Debug("quiz cache hit", "dateKey", date)
			return quiz, nil
		}
		if !errors.Is(err, model.ErrQuizNotFound) {
			return nil, err
		}
	}

	set, err := u.retrieveContextSet(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("retrieved context set",
		"leetcode", set.leetcode.ID, "resume", set.resume.ID, "note", set.note.ID)

	// The five synthesis calls are independent; run them concurrently and
	// fail the whole step if any one fails. A quiz with a missing section is
	// not a valid artifact, so no partial result is ever persisted.
	var (
		leetMCQ   *model.MCQ
		resumeMCQ *model.MCQ
		techMCQ   *model.MCQ
		starQs    []model.STARQuestion
		codingQs  []model.CodingQuestion
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		leetMCQ, err = u.synthesizeMCQ(egCtx, "the algorithm problem below", set.leetcode.Text)
		return err
	})
	eg.Go(func() error {
		var err error
		resumeMCQ, err = u.synthesizeMCQ(egCtx, "the candidate's resume excerpt below", set.resume.Text)
		return err
	})
	eg.Go(func() error {
		var err error
		techMCQ, err = u.synthesizeMCQ(egCtx, "the technical note below", set.note.Text)
		return err
	})
	eg.Go(func() error {
		var err error
		starQs, err = u.synthesizeStarQuestions(egCtx, set.resume.Text)
		return err
	})
	eg.Go(func() error {
		var err error
		codingQs, err = u.synthesizeCodingQuestions(egCtx, set.note.Text)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, goerr.Wrap(err, "question synthesis failed", goerr.V("dateKey", date))
	}

	quiz := &model.QuizRecord{
		DateKey: date,
		Leetcode: model.LeetcodeSection{
			Problem:    set.leetcode.Text,
			AIQuestion: *leetMCQ,
		},
		Resume: model.ResumeSection{
			Context:       set.resume.Text,
			MCQ:           *resumeMCQ,
			StarQuestions: starQs,
		},
		Technical: model.TechnicalSection{
			Context:         set.note.Text,
			MCQ:             *techMCQ,
			CodingQuestions: codingQs,
		},
		CreatedAt: time.Now(),
	}

	if err := u.repo.Put(ctx, quiz, model.RetentionDays*24*time.Hour); err != nil {
		return nil, err
	}
	logger.Info("generated daily quiz", "dateKey", date, "forced", force)

	return quiz, nil
}
