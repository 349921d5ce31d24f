// Package history provides read-only listing of past quizzes.
package history

import (
	"context"

	"github.com/r-fujimoto/grind/pkg/model"
	"github.com/r-fujimoto/grind/pkg/repository"
)

// List returns up to limitDays unexpired quizzes, newest first. A
// non-positive limit defaults to the retention window, which is the most
// that can be readable anyway.
func List(ctx context.Context, cache repository.QuizCache, limitDays int) ([]*model.QuizRecord, error) {
	if limitDays <= 0 {
		limitDays = model.RetentionDays
	}
	return cache.ListRecent(ctx, limitDays)
}
