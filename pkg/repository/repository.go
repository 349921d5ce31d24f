package repository

import (
	"context"
	"time"

	"github.com/r-fujimoto/grind/pkg/model"
)

// ContextStore is read-only similarity search over the knowledge-base
// context records. Records are ingested by an external job; this system
// never writes them.
type ContextStore interface {
	// Search returns up to limit records of the category nearest to vector.
	Search(ctx context.Context, vector []float32, category model.Category, limit int) ([]*model.ContextRecord, error)

	// Any returns up to limit records of the category without similarity
	// ranking. Used as the fallback when Search starves a category.
	Any(ctx context.Context, category model.Category, limit int) ([]*model.ContextRecord, error)
}

// QuizCache persists one QuizRecord per calendar day. Records expire after
// their retention window and become unreadable regardless of physical
// deletion.
type QuizCache interface {
	// Get returns the quiz for a date key, or model.ErrQuizNotFound when the
	// record is absent or expired.
	Get(ctx context.Context, date model.DateKey) (*model.QuizRecord, error)

	// Put writes (or overwrites) the quiz for its date key with the given
	// retention window.
	Put(ctx context.Context, quiz *model.QuizRecord, ttl time.Duration) error

	// Patch writes value into the single nested field addressed by the
	// patch, leaving every sibling field untouched.
	Patch(ctx context.Context, date model.DateKey, patch model.QuizPatch, value any) error

	// ListRecent returns up to limitDays unexpired quizzes, newest first.
	ListRecent(ctx context.Context, limitDays int) ([]*model.QuizRecord, error)
}

// Repository bundles both persistence capabilities of one backend.
type Repository interface {
	ContextStore
	QuizCache
}
