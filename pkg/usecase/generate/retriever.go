package generate

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/m-mizutani/goerr/v2"
	"github.com/r-fujimoto/grind/pkg/model"
	"github.com/r-fujimoto/grind/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// probeVocabulary is the fixed topic pool probes are drawn from. A probe is
// embedded and used to sample "nearby" context rather than look anything up,
// so the daily variety of a static corpus comes from this random draw plus
// the random pick among the nearest candidates.
var probeVocabulary = []string{
	"binary search",
	"dynamic programming",
	"graph traversal",
	"hash table design",
	"sliding window",
	"two pointers",
	"backtracking",
	"heap and priority queue",
	"linked list manipulation",
	"tree recursion",
	"system design tradeoffs",
	"database indexing",
	"caching strategy",
	"API versioning",
	"concurrency and locking",
	"message queues",
	"load balancing",
	"microservice boundaries",
	"test driven development",
	"code review practices",
	"production incident",
	"performance profiling",
	"cross-team collaboration",
	"technical leadership",
}

const candidateLimit = 5

// contextSet is one retrieval result: exactly one record per category.
type contextSet struct {
	leetcode *model.ContextRecord
	resume   *model.ContextRecord
	note     *model.ContextRecord
}

// retrieveContextSet picks one context record per category. Two independent
// probes are drawn: the first steers leetcode and resume, the second steers
// note, so the two halves of the quiz don't land on the same topic. If the
// resume similarity search comes back empty (a small corpus rarely lands
// near a random probe) a plain category query stands in. Categories that
// stay empty after fallback are all reported together.
func (u *UseCase) retrieveContextSet(ctx context.Context) (*contextSet, error) {
	probeA := probeVocabulary[rand.IntN(len(probeVocabulary))]
	probeB := probeVocabulary[rand.IntN(len(probeVocabulary))]
	logging.From(ctx).Debug("drew retrieval probes", "probeA", probeA, "probeB", probeB)

	var vecA, vecB []float32
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		vecA, err = u.gemini.Embedding(egCtx, probeA)
		return err
	})
	eg.Go(func() error {
		var err error
		vecB, err = u.gemini.Embedding(egCtx, probeB)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, goerr.Wrap(err, "failed to embed retrieval probes")
	}

	leetcode, err := u.repo.Search(ctx, vecA, model.CategoryLeetcode, candidateLimit)
	if err != nil {
		return nil, err
	}

	resume, err := u.repo.Search(ctx, vecA, model.CategoryResume, candidateLimit)
	if err != nil {
		return nil, err
	}
	if len(resume) == 0 {
		resume, err = u.repo.Any(ctx, model.CategoryResume, 1)
		if err != nil {
			return nil, err
		}
	}

	note, err := u.repo.Search(ctx, vecB, model.CategoryNote, candidateLimit)
	if err != nil {
		return nil, err
	}

	var missing []model.Category
	if len(leetcode) == 0 {
		missing = append(missing, model.CategoryLeetcode)
	}
	if len(resume) == 0 {
		missing = append(missing, model.CategoryResume)
	}
	if len(note) == 0 {
		missing = append(missing, model.CategoryNote)
	}
	if len(missing) > 0 {
		return nil, goerr.Wrap(model.ErrInsufficientContext,
			fmt.Sprintf("no candidates for categories %v", missing),
			goerr.V("categories", missing))
	}

	return &contextSet{
		leetcode: pickOne(leetcode),
		resume:   pickOne(resume),
		note:     pickOne(note),
	}, nil
}

func pickOne(records []*model.ContextRecord) *model.ContextRecord {
	return records[rand.IntN(len(records))]
}
