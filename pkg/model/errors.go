package model

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrInsufficientContext means retrieval found no candidates for one or
	// more categories even after the fallback query. The wrapping error
	// carries the starved categories under the "categories" key.
	ErrInsufficientContext = goerr.New("insufficient context")

	// ErrMalformedModelOutput means no parseable JSON could be recovered
	// from a model reply after all cleanup attempts.
	ErrMalformedModelOutput = goerr.New("malformed model output")

	// ErrQuizNotFound is returned when no quiz exists for a date key, or the
	// stored record has passed its expiry.
	ErrQuizNotFound = goerr.New("quiz not found")

	// ErrStepLocked means a STAR step was submitted before its predecessor
	// cleared the passing score. Raised by callers (CLI, HTTP), never by the
	// validator itself.
	ErrStepLocked = goerr.New("star step locked")

	ErrInvalidDateKey = goerr.New("invalid date key")
)

// Remote-dependency failure classes. The engine never retries these; they are
// wrapped onto the cause and propagated so the caller can decide.
var (
	TagEmbeddingUnavailable  = goerr.NewTag("embedding_unavailable")
	TagCompletionUnavailable = goerr.NewTag("completion_unavailable")
	TagStoreUnavailable      = goerr.NewTag("store_unavailable")
	TagCacheUnavailable      = goerr.NewTag("cache_unavailable")
)
