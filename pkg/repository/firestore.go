package repository

import (
	"context"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/r-fujimoto/grind/pkg/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collectionContexts = "contexts"
	collectionQuizzes  = "quizzes"
)

// Client implements Repository on Firestore. Context records live in the
// "contexts" collection with a vector index on the embedding field; quizzes
// live in "quizzes" with the date key as document ID.
type Client struct {
	client *firestore.Client
	now    func() time.Time
}

// New creates a Firestore-backed repository.
func New(ctx context.Context, projectID, databaseID string) (*Client, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID), goerr.V("database", databaseID))
	}
	return &Client{client: client, now: time.Now}, nil
}

// Close releases the underlying Firestore client.
func (r *Client) Close() error {
	return r.client.Close()
}

func (r *Client) Search(ctx context.Context, vector []float32, category model.Category, limit int) ([]*model.ContextRecord, error) {
	query := r.client.Collection(collectionContexts).
		Where("category", "==", string(category)).
		FindNearest("embedding", firestore.Vector32(vector), limit, firestore.DistanceMeasureCosine, nil)

	return r.collectContexts(ctx, query.Documents(ctx))
}

func (r *Client) Any(ctx context.Context, category model.Category, limit int) ([]*model.ContextRecord, error) {
	query := r.client.Collection(collectionContexts).
		Where("category", "==", string(category)).
		Limit(limit)

	return r.collectContexts(ctx, query.Documents(ctx))
}

func (r *Client) collectContexts(ctx context.Context, iter *firestore.DocumentIterator) ([]*model.ContextRecord, error) {
	defer iter.Stop()

	var records []*model.ContextRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate context records", goerr.T(model.TagStoreUnavailable))
		}

		var rec model.ContextRecord
		if err := doc.DataTo(&rec); err != nil {
			return nil, goerr.Wrap(err, "failed to decode context record",
				goerr.V("doc", doc.Ref.ID), goerr.T(model.TagStoreUnavailable))
		}
		if rec.ID == "" {
			rec.ID = doc.Ref.ID
		}
		records = append(records, &rec)
	}
	return records, nil
}

func (r *Client) Get(ctx context.Context, date model.DateKey) (*model.QuizRecord, error) {
	doc, err := r.client.Collection(collectionQuizzes).Doc(string(date)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrQuizNotFound, "no quiz for date", goerr.V("dateKey", date))
		}
		return nil, goerr.Wrap(err, "failed to get quiz", goerr.V("dateKey", date), goerr.T(model.TagCacheUnavailable))
	}

	var stored quizDoc
	if err := doc.DataTo(&stored); err != nil {
		return nil, goerr.Wrap(err, "failed to decode quiz", goerr.V("dateKey", date), goerr.T(model.TagCacheUnavailable))
	}

	quiz := stored.toRecord()
	if quiz.Expired(r.now()) {
		return nil, goerr.Wrap(model.ErrQuizNotFound, "quiz expired", goerr.V("dateKey", date))
	}
	return quiz, nil
}

func (r *Client) Put(ctx context.Context, quiz *model.QuizRecord, ttl time.Duration) error {
	quiz.ExpiresAt = r.now().Add(ttl)

	doc := r.client.Collection(collectionQuizzes).Doc(string(quiz.DateKey))
	if _, err := doc.Set(ctx, newQuizDoc(quiz)); err != nil {
		return goerr.Wrap(err, "failed to put quiz", goerr.V("dateKey", quiz.DateKey), goerr.T(model.TagCacheUnavailable))
	}
	return nil
}

func (r *Client) Patch(ctx context.Context, date model.DateKey, patch model.QuizPatch, value any) error {
	if err := patch.Validate(); err != nil {
		return err
	}

	doc := r.client.Collection(collectionQuizzes).Doc(string(date))
	update := firestore.Update{FieldPath: patchFieldPath(patch), Value: value}
	if _, err := doc.Update(ctx, []firestore.Update{update}); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(model.ErrQuizNotFound, "no quiz for date", goerr.V("dateKey", date))
		}
		return goerr.Wrap(err, "failed to patch quiz",
			goerr.V("dateKey", date), goerr.V("patch", patch), goerr.T(model.TagCacheUnavailable))
	}
	return nil
}

func (r *Client) ListRecent(ctx context.Context, limitDays int) ([]*model.QuizRecord, error) {
	iter := r.client.Collection(collectionQuizzes).
		OrderBy(firestore.DocumentID, firestore.Desc).
		Limit(limitDays).
		Documents(ctx)
	defer iter.Stop()

	now := r.now()
	var quizzes []*model.QuizRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list quizzes", goerr.T(model.TagCacheUnavailable))
		}

		var stored quizDoc
		if err := doc.DataTo(&stored); err != nil {
			return nil, goerr.Wrap(err, "failed to decode quiz", goerr.V("doc", doc.Ref.ID), goerr.T(model.TagCacheUnavailable))
		}

		quiz := stored.toRecord()
		if quiz.Expired(now) {
			continue
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, nil
}

// patchFieldPath maps a structured patch onto the stored document layout.
func patchFieldPath(patch model.QuizPatch) firestore.FieldPath {
	switch patch.Kind {
	case model.PatchStarSegment:
		return firestore.FieldPath{"resume", "starQuestions", strconv.Itoa(patch.Question), "progress", string(patch.Step)}
	case model.PatchCodeResult:
		return firestore.FieldPath{"technical", "codingQuestions", strconv.Itoa(patch.Question), "progress"}
	case model.PatchSectionFeedback:
		return firestore.FieldPath{string(patch.Section), "feedback"}
	}
	return nil
}

// Firestore cannot address array elements in update field paths, so question
// lists are stored as maps keyed by their index ("0".."4"). quizDoc is the
// stored shape; conversion happens only at this boundary.
type quizDoc struct {
	DateKey   string            `firestore:"dateKey"`
	Leetcode  model.LeetcodeSection `firestore:"leetcode"`
	Resume    resumeDoc         `firestore:"resume"`
	Technical technicalDoc      `firestore:"technical"`
	CreatedAt time.Time         `firestore:"createdAt"`
	ExpiresAt time.Time         `firestore:"expiresAt"`
}

type resumeDoc struct {
	Context       string                        `firestore:"context"`
	MCQ           model.MCQ                     `firestore:"mcq"`
	OpenEnded     *model.OpenEnded              `firestore:"openEnded,omitempty"`
	Feedback      *model.AnswerFeedback         `firestore:"feedback,omitempty"`
	StarQuestions map[string]model.STARQuestion `firestore:"starQuestions"`
}

type technicalDoc struct {
	Context         string                          `firestore:"context"`
	MCQ             model.MCQ                       `firestore:"mcq"`
	OpenEnded       *model.OpenEnded                `firestore:"openEnded,omitempty"`
	Feedback        *model.AnswerFeedback           `firestore:"feedback,omitempty"`
	CodingQuestions map[string]model.CodingQuestion `firestore:"codingQuestions"`
}

func newQuizDoc(quiz *model.QuizRecord) *quizDoc {
	stars := make(map[string]model.STARQuestion, len(quiz.Resume.StarQuestions))
	for i, q := range quiz.Resume.StarQuestions {
		stars[strconv.Itoa(i)] = q
	}
	coding := make(map[string]model.CodingQuestion, len(quiz.Technical.CodingQuestions))
	for i, q := range quiz.Technical.CodingQuestions {
		coding[strconv.Itoa(i)] = q
	}

	return &quizDoc{
		DateKey:  string(quiz.DateKey),
		Leetcode: quiz.Leetcode,
		Resume: resumeDoc{
			Context:       quiz.Resume.Context,
			MCQ:           quiz.Resume.MCQ,
			OpenEnded:     quiz.Resume.OpenEnded,
			Feedback:      quiz.Resume.Feedback,
			StarQuestions: stars,
		},
		Technical: technicalDoc{
			Context:         quiz.Technical.Context,
			MCQ:             quiz.Technical.MCQ,
			OpenEnded:       quiz.Technical.OpenEnded,
			Feedback:        quiz.Technical.Feedback,
			CodingQuestions: coding,
		},
		CreatedAt: quiz.CreatedAt,
		ExpiresAt: quiz.ExpiresAt,
	}
}

func (d *quizDoc) toRecord() *model.QuizRecord {
	stars := make([]model.STARQuestion, len(d.Resume.StarQuestions))
	for key, q := range d.Resume.StarQuestions {
		if i, err := strconv.Atoi(key); err == nil && i >= 0 && i < len(stars) {
			stars[i] = q
		}
	}
	coding := make([]model.CodingQuestion, len(d.Technical.CodingQuestions))
	for key, q := range d.Technical.CodingQuestions {
		if i, err := strconv.Atoi(key); err == nil && i >= 0 && i < len(coding) {
			coding[i] = q
		}
	}

	return &model.QuizRecord{
		DateKey:  model.DateKey(d.DateKey),
		Leetcode: d.Leetcode,
		Resume: model.ResumeSection{
			Context:       d.Resume.Context,
			MCQ:           d.Resume.MCQ,
			OpenEnded:     d.Resume.OpenEnded,
			Feedback:      d.Resume.Feedback,
			StarQuestions: stars,
		},
		Technical: model.TechnicalSection{
			Context:         d.Technical.Context,
			MCQ:             d.Technical.MCQ,
			OpenEnded:       d.Technical.OpenEnded,
			Feedback:        d.Technical.Feedback,
			CodingQuestions: coding,
		},
		CreatedAt: d.CreatedAt,
		ExpiresAt: d.ExpiresAt,
	}
}
