package model

import (
	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
)

// Category classifies a context record by its source.
type Category string

const (
	CategoryLeetcode Category = "leetcode"
	CategoryResume   Category = "resume"
	CategoryNote     Category = "note"
)

// Categories lists all known categories in retrieval order.
var Categories = []Category{CategoryLeetcode, CategoryResume, CategoryNote}

// Validate checks if the category is valid
func (c Category) Validate() error {
	switch c {
	case CategoryLeetcode, CategoryResume, CategoryNote:
		return nil
	default:
		return goerr.New("invalid category", goerr.V("category", c))
	}
}

// ContextRecord is one retrievable unit of knowledge-base content: a note,
// resume excerpt, or solved-problem description. Records are written by an
// external ingestion job and are read-only here.
type ContextRecord struct {
	ID        string             `firestore:"id"`
	Category  Category           `firestore:"category"`
	Text      string             `firestore:"text"`
	Metadata  map[string]string  `firestore:"metadata,omitempty"`
	Embedding firestore.Vector32 `firestore:"embedding,omitempty"`
}
