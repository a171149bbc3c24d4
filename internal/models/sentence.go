package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxSentenceLen is the maximum length of a sentence after trimming.
const MaxSentenceLen = 500

// DefaultCategory is used whenever a request omits the category or sends
// one outside the closed set.
const DefaultCategory = "other"

// Categories is the closed set of sentence categories.
var Categories = []string{"thoughts", "quotes", "stories", "jokes", "questions", "facts", "other"}

// Sentence is a single entry in the Mongo sentences collection.
//
// AuthorID is the immutable ownership key. Name is the author's display
// name captured at creation time; renaming the account later does not
// rewrite it.
type Sentence struct {
	ID        primitive.ObjectID `json:"id"         bson:"_id,omitempty"`
	Text      string             `json:"text"       bson:"text"`
	AuthorID  string             `json:"author_id"  bson:"author_id"`
	Name      string             `json:"name"       bson:"name"`
	Category  string             `json:"category"   bson:"category"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

// SentenceRequest is the JSON body for POST and PUT /api/sentences.
// Any author field a client might send is ignored; authorship comes from
// the session.
type SentenceRequest struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// ListQuery holds the recognized query parameters of GET /api/sentences.
type ListQuery struct {
	Category string
	Author   string
	Search   string
	SortBy   string
}

// NormalizeCategory lowercases v and maps anything outside the closed
// category set to DefaultCategory.
func NormalizeCategory(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, c := range Categories {
		if v == c {
			return c
		}
	}
	return DefaultCategory
}
