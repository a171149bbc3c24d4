package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dsemenov/sentence-board/internal/models"
)

// ErrInvalidID marks a sentence id that is not a valid ObjectID hex string.
var ErrInvalidID = errors.New("invalid sentence id")

// MongoStore handles sentence CRUD in MongoDB.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("sentences")}
}

func (s *MongoStore) Insert(ctx context.Context, sen *models.Sentence) (*models.Sentence, error) {
	sen.CreatedAt = time.Now()
	res, err := s.col.InsertOne(ctx, sen)
	if err != nil {
		return nil, fmt.Errorf("mongo insert: %w", err)
	}
	sen.ID = res.InsertedID.(primitive.ObjectID)
	return sen, nil
}

// List returns the sentences matching q, sorted per q.SortBy.
func (s *MongoStore) List(ctx context.Context, q models.ListQuery) ([]models.Sentence, error) {
	opts := options.Find().SetSort(buildListSort(q.SortBy))
	cur, err := s.col.Find(ctx, buildListFilter(q), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Sentence
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) GetByID(ctx context.Context, id string) (*models.Sentence, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	var sen models.Sentence
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&sen); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sen, nil
}

// Update replaces text and category in place; id, created_at, author_id
// and name are preserved.
func (s *MongoStore) Update(ctx context.Context, id primitive.ObjectID, text, category string) error {
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"text": text, "category": category}})
	if err != nil {
		return fmt.Errorf("mongo update: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongo delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DistinctAuthors returns every distinct display author, alphabetically.
func (s *MongoStore) DistinctAuthors(ctx context.Context) ([]string, error) {
	vals, err := s.col.Distinct(ctx, "name", bson.M{})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(vals))
	for _, v := range vals {
		if name, ok := v.(string); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *MongoStore) ListByAuthor(ctx context.Context, name string) ([]models.Sentence, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.col.Find(ctx, bson.M{"name": name}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Sentence
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// buildListFilter AND-s the equality filters with, when a search term is
// present, an OR of case-insensitive substring matches on text and name.
// "all" is the UI's sentinel for no filter.
func buildListFilter(q models.ListQuery) bson.M {
	filter := bson.M{}
	if q.Category != "" && q.Category != "all" {
		filter["category"] = q.Category
	}
	if q.Author != "" && q.Author != "all" {
		filter["name"] = q.Author
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"text": re},
			bson.M{"name": re},
		}
	}
	return filter
}

func buildListSort(sortBy string) bson.D {
	switch sortBy {
	case "oldest":
		return bson.D{{Key: "created_at", Value: 1}}
	case "name":
		return bson.D{{Key: "name", Value: 1}, {Key: "created_at", Value: -1}}
	default: // newest first
		return bson.D{{Key: "created_at", Value: -1}}
	}
}
