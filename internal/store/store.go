// Package store defines the document store the composed resolvers read from
// and write to.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/hanpama/mongograph/internal/projection"
)

var (
	// ErrNotFound is returned when no document matches.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidID is returned for malformed document ids.
	ErrInvalidID = errors.New("invalid document id")
)

// Document is a stored record. Nested documents are map[string]any and
// arrays are []any; see Normalize.
type Document = map[string]any

// Filter matches documents whose dotted storage paths equal the given
// values. An In value matches any of its members.
type Filter map[string]any

// In matches a path against a set of values.
type In []any

// SortField orders query results by a storage path.
type SortField struct {
	Path string
	Desc bool
}

// Query selects a page of documents.
type Query struct {
	Filter Filter
	Sort   []SortField
	Skip   int64
	// Limit of zero means no limit.
	Limit int64
}

// Collection is one collection of documents.
type Collection interface {
	Name() string
	FindByID(ctx context.Context, id bson.ObjectID, proj projection.Projection) (Document, error)
	// FindByIDs returns the matching documents in no particular order;
	// missing ids are skipped.
	FindByIDs(ctx context.Context, ids []bson.ObjectID, proj projection.Projection) ([]Document, error)
	FindOne(ctx context.Context, q Query, proj projection.Projection) (Document, error)
	Find(ctx context.Context, q Query, proj projection.Projection) ([]Document, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	// InsertOne stores doc, assigning an _id when it has none.
	InsertOne(ctx context.Context, doc Document) (bson.ObjectID, error)
	// UpdateByID sets the given dotted paths and returns the updated document.
	UpdateByID(ctx context.Context, id bson.ObjectID, set Document, proj projection.Projection) (Document, error)
	// DeleteByID removes a document and returns it.
	DeleteByID(ctx context.Context, id bson.ObjectID) (Document, error)
}

// Source resolves collections by name.
type Source interface {
	Collection(name string) Collection
}
