// Package memstore is an in-memory store.Collection with MongoDB-like
// filter, sort and projection semantics. It records the projection each
// operation was called with.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/hanpama/mongograph/internal/projection"
	"github.com/hanpama/mongograph/internal/store"
)

// Store is a set of in-memory collections.
type Store struct {
	mu          sync.Mutex
	collections map[string]*Collection
}

func New() *Store {
	return &Store{collections: make(map[string]*Collection)}
}

// Collection returns the named collection, creating it on first use.
func (s *Store) Collection(name string) store.Collection { return s.Get(name) }

// Get is Collection with the concrete type.
func (s *Store) Get(name string) *Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		c = NewCollection(name)
		s.collections[name] = c
	}
	return c
}

type Collection struct {
	name string

	mu          sync.RWMutex
	docs        []store.Document
	projections map[string]projection.Projection
	calls       map[string]int
}

var _ store.Collection = (*Collection)(nil)

func NewCollection(name string) *Collection {
	return &Collection{
		name:        name,
		projections: make(map[string]projection.Projection),
		calls:       make(map[string]int),
	}
}

func (c *Collection) Name() string { return c.name }

// LastProjection returns the projection of the latest call of op, where op
// is a Collection method name such as "FindByID".
func (c *Collection) LastProjection(op string) (projection.Projection, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.projections[op]
	return p, ok
}

// Calls returns how many times op was called.
func (c *Collection) Calls(op string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.calls[op]
}

// Len returns the number of stored documents.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

func (c *Collection) record(op string, proj *projection.Projection) {
	c.calls[op]++
	if proj != nil {
		c.projections[op] = *proj
	}
}

func (c *Collection) FindByID(ctx context.Context, id bson.ObjectID, proj projection.Projection) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("FindByID", &proj)
	if i := c.indexOf(id); i >= 0 {
		return project(c.docs[i], proj), nil
	}
	return nil, store.ErrNotFound
}

func (c *Collection) FindByIDs(ctx context.Context, ids []bson.ObjectID, proj projection.Projection) ([]store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("FindByIDs", &proj)
	want := make(map[bson.ObjectID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []store.Document
	for _, d := range c.docs {
		if id, ok := d[projection.IDPath].(bson.ObjectID); ok && want[id] {
			out = append(out, project(d, proj))
		}
	}
	return out, nil
}

func (c *Collection) FindOne(ctx context.Context, q store.Query, proj projection.Projection) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("FindOne", &proj)
	q.Limit = 1
	docs := c.query(q)
	if len(docs) == 0 {
		return nil, store.ErrNotFound
	}
	return project(docs[0], proj), nil
}

func (c *Collection) Find(ctx context.Context, q store.Query, proj projection.Projection) ([]store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("Find", &proj)
	docs := c.query(q)
	out := make([]store.Document, len(docs))
	for i, d := range docs {
		out[i] = project(d, proj)
	}
	return out, nil
}

func (c *Collection) Count(ctx context.Context, filter store.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("Count", nil)
	return int64(len(c.query(store.Query{Filter: filter}))), nil
}

func (c *Collection) InsertOne(ctx context.Context, doc store.Document) (bson.ObjectID, error) {
	if err := ctx.Err(); err != nil {
		return bson.NilObjectID, err
	}
	d := store.Normalize(doc).(map[string]any)
	var id bson.ObjectID
	switch v := d[projection.IDPath].(type) {
	case nil:
		id = bson.NewObjectID()
	case bson.ObjectID:
		id = v
	case string:
		parsed, err := store.ParseID(v)
		if err != nil {
			return bson.NilObjectID, err
		}
		id = parsed
	default:
		return bson.NilObjectID, fmt.Errorf("%w of type %T", store.ErrInvalidID, v)
	}
	d[projection.IDPath] = id

	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("InsertOne", nil)
	if c.indexOf(id) >= 0 {
		return bson.NilObjectID, fmt.Errorf("duplicate key: %s already exists in %s", id.Hex(), c.name)
	}
	c.docs = append(c.docs, d)
	return id, nil
}

func (c *Collection) UpdateByID(ctx context.Context, id bson.ObjectID, set store.Document, proj projection.Projection) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("UpdateByID", &proj)
	i := c.indexOf(id)
	if i < 0 {
		return nil, store.ErrNotFound
	}
	for path, v := range set {
		if path == projection.IDPath {
			continue
		}
		setPath(c.docs[i], path, store.Normalize(v))
	}
	return project(c.docs[i], proj), nil
}

func (c *Collection) DeleteByID(ctx context.Context, id bson.ObjectID) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("DeleteByID", nil)
	i := c.indexOf(id)
	if i < 0 {
		return nil, store.ErrNotFound
	}
	d := c.docs[i]
	c.docs = append(c.docs[:i], c.docs[i+1:]...)
	return d, nil
}

func (c *Collection) indexOf(id bson.ObjectID) int {
	for i, d := range c.docs {
		if d[projection.IDPath] == id {
			return i
		}
	}
	return -1
}

// query returns matching documents without copying them.
func (c *Collection) query(q store.Query) []store.Document {
	var out []store.Document
	for _, d := range c.docs {
		if matches(d, q.Filter) {
			out = append(out, d)
		}
	}
	if len(q.Sort) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, s := range q.Sort {
				a, _ := store.Lookup(out[i], s.Path)
				b, _ := store.Lookup(out[j], s.Path)
				if cmp := compare(a, b); cmp != 0 {
					return (cmp < 0) != s.Desc
				}
			}
			return false
		})
	}
	if q.Skip > 0 {
		if q.Skip >= int64(len(out)) {
			return nil
		}
		out = out[q.Skip:]
	}
	if q.Limit > 0 && q.Limit < int64(len(out)) {
		out = out[:q.Limit]
	}
	return out
}

func setPath(doc map[string]any, path string, v any) {
	segs := strings.Split(path, ".")
	cur := doc
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[seg] = next
		}
		cur = next
	}
	cur[segs[len(segs)-1]] = v
}
