// Package mongostore implements store.Collection on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/hanpama/mongograph/internal/projection"
	"github.com/hanpama/mongograph/internal/store"
)

// Config holds the connection settings.
type Config struct {
	URI      string
	Database string
	// Timeout bounds every operation; zero leaves the driver default.
	Timeout time.Duration
}

// Client is a connected database handle.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ store.Source = (*Client)(nil)

// Connect dials MongoDB and verifies the connection with a ping. Driver
// commands are published as events.MongoCommandStart/Finish.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongodb uri is required")
	}
	if cfg.Database == "" {
		return nil, errors.New("mongodb database is required")
	}
	opts := options.Client().ApplyURI(cfg.URI).SetMonitor(newCommandMonitor())
	if cfg.Timeout > 0 {
		opts.SetTimeout(cfg.Timeout)
	}
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return &Client{client: client, db: client.Database(cfg.Database)}, nil
}

func (c *Client) Collection(name string) store.Collection {
	return &Collection{coll: c.db.Collection(name)}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

func (c *Client) Disconnect(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// Drop removes the database. Used to reset test fixtures.
func (c *Client) Drop(ctx context.Context) error {
	return c.db.Drop(ctx)
}

type Collection struct {
	coll *mongo.Collection
}

var _ store.Collection = (*Collection)(nil)

func (c *Collection) Name() string { return c.coll.Name() }

func (c *Collection) FindByID(ctx context.Context, id bson.ObjectID, proj projection.Projection) (store.Document, error) {
	return c.findOne(ctx, bson.D{{Key: projection.IDPath, Value: id}}, nil, proj)
}

func (c *Collection) FindByIDs(ctx context.Context, ids []bson.ObjectID, proj projection.Projection) ([]store.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	filter := bson.D{{Key: projection.IDPath, Value: bson.D{{Key: "$in", Value: ids}}}}
	opts := options.Find()
	if !proj.All {
		opts.SetProjection(proj.BSON())
	}
	return c.find(ctx, filter, opts)
}

func (c *Collection) FindOne(ctx context.Context, q store.Query, proj projection.Projection) (store.Document, error) {
	return c.findOne(ctx, filterDoc(q.Filter), &q, proj)
}

func (c *Collection) findOne(ctx context.Context, filter bson.D, q *store.Query, proj projection.Projection) (store.Document, error) {
	opts := options.FindOne()
	if !proj.All {
		opts.SetProjection(proj.BSON())
	}
	if q != nil {
		if len(q.Sort) > 0 {
			opts.SetSort(sortDoc(q.Sort))
		}
		if q.Skip > 0 {
			opts.SetSkip(q.Skip)
		}
	}
	var raw bson.D
	if err := c.coll.FindOne(ctx, filter, opts).Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return store.NormalizeDocument(raw), nil
}

func (c *Collection) Find(ctx context.Context, q store.Query, proj projection.Projection) ([]store.Document, error) {
	opts := options.Find()
	if !proj.All {
		opts.SetProjection(proj.BSON())
	}
	if len(q.Sort) > 0 {
		opts.SetSort(sortDoc(q.Sort))
	}
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	return c.find(ctx, filterDoc(q.Filter), opts)
}

func (c *Collection) find(ctx context.Context, filter bson.D, opts *options.FindOptionsBuilder) ([]store.Document, error) {
	cur, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var raws []bson.D
	if err := cur.All(ctx, &raws); err != nil {
		return nil, err
	}
	docs := make([]store.Document, len(raws))
	for i, raw := range raws {
		docs[i] = store.NormalizeDocument(raw)
	}
	return docs, nil
}

func (c *Collection) Count(ctx context.Context, filter store.Filter) (int64, error) {
	return c.coll.CountDocuments(ctx, filterDoc(filter))
}

func (c *Collection) InsertOne(ctx context.Context, doc store.Document) (bson.ObjectID, error) {
	d := make(bson.M, len(doc)+1)
	for k, v := range doc {
		d[k] = v
	}
	switch v := d[projection.IDPath].(type) {
	case nil:
		d[projection.IDPath] = bson.NewObjectID()
	case string:
		id, err := store.ParseID(v)
		if err != nil {
			return bson.NilObjectID, err
		}
		d[projection.IDPath] = id
	}
	res, err := c.coll.InsertOne(ctx, d)
	if err != nil {
		return bson.NilObjectID, err
	}
	id, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return bson.NilObjectID, fmt.Errorf("%w of type %T", store.ErrInvalidID, res.InsertedID)
	}
	return id, nil
}

// UpdateByID applies set with $set. An empty set leaves the document as is
// and returns it.
func (c *Collection) UpdateByID(ctx context.Context, id bson.ObjectID, set store.Document, proj projection.Projection) (store.Document, error) {
	update := updateDoc(set)
	if update == nil {
		return c.FindByID(ctx, id, proj)
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if p := proj.BSON(); p != nil {
		opts.SetProjection(p)
	}
	var raw bson.D
	err := c.coll.FindOneAndUpdate(ctx, bson.D{{Key: projection.IDPath, Value: id}}, update, opts).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return store.NormalizeDocument(raw), nil
}

func (c *Collection) DeleteByID(ctx context.Context, id bson.ObjectID) (store.Document, error) {
	var raw bson.D
	err := c.coll.FindOneAndDelete(ctx, bson.D{{Key: projection.IDPath, Value: id}}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return store.NormalizeDocument(raw), nil
}

// updateDoc renders set as a $set update, or nil when there is nothing to
// set. The id is immutable and never part of it.
func updateDoc(set store.Document) bson.D {
	keys := make([]string, 0, len(set))
	for k := range set {
		if k != projection.IDPath {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)
	fields := make(bson.D, len(keys))
	for i, k := range keys {
		fields[i] = bson.E{Key: k, Value: set[k]}
	}
	return bson.D{{Key: "$set", Value: fields}}
}

// filterDoc renders a store.Filter with keys in sorted order.
func filterDoc(f store.Filter) bson.D {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(bson.D, 0, len(keys))
	for _, k := range keys {
		v := f[k]
		if in, ok := v.(store.In); ok {
			v = bson.D{{Key: "$in", Value: bson.A(in)}}
		}
		out = append(out, bson.E{Key: k, Value: v})
	}
	return out
}

func sortDoc(fields []store.SortField) bson.D {
	out := make(bson.D, len(fields))
	for i, f := range fields {
		dir := 1
		if f.Desc {
			dir = -1
		}
		out[i] = bson.E{Key: f.Path, Value: dir}
	}
	return out
}
