package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/hanpama/mongograph/internal/projection"
	"github.com/hanpama/mongograph/internal/store"
)

func seed(t *testing.T) (*Collection, []bson.ObjectID) {
	t.Helper()
	c := NewCollection("users")
	ctx := context.Background()
	var ids []bson.ObjectID
	for _, d := range []store.Document{
		{"n": "Ann", "age": 30, "skills": []any{"go", "sql"}, "contacts": map[string]any{"email": "ann@x", "phones": []any{"1"}}},
		{"n": "Bob", "age": 20.0, "skills": []any{"js"}, "languages": []any{map[string]any{"ln": "en", "sk": "native"}, map[string]any{"ln": "fr", "sk": "basic"}}},
		{"n": "Cid", "age": int64(40), "relocation": true},
	} {
		id, err := c.InsertOne(ctx, d)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return c, ids
}

func TestFindByIDProjection(t *testing.T) {
	c, ids := seed(t)
	ctx := context.Background()

	doc, err := c.FindByID(ctx, ids[0], projection.Of("n", "contacts.email"))
	require.NoError(t, err)
	require.Equal(t, store.Document{
		"_id":      ids[0],
		"n":        "Ann",
		"contacts": map[string]any{"email": "ann@x"},
	}, doc)

	got, ok := c.LastProjection("FindByID")
	require.True(t, ok)
	require.Equal(t, []string{"_id", "contacts.email", "n"}, got.Paths)

	_, err = c.FindByID(ctx, bson.NewObjectID(), projection.Full)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestProjectionIntoArrays(t *testing.T) {
	c, ids := seed(t)

	doc, err := c.FindByID(context.Background(), ids[1], projection.Of("languages.ln"))
	require.NoError(t, err)
	require.Equal(t, []any{map[string]any{"ln": "en"}, map[string]any{"ln": "fr"}}, doc["languages"])
}

func TestFindFilterSortPage(t *testing.T) {
	c, ids := seed(t)
	ctx := context.Background()

	docs, err := c.Find(ctx, store.Query{Sort: []store.SortField{{Path: "age", Desc: true}}}, projection.Of("n"))
	require.NoError(t, err)
	require.Equal(t, []any{"Cid", "Ann", "Bob"}, names(docs))

	docs, err = c.Find(ctx, store.Query{Sort: []store.SortField{{Path: "age"}}, Skip: 1, Limit: 1}, projection.Of("n"))
	require.NoError(t, err)
	require.Equal(t, []any{"Ann"}, names(docs))

	docs, err = c.Find(ctx, store.Query{Filter: store.Filter{"skills": "js"}}, projection.Of("n"))
	require.NoError(t, err)
	require.Equal(t, []any{"Bob"}, names(docs))

	docs, err = c.Find(ctx, store.Query{Filter: store.Filter{"_id": store.In{ids[0], ids[2]}}}, projection.Of("n"))
	require.NoError(t, err)
	require.Equal(t, []any{"Ann", "Cid"}, names(docs))

	docs, err = c.Find(ctx, store.Query{Filter: store.Filter{"age": 20}}, projection.Of("n"))
	require.NoError(t, err)
	require.Equal(t, []any{"Bob"}, names(docs))

	n, err := c.Count(ctx, store.Filter{"relocation": true})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	doc, err := c.FindOne(ctx, store.Query{Filter: store.Filter{"contacts.email": "ann@x"}}, projection.Full)
	require.NoError(t, err)
	require.Equal(t, "Ann", doc["n"])

	_, err = c.FindOne(ctx, store.Query{Filter: store.Filter{"n": "Zed"}}, projection.Full)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestFindByIDs(t *testing.T) {
	c, ids := seed(t)

	docs, err := c.FindByIDs(context.Background(), []bson.ObjectID{ids[2], bson.NewObjectID(), ids[0]}, projection.Of("n"))
	require.NoError(t, err)
	require.Equal(t, []any{"Ann", "Cid"}, names(docs))
	require.Equal(t, 1, c.Calls("FindByIDs"))
}

func TestWrites(t *testing.T) {
	c, ids := seed(t)
	ctx := context.Background()

	updated, err := c.UpdateByID(ctx, ids[0], store.Document{"age": 31, "subDoc.field1": "x"}, projection.Full)
	require.NoError(t, err)
	require.Equal(t, 31, updated["age"])
	require.Equal(t, map[string]any{"field1": "x"}, updated["subDoc"])

	_, err = c.UpdateByID(ctx, bson.NewObjectID(), store.Document{"age": 1}, projection.Full)
	require.ErrorIs(t, err, store.ErrNotFound)

	removed, err := c.DeleteByID(ctx, ids[1])
	require.NoError(t, err)
	require.Equal(t, "Bob", removed["n"])
	require.Equal(t, 2, c.Len())

	_, err = c.InsertOne(ctx, store.Document{"_id": ids[0]})
	require.ErrorContains(t, err, "duplicate key")

	id, err := c.InsertOne(ctx, store.Document{"_id": "100000000000000000000000", "n": "Dan"})
	require.NoError(t, err)
	require.Equal(t, "100000000000000000000000", id.Hex())

	_, err = c.InsertOne(ctx, store.Document{"_id": "nope"})
	require.ErrorIs(t, err, store.ErrInvalidID)
}

func TestReturnedDocumentsAreCopies(t *testing.T) {
	c, ids := seed(t)
	ctx := context.Background()

	doc, err := c.FindByID(ctx, ids[0], projection.Full)
	require.NoError(t, err)
	doc["contacts"].(map[string]any)["email"] = "changed"

	again, err := c.FindByID(ctx, ids[0], projection.Of("contacts"))
	require.NoError(t, err)
	require.Equal(t, "ann@x", again["contacts"].(map[string]any)["email"])
}

func TestStoreReusesCollections(t *testing.T) {
	s := New()
	require.Same(t, s.Get("users"), s.Get("users"))
	require.Equal(t, "users", s.Collection("users").Name())
}

func names(docs []store.Document) []any {
	out := make([]any, len(docs))
	for i, d := range docs {
		out[i] = d["n"]
	}
	return out
}
