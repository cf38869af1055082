//go:build integration

package mongostore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/hanpama/mongograph/internal/eventbus"
	"github.com/hanpama/mongograph/internal/events"
	"github.com/hanpama/mongograph/internal/mongotest"
	"github.com/hanpama/mongograph/internal/projection"
	"github.com/hanpama/mongograph/internal/store"
)

func TestCollectionRoundTrip(t *testing.T) {
	client := mongotest.Start(t)
	ctx := context.Background()
	users := client.Collection("users")

	birthday := time.Date(1990, 1, 2, 3, 4, 5, 0, time.UTC)
	id, err := users.InsertOne(ctx, store.Document{
		"_id":         "100000000000000000000000",
		"n":           "Name",
		"age":         20,
		"birthday":    birthday,
		"contacts":    map[string]any{"email": "mail", "phones": []any{"1", "2"}},
		"someDynamic": map[string]any{"a": 123, "b": []any{1, true, "ok"}, "d": nil},
	})
	require.NoError(t, err)
	require.Equal(t, "100000000000000000000000", id.Hex())

	doc, err := users.FindByID(ctx, id, projection.Of("n", "contacts.email"))
	require.NoError(t, err)
	require.Equal(t, store.Document{
		"_id":      id,
		"n":        "Name",
		"contacts": map[string]any{"email": "mail"},
	}, doc)

	doc, err = users.FindByID(ctx, id, projection.Full)
	require.NoError(t, err)
	require.Equal(t, birthday, doc["birthday"])
	require.Equal(t, map[string]any{"a": int32(123), "b": []any{int32(1), true, "ok"}, "d": nil}, doc["someDynamic"])

	_, err = users.FindByID(ctx, bson.NewObjectID(), projection.Full)
	require.ErrorIs(t, err, store.ErrNotFound)

	second, err := users.InsertOne(ctx, store.Document{"n": "Other", "age": 30})
	require.NoError(t, err)

	docs, err := users.Find(ctx, store.Query{Sort: []store.SortField{{Path: "age", Desc: true}}, Limit: 1}, projection.Of("n"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "Other", docs[0]["n"])

	docs, err = users.FindByIDs(ctx, []bson.ObjectID{id, second}, projection.Of("n"))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	n, err := users.Count(ctx, store.Filter{"_id": store.In{id, second}})
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	updated, err := users.UpdateByID(ctx, second, store.Document{"age": 31, "subDoc.field1": "x"}, projection.Full)
	require.NoError(t, err)
	require.EqualValues(t, 31, updated["age"])
	require.Equal(t, map[string]any{"field1": "x"}, updated["subDoc"])

	unchanged, err := users.UpdateByID(ctx, second, store.Document{"_id": id}, projection.Of("age"))
	require.NoError(t, err)
	require.Equal(t, store.Document{"_id": second, "age": updated["age"]}, unchanged)

	_, err = users.UpdateByID(ctx, bson.NewObjectID(), nil, projection.Full)
	require.ErrorIs(t, err, store.ErrNotFound)

	removed, err := users.DeleteByID(ctx, second)
	require.NoError(t, err)
	require.Equal(t, "Other", removed["n"])

	_, err = users.DeleteByID(ctx, second)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCommandEvents(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	var mu sync.Mutex
	var finished []events.MongoCommandFinish
	eventbus.Subscribe(func(_ context.Context, e events.MongoCommandFinish) {
		mu.Lock()
		finished = append(finished, e)
		mu.Unlock()
	})

	client := mongotest.Start(t)
	_, err := client.Collection("events").Count(context.Background(), nil)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	var aggregate *events.MongoCommandFinish
	for i := range finished {
		if finished[i].Command == "aggregate" {
			aggregate = &finished[i]
		}
	}
	require.NotNil(t, aggregate)
	require.Equal(t, "events", aggregate.Collection)
	require.Equal(t, "mongograph_test", aggregate.Database)
	require.NoError(t, aggregate.Err)
}
