package mongostore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/hanpama/mongograph/internal/store"
)

func TestFilterDoc(t *testing.T) {
	id := bson.NewObjectID()
	got := filterDoc(store.Filter{
		"n":   "Ann",
		"_id": store.In{id},
		"age": 20.0,
	})
	require.Equal(t, bson.D{
		{Key: "_id", Value: bson.D{{Key: "$in", Value: bson.A{id}}}},
		{Key: "age", Value: 20.0},
		{Key: "n", Value: "Ann"},
	}, got)
	require.Empty(t, filterDoc(nil))
}

func TestSortDoc(t *testing.T) {
	got := sortDoc([]store.SortField{{Path: "age", Desc: true}, {Path: "_id"}})
	require.Equal(t, bson.D{{Key: "age", Value: -1}, {Key: "_id", Value: 1}}, got)
}

func TestUpdateDoc(t *testing.T) {
	got := updateDoc(store.Document{"n": "Ann", "_id": bson.NewObjectID(), "subDoc.field1": "x"})
	require.Equal(t, bson.D{{Key: "$set", Value: bson.D{
		{Key: "n", Value: "Ann"},
		{Key: "subDoc.field1", Value: "x"},
	}}}, got)

	require.Nil(t, updateDoc(nil))
	require.Nil(t, updateDoc(store.Document{"_id": bson.NewObjectID()}))
}

func TestConnectRequiresSettings(t *testing.T) {
	_, err := Connect(context.Background(), Config{})
	require.EqualError(t, err, "mongodb uri is required")

	_, err = Connect(context.Background(), Config{URI: "mongodb://localhost"})
	require.EqualError(t, err, "mongodb database is required")
}
