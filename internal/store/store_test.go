package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestNormalize(t *testing.T) {
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	id := bson.NewObjectID()
	in := bson.D{
		{Key: "_id", Value: id},
		{Key: "sub", Value: bson.D{{Key: "a", Value: int32(1)}}},
		{Key: "list", Value: bson.A{"x", bson.M{"b": true}}},
		{Key: "at", Value: bson.NewDateTimeFromTime(when)},
	}

	got := NormalizeDocument(in)
	require.Equal(t, Document{
		"_id":  id,
		"sub":  map[string]any{"a": int32(1)},
		"list": []any{"x", map[string]any{"b": true}},
		"at":   when,
	}, got)
}

func TestJSONValue(t *testing.T) {
	id, err := ParseID("100000000000000000000000")
	require.NoError(t, err)
	dec, err := bson.ParseDecimal128("12.50")
	require.NoError(t, err)

	got := JSONValue(map[string]any{
		"id":    id,
		"at":    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		"money": dec,
		"deep":  []any{map[string]any{"x": nil}},
	})
	require.Equal(t, map[string]any{
		"id":    "100000000000000000000000",
		"at":    "2024-05-01T12:00:00Z",
		"money": "12.50",
		"deep":  []any{map[string]any{"x": nil}},
	}, got)
}

func TestIDs(t *testing.T) {
	_, err := ParseID("zzz")
	require.ErrorIs(t, err, ErrInvalidID)

	id := bson.NewObjectID()
	got, err := IDOf(id.Hex())
	require.NoError(t, err)
	require.Equal(t, id, got)

	_, err = IDOf(42)
	require.ErrorIs(t, err, ErrInvalidID)

	ids, err := ParseIDs([]any{id, id.Hex()})
	require.NoError(t, err)
	require.Equal(t, []bson.ObjectID{id, id}, ids)
}

func TestLookup(t *testing.T) {
	doc := Document{"a": map[string]any{"b": map[string]any{"c": 1}}, "n": nil}
	v, ok := Lookup(doc, "a.b.c")
	require.True(t, ok)
	require.Equal(t, 1, v)

	_, ok = Lookup(doc, "a.x")
	require.False(t, ok)

	v, ok = Lookup(doc, "n")
	require.True(t, ok)
	require.Nil(t, v)
}
