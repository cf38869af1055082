package store

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ParseID parses a 24 character hex ObjectID.
func ParseID(s string) (bson.ObjectID, error) {
	id, err := bson.ObjectIDFromHex(s)
	if err != nil {
		return bson.NilObjectID, fmt.Errorf("%w %q", ErrInvalidID, s)
	}
	return id, nil
}

// IDOf converts an ObjectID or its hex form into an ObjectID.
func IDOf(v any) (bson.ObjectID, error) {
	switch id := v.(type) {
	case bson.ObjectID:
		return id, nil
	case string:
		return ParseID(id)
	}
	return bson.NilObjectID, fmt.Errorf("%w of type %T", ErrInvalidID, v)
}

// ParseIDs parses every element of values with IDOf.
func ParseIDs(values []any) ([]bson.ObjectID, error) {
	ids := make([]bson.ObjectID, len(values))
	for i, v := range values {
		id, err := IDOf(v)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}
