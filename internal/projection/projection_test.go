package projection

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/hanpama/mongograph/internal/executor"
	"github.com/hanpama/mongograph/internal/language"
	"github.com/hanpama/mongograph/internal/schema"
)

const testSDL = `
scalar MongoID
scalar JSON

type Query { user: User }

type User {
  _id: MongoID!
  name: String
  age: Float
  fullName: String
  subDoc: UserSubDoc
  rawData: JSON
}

type UserSubDoc {
  field1: String
  field2: UserSubDocField2
}

type UserSubDocField2 { field21: String }
`

var testHints = HintMap{
	"User.name":         {StorageKey: "n"},
	"User.fullName":     {Computed: true, Requires: []string{"n", "age"}},
	"User.subDoc":       {Nested: true},
	"User.rawData":      {Computed: true, Requires: []string{"*"}},
	"UserSubDoc.field2": {Nested: true},
}

func project(t *testing.T, query string, vars map[string]any) Projection {
	t.Helper()
	sch, err := schema.BuildFromSDL(testSDL)
	require.NoError(t, err)
	doc, err := language.ParseQuery(query)
	require.NoError(t, err)
	info := &executor.ResolveInfo{
		Fields:    []*language.Field{doc.Operations[0].SelectionSet[0].(*language.Field)},
		Fragments: doc.Fragments,
		Variables: vars,
	}
	return FromSelection(sch, info, "User", testHints)
}

func TestFromSelection(t *testing.T) {
	tests := []struct {
		name  string
		query string
		vars  map[string]any
		want  Projection
	}{
		{
			name:  "alias maps to storage key",
			query: `{ user { name } }`,
			want:  Projection{Paths: []string{"_id", "n"}},
		},
		{
			name:  "nested leaves",
			query: `{ user { subDoc { field1 field2 { field21 } } } }`,
			want:  Projection{Paths: []string{"_id", "subDoc.field1", "subDoc.field2.field21"}},
		},
		{
			name:  "typename only selects the object",
			query: `{ user { __typename subDoc { __typename } age } }`,
			want:  Projection{Paths: []string{"_id", "age", "subDoc"}},
		},
		{
			name:  "shorter prefix covers deeper paths",
			query: `{ user { subDoc { field1 } ...G } } fragment G on User { subDoc { __typename } }`,
			want:  Projection{Paths: []string{"_id", "subDoc"}},
		},
		{
			name:  "computed field requires",
			query: `{ user { fullName } }`,
			want:  Projection{Paths: []string{"_id", "age", "n"}},
		},
		{
			name:  "star loads everything",
			query: `{ user { name rawData } }`,
			want:  Full,
		},
		{
			name:  "fragments and directives",
			query: `query($s: Boolean!) { user { ...F name @skip(if: $s) ... on User { _id } } } fragment F on User { age }`,
			vars:  map[string]any{"s": true},
			want:  Projection{Paths: []string{"_id", "age"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := project(t, tt.query, tt.vars)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("projection mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestProjectionBSON(t *testing.T) {
	require.Nil(t, Full.BSON())
	require.Equal(t, bson.D{{Key: "_id", Value: 1}}, Projection{}.BSON())
	require.Equal(t,
		bson.D{{Key: "_id", Value: 1}, {Key: "n", Value: 1}, {Key: "subDoc.field1", Value: 1}},
		Of("subDoc.field1", "n").BSON(),
	)
}

func TestProjectionMerge(t *testing.T) {
	a := Of("n", "subDoc.field1")
	b := Of("age", "subDoc")
	require.Equal(t, []string{"_id", "age", "n", "subDoc"}, a.Merge(b).Paths)
	require.True(t, a.Merge(Full).All)
	require.Equal(t, "*", Full.String())
	require.Equal(t, "_id,n,subDoc.field1", a.String())
}

func TestProjectionIncludes(t *testing.T) {
	p := Of("subDoc", "n")
	require.True(t, p.Includes("subDoc.field2.field21"))
	require.True(t, p.Includes("_id"))
	require.False(t, p.Includes("age"))
	require.False(t, p.Includes("subDocX"))
	require.True(t, Full.Includes("anything"))
}

func TestSubSelection(t *testing.T) {
	doc, err := language.ParseQuery(`{ createUser { recordId record { name } } }`)
	require.NoError(t, err)
	root := doc.Operations[0].SelectionSet[0].(*language.Field)

	got := SubSelection([]*language.Field{root}, "record")
	require.Len(t, got, 1)
	require.Equal(t, "record", got[0].Name)
	require.Empty(t, SubSelection([]*language.Field{root}, "missing"))
}
