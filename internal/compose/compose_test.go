package compose

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/hanpama/mongograph/internal/executor"
	"github.com/hanpama/mongograph/internal/projection"
)

// newUserComposer registers a User type stored under short keys with an
// inline subDoc, and a Query.user field returning doc.
func newUserComposer(doc map[string]any) (*SchemaComposer, *ObjectComposer) {
	sc := New()
	sc.Object("UserSubDocField2").AddFields(&FieldConfig{Name: "field21", Type: "String"})
	sc.Object("UserSubDoc").AddFields(
		&FieldConfig{Name: "field1", Type: "String"},
		&FieldConfig{Name: "field2", Type: "UserSubDocField2", Nested: true},
	)
	user := sc.Object("User").AddFields(
		&FieldConfig{Name: "_id", Type: "MongoID!"},
		&FieldConfig{Name: "name", Type: "String", StorageKey: "n"},
		&FieldConfig{Name: "subDoc", Type: "UserSubDoc", Nested: true},
		&FieldConfig{Name: "tags", Type: "[String]"},
	)
	sc.Query().AddFields(&FieldConfig{
		Name: "user",
		Type: "User",
		Resolve: func(context.Context, any, map[string]any) (any, error) {
			return doc, nil
		},
	})
	return sc, user
}

func execute(t *testing.T, sc *SchemaComposer, query string, vars map[string]any) *executor.ExecutionResult {
	t.Helper()
	exe, err := sc.BuildSchema()
	require.NoError(t, err)
	return exe.Execute(context.Background(), query, "", vars)
}

func TestBuildSchemaErrors(t *testing.T) {
	t.Run("empty query", func(t *testing.T) {
		_, err := New().BuildSchema()
		require.EqualError(t, err, "type Query must define at least one field")
	})

	t.Run("unknown type", func(t *testing.T) {
		sc := New()
		sc.Query().AddFields(&FieldConfig{Name: "x", Type: "[Missing!]"})
		_, err := sc.BuildSchema()
		require.ErrorContains(t, err, `unknown type "Missing" referenced by Query.x`)
	})

	t.Run("input in output position", func(t *testing.T) {
		sc := New()
		sc.Input("In").AddFields(&InputFieldConfig{Name: "a", Type: "String"})
		sc.Query().AddFields(&FieldConfig{Name: "x", Type: "In"})
		_, err := sc.BuildSchema()
		require.ErrorContains(t, err, "input type In cannot be used as an output type")
	})

	t.Run("object in input position", func(t *testing.T) {
		sc := New()
		sc.Object("Obj").AddFields(&FieldConfig{Name: "a", Type: "String"})
		sc.Query().AddFields(&FieldConfig{Name: "x", Type: "Obj", Args: []*Arg{{Name: "in", Type: "Obj"}}})
		_, err := sc.BuildSchema()
		require.ErrorContains(t, err, "Query.x(in): Obj is not an input type")
	})

	t.Run("malformed type", func(t *testing.T) {
		sc := New()
		sc.Query().AddFields(&FieldConfig{Name: "x", Type: "[String"})
		_, err := sc.BuildSchema()
		require.ErrorContains(t, err, "Query.x: invalid type reference")
	})
}

func TestSchemaComposerRegistry(t *testing.T) {
	sc := New()
	require.True(t, sc.Has("JSON"))
	require.True(t, sc.Has("MongoID"))

	obj := sc.Object("User")
	require.Same(t, obj, sc.Object("User"))
	require.Error(t, sc.Add(NewObject("User")))
	require.NoError(t, sc.Add(obj))
	require.Error(t, sc.Add(NewObject("String")))
	require.Panics(t, func() { sc.Enum("User") })

	sc.Clear()
	require.False(t, sc.Has("User"))
	require.True(t, sc.Has("Date"))
	require.Empty(t, sc.Query().FieldNames())
}

func TestObjectComposerFields(t *testing.T) {
	tc := NewObject("User").AddFields(
		&FieldConfig{Name: "a", Type: "String"},
		&FieldConfig{Name: "b", Type: "Int"},
		&FieldConfig{Name: "c", Type: "Float"},
	)
	tc.AddFields(&FieldConfig{Name: "b", Type: "String"})
	require.Equal(t, []string{"a", "b", "c"}, tc.FieldNames())
	require.Equal(t, "String", tc.Field("b").Type)

	original := tc.Field("a")
	require.NoError(t, tc.ExtendField("a", func(f *FieldConfig) {
		f.Name = "ignored"
		f.Description = "extended"
	}))
	require.Equal(t, "extended", tc.Field("a").Description)
	require.Empty(t, original.Description)
	require.Error(t, tc.ExtendField("missing", func(*FieldConfig) {}))

	tc.RemoveField("a", "c")
	require.Equal(t, []string{"b"}, tc.FieldNames())
	require.False(t, tc.HasField("a"))

	r := &Resolver{Name: "findOne", Type: "User"}
	tc.AddResolver(r).AddResolver(&Resolver{Name: "count", Type: "Int"})
	got, err := tc.GetResolver("findOne")
	require.NoError(t, err)
	require.Same(t, r, got)
	require.Equal(t, []string{"findOne", "count"}, tc.ResolverNames())
	_, err = tc.GetResolver("nope")
	require.EqualError(t, err, `type User has no resolver "nope"`)
	tc.RemoveResolver("count")
	require.False(t, tc.HasResolver("count"))
}

func TestNestedFieldsResolveToNullLeaves(t *testing.T) {
	query := `{ user { name subDoc { field1 field2 { field21 } } tags } }`

	t.Run("absent", func(t *testing.T) {
		sc, _ := newUserComposer(map[string]any{"n": "Test empty subDoc"})
		res := execute(t, sc, query, nil)
		require.Empty(t, res.Errors)
		require.Equal(t, map[string]any{"user": map[string]any{
			"name": "Test empty subDoc",
			"subDoc": map[string]any{
				"field1": nil,
				"field2": map[string]any{"field21": nil},
			},
			"tags": nil,
		}}, res.Data)
	})

	t.Run("partial", func(t *testing.T) {
		sc, _ := newUserComposer(map[string]any{
			"n":      "Test non empty subDoc",
			"subDoc": map[string]any{"field2": map[string]any{"field21": "ok"}},
			"tags":   []any{"a"},
		})
		res := execute(t, sc, query, nil)
		require.Empty(t, res.Errors)
		require.Equal(t, map[string]any{"user": map[string]any{
			"name": "Test non empty subDoc",
			"subDoc": map[string]any{
				"field1": nil,
				"field2": map[string]any{"field21": "ok"},
			},
			"tags": []any{"a"},
		}}, res.Data)
	})
}

func TestBatchResolveReceivesWholeDepth(t *testing.T) {
	sc, user := newUserComposer(nil)
	var (
		mu    sync.Mutex
		sizes []int
	)
	friend := &Resolver{
		Name: "friend",
		Type: "User",
		BatchResolve: func(_ context.Context, ps []ResolveParams) []executor.AsyncResolveResult {
			mu.Lock()
			sizes = append(sizes, len(ps))
			mu.Unlock()
			out := make([]executor.AsyncResolveResult, len(ps))
			for i, p := range ps {
				name := p.Source.(map[string]any)["n"].(string)
				out[i].Value = map[string]any{"n": name + "'s friend"}
			}
			return out
		},
	}
	user.AddFields(friend.Field("friend"))
	sc.Query().AddFields(&FieldConfig{
		Name: "users",
		Type: "[User!]!",
		Resolve: func(context.Context, any, map[string]any) (any, error) {
			return []any{map[string]any{"n": "a"}, map[string]any{"n": "b"}, map[string]any{"n": "c"}}, nil
		},
	})

	res := execute(t, sc, `{ users { name friend { name } } }`, nil)
	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{"users": []any{
		map[string]any{"name": "a", "friend": map[string]any{"name": "a's friend"}},
		map[string]any{"name": "b", "friend": map[string]any{"name": "b's friend"}},
		map[string]any{"name": "c", "friend": map[string]any{"name": "c's friend"}},
	}}, res.Data)
	require.Equal(t, []int{3}, sizes)
}

func TestBatchResolveResultCountMismatch(t *testing.T) {
	sc := New()
	sc.Query().AddFields((&Resolver{
		Name: "broken",
		Type: "String",
		BatchResolve: func(context.Context, []ResolveParams) []executor.AsyncResolveResult {
			return nil
		},
	}).Field("broken"))

	res := execute(t, sc, `{ broken }`, nil)
	require.Len(t, res.Errors, 1)
	require.Equal(t, "resolver broken returned 0 results for 1 calls", res.Errors[0].Message)
}

func TestResolverPanicBecomesError(t *testing.T) {
	sc := New()
	sc.Query().AddFields(
		(&Resolver{Name: "boom", Type: "String", Resolve: func(context.Context, ResolveParams) (any, error) {
			panic("nil map")
		}}).Field("boom"),
		&FieldConfig{Name: "ok", Type: "String", Resolve: func(context.Context, any, map[string]any) (any, error) {
			return "fine", nil
		}},
	)

	res := execute(t, sc, `{ boom ok }`, nil)
	require.Equal(t, map[string]any{"boom": nil, "ok": "fine"}, res.Data)
	require.Len(t, res.Errors, 1)
	require.Contains(t, res.Errors[0].Message, "resolver Query.boom panicked: nil map")
}

func TestResolveParamsProjection(t *testing.T) {
	sc, user := newUserComposer(nil)
	user.AddFields(
		&FieldConfig{
			Name:       "fullName",
			Type:       "String",
			Projection: []string{"n", "age"},
			Resolve: func(_ context.Context, src any, _ map[string]any) (any, error) {
				return src.(map[string]any)["n"], nil
			},
		},
		&FieldConfig{
			Name:       "rawData",
			Type:       "JSON",
			Projection: []string{"*"},
			Resolve: func(_ context.Context, src any, _ map[string]any) (any, error) {
				return src, nil
			},
		},
	)
	var got projection.Projection
	sc.Query().AddFields((&Resolver{
		Name: "findById",
		Type: "User",
		Resolve: func(_ context.Context, p ResolveParams) (any, error) {
			got = p.Projection("User")
			return map[string]any{"n": "x"}, nil
		},
	}).Field("user"))

	cases := []struct {
		query string
		want  projection.Projection
	}{
		{`{ user { name } }`, projection.Of("n")},
		{`{ user { name subDoc { field2 { field21 } } } }`, projection.Of("n", "subDoc.field2.field21")},
		{`{ user { subDoc { __typename } } }`, projection.Of("subDoc")},
		{`{ user { ...F } } fragment F on User { tags fullName }`, projection.Of("age", "n", "tags")},
		{`{ user { name rawData } }`, projection.Full},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			res := execute(t, sc, tc.query, nil)
			require.Empty(t, res.Errors)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("projection mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEnumArgumentsUseInternalValues(t *testing.T) {
	sc := New()
	sc.Enum("SortDir").AddValues(
		&EnumValueConfig{Name: "ASC", Value: 1},
		&EnumValueConfig{Name: "DESC", Value: -1},
	)
	var (
		mu   sync.Mutex
		seen []any
	)
	sc.Query().AddFields((&Resolver{
		Name: "items",
		Type: "SortDir",
		Args: []*Arg{{Name: "sort", Type: "SortDir", Default: "ASC"}},
		Resolve: func(_ context.Context, p ResolveParams) (any, error) {
			mu.Lock()
			seen = append(seen, p.Args["sort"])
			mu.Unlock()
			return p.Args["sort"], nil
		},
	}).Field("items"))

	res := execute(t, sc, `{ a: items b: items(sort: DESC) }`, nil)
	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{"a": "ASC", "b": "DESC"}, res.Data)
	require.ElementsMatch(t, []any{1, -1}, seen)

	sdl, err := sc.PrintSDL()
	require.NoError(t, err)
	require.Equal(t, "type Query {\n  items(sort: SortDir = ASC): SortDir\n}\n\nenum SortDir {\n  ASC\n  DESC\n}\n", sdl)
}

func TestCustomScalars(t *testing.T) {
	sc := New()
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	price, err := bson.ParseDecimal128("12.50")
	require.NoError(t, err)
	sc.Query().AddFields(&FieldConfig{
		Name: "byId",
		Type: "JSON",
		Args: []*Arg{{Name: "_id", Type: "MongoID!"}, {Name: "at", Type: "Date"}},
		Resolve: func(_ context.Context, _ any, args map[string]any) (any, error) {
			return map[string]any{
				"id":    args["_id"],
				"at":    args["at"],
				"when":  when,
				"price": price,
				"list":  bson.A{1, "two", nil},
			}, nil
		},
	})

	res := execute(t, sc, `{ byId(_id: "100000000000000000000000", at: "2024-01-02T03:04:05Z") }`, nil)
	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{"byId": map[string]any{
		"id":    "100000000000000000000000",
		"at":    "2024-01-02T03:04:05Z",
		"when":  "2024-01-02T03:04:05Z",
		"price": "12.50",
		"list":  []any{1, "two", nil},
	}}, res.Data)

	res = execute(t, sc, `{ byId(_id: "nope") }`, nil)
	require.Equal(t, map[string]any{"byId": nil}, res.Data)
	require.Len(t, res.Errors, 1)
	require.Equal(t, executor.Path{"byId"}, res.Errors[0].Path)
	require.Contains(t, res.Errors[0].Message, `argument "_id": invalid document id "nope"`)
}

func TestMutationRoot(t *testing.T) {
	sc, _ := newUserComposer(nil)
	sc.Mutation().AddFields((&Resolver{
		Name: "createOne",
		Kind: KindMutation,
		Type: "User",
		Args: []*Arg{{Name: "name", Type: "String!"}},
		Resolve: func(_ context.Context, p ResolveParams) (any, error) {
			return map[string]any{"n": p.Args["name"]}, nil
		},
	}).Field("userCreate"))

	res := execute(t, sc, `mutation { userCreate(name: "x") { name } }`, nil)
	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{"userCreate": map[string]any{"name": "x"}}, res.Data)
}

func TestResolverErrorsAreLocated(t *testing.T) {
	sc := New()
	sc.Query().AddFields((&Resolver{Name: "fail", Type: "String!", Resolve: func(context.Context, ResolveParams) (any, error) {
		return nil, errors.New("document not found")
	}}).Field("fail"))

	res := execute(t, sc, `{ fail }`, nil)
	require.Nil(t, res.Data)
	require.Equal(t, []executor.GraphQLError{{Message: "document not found", Path: executor.Path{"fail"}}}, res.Errors)
}

func TestIntrospectionOverComposedSchema(t *testing.T) {
	sc, _ := newUserComposer(nil)
	res := execute(t, sc, `{ __type(name: "User") { name fields { name } } }`, nil)
	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{"__type": map[string]any{
		"name": "User",
		"fields": []any{
			map[string]any{"name": "_id"},
			map[string]any{"name": "name"},
			map[string]any{"name": "subDoc"},
			map[string]any{"name": "tags"},
		},
	}}, res.Data)
}

func TestExecuteSyntaxError(t *testing.T) {
	sc, _ := newUserComposer(nil)
	res := execute(t, sc, `{ user { `, nil)
	require.Nil(t, res.Data)
	require.Len(t, res.Errors, 1)
}

func TestInvalidDocumentsDoNotRun(t *testing.T) {
	calls := 0
	sc := New()
	sc.Query().AddFields((&Resolver{Name: "count", Type: "Int", Resolve: func(context.Context, ResolveParams) (any, error) {
		calls++
		return 1, nil
	}}).Field("count"))

	res := execute(t, sc, `{ count nope }`, nil)
	require.Nil(t, res.Data)
	require.Len(t, res.Errors, 1)
	require.Contains(t, res.Errors[0].Message, `Cannot query field "nope" on type "Query".`)
	require.Equal(t, []executor.Location{{Line: 1, Column: 9}}, res.Errors[0].Locations)

	res = execute(t, sc, `{ count(limit: 1) }`, nil)
	require.Nil(t, res.Data)
	require.Contains(t, res.Errors[0].Message, `Unknown argument "limit" on field "Query.count".`)

	res = execute(t, sc, `query($n: Int) { count }`, nil)
	require.Nil(t, res.Data)
	require.Contains(t, res.Errors[0].Message, `Variable "$n" is never used.`)

	require.Zero(t, calls)

	res = execute(t, sc, `{ count }`, nil)
	require.Empty(t, res.Errors)
	require.Equal(t, 1, calls)
}

func TestBuildSchemaSnapshotsComposers(t *testing.T) {
	sc, user := newUserComposer(map[string]any{"n": "a"})
	exe, err := sc.BuildSchema()
	require.NoError(t, err)

	user.RemoveField("name")
	res := exe.Execute(context.Background(), `{ user { name } }`, "", nil)
	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{"user": map[string]any{"name": "a"}}, res.Data)
	require.Equal(t, projection.FieldHint{StorageKey: "n"}, exe.Hints["User.name"])
}
