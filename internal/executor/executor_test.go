package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/mongograph/internal/language"
	"github.com/hanpama/mongograph/internal/schema"
)

const testSDL = `
type Query {
  user: User
  must: String!
  echo(role: Role = MEMBER, n: Int, filter: Filter): String
  need(id: Int!): String!
  node: Node
}

interface Node { id: ID! }

type User implements Node {
  id: ID!
  name: String!
  friends: [User!]
  greeting(times: Int!): String
}

enum Role { ADMIN MEMBER }

input Filter {
  name: String
  limit: Int = 10
}
`

func newTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.BuildFromSDL(testSDL)
	require.NoError(t, err)
	sch.Types["User"].FieldByName("friends").SetAsync(true)
	return sch
}

func execute(t *testing.T, rt Runtime, sch *schema.Schema, query string, vars map[string]any) *ExecutionResult {
	t.Helper()
	doc, err := language.ParseQuery(query)
	require.NoError(t, err)
	return NewExecutor(rt, sch).ExecuteRequest(context.Background(), doc, "", vars, nil)
}

func TestExecuteBatchesOncePerDepth(t *testing.T) {
	sch := newTestSchema(t)
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.user": NewMockValueResolver(map[string]any{"name": "a"}),
		"User.friends": func(_ context.Context, src any, _ map[string]any) (any, error) {
			name := src.(map[string]any)["name"].(string)
			return []any{
				map[string]any{"name": name + "1"},
				map[string]any{"name": name + "2"},
			}, nil
		},
	})

	res := execute(t, rt, sch, `{ user { name friends { name friends { name } } } }`, nil)

	want := &ExecutionResult{Data: map[string]any{
		"user": map[string]any{
			"name": "a",
			"friends": []any{
				map[string]any{"name": "a1", "friends": []any{
					map[string]any{"name": "a11"},
					map[string]any{"name": "a12"},
				}},
				map[string]any{"name": "a2", "friends": []any{
					map[string]any{"name": "a21"},
					map[string]any{"name": "a22"},
				}},
			},
		},
	}}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, 3, rt.BatchCount())

	var batched []string
	for _, c := range rt.Calls() {
		if c.Kind == CallKindAsync {
			batched = append(batched, fmt.Sprintf("%d:%s.%s", c.BatchID, c.ObjectType, c.Field))
		}
	}
	require.Equal(t, []string{"1:Query.user", "2:User.friends", "3:User.friends", "3:User.friends"}, batched)
}

func TestExecuteNullPropagation(t *testing.T) {
	t.Run("nearest nullable ancestor", func(t *testing.T) {
		sch := newTestSchema(t)
		rt := NewMockRuntime(map[string]MockResolver{
			"Query.user": NewMockValueResolver(map[string]any{"name": "a"}),
			"User.friends": NewMockValueResolver([]any{
				map[string]any{"name": "b"},
				map[string]any{"name": nil},
			}),
		})

		res := execute(t, rt, sch, `{ user { name friends { name } } }`, nil)

		want := &ExecutionResult{
			Data: map[string]any{"user": map[string]any{"name": "a", "friends": nil}},
			Errors: []GraphQLError{{
				Message: "Cannot return null for non-nullable field user.friends[1].name",
				Path:    Path{"user", "friends", 1, "name"},
			}},
		}
		if diff := cmp.Diff(want, res); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("root field nulls data", func(t *testing.T) {
		sch := newTestSchema(t)
		rt := NewMockRuntime(map[string]MockResolver{
			"Query.must": NewMockErrorResolver(errors.New("boom")),
			"Query.user": NewMockValueResolver(map[string]any{"name": "a"}),
		})

		res := execute(t, rt, sch, `{ user { name } must }`, nil)

		want := &ExecutionResult{Errors: []GraphQLError{{Message: "boom", Path: Path{"must"}}}}
		if diff := cmp.Diff(want, res); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("nullable error keeps siblings", func(t *testing.T) {
		sch := newTestSchema(t)
		rt := NewMockRuntime(map[string]MockResolver{
			"Query.user": NewMockErrorResolver(errors.New("not found")),
			"Query.must": NewMockValueResolver("ok"),
		})

		res := execute(t, rt, sch, `{ user { name } must }`, nil)

		want := &ExecutionResult{
			Data:   map[string]any{"user": nil, "must": "ok"},
			Errors: []GraphQLError{{Message: "not found", Path: Path{"user"}}},
		}
		if diff := cmp.Diff(want, res); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestExecuteArguments(t *testing.T) {
	sch := newTestSchema(t)
	var got map[string]any
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.echo": func(_ context.Context, _ any, args map[string]any) (any, error) {
			got = args
			return "ok", nil
		},
	})

	res := execute(t, rt, sch, `query($n: Int) { echo(n: $n, filter: {name: "x"}) }`, map[string]any{"n": float64(3)})
	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{
		"role":   "MEMBER",
		"n":      3,
		"filter": map[string]any{"name": "x", "limit": 10},
	}, got)

	res = execute(t, rt, sch, `query($r: Role) { echo(role: $r) }`, map[string]any{"r": "OWNER"})
	require.Len(t, res.Errors, 1)
	require.Contains(t, res.Errors[0].Message, "not a member of enum Role")

	res = execute(t, rt, sch, `{ echo(filter: {nope: 1}) }`, nil)
	require.Len(t, res.Errors, 1)
	require.Equal(t, Path{"echo"}, res.Errors[0].Path)
	require.Contains(t, res.Errors[0].Message, `field "nope" is not defined by input type Filter`)
}

func TestInvalidArgumentsSkipResolver(t *testing.T) {
	sch := newTestSchema(t)
	calls := 0
	called := func(_ context.Context, _ any, _ map[string]any) (any, error) {
		calls++
		return "ok", nil
	}
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.echo":    called,
		"Query.need":    called,
		"Query.user":    NewMockValueResolver(map[string]any{"name": "a"}),
		"User.greeting": called,
	})

	res := execute(t, rt, sch, `{ echo(n: "three") user { name greeting(times: "x") } }`, nil)
	require.Zero(t, calls)
	require.Len(t, res.Errors, 2)
	require.Equal(t, map[string]any{
		"echo": nil,
		"user": map[string]any{"name": "a", "greeting": nil},
	}, res.Data)

	res = execute(t, rt, sch, `{ need }`, nil)
	require.Zero(t, calls)
	require.Len(t, res.Errors, 1)
	require.Contains(t, res.Errors[0].Message, `argument "id" of required type Int! was not provided`)
	require.Nil(t, res.Data)
}

func TestExecuteAbstractFragments(t *testing.T) {
	sch := newTestSchema(t)
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.node": NewMockValueResolver(map[string]any{"__typename": "User", "id": "1", "name": "x"}),
	})

	res := execute(t, rt, sch, `
		{ node { id ... on User { name } ...N } }
		fragment N on Node { kind: __typename }
	`, nil)

	want := &ExecutionResult{Data: map[string]any{
		"node": map[string]any{"id": "1", "name": "x", "kind": "User"},
	}}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteSkipInclude(t *testing.T) {
	sch := newTestSchema(t)
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.user": NewMockValueResolver(map[string]any{"id": "1", "name": "a"}),
	})

	res := execute(t, rt, sch, `query($s: Boolean!) { user { id @skip(if: $s) name @include(if: false) } }`, map[string]any{"s": true})

	want := &ExecutionResult{Data: map[string]any{"user": map[string]any{}}}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteResolveInfo(t *testing.T) {
	sch := newTestSchema(t)
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.user": NewMockValueResolver(map[string]any{"name": "a"}),
	})

	res := execute(t, rt, sch, `query($x: Int) { u: user { ...F } } fragment F on User { name }`, map[string]any{"x": 1})
	require.Empty(t, res.Errors)

	calls := rt.Calls()
	require.NotEmpty(t, calls)
	info := calls[0].Info
	require.NotNil(t, info)
	require.Equal(t, "Query", info.ParentType)
	require.Equal(t, "user", info.FieldName)
	require.Equal(t, "User", info.ReturnType.String())
	require.Equal(t, Path{"u"}, info.Path)
	require.Equal(t, map[string]any{"x": 1}, info.Variables)
	require.Len(t, info.Fields, 1)
	require.NotNil(t, info.Fragments.ForName("F"))
}

func TestExecuteOperationSelection(t *testing.T) {
	sch := newTestSchema(t)
	rt := NewMockRuntime(map[string]MockResolver{"Query.must": NewMockValueResolver("ok")})
	doc, err := language.ParseQuery(`query A { must } query B { must }`)
	require.NoError(t, err)
	exec := NewExecutor(rt, sch)

	res := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)
	require.Nil(t, res.Data)
	require.Contains(t, res.Errors[0].Message, "operation name is required")

	res = exec.ExecuteRequest(context.Background(), doc, "C", nil, nil)
	require.Equal(t, `unknown operation named "C"`, res.Errors[0].Message)

	res = exec.ExecuteRequest(context.Background(), doc, "B", nil, nil)
	require.Equal(t, map[string]any{"must": "ok"}, res.Data)

	res = exec.ExecuteRequest(context.Background(), mustParse(t, `mutation { x }`), "", nil, nil)
	require.Equal(t, "schema does not support mutation operations", res.Errors[0].Message)
}

func TestPathString(t *testing.T) {
	require.Equal(t, "users[0].name", Path{"users", 0, "name"}.String())
	require.Equal(t, "", Path{}.String())
}

func mustParse(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	doc, err := language.ParseQuery(q)
	require.NoError(t, err)
	return doc
}
