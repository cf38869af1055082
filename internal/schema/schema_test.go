package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const userSDL = `
type Query {
  user(id: ID!): User
  users(limit: Int = 10): [User!]!
}

"""A user"""
type User {
  name: String
  old: String @deprecated(reason: "gone")
  role: Role
}

enum Role { ADMIN MEMBER }

input UserFilter {
  name: String
  role: Role = MEMBER
}

scalar JSON

extend type User { raw: JSON }
`

func TestBuildFromSDLRender(t *testing.T) {
	sch, err := BuildFromSDL(userSDL)
	require.NoError(t, err)

	want := `scalar JSON

type Query {
  user(id: ID!): User
  users(limit: Int = 10): [User!]!
}

enum Role {
  ADMIN
  MEMBER
}

"""
A user
"""
type User {
  name: String
  old: String @deprecated(reason: "gone")
  role: Role
  raw: JSON
}

input UserFilter {
  name: String
  role: Role = MEMBER
}
`
	if diff := cmp.Diff(want, Render(sch)); diff != "" {
		t.Errorf("rendered SDL mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildFromSDLAsyncRoots(t *testing.T) {
	sch, err := BuildFromSDL(userSDL)
	require.NoError(t, err)

	require.True(t, sch.GetQueryType().FieldByName("user").Async)
	require.True(t, sch.GetQueryType().FieldByName("users").Async)
	require.False(t, sch.Types["User"].FieldByName("name").Async)
	require.False(t, sch.Types["User"].FieldByName("raw").Async)
	require.Nil(t, sch.GetMutationType())
}

func TestBuildFromSDLErrors(t *testing.T) {
	_, err := BuildFromSDL(`type Query { a: String } extend type Missing { b: String }`)
	require.ErrorContains(t, err, "Missing")

	_, err = BuildFromSDL(`type Root { a: String }`)
	require.ErrorContains(t, err, "no query type")

	_, err = BuildFromSDL(`type Query {`)
	require.Error(t, err)
}

func TestParseTypeRef(t *testing.T) {
	for _, in := range []string{"String", "String!", "[User]", "[User!]!", "[[Int!]]"} {
		ref, err := ParseTypeRef(in)
		require.NoError(t, err, in)
		require.Equal(t, in, ref.String())
	}

	ref := MustParseTypeRef("[User!]!")
	require.True(t, IsNonNull(ref))
	require.True(t, IsList(ref))
	require.Equal(t, "User", GetNamedType(ref))

	_, err := ParseTypeRef("")
	require.Error(t, err)
	_, err = ParseTypeRef("[User")
	require.Error(t, err)
}
