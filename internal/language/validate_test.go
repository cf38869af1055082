package language

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const validatorSDL = `
scalar JSON @specifiedBy(url: "http://www.ecma-international.org/publications/files/ECMA-ST/ECMA-404.pdf")

type Query {
  user(_id: ID!): User
}

type User {
  name: String
  raw: JSON
}
`

func TestValidator(t *testing.T) {
	v, err := NewValidator(validatorSDL)
	require.NoError(t, err)

	validate := func(src string) []*Error {
		doc, err := ParseQuery(src)
		require.NoError(t, err)
		return v.Validate(doc)
	}

	require.Empty(t, validate(`{ user(_id: "1") { name raw } }`))
	require.Empty(t, validate(`{ __schema { queryType { name } } __type(name: "User") { isOneOf specifiedByURL } }`))

	errs := validate(`{ user { name } }`)
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Message, `argument "_id" of type "ID!" is required`)

	errs = validate(`query($id: ID!) { user(_id: $id) { name { first } } }`)
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Message, `Field "name" must not have a selection since type "String" has no subfields.`)
}

func TestNewValidatorRejectsBrokenSDL(t *testing.T) {
	_, err := NewValidator(`type Query { user: Missing }`)
	require.Error(t, err)
}
