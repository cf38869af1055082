package introspection

import (
	"slices"
	"strings"
	"sync"

	"github.com/hanpama/mongograph/internal/schema"
)

const metaSDL = `
type Query {
  "Access the current type schema of this server."
  __schema: __Schema!
  "Request the type information of a single type."
  __type("The name of the type to look up." name: String!): __Type
}

"A GraphQL Schema defines the capabilities of a GraphQL server."
type __Schema {
  description: String
  "A list of all types supported by this server."
  types: [__Type!]!
  "The type that query operations will be rooted at."
  queryType: __Type!
  "If this server supports mutation, the type that mutation operations will be rooted at."
  mutationType: __Type
  "If this server support subscription, the type that subscription operations will be rooted at."
  subscriptionType: __Type
  "A list of all directives supported by this server."
  directives: [__Directive!]!
}

"The fundamental unit of any GraphQL Schema is the type."
type __Type {
  kind: __TypeKind!
  name: String
  description: String
  specifiedByURL: String
  fields(includeDeprecated: Boolean = false): [__Field!]
  interfaces: [__Type!]
  possibleTypes: [__Type!]
  enumValues(includeDeprecated: Boolean = false): [__EnumValue!]
  inputFields(includeDeprecated: Boolean = false): [__InputValue!]
  ofType: __Type
  isOneOf: Boolean
}

type __Field {
  name: String!
  description: String
  args(includeDeprecated: Boolean = false): [__InputValue!]!
  type: __Type!
  isDeprecated: Boolean!
  deprecationReason: String
}

type __InputValue {
  name: String!
  description: String
  type: __Type!
  defaultValue: String
  isDeprecated: Boolean!
  deprecationReason: String
}

type __EnumValue {
  name: String!
  description: String
  isDeprecated: Boolean!
  deprecationReason: String
}

type __Directive {
  name: String!
  description: String
  isRepeatable: Boolean!
  locations: [__DirectiveLocation!]!
  args(includeDeprecated: Boolean = false): [__InputValue!]!
}

enum __TypeKind { SCALAR OBJECT INTERFACE UNION ENUM INPUT_OBJECT LIST NON_NULL }

enum __DirectiveLocation {
  QUERY MUTATION SUBSCRIPTION FIELD FRAGMENT_DEFINITION FRAGMENT_SPREAD
  INLINE_FRAGMENT VARIABLE_DEFINITION SCHEMA SCALAR OBJECT FIELD_DEFINITION
  ARGUMENT_DEFINITION INTERFACE UNION ENUM ENUM_VALUE INPUT_OBJECT
  INPUT_FIELD_DEFINITION
}
`

// meta holds the introspection types and the root meta fields. It is
// parsed once and shared by every extended schema; nothing mutates it.
var meta = sync.OnceValue(func() *schema.Schema {
	s, err := schema.BuildFromSDL(metaSDL)
	if err != nil {
		panic("introspection: " + err.Error())
	}
	for _, f := range s.GetQueryType().Fields {
		f.SetAsync(false)
	}
	return s
})

// extend returns a copy of sch carrying the introspection types, with
// __schema and __type appended to a copy of its query type.
func extend(sch *schema.Schema) *schema.Schema {
	m := meta()
	out := &schema.Schema{
		QueryType:        sch.QueryType,
		MutationType:     sch.MutationType,
		SubscriptionType: sch.SubscriptionType,
		Types:            make(map[string]*schema.Type, len(sch.Types)+len(m.Types)),
		Directives:       sch.Directives,
		Description:      sch.Description,
	}
	for name, t := range sch.Types {
		out.Types[name] = t
	}
	for name, t := range m.Types {
		if strings.HasPrefix(name, "__") {
			out.Types[name] = t
		}
	}
	if q := sch.GetQueryType(); q != nil {
		cp := *q
		cp.Fields = append(slices.Clip(q.Fields), m.GetQueryType().Fields...)
		out.Types[q.Name] = &cp
	}
	return out
}
