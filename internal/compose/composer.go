// Package compose assembles an executable GraphQL schema from type
// composers and named resolvers, and runs operations against it.
package compose

import (
	"fmt"

	"github.com/hanpama/mongograph/internal/schema"
)

// SchemaComposer is a registry of type composers with Query and Mutation
// roots. It is not safe for concurrent mutation; build once, then execute
// the returned Executable concurrently.
type SchemaComposer struct {
	types    map[string]Composer
	query    *ObjectComposer
	mutation *ObjectComposer
}

// New returns a composer with the JSON, MongoID, Date and Decimal scalars
// registered.
func New() *SchemaComposer {
	sc := &SchemaComposer{}
	sc.Clear()
	return sc
}

// Clear drops every registered type and empties the roots.
func (sc *SchemaComposer) Clear() {
	sc.types = make(map[string]Composer)
	sc.query = NewObject("Query")
	sc.mutation = NewObject("Mutation")
	sc.types["Query"] = sc.query
	sc.types["Mutation"] = sc.mutation
	for _, s := range []*ScalarComposer{JSONScalar, MongoIDScalar, DateScalar, DecimalScalar} {
		sc.types[s.Name()] = s
	}
}

func (sc *SchemaComposer) Query() *ObjectComposer    { return sc.query }
func (sc *SchemaComposer) Mutation() *ObjectComposer { return sc.mutation }

// Add registers c. Registering a different composer under a taken name
// is an error; re-adding the same composer is not.
func (sc *SchemaComposer) Add(c Composer) error {
	if schema.IsBuiltinScalar(c.Name()) {
		return fmt.Errorf("type %s is a builtin scalar", c.Name())
	}
	if prev, ok := sc.types[c.Name()]; ok && prev != c {
		return fmt.Errorf("type %s is already registered", c.Name())
	}
	sc.types[c.Name()] = c
	return nil
}

// Set registers c, replacing any composer with the same name.
func (sc *SchemaComposer) Set(c Composer) {
	sc.types[c.Name()] = c
	switch c.Name() {
	case "Query":
		if oc, ok := c.(*ObjectComposer); ok {
			sc.query = oc
		}
	case "Mutation":
		if oc, ok := c.(*ObjectComposer); ok {
			sc.mutation = oc
		}
	}
}

func (sc *SchemaComposer) Get(name string) (Composer, bool) {
	c, ok := sc.types[name]
	return c, ok
}

func (sc *SchemaComposer) Has(name string) bool {
	_, ok := sc.types[name]
	return ok
}

func (sc *SchemaComposer) Delete(name string) { delete(sc.types, name) }

func (sc *SchemaComposer) AddScalar(s *ScalarComposer) error { return sc.Add(s) }

// Object returns the object composer registered under name, creating it
// when absent. It panics when name is taken by another kind of type.
func (sc *SchemaComposer) Object(name string) *ObjectComposer {
	return getOrCreate(sc, name, NewObject)
}

// Input is Object for input object composers.
func (sc *SchemaComposer) Input(name string) *InputComposer {
	return getOrCreate(sc, name, NewInput)
}

// Enum is Object for enum composers.
func (sc *SchemaComposer) Enum(name string) *EnumComposer {
	return getOrCreate(sc, name, NewEnum)
}

func getOrCreate[T Composer](sc *SchemaComposer, name string, create func(string) T) T {
	if c, ok := sc.types[name]; ok {
		t, ok := c.(T)
		if !ok {
			panic(fmt.Sprintf("compose: type %s is registered as %T", name, c))
		}
		return t
	}
	t := create(name)
	sc.types[name] = t
	return t
}

// PrintSDL renders the SDL of the schema BuildSchema would produce.
func (sc *SchemaComposer) PrintSDL() (string, error) {
	sch, _, err := sc.build()
	if err != nil {
		return "", err
	}
	return schema.Render(sch), nil
}

var defaultComposer = New()

// Default returns the process-wide composer used when callers do not
// supply their own.
func Default() *SchemaComposer { return defaultComposer }
