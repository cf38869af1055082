package mongocompose

import "github.com/hanpama/mongograph/internal/compose"

// Resolver names generated for every model.
const (
	FindByID   = "findById"
	FindByIDs  = "findByIds"
	FindOne    = "findOne"
	FindMany   = "findMany"
	Count      = "count"
	CreateOne  = "createOne"
	UpdateByID = "updateById"
	RemoveByID = "removeById"
)

// AllResolvers lists the generated resolvers in registration order.
var AllResolvers = []string{FindByID, FindByIDs, FindOne, FindMany, Count, CreateOne, UpdateByID, RemoveByID}

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

type options struct {
	sc           *compose.SchemaComposer
	name         string
	description  string
	onlyFields   []string
	removeFields []string
	resolvers    []string
	defaultLimit int
	maxLimit     int
}

// Option configures ComposeWithMongo.
type Option func(*options)

// WithSchemaComposer registers the generated types in sc instead of
// compose.Default().
func WithSchemaComposer(sc *compose.SchemaComposer) Option {
	return func(o *options) { o.sc = sc }
}

// WithName overrides the name of the generated object type.
func WithName(name string) Option { return func(o *options) { o.name = name } }

func WithDescription(description string) Option {
	return func(o *options) { o.description = description }
}

// WithOnlyFields keeps only the named top-level fields. _id is always kept.
func WithOnlyFields(names ...string) Option {
	return func(o *options) { o.onlyFields = names }
}

// WithRemoveFields drops the named top-level fields.
func WithRemoveFields(names ...string) Option {
	return func(o *options) { o.removeFields = names }
}

// WithResolvers generates only the named resolvers.
func WithResolvers(names ...string) Option {
	return func(o *options) { o.resolvers = names }
}

// WithLimit sets the default and the maximum page size of list resolvers.
func WithLimit(defaultLimit, maxLimit int) Option {
	return func(o *options) {
		o.defaultLimit = defaultLimit
		o.maxLimit = maxLimit
	}
}
