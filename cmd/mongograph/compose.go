package main

import (
	"fmt"

	"github.com/iancoleman/strcase"

	"github.com/hanpama/mongograph/internal/compose"
	"github.com/hanpama/mongograph/internal/docschema"
	"github.com/hanpama/mongograph/internal/mongocompose"
	"github.com/hanpama/mongograph/internal/store"
)

// buildSchema composes every model over src and mounts its resolvers under
// the lower camel model name, e.g. userFindMany.
func buildSchema(models []*docschema.Model, src store.Source, defaultLimit, maxLimit int) (*compose.Executable, error) {
	sc := compose.New()
	for _, m := range models {
		tc, err := mongocompose.ComposeWithMongo(m, src.Collection(m.CollectionName()),
			mongocompose.WithSchemaComposer(sc),
			mongocompose.WithLimit(defaultLimit, maxLimit),
		)
		if err != nil {
			return nil, err
		}
		if err := mongocompose.Mount(sc, tc, strcase.ToLowerCamel(m.Name)); err != nil {
			return nil, fmt.Errorf("mount %s: %w", m.Name, err)
		}
	}
	return sc.BuildSchema()
}
