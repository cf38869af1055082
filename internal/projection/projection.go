// Package projection derives the set of stored document keys a GraphQL
// selection needs, so fetches load only those keys.
package projection

import (
	"slices"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// IDPath is always part of a partial projection.
const IDPath = "_id"

// Projection is the set of dotted storage paths to load. All means load the
// whole document. The zero value loads only _id.
type Projection struct {
	All   bool
	Paths []string
}

// Full loads whole documents.
var Full = Projection{All: true}

// Of builds a normalised projection from paths.
func Of(paths ...string) Projection {
	return Projection{Paths: normalize(append([]string{IDPath}, paths...))}
}

// Merge returns the union of p and o.
func (p Projection) Merge(o Projection) Projection {
	if p.All || o.All {
		return Full
	}
	return Projection{Paths: normalize(append(slices.Clone(p.Paths), o.Paths...))}
}

// Includes reports whether the value at path is loaded.
func (p Projection) Includes(path string) bool {
	if p.All {
		return true
	}
	for _, q := range p.Paths {
		if q == path || strings.HasPrefix(path, q+".") {
			return true
		}
	}
	return false
}

// BSON renders a MongoDB projection document. It returns nil for All.
func (p Projection) BSON() bson.D {
	if p.All {
		return nil
	}
	paths := p.Paths
	if len(paths) == 0 {
		paths = []string{IDPath}
	}
	out := make(bson.D, 0, len(paths))
	for _, path := range paths {
		out = append(out, bson.E{Key: path, Value: 1})
	}
	return out
}

func (p Projection) String() string {
	if p.All {
		return "*"
	}
	return strings.Join(p.Paths, ",")
}

// normalize sorts, dedupes and drops paths already covered by a shorter
// included prefix ("a.b" is covered by "a").
func normalize(paths []string) []string {
	sort.Strings(paths)
	out := paths[:0]
	for _, p := range paths {
		if p == "" {
			continue
		}
		covered := false
		for _, q := range out {
			if p == q || strings.HasPrefix(p, q+".") {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, p)
		}
	}
	return slices.Clip(out)
}
