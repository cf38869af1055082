package compose

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hanpama/mongograph/internal/eventbus"
	"github.com/hanpama/mongograph/internal/events"
	"github.com/hanpama/mongograph/internal/executor"
	"github.com/hanpama/mongograph/internal/schema"
)

// runtime implements executor.Runtime over a built registry.
//   - Physical fields read the parent document by storage key; a missing key
//     is null. Nested single-object fields resolve to an empty object when
//     absent so their leaves resolve to null.
//   - Resolve fields run synchronously; Resolver fields are batched.
//   - BatchResolveAsync groups tasks by (objectType, field) and runs the
//     groups concurrently. Results keep task order.
type runtime struct {
	reg *registry
	sch *schema.Schema
}

var _ executor.Runtime = (*runtime)(nil)

func (r *runtime) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	entry := r.reg.field(objectType, field)
	if entry == nil {
		v, _ := readKey(source, field)
		return v, nil
	}
	fc := entry.config
	if fc.Resolve != nil {
		in, err := r.internalArgs(entry.def, args)
		if err != nil {
			return nil, err
		}
		return fc.Resolve(ctx, source, in)
	}
	if fc.Resolver != nil {
		res := r.runGroup(ctx, entry, []executor.AsyncResolveTask{{ObjectType: objectType, Field: field, Source: source, Args: args}})
		return res[0].Value, res[0].Error
	}
	return r.readField(entry, source), nil
}

func (r *runtime) readField(entry *fieldEntry, source any) any {
	v, ok := readKey(source, entry.config.storageKey())
	if entry.emptyWhenAbsent && (!ok || v == nil) {
		return map[string]any{}
	}
	return v
}

func readKey(source any, key string) (any, bool) {
	m, ok := source.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := m[key]
	return v, ok
}

func (r *runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}
	type groupKey struct {
		objectType string
		field      string
	}
	var keys []groupKey
	idxs := map[groupKey][]int{}
	for i, t := range tasks {
		k := groupKey{objectType: t.ObjectType, field: t.Field}
		if _, ok := idxs[k]; !ok {
			keys = append(keys, k)
		}
		idxs[k] = append(idxs[k], i)
	}

	// Resolver errors travel in results; one group never cancels another.
	var wg sync.WaitGroup
	for _, k := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			group := make([]executor.AsyncResolveTask, len(idxs[k]))
			for j, i := range idxs[k] {
				group[j] = tasks[i]
			}
			entry := r.reg.field(k.objectType, k.field)
			for j, res := range r.runGroup(ctx, entry, group) {
				results[idxs[k][j]] = res
			}
		}()
	}
	wg.Wait()
	return results
}

// runGroup resolves tasks of a single (objectType, field) pair.
func (r *runtime) runGroup(ctx context.Context, entry *fieldEntry, tasks []executor.AsyncResolveTask) (results []executor.AsyncResolveResult) {
	results = make([]executor.AsyncResolveResult, len(tasks))
	if entry == nil {
		for i, t := range tasks {
			results[i].Value, _ = readKey(t.Source, t.Field)
		}
		return results
	}

	start := time.Now()
	resolverName := ""
	if entry.config.Resolver != nil {
		resolverName = entry.config.Resolver.Name
	}
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("resolver %s.%s panicked: %v", entry.typeName, entry.def.Name, p)
			for i := range results {
				results[i] = executor.AsyncResolveResult{Error: err}
			}
		}
		eventbus.Publish(ctx, events.ResolverFinish{
			TypeName:  entry.typeName,
			FieldName: entry.def.Name,
			Resolver:  resolverName,
			BatchSize: len(tasks),
			Err:       firstError(results),
			Duration:  time.Since(start),
		})
	}()

	// Tasks whose arguments fail to convert are answered up front; the rest
	// are resolved together.
	params := make([]ResolveParams, 0, len(tasks))
	slots := make([]int, 0, len(tasks))
	for i, t := range tasks {
		in, err := r.internalArgs(entry.def, t.Args)
		if err != nil {
			results[i].Error = err
			continue
		}
		params = append(params, ResolveParams{Source: t.Source, Args: in, Info: t.Info, hints: r.reg.hints})
		slots = append(slots, i)
	}
	if len(params) == 0 {
		return results
	}

	fc := entry.config
	switch {
	case fc.Resolver != nil && fc.Resolver.BatchResolve != nil:
		out := fc.Resolver.BatchResolve(ctx, params)
		if len(out) != len(params) {
			err := fmt.Errorf("resolver %s returned %d results for %d calls", fc.Resolver.Name, len(out), len(params))
			for _, i := range slots {
				results[i].Error = err
			}
			return results
		}
		for j, i := range slots {
			results[i] = out[j]
		}
	case fc.Resolver != nil && fc.Resolver.Resolve != nil:
		for j, i := range slots {
			results[i].Value, results[i].Error = fc.Resolver.Resolve(ctx, params[j])
		}
	case fc.Resolve != nil:
		for j, i := range slots {
			results[i].Value, results[i].Error = fc.Resolve(ctx, params[j].Source, params[j].Args)
		}
	default:
		for _, i := range slots {
			results[i].Value = r.readField(entry, tasks[i].Source)
		}
	}
	return results
}

func firstError(results []executor.AsyncResolveResult) error {
	for _, res := range results {
		if res.Error != nil {
			return res.Error
		}
	}
	return nil
}

func (r *runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	if m, ok := value.(map[string]any); ok {
		if name, ok := m["__typename"].(string); ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("cannot resolve the concrete type of %s for value %T", abstractType, value)
}

func (r *runtime) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if v, ok, err := serializeBuiltin(typeName, value); ok {
		return v, err
	}
	if ec := r.reg.enums[typeName]; ec != nil {
		return ec.serialize(value)
	}
	if s := r.reg.scalars[typeName]; s != nil && s.Serialize != nil {
		return s.Serialize(value)
	}
	return value, nil
}

// internalArgs converts coerced arguments into resolver values: enum names
// become internal values and custom scalars are parsed.
func (r *runtime) internalArgs(def *schema.Field, args map[string]any) (map[string]any, error) {
	if len(args) == 0 {
		return args, nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	var errs []error
	for _, a := range def.Arguments {
		v, ok := args[a.Name]
		if !ok {
			continue
		}
		cv, err := r.internalValue(v, a.Type)
		if err != nil {
			errs = append(errs, fmt.Errorf("argument %q: %w", a.Name, err))
			continue
		}
		out[a.Name] = cv
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *runtime) internalValue(v any, typ *schema.TypeRef) (any, error) {
	if v == nil {
		return nil, nil
	}
	if schema.IsNonNull(typ) {
		return r.internalValue(v, schema.Unwrap(typ))
	}
	if schema.IsList(typ) {
		items, ok := v.([]any)
		if !ok {
			return r.internalValue(v, schema.Unwrap(typ))
		}
		out := make([]any, len(items))
		for i, item := range items {
			cv, err := r.internalValue(item, schema.Unwrap(typ))
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	}
	name := schema.GetNamedType(typ)
	if ec := r.reg.enums[name]; ec != nil {
		s, ok := v.(string)
		if !ok {
			return v, nil
		}
		return ec.parse(s)
	}
	if s := r.reg.scalars[name]; s != nil {
		if s.ParseValue == nil {
			return v, nil
		}
		return s.ParseValue(v)
	}
	t := r.sch.Types[name]
	if t == nil || t.Kind != schema.TypeKindInputObject {
		return v, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return v, nil
	}
	out := make(map[string]any, len(obj))
	for k, fv := range obj {
		f := t.InputFieldByName(k)
		if f == nil {
			out[k] = fv
			continue
		}
		cv, err := r.internalValue(fv, f.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name, k, err)
		}
		out[k] = cv
	}
	return out, nil
}
