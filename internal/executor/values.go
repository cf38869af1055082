package executor

import (
	"fmt"
	"strconv"

	"github.com/hanpama/mongograph/internal/language"
	"github.com/hanpama/mongograph/internal/schema"
)

func coerceVariableValues(sch *schema.Schema, operation *language.OperationDefinition, inputs map[string]any) (map[string]any, error) {
	coerced := make(map[string]any, len(operation.VariableDefinitions))
	for _, def := range operation.VariableDefinitions {
		typ := schema.TypeRefFromAST(def.Type)
		val, ok := inputs[def.Variable]
		if !ok {
			switch {
			case def.DefaultValue != nil:
				val = valueFromAST(def.DefaultValue, nil)
			case def.Type.NonNull:
				return nil, fmt.Errorf("variable $%s of required type %s was not provided", def.Variable, typ)
			default:
				continue
			}
		}
		cv, err := CoerceValue(sch, val, typ)
		if err != nil {
			return nil, fmt.Errorf("variable $%s of type %s: %w", def.Variable, typ, err)
		}
		coerced[def.Variable] = cv
	}
	return coerced, nil
}

// coerceArgumentValues reports false when any argument failed to coerce.
// The errors are already recorded at path.
func coerceArgumentValues(state *executionState, fieldDef *schema.Field, arguments language.ArgumentList, path Path) (map[string]any, bool) {
	coerced := make(map[string]any, len(fieldDef.Arguments))
	ok := true
	for _, argDef := range fieldDef.Arguments {
		arg := arguments.ForName(argDef.Name)
		provided := arg != nil
		var val any
		if provided {
			if arg.Value.Kind == language.Variable {
				_, provided = state.variables[arg.Value.Raw]
			}
			val = valueFromAST(arg.Value, state.variables)
		}
		if !provided {
			if argDef.DefaultValue != nil {
				coerced[argDef.Name] = literalDefault(argDef.DefaultValue)
			} else if schema.IsNonNull(argDef.Type) {
				state.addError(fmt.Sprintf("argument %q of required type %s was not provided", argDef.Name, argDef.Type), path)
				ok = false
			}
			continue
		}
		cv, err := CoerceValue(state.schema, val, argDef.Type)
		if err != nil {
			state.addError(fmt.Sprintf("argument %q: %v", argDef.Name, err), path)
			ok = false
			continue
		}
		coerced[argDef.Name] = cv
	}
	return coerced, ok
}

// literalDefault strips schema-only wrappers from a default value.
func literalDefault(v any) any {
	switch d := v.(type) {
	case schema.EnumLiteral:
		return string(d)
	case int64:
		return int(d)
	case []any:
		out := make([]any, len(d))
		for i, item := range d {
			out[i] = literalDefault(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(d))
		for k, item := range d {
			out[k] = literalDefault(item)
		}
		return out
	}
	return v
}

// valueFromAST converts a literal, substituting variables.
func valueFromAST(value *language.Value, variables map[string]any) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case language.Variable:
		return variables[value.Raw]
	case language.IntValue:
		if iv, err := strconv.ParseInt(value.Raw, 10, 64); err == nil {
			return int(iv)
		}
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case language.FloatValue:
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case language.StringValue, language.BlockValue, language.EnumValue:
		return value.Raw
	case language.BooleanValue:
		return value.Raw == "true"
	case language.NullValue:
		return nil
	case language.ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			out[i] = valueFromAST(c.Value, variables)
		}
		return out
	case language.ObjectValue:
		out := make(map[string]any, len(value.Children))
		for _, c := range value.Children {
			out[c.Name] = valueFromAST(c.Value, variables)
		}
		return out
	}
	return nil
}

// CoerceValue coerces an input value against an input type of the schema.
// Custom scalars pass through unchanged; enums must name a declared value and
// input objects are checked for unknown and missing required fields.
func CoerceValue(sch *schema.Schema, value any, typ *schema.TypeRef) (any, error) {
	if schema.IsNonNull(typ) {
		if value == nil {
			return nil, fmt.Errorf("expected non-null value of type %s", typ)
		}
		return CoerceValue(sch, value, schema.Unwrap(typ))
	}
	if value == nil {
		return nil, nil
	}
	if schema.IsList(typ) {
		inner := schema.Unwrap(typ)
		items, ok := value.([]any)
		if !ok {
			item, err := CoerceValue(sch, value, inner)
			if err != nil {
				return nil, err
			}
			return []any{item}, nil
		}
		out := make([]any, len(items))
		for i, item := range items {
			cv, err := CoerceValue(sch, item, inner)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = cv
		}
		return out, nil
	}

	name := schema.GetNamedType(typ)
	switch name {
	case "Int":
		return coerceToInt(value)
	case "Float":
		return coerceToFloat(value)
	case "String":
		return coerceToString(value)
	case "Boolean":
		return coerceToBoolean(value)
	case "ID":
		return coerceToID(value)
	}

	var t *schema.Type
	if sch != nil {
		t = sch.Types[name]
	}
	if t == nil {
		return value, nil
	}
	switch t.Kind {
	case schema.TypeKindEnum:
		s, ok := value.(string)
		if !ok || !t.HasEnumValue(s) {
			return nil, fmt.Errorf("value %v is not a member of enum %s", value, t.Name)
		}
		return s, nil
	case schema.TypeKindInputObject:
		return coerceInputObject(sch, t, value)
	}
	return value, nil
}

func coerceInputObject(sch *schema.Schema, t *schema.Type, value any) (any, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object for input type %s, got %T", t.Name, value)
	}
	for key := range obj {
		if t.InputFieldByName(key) == nil {
			return nil, fmt.Errorf("field %q is not defined by input type %s", key, t.Name)
		}
	}
	out := make(map[string]any, len(obj))
	for _, f := range t.InputFields {
		v, ok := obj[f.Name]
		if !ok {
			if f.DefaultValue != nil {
				out[f.Name] = literalDefault(f.DefaultValue)
			} else if schema.IsNonNull(f.Type) {
				return nil, fmt.Errorf("field %s.%s of required type %s was not provided", t.Name, f.Name, f.Type)
			}
			continue
		}
		cv, err := CoerceValue(sch, v, f.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name, f.Name, err)
		}
		out[f.Name] = cv
	}
	if t.OneOf && len(out) != 1 {
		return nil, fmt.Errorf("exactly one field must be set on %s", t.Name)
	}
	return out, nil
}

func coerceToInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}
	case float32:
		if v == float32(int(v)) {
			return int(v), nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Int", value, value)
}

func coerceToFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Float", value, value)
}

func coerceToString(value any) (any, error) {
	if v, ok := value.(string); ok {
		return v, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to String", value, value)
}

func coerceToBoolean(value any) (any, error) {
	if v, ok := value.(bool); ok {
		return v, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Boolean", value, value)
}

func coerceToID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10), nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to ID", value, value)
}
