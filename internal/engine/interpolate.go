package engine

import (
	"regexp"
	"strconv"
)

// tokenPattern matches {{name}} and {{name.field}} placeholders.
// name is the input key or a prior step's name; field projects one
// key out of a mapping-shaped output.
var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_-]*)(?:\.([A-Za-z0-9_-]+))?\s*\}\}`)

// InterpolateParams resolves every token inside a step's params
// against the scope. Resolution recurses into nested mappings and
// sequences but never touches keys. Numeric and boolean leaves pass
// through unchanged.
//
// stepName is used only for error context.
func InterpolateParams(stepName string, params map[string]any, scope *Scope) (map[string]any, error) {
	if params == nil {
		return map[string]any{}, nil
	}
	resolved, err := interpolateValue(stepName, params, scope)
	if err != nil {
		return nil, err
	}
	return resolved.(map[string]any), nil
}

// interpolateValue resolves tokens in one value, recursively.
func interpolateValue(stepName string, value any, scope *Scope) (any, error) {
	switch v := value.(type) {
	case string:
		return interpolateString(stepName, v, scope)

	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			resolved, err := interpolateValue(stepName, val, scope)
			if err != nil {
				return nil, err
			}
			result[key] = resolved
		}
		return result, nil

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			resolved, err := interpolateValue(stepName, val, scope)
			if err != nil {
				return nil, err
			}
			result[i] = resolved
		}
		return result, nil

	default:
		return value, nil
	}
}

// interpolateString resolves tokens in one string leaf.
//
// A string that is exactly one token yields the referenced value as
// is, whatever its type, so structured outputs can be passed through
// whole. Tokens embedded in a longer string must resolve to scalars.
func interpolateString(stepName, s string, scope *Scope) (any, error) {
	matches := tokenPattern.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	// Exact-token form: the whole string is a single placeholder.
	if len(matches) == 1 && matches[0][0] == 0 && matches[0][1] == len(s) {
		return resolveToken(stepName, s, matches[0], scope)
	}

	out := make([]byte, 0, len(s))
	last := 0
	for _, m := range matches {
		out = append(out, s[last:m[0]]...)

		value, err := resolveToken(stepName, s, m, scope)
		if err != nil {
			return nil, err
		}
		text, ok := scalarString(value)
		if !ok {
			return nil, &InterpolationError{
				StepName: stepName,
				Token:    s[m[0]:m[1]],
				Err:      ErrNonScalarToken,
			}
		}
		out = append(out, text...)
		last = m[1]
	}
	out = append(out, s[last:]...)

	return string(out), nil
}

// resolveToken looks up one matched token in the scope.
// m is a FindAllStringSubmatchIndex entry over s.
func resolveToken(stepName, s string, m []int, scope *Scope) (any, error) {
	token := s[m[0]:m[1]]
	name := s[m[2]:m[3]]

	value, ok := scope.Get(name)
	if !ok {
		return nil, &InterpolationError{StepName: stepName, Token: token, Err: ErrUnresolvedToken}
	}

	if m[4] < 0 {
		return value, nil
	}
	field := s[m[4]:m[5]]

	switch payload := value.(type) {
	case map[string]any:
		fieldValue, ok := payload[field]
		if !ok {
			return nil, &InterpolationError{StepName: stepName, Token: token, Err: ErrUnresolvedField}
		}
		return fieldValue, nil
	case map[string]string:
		fieldValue, ok := payload[field]
		if !ok {
			return nil, &InterpolationError{StepName: stepName, Token: token, Err: ErrUnresolvedField}
		}
		return fieldValue, nil
	default:
		return nil, &InterpolationError{StepName: stepName, Token: token, Err: ErrUnresolvedField}
	}
}

// scalarString renders a scalar value as text for splicing into a
// larger string. Returns false for structured values.
func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	default:
		return "", false
	}
}
