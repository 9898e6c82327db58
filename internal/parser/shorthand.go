package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudgate-project/cloudgate/internal/catalog"
	"github.com/cloudgate-project/cloudgate/internal/ir"
)

// parseShorthand turns "Key=Value,Values=a,b" into a map. A segment with
// a key= prefix starts a new pair; bare segments extend the previous
// pair's value into a list, which is how list-valued members like
// Values=a,b,c come through a single token.
func parseShorthand(raw string) (map[string]any, error) {
	result := make(map[string]any)
	var lastKey string
	for _, segment := range strings.Split(raw, ",") {
		key, value, found := strings.Cut(segment, "=")
		if found && isShorthandKey(key) {
			if _, dup := result[key]; dup {
				return nil, fmt.Errorf("duplicate key %q", key)
			}
			result[key] = value
			lastKey = key
			continue
		}
		if lastKey == "" {
			return nil, fmt.Errorf("expected key=value pair, got %q", segment)
		}
		switch prev := result[lastKey].(type) {
		case string:
			result[lastKey] = []any{prev, segment}
		case []any:
			result[lastKey] = append(prev, segment)
		}
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("expected key=value pair, got %q", raw)
	}
	return result, nil
}

func isShorthandKey(key string) bool {
	if key == "" {
		return false
	}
	for i, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case i > 0 && (r >= '0' && r <= '9' || r == '.' || r == '-'):
		default:
			return false
		}
	}
	return true
}

func looksLikeJSON(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

// coerceElement converts one raw value token into its parameter value:
// JSON documents decode, key=value text goes through the shorthand
// parser, anything else stays a string.
func coerceElement(flag, raw string) (any, error) {
	if looksLikeJSON(raw) {
		var decoded any
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			return nil, ir.NewShortHandParserError(flag, err.Error())
		}
		return decoded, nil
	}
	if key, _, found := strings.Cut(raw, "="); found && isShorthandKey(key) {
		parsed, err := parseShorthand(raw)
		if err != nil {
			return nil, ir.NewShortHandParserError(flag, err.Error())
		}
		return parsed, nil
	}
	return raw, nil
}

// coerceValue converts the raw tokens captured for a flag into the typed
// parameter value the serializer expects.
func coerceValue(param *catalog.Parameter, flag string, raw []string) (any, error) {
	switch param.Type {
	case "integer", "long":
		n, err := strconv.ParseInt(raw[0], 10, 64)
		if err != nil {
			return nil, ir.NewInvalidTypeForParameterError(flag, "int")
		}
		return n, nil
	case "float", "double":
		f, err := strconv.ParseFloat(raw[0], 64)
		if err != nil {
			return nil, ir.NewInvalidTypeForParameterError(flag, "float")
		}
		return f, nil
	case "boolean":
		if len(raw) == 0 {
			return true, nil
		}
		b, err := strconv.ParseBool(raw[0])
		if err != nil {
			return nil, ir.NewInvalidTypeForParameterError(flag, "bool")
		}
		return b, nil
	case "list":
		if len(raw) == 1 && looksLikeJSON(raw[0]) {
			decoded, err := coerceElement(flag, raw[0])
			if err != nil {
				return nil, err
			}
			if list, ok := decoded.([]any); ok {
				return list, nil
			}
			return []any{decoded}, nil
		}
		list := make([]any, 0, len(raw))
		for _, token := range raw {
			element, err := coerceElement(flag, token)
			if err != nil {
				return nil, err
			}
			list = append(list, element)
		}
		return list, nil
	case "map", "structure":
		return coerceElement(flag, raw[0])
	default: // string, timestamp, blob
		value := raw[0]
		if len(param.Choices) > 0 {
			ok := false
			for _, choice := range param.Choices {
				if value == choice {
					ok = true
					break
				}
			}
			if !ok {
				return nil, ir.NewInvalidChoiceForParameterError(catalog.XformName(param.Name), value)
			}
		}
		return value, nil
	}
}
