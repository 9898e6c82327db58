package parser

import (
	"sort"
	"strings"

	"github.com/cloudgate-project/cloudgate/internal/catalog"
	"github.com/cloudgate-project/cloudgate/internal/ir"
)

// The three canonical filter shapes. Iteration order matters: when an
// operation's key set covers more than one shape the later entry wins,
// matching how the shape lookup has always resolved ties.
var filterShapes = []struct {
	keys    []string
	nameKey string
}{
	{[]string{"Name", "Values"}, "Name"},
	{[]string{"Key", "Values"}, "Key"},
	{[]string{"key", "value"}, "key"},
}

// validateFilters checks a Filters parameter against the operation's
// declared filter contract: shape first, then per-element key sets, then
// the filter names themselves.
func validateFilters(service, operation string, op *catalog.Operation, params map[string]any) error {
	raw, present := params["Filters"]
	if !present || op.Filters == nil {
		return nil
	}
	spec := op.Filters

	specKeys := make(map[string]struct{}, len(spec.Keys))
	for _, k := range spec.Keys {
		specKeys[k] = struct{}{}
	}

	nameKey := ""
	for _, shape := range filterShapes {
		covered := true
		for _, k := range shape.keys {
			if _, ok := specKeys[k]; !ok {
				covered = false
				break
			}
		}
		if covered {
			nameKey = shape.nameKey
		}
	}
	if nameKey == "" {
		return ir.NewUnsupportedFilterError(service, operation, spec.Keys)
	}

	elements, ok := raw.([]any)
	if !ok {
		elements = []any{raw}
	}

	var unknown []string
	for _, element := range elements {
		m, ok := element.(map[string]any)
		if !ok {
			return ir.NewMalformedFilterError(service, operation, nil, spec.Keys)
		}
		elementKeys := make([]string, 0, len(m))
		for k := range m {
			elementKeys = append(elementKeys, k)
		}
		if !sameKeySet(elementKeys, spec.Keys) {
			return ir.NewMalformedFilterError(service, operation, elementKeys, spec.Keys)
		}

		name, _ := m[nameKey].(string)
		if !filterNameAllowed(spec, name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return ir.NewUnknownFiltersError(service, unknown)
	}
	return nil
}

func sameKeySet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(b))
	for _, k := range b {
		set[k] = struct{}{}
	}
	for _, k := range a {
		if _, ok := set[k]; !ok {
			return false
		}
	}
	return true
}

// filterNameAllowed checks a filter name against the permitted set. An
// empty permitted set accepts every name.
func filterNameAllowed(spec *catalog.FilterSpec, name string) bool {
	if len(spec.Allowed) == 0 {
		return true
	}
	if spec.AllowsTagKey && strings.HasPrefix(name, "tag:") {
		return true
	}
	for _, allowed := range spec.Allowed {
		if name == allowed {
			return true
		}
	}
	return false
}
