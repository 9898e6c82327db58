package interp

import (
	"fmt"

	"github.com/cloudgate-project/cloudgate/internal/catalog"
	"github.com/cloudgate-project/cloudgate/internal/query"
)

// applyClientSideQuery filters a response through the command's query
// expression. Filtering is best effort: any failure returns the
// response unmodified rather than losing data the call already paid for.
//
// Paginated responses only honor the filter-projection part of the
// query. The projection is lifted out and applied to the arrays at the
// operation's result path, so the response keeps its documented shape
// and the pagination bookkeeping survives.
func applyClientSideQuery(resp map[string]any, rawQuery string, op *catalog.Operation, paginated bool) map[string]any {
	if rawQuery == "" {
		return resp
	}
	ast, err := query.Parse(rawQuery)
	if err != nil {
		return resp
	}

	if !paginated {
		out := map[string]any{"Result": query.Eval(ast, resp)}
		if md, ok := resp["ResponseMetadata"]; ok {
			out["ResponseMetadata"] = md
		}
		return out
	}

	fp := query.FindFilterProjection(ast)
	if fp == nil {
		return resp
	}
	query.RewriteRootToIdentity(fp)

	path := filterParsingPath(op)
	if len(path) == 0 {
		return resp
	}
	filtered, err := processFilter(resp, path, fp)
	if err != nil {
		return resp
	}
	if m, ok := filtered.(map[string]any); ok {
		return m
	}
	return resp
}

// filterParsingPath is the path to the arrays a filter applies to.
func filterParsingPath(op *catalog.Operation) []string {
	if len(op.ResultPath) > 0 {
		return op.ResultPath
	}
	if op.Pagination != nil && len(op.Pagination.ResultKeys) > 0 {
		return []string{op.Pagination.ResultKeys[0]}
	}
	return nil
}

// processFilter descends the parsing path and filters the target arrays
// in place, keeping the surrounding structure intact.
func processFilter(obj any, path []string, fp *query.FilterProjection) (any, error) {
	if len(path) == 0 {
		list, ok := obj.([]any)
		if !ok {
			return nil, fmt.Errorf("filter target is not a list")
		}
		return query.ApplyFilter(fp, list), nil
	}

	m, ok := obj.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("cannot descend %q into %T", path[0], obj)
	}
	child, ok := m[path[0]]
	if !ok {
		return nil, fmt.Errorf("missing key %q on the filter path", path[0])
	}

	// Intermediate list levels fan out, filtering each element.
	if list, ok := child.([]any); ok && len(path) > 1 {
		filtered := make([]any, 0, len(list))
		for _, item := range list {
			f, err := processFilter(item, path[1:], fp)
			if err != nil {
				return nil, err
			}
			filtered = append(filtered, f)
		}
		m[path[0]] = filtered
		return m, nil
	}

	f, err := processFilter(child, path[1:], fp)
	if err != nil {
		return nil, err
	}
	m[path[0]] = f
	return m, nil
}
