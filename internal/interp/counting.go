package interp

import (
	"context"
	"sort"

	"github.com/cloudgate-project/cloudgate/internal/catalog"
)

const (
	// maxCountedResources caps counting so a count never turns into an
	// unbounded full-table walk.
	maxCountedResources = 500

	CountExact   = "exact"
	CountAtLeast = "at_least"
)

// ResourceCount is the outcome of a counting run. Status is at_least
// when the walk stopped before the last page.
type ResourceCount struct {
	Count  int    `json:"resource_count"`
	Status string `json:"count_status"`
}

// countResources walks all pages of a paginated operation and counts
// the resources each page carries, without accumulating the payloads.
// The walk stops at the resource cap or the pagination deadline.
func (it *Interpreter) countResources(ctx context.Context, svc *catalog.Service, op *catalog.Operation, params map[string]any, region string, creds Credentials) (*ResourceCount, error) {
	deadline := it.now().Add(paginationTimeout)
	token := ""
	total := 0

	for {
		pageParams := make(map[string]any, len(params)+1)
		for k, v := range params {
			pageParams[k] = v
		}
		if token != "" {
			pageParams[op.Pagination.InputToken] = token
		}

		page, err := it.tr.Do(ctx, svc, op, region, pageParams, creds)
		if err != nil {
			return nil, err
		}
		total += countInPage(op, page)
		if total > maxCountedResources {
			return &ResourceCount{Count: maxCountedResources, Status: CountAtLeast}, nil
		}

		next, _ := lookupPath(page, op.Pagination.OutputToken).(string)
		if next == "" {
			return &ResourceCount{Count: total, Status: CountExact}, nil
		}
		if it.now().After(deadline) {
			return &ResourceCount{Count: total, Status: CountAtLeast}, nil
		}
		token = next
	}
}

// countInPage counts the resources one page carries. Operations with a
// declared result path are counted through it; anything else falls back
// to the length of the first top-level list in the page.
func countInPage(op *catalog.Operation, page map[string]any) int {
	if len(op.ResultPath) > 0 {
		return countResourcesFromPath(page, op.ResultPath)
	}
	keys := make([]string, 0, len(page))
	for k := range page {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if list, ok := page[k].([]any); ok {
			return len(list)
		}
	}
	return 0
}

// countResourcesFromPath descends the parsing path, summing over list
// levels. An exhausted path counts one resource; a shape mismatch
// counts zero.
func countResourcesFromPath(obj any, path []string) int {
	if list, ok := obj.([]any); ok {
		total := 0
		for _, item := range list {
			total += countResourcesFromPath(item, path)
		}
		return total
	}
	if len(path) == 0 {
		return 1
	}
	if m, ok := obj.(map[string]any); ok {
		child, ok := m[path[0]]
		if !ok {
			return 0
		}
		return countResourcesFromPath(child, path[1:])
	}
	return 0
}
