package interp

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/cloudgate-project/cloudgate/internal/catalog"
)

const (
	// defaultPageSize keeps individual pages small so a token budget can
	// cut off between pages instead of inside one huge page.
	defaultPageSize = 20

	// paginationTimeout bounds the wall clock spent fetching pages.
	paginationTimeout = 4 * time.Second

	metricDataCap = 3900
)

// paginationConfig is the extracted, clamped pagination plan for one call.
type paginationConfig struct {
	pageSize      *int
	maxItems      *int
	startingToken string
}

// paginationIncompatible lists parameters that disable server-side
// pagination for an operation when present.
var paginationIncompatible = map[string][]string{
	"ec2.DescribeInstances":      {"InstanceIds"},
	"ec2.DescribeImages":         {"ImageIds"},
	"ec2.DescribeSecurityGroups": {"GroupIds", "GroupNames"},
	"ec2.DescribeVpcs":           {"VpcIds"},
	"elbv2.DescribeLoadBalancers": {"Names"},
}

func paginationCompatible(svc *catalog.Service, op *catalog.Operation, params map[string]any) bool {
	if !op.CanPaginate() {
		return false
	}
	for _, name := range paginationIncompatible[svc.Name+"."+op.Name] {
		if _, ok := params[name]; ok {
			return false
		}
	}
	return true
}

// extractPaginationConfig pops pagination controls out of the parameter
// map and reconciles them with the caller-level result cap. An explicit
// MaxItems wins over both MaxResults sources; otherwise the smaller of
// the CLI and caller caps applies. The resulting item cap is clamped to
// the operation's declared bounds.
func extractPaginationConfig(params map[string]any, svc *catalog.Service, op *catalog.Operation, callerMax *int) paginationConfig {
	var cfg paginationConfig

	cliMax := popInt(params, "MaxResults")
	var maxItems *int
	switch {
	case cliMax != nil && callerMax != nil:
		m := min(*cliMax, *callerMax)
		maxItems = &m
	case cliMax != nil:
		maxItems = cliMax
	case callerMax != nil:
		m := *callerMax
		maxItems = &m
	}

	if pc, ok := params["PaginationConfig"].(map[string]any); ok {
		delete(params, "PaginationConfig")
		if v := asInt(pc["MaxItems"]); v != nil {
			maxItems = v
		}
		if v := asInt(pc["PageSize"]); v != nil {
			cfg.pageSize = v
		}
		if s, ok := pc["StartingToken"].(string); ok && s != "" {
			cfg.startingToken = s
		}
	}

	if cfg.pageSize == nil && paginationCompatible(svc, op, params) {
		ps := defaultPageSize
		cfg.pageSize = &ps
	}

	if maxItems != nil {
		v := *maxItems
		if lo, hi := maxItemsBounds(svc, op); lo > 0 || hi > 0 {
			if lo > 0 && v < lo {
				v = lo
			}
			if hi > 0 && v > hi {
				v = hi
			}
		}
		if svc.Name == "cloudwatch" && op.Name == "GetMetricData" && v > metricDataCap {
			v = metricDataCap
		}
		cfg.maxItems = &v
	}
	return cfg
}

// maxItemsBounds returns the clamp bounds for an operation's item cap.
// RDS Describe operations reject MaxRecords below 20 or above 100
// regardless of what the schema declares for the parameter.
func maxItemsBounds(svc *catalog.Service, op *catalog.Operation) (lo, hi int) {
	if svc.Name == "rds" && strings.HasPrefix(op.Name, "Describe") {
		return 20, 100
	}
	if op.Pagination == nil || op.Pagination.LimitKey == "" {
		return 0, 0
	}
	if p := op.Param(op.Pagination.LimitKey); p != nil {
		return p.Min, p.Max
	}
	return 0, 0
}

// estimateTokens approximates the LLM token cost of a serialized
// response. Structural braces count as whole tokens; the rest averages
// four characters per token.
func estimateTokens(serialized string) int {
	opens := strings.Count(serialized, "{")
	return int(math.Round(float64(len(serialized)-2*opens)/4.0 + float64(opens)))
}

// paginate fetches pages until the results are exhausted, the token
// budget runs out, the item cap is reached, or the wall clock expires.
// The first page is always kept even when it alone overruns the budget.
// The returned token resumes pagination where it stopped; it is empty
// when all pages were consumed.
func (it *Interpreter) paginate(ctx context.Context, svc *catalog.Service, op *catalog.Operation, params map[string]any, cfg paginationConfig, maxTokens *int, region string, creds Credentials) (map[string]any, string, error) {
	result := make(map[string]any)
	var metadata any
	var lastPage map[string]any

	inputToken := op.Pagination.InputToken
	outputToken := op.Pagination.OutputToken
	limitKey := op.Pagination.LimitKey

	skip := map[string]struct{}{"ResponseMetadata": {}}
	for _, key := range strings.Split(outputToken, ".") {
		skip[key] = struct{}{}
		break
	}

	var remaining int
	if maxTokens != nil {
		remaining = *maxTokens
	}

	token := cfg.startingToken
	resumeToken := ""
	first := true
	deadline := it.now().Add(paginationTimeout)

	for {
		pageParams := make(map[string]any, len(params)+2)
		for k, v := range params {
			pageParams[k] = v
		}
		if limitKey != "" && cfg.pageSize != nil {
			pageParams[limitKey] = *cfg.pageSize
		}
		if token != "" {
			pageParams[inputToken] = token
		}

		page, err := it.tr.Do(ctx, svc, op, region, pageParams, creds)
		if err != nil {
			return nil, "", err
		}

		if maxTokens != nil {
			serialized, _ := json.Marshal(page)
			remaining -= estimateTokens(string(serialized))
			if !first && remaining < 0 {
				// The page that broke the budget is not merged; its
				// input token resumes exactly there.
				resumeToken = token
				break
			}
		}

		mergePage(result, page, skip)
		lastPage = page
		if md, ok := page["ResponseMetadata"]; ok {
			metadata = md
		}

		next, _ := lookupPath(page, outputToken).(string)
		if next == "" {
			resumeToken = ""
			break
		}
		resumeToken = next

		if maxTokens != nil && first && remaining < 0 {
			break
		}
		if it.now().After(deadline) {
			break
		}
		if cfg.maxItems != nil && len(op.Pagination.ResultKeys) > 0 {
			if truncateTo(result, op.Pagination.ResultKeys[0], *cfg.maxItems) {
				break
			}
		}
		token = next
		first = false
	}

	for _, key := range op.Pagination.NonAggregateKeys {
		if v, ok := lastPage[key]; ok {
			result[key] = v
		}
	}
	if metadata != nil {
		result["ResponseMetadata"] = metadata
	}
	return result, resumeToken, nil
}

// mergePage folds one page into the accumulated result. Lists extend,
// numbers add, strings concatenate, anything else keeps its first value.
func mergePage(result, page map[string]any, skip map[string]struct{}) {
	for k, v := range page {
		if _, ok := skip[k]; ok {
			continue
		}
		existing, ok := result[k]
		if !ok {
			result[k] = v
			continue
		}
		switch prev := existing.(type) {
		case []any:
			if add, ok := v.([]any); ok {
				result[k] = append(prev, add...)
			}
		case float64:
			if add, ok := v.(float64); ok {
				result[k] = prev + add
			}
		case string:
			if add, ok := v.(string); ok {
				result[k] = prev + add
			}
		case map[string]any:
			if add, ok := v.(map[string]any); ok {
				mergePage(prev, add, nil)
			}
		}
	}
}

// truncateTo caps the list at the result key path to n items, reporting
// whether the cap was hit.
func truncateTo(result map[string]any, path string, n int) bool {
	parts := strings.Split(path, ".")
	cur := any(result)
	for i, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return false
		}
		if i == len(parts)-1 {
			list, ok := m[part].([]any)
			if !ok {
				return false
			}
			if len(list) >= n {
				m[part] = list[:n]
				return true
			}
			return false
		}
		cur = m[part]
	}
	return false
}

// lookupPath resolves a dotted key path in a decoded response.
func lookupPath(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[part]
	}
	return cur
}

func popInt(params map[string]any, key string) *int {
	v, ok := params[key]
	if !ok {
		return nil
	}
	n := asInt(v)
	if n != nil {
		delete(params, key)
	}
	return n
}

func asInt(v any) *int {
	switch n := v.(type) {
	case int:
		return &n
	case int64:
		i := int(n)
		return &i
	case float64:
		i := int(n)
		return &i
	}
	return nil
}
