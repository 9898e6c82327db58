package interp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/cloudgate-project/cloudgate/internal/catalog"
)

// Request is a fully serialized wire request, host and signature left to
// the transport.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers http.Header
	Body    []byte
}

// BuildRequest serializes parameters into the service's wire protocol.
// Parameter validation has already happened; failures here mean the
// value shapes cannot be expressed on the wire at all.
func BuildRequest(svc *catalog.Service, op *catalog.Operation, params map[string]any) (*Request, error) {
	switch svc.Protocol {
	case "query":
		return buildQueryRequest(svc, op, params)
	case "json":
		return buildJSONRequest(svc, op, params)
	case "rest-json":
		return buildRestRequest(svc, op, params, true)
	case "rest-xml":
		return buildRestRequest(svc, op, params, false)
	default:
		return nil, fmt.Errorf("unsupported protocol %q", svc.Protocol)
	}
}

// ValidateSerialization is the parser's dry-run pass: serialize and
// discard, reporting only whether the parameters survive the protocol.
func ValidateSerialization(svc *catalog.Service, op *catalog.Operation, params map[string]any) error {
	trimmed := make(map[string]any, len(params))
	for k, v := range params {
		if k == "PaginationConfig" {
			continue
		}
		trimmed[k] = v
	}
	_, err := BuildRequest(svc, op, trimmed)
	return err
}

func buildQueryRequest(svc *catalog.Service, op *catalog.Operation, params map[string]any) (*Request, error) {
	form := url.Values{}
	form.Set("Action", op.Name)
	form.Set("Version", svc.APIVersion)
	for _, name := range sortedKeys(params) {
		if err := flattenQueryValue(form, name, params[name]); err != nil {
			return nil, err
		}
	}
	headers := http.Header{}
	headers.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
	return &Request{
		Method:  http.MethodPost,
		Path:    "/",
		Headers: headers,
		Body:    []byte(form.Encode()),
	}, nil
}

// flattenQueryValue encodes nested values with dotted member paths and
// 1-based list indexes, the query protocol's flattened form.
func flattenQueryValue(form url.Values, prefix string, value any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		form.Set(prefix, v)
	case bool:
		form.Set(prefix, strconv.FormatBool(v))
	case int64:
		form.Set(prefix, strconv.FormatInt(v, 10))
	case float64:
		form.Set(prefix, formatJSONNumber(v))
	case []any:
		for i, element := range v {
			if err := flattenQueryValue(form, fmt.Sprintf("%s.%d", prefix, i+1), element); err != nil {
				return err
			}
		}
	case map[string]any:
		for _, key := range sortedKeys(v) {
			if err := flattenQueryValue(form, prefix+"."+key, v[key]); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("cannot serialize parameter %s of type %T", prefix, value)
	}
	return nil
}

func buildJSONRequest(svc *catalog.Service, op *catalog.Operation, params map[string]any) (*Request, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("cannot serialize parameters: %w", err)
	}
	headers := http.Header{}
	headers.Set("Content-Type", "application/x-amz-json-1.1")
	headers.Set("X-Amz-Target", svc.TargetPrefix+"."+op.Name)
	return &Request{
		Method:  http.MethodPost,
		Path:    "/",
		Headers: headers,
		Body:    body,
	}, nil
}

func buildRestRequest(svc *catalog.Service, op *catalog.Operation, params map[string]any, jsonBody bool) (*Request, error) {
	method := op.HTTPMethod
	if method == "" {
		method = http.MethodGet
	}
	uri := op.RequestURI
	if uri == "" {
		uri = "/"
	}
	path, staticQuery, _ := strings.Cut(uri, "?")

	remaining := make(map[string]any, len(params))
	for k, v := range params {
		remaining[k] = v
	}

	// URI template placeholders consume their parameters.
	for _, name := range sortedKeys(params) {
		placeholder := "{" + name + "}"
		if !strings.Contains(path, placeholder) {
			continue
		}
		s, ok := remaining[name].(string)
		if !ok {
			return nil, fmt.Errorf("parameter %s must be a string for the request path", name)
		}
		path = strings.ReplaceAll(path, placeholder, escapePathSegment(s))
		delete(remaining, name)
	}
	if i := strings.IndexByte(path, '{'); i >= 0 {
		return nil, fmt.Errorf("request path %s has unbound placeholders", path)
	}

	query, err := url.ParseQuery(staticQuery)
	if err != nil {
		return nil, fmt.Errorf("malformed request uri %q: %w", uri, err)
	}
	headers := http.Header{}
	var body []byte

	if method == http.MethodGet || method == http.MethodDelete || !jsonBody {
		for _, name := range sortedKeys(remaining) {
			switch v := remaining[name].(type) {
			case string:
				query.Set(catalog.XformName(name), v)
			case int64:
				query.Set(catalog.XformName(name), strconv.FormatInt(v, 10))
			case float64:
				query.Set(catalog.XformName(name), formatJSONNumber(v))
			case bool:
				query.Set(catalog.XformName(name), strconv.FormatBool(v))
			default:
				return nil, fmt.Errorf("cannot serialize parameter %s of type %T on the query string", name, v)
			}
		}
	} else if len(remaining) > 0 {
		body, err = json.Marshal(remaining)
		if err != nil {
			return nil, fmt.Errorf("cannot serialize parameters: %w", err)
		}
		headers.Set("Content-Type", "application/json")
	}

	return &Request{
		Method:  method,
		Path:    path,
		Query:   query,
		Headers: headers,
		Body:    body,
	}, nil
}

// escapePathSegment escapes a template value, keeping slashes for
// greedy key-style placeholders.
func escapePathSegment(s string) string {
	parts := strings.Split(s, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func formatJSONNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
