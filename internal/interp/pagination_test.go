package interp

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cloudgate-project/cloudgate/internal/catalog"
)

// fakeCaller replays a scripted sequence of pages and records the
// parameters of each call.
type fakeCaller struct {
	pages []map[string]any
	errs  []error
	calls []map[string]any
}

func (f *fakeCaller) Do(_ context.Context, _ *catalog.Service, _ *catalog.Operation, _ string, params map[string]any, _ Credentials) (map[string]any, error) {
	i := len(f.calls)
	f.calls = append(f.calls, params)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.pages) {
		return map[string]any{}, nil
	}
	return f.pages[i], nil
}

func newTestInterpreter(t *testing.T, fake *fakeCaller) (*Interpreter, *catalog.Catalog) {
	t.Helper()
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return &Interpreter{cat: cat, tr: fake, log: zerolog.Nop(), now: time.Now}, cat
}

func intPtr(n int) *int { return &n }

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		serialized string
		want       int
	}{
		{"", 0},
		{"{}", 1}, // 2 chars, 1 brace: (2-2)/4 + 1
		{`{"Users":[]}`, 4},
		{"abcdefgh", 2},
	}
	for _, tt := range tests {
		if got := estimateTokens(tt.serialized); got != tt.want {
			t.Errorf("estimateTokens(%q) = %d, want %d", tt.serialized, got, tt.want)
		}
	}
}

func TestExtractPaginationConfigPageSizeInjection(t *testing.T) {
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	svc := cat.Service("iam")
	op := svc.Operations["ListUsers"]

	params := map[string]any{}
	cfg := extractPaginationConfig(params, svc, op, nil)
	if cfg.pageSize == nil || *cfg.pageSize != defaultPageSize {
		t.Fatalf("expected default page size %d, got %v", defaultPageSize, cfg.pageSize)
	}
	if cfg.maxItems != nil {
		t.Fatalf("expected no item cap, got %v", *cfg.maxItems)
	}
}

func TestExtractPaginationConfigMaxResultsReconciliation(t *testing.T) {
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	svc := cat.Service("ec2")
	op := svc.Operations["DescribeVpcs"]

	params := map[string]any{"MaxResults": int64(50)}
	cfg := extractPaginationConfig(params, svc, op, intPtr(30))
	if _, ok := params["MaxResults"]; ok {
		t.Fatal("MaxResults should be popped from the parameters")
	}
	if cfg.maxItems == nil || *cfg.maxItems != 30 {
		t.Fatalf("expected the smaller cap 30, got %v", cfg.maxItems)
	}
}

func TestExtractPaginationConfigMaxItemsWins(t *testing.T) {
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	svc := cat.Service("ec2")
	op := svc.Operations["DescribeVpcs"]

	params := map[string]any{
		"MaxResults":       int64(50),
		"PaginationConfig": map[string]any{"MaxItems": int64(12), "PageSize": int64(6), "StartingToken": "tok"},
	}
	cfg := extractPaginationConfig(params, svc, op, intPtr(30))
	if cfg.maxItems == nil || *cfg.maxItems != 12 {
		t.Fatalf("MaxItems should win over both MaxResults sources, got %v", cfg.maxItems)
	}
	if cfg.pageSize == nil || *cfg.pageSize != 6 {
		t.Fatalf("explicit PageSize should be kept, got %v", cfg.pageSize)
	}
	if cfg.startingToken != "tok" {
		t.Fatalf("StartingToken = %q", cfg.startingToken)
	}
	if _, ok := params["PaginationConfig"]; ok {
		t.Fatal("PaginationConfig should be popped from the parameters")
	}
}

func TestExtractPaginationConfigRDSClamp(t *testing.T) {
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	svc := cat.Service("rds")
	op := svc.Operations["DescribeDBInstances"]

	for _, tt := range []struct{ in, want int }{
		{5, 20},
		{50, 50},
		{500, 100},
	} {
		params := map[string]any{}
		cfg := extractPaginationConfig(params, svc, op, intPtr(tt.in))
		if cfg.maxItems == nil || *cfg.maxItems != tt.want {
			t.Errorf("cap %d: got %v, want %d", tt.in, cfg.maxItems, tt.want)
		}
	}
}

func TestExtractPaginationConfigMetricDataCap(t *testing.T) {
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	svc := cat.Service("cloudwatch")
	op := svc.Operations["GetMetricData"]

	params := map[string]any{}
	cfg := extractPaginationConfig(params, svc, op, intPtr(100000))
	if cfg.maxItems == nil || *cfg.maxItems != metricDataCap {
		t.Fatalf("expected the %d cap, got %v", metricDataCap, cfg.maxItems)
	}
}

func TestPaginationIncompatibleParams(t *testing.T) {
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	svc := cat.Service("ec2")
	op := svc.Operations["DescribeInstances"]

	if paginationCompatible(svc, op, map[string]any{"InstanceIds": []any{"i-0123456789abcdef0"}}) {
		t.Fatal("listing by id should disable pagination")
	}
	if !paginationCompatible(svc, op, map[string]any{}) {
		t.Fatal("plain describe should paginate")
	}
}

func TestMergePage(t *testing.T) {
	result := map[string]any{
		"Users":   []any{"a"},
		"Total":   float64(1),
		"Prefix":  "x",
		"Ignored": map[string]any{"A": "1"},
	}
	mergePage(result, map[string]any{
		"Users":   []any{"b", "c"},
		"Total":   float64(2),
		"Prefix":  "y",
		"Ignored": map[string]any{"B": "2"},
		"New":     "fresh",
	}, nil)

	users := result["Users"].([]any)
	if len(users) != 3 || users[2] != "c" {
		t.Fatalf("lists should extend, got %v", users)
	}
	if result["Total"].(float64) != 3 {
		t.Fatalf("numbers should add, got %v", result["Total"])
	}
	if result["Prefix"].(string) != "xy" {
		t.Fatalf("strings should concatenate, got %v", result["Prefix"])
	}
	if result["New"] != "fresh" {
		t.Fatal("new keys should be taken from the page")
	}
}

func TestPaginateMergesAllPages(t *testing.T) {
	fake := &fakeCaller{pages: []map[string]any{
		{"Users": []any{map[string]any{"UserName": "alice"}}, "Marker": "page2", "IsTruncated": "true",
			"ResponseMetadata": map[string]any{"RequestId": "r1"}},
		{"Users": []any{map[string]any{"UserName": "bob"}},
			"ResponseMetadata": map[string]any{"RequestId": "r2"}},
	}}
	it, cat := newTestInterpreter(t, fake)
	svc := cat.Service("iam")
	op := svc.Operations["ListUsers"]

	body, token, err := it.paginate(context.Background(), svc, op, map[string]any{}, paginationConfig{}, nil, "us-east-1", Credentials{})
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}
	if token != "" {
		t.Fatalf("expected exhausted pagination, got token %q", token)
	}
	users := body["Users"].([]any)
	if len(users) != 2 {
		t.Fatalf("expected both pages merged, got %d users", len(users))
	}
	md := body["ResponseMetadata"].(map[string]any)
	if md["RequestId"] != "r2" {
		t.Fatalf("metadata should come from the last page, got %v", md)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(fake.calls))
	}
	if got := fake.calls[1]["Marker"]; got != "page2" {
		t.Fatalf("second call should carry the output token, got %v", got)
	}
}

func TestPaginateFirstPageAlwaysKept(t *testing.T) {
	fake := &fakeCaller{pages: []map[string]any{
		{"Users": []any{map[string]any{"UserName": "alice"}}, "Marker": "page2"},
		{"Users": []any{map[string]any{"UserName": "bob"}}},
	}}
	it, cat := newTestInterpreter(t, fake)
	svc := cat.Service("iam")
	op := svc.Operations["ListUsers"]

	// A budget no page can fit under still yields the first page.
	body, token, err := it.paginate(context.Background(), svc, op, map[string]any{}, paginationConfig{}, intPtr(1), "us-east-1", Credentials{})
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("budget overrun on the first page should stop fetching, got %d calls", len(fake.calls))
	}
	if len(body["Users"].([]any)) != 1 {
		t.Fatal("first page must be kept despite the budget")
	}
	if token != "page2" {
		t.Fatalf("resume token should point at the unfetched page, got %q", token)
	}
}

func TestPaginateBudgetStopSkipsUnaffordablePage(t *testing.T) {
	fake := &fakeCaller{pages: []map[string]any{
		{"Users": []any{map[string]any{"UserName": "alice"}}, "Marker": "page2"},
		{"Users": []any{map[string]any{"UserName": "bob"}}, "Marker": "page3"},
		{"Users": []any{map[string]any{"UserName": "carol"}}},
	}}
	it, cat := newTestInterpreter(t, fake)
	svc := cat.Service("iam")
	op := svc.Operations["ListUsers"]

	// Enough for the first page but not the second.
	body, token, err := it.paginate(context.Background(), svc, op, map[string]any{}, paginationConfig{}, intPtr(20), "us-east-1", Credentials{})
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}
	if len(body["Users"].([]any)) != 1 {
		t.Fatalf("page over budget must not be merged, got %v", body["Users"])
	}
	if token != "page2" {
		t.Fatalf("resume token should refetch the dropped page, got %q", token)
	}
}

func TestPaginateWallClockDeadline(t *testing.T) {
	fake := &fakeCaller{pages: []map[string]any{
		{"Users": []any{map[string]any{"UserName": "alice"}}, "Marker": "page2"},
		{"Users": []any{map[string]any{"UserName": "bob"}}},
	}}
	it, cat := newTestInterpreter(t, fake)
	base := time.Now()
	ticks := 0
	it.now = func() time.Time {
		ticks++
		// Deadline computation, then one check per page.
		return base.Add(time.Duration(ticks) * 5 * time.Second)
	}
	svc := cat.Service("iam")
	op := svc.Operations["ListUsers"]

	body, token, err := it.paginate(context.Background(), svc, op, map[string]any{}, paginationConfig{}, nil, "us-east-1", Credentials{})
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("deadline should stop after the first page, got %d calls", len(fake.calls))
	}
	if len(body["Users"].([]any)) != 1 {
		t.Fatal("first page must survive a deadline stop")
	}
	if token != "page2" {
		t.Fatalf("resume token = %q", token)
	}
}

func TestPaginateItemCapTruncates(t *testing.T) {
	fake := &fakeCaller{pages: []map[string]any{
		{"Users": []any{map[string]any{"UserName": "a"}, map[string]any{"UserName": "b"}}, "Marker": "page2"},
		{"Users": []any{map[string]any{"UserName": "c"}}},
	}}
	it, cat := newTestInterpreter(t, fake)
	svc := cat.Service("iam")
	op := svc.Operations["ListUsers"]

	body, token, err := it.paginate(context.Background(), svc, op, map[string]any{}, paginationConfig{maxItems: intPtr(2)}, nil, "us-east-1", Credentials{})
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}
	if len(body["Users"].([]any)) != 2 {
		t.Fatalf("item cap should truncate, got %v", body["Users"])
	}
	if token != "page2" {
		t.Fatalf("resume token = %q", token)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("cap reached on page 1, expected 1 call, got %d", len(fake.calls))
	}
}
