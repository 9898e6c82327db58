// Package interp executes validated commands against live service
// endpoints: it serializes parameters into the service's wire protocol,
// signs and sends the request, and shapes the response under pagination,
// token-budget and counting policies.
package interp

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cloudgate-project/cloudgate/internal/catalog"
	"github.com/cloudgate-project/cloudgate/internal/ir"
)

// Options bound one execution.
type Options struct {
	// MaxResults caps the number of items fetched across pages.
	MaxResults *int
	// MaxTokens is the response token budget. The first page is always
	// returned even when it alone exceeds the budget.
	MaxTokens *int
	// Count replaces the response payload with a resource count.
	Count bool
}

// Result is one execution's outcome.
type Result struct {
	Body            map[string]any
	PaginationToken string
	ResourceCount   *ResourceCount
}

// caller is the single round trip the interpreter is built on.
type caller interface {
	Do(ctx context.Context, svc *catalog.Service, op *catalog.Operation, region string, params map[string]any, creds Credentials) (map[string]any, error)
}

// Interpreter executes commands through a shared transport.
type Interpreter struct {
	cat *catalog.Catalog
	tr  caller
	log zerolog.Logger
	now func() time.Time
}

// New builds an interpreter over the given catalog and transport.
func New(cat *catalog.Catalog, tr *Transport, log zerolog.Logger) *Interpreter {
	return &Interpreter{cat: cat, tr: tr, log: log, now: time.Now}
}

// Execute runs a translated command. Customization commands have no
// direct wire form and are mapped to API operations by the caller.
func (it *Interpreter) Execute(ctx context.Context, cmd *ir.Command, creds Credentials, opts Options) (*Result, error) {
	if cmd.IsCustomization {
		return nil, fmt.Errorf("customization %s.%s has no direct wire form", cmd.ServiceName(), cmd.OperationName())
	}
	return it.ExecuteOperation(ctx, cmd.ServiceName(), cmd.OperationName(), cmd.Parameters, cmd.Region, cmd.ClientSideQuery, creds, opts)
}

// ExecuteOperation runs a single named operation. Paginated operations
// are fetched page by page under the configured budgets; everything
// else is one round trip.
func (it *Interpreter) ExecuteOperation(ctx context.Context, service, operation string, parameters map[string]any, region, clientQuery string, creds Credentials, opts Options) (*Result, error) {
	svc := it.cat.Service(service)
	if svc == nil {
		return nil, fmt.Errorf("unknown service %q", service)
	}
	op := svc.Operations[operation]
	if op == nil {
		return nil, fmt.Errorf("unknown operation %s.%s", service, operation)
	}

	params := make(map[string]any, len(parameters))
	for k, v := range parameters {
		params[k] = v
	}

	it.log.Debug().
		Str("service", service).
		Str("operation", operation).
		Str("region", region).
		Bool("paginated", paginationCompatible(svc, op, params)).
		Msg("executing operation")

	if paginationCompatible(svc, op, params) {
		cfg := extractPaginationConfig(params, svc, op, opts.MaxResults)
		if opts.Count {
			rc, err := it.countResources(ctx, svc, op, params, region, creds)
			if err != nil {
				return nil, err
			}
			return &Result{ResourceCount: rc}, nil
		}
		body, token, err := it.paginate(ctx, svc, op, params, cfg, opts.MaxTokens, region, creds)
		if err != nil {
			return nil, err
		}
		body = applyClientSideQuery(body, clientQuery, op, true)
		if token != "" {
			body["pagination_token"] = token
		}
		return &Result{Body: body, PaginationToken: token}, nil
	}

	body, err := it.tr.Do(ctx, svc, op, region, params, creds)
	if err != nil {
		return nil, err
	}
	if opts.Count {
		return &Result{ResourceCount: &ResourceCount{Count: countInPage(op, body), Status: CountExact}}, nil
	}
	body = applyClientSideQuery(body, clientQuery, op, false)
	return &Result{Body: body}, nil
}
