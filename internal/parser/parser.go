// Package parser translates a textual CLI command into a validated,
// structured command. Translation never touches the network: every
// failure a live call would hit for malformed input is surfaced here,
// before any credential is used.
package parser

import (
	"github.com/rs/zerolog"

	"github.com/cloudgate-project/cloudgate/internal/catalog"
	"github.com/cloudgate-project/cloudgate/internal/interp"
	"github.com/cloudgate-project/cloudgate/internal/ir"
	"github.com/cloudgate-project/cloudgate/internal/lexer"
	"github.com/cloudgate-project/cloudgate/internal/query"
	"github.com/cloudgate-project/cloudgate/internal/regions"
)

// Parser owns the translation pipeline over a loaded catalog.
type Parser struct {
	cat *catalog.Catalog
	log zerolog.Logger
}

// New builds a parser over the given catalog.
func New(cat *catalog.Catalog, log zerolog.Logger) *Parser {
	return &Parser{cat: cat, log: log}
}

// Parse translates one CLI command string. The returned error is always
// an ir.ValidationError or ir.MissingContextError; the returned command
// is ready for classification and execution.
func (p *Parser) Parse(cliCommand string) (*ir.Command, error) {
	tokens, err := lexer.Split(cliCommand)
	if err != nil {
		return nil, err
	}
	tokens = lexer.ExpandUserHome(tokens[1:])

	globals, rest, err := extractGlobalArgs(tokens)
	if err != nil {
		return nil, err
	}
	if len(rest) == 0 {
		return nil, ir.NewCommandValidationError("the following arguments are required: command")
	}

	serviceToken := rest[0]
	svc, err := p.cat.ResolveService(serviceToken)
	if err != nil {
		return nil, err
	}
	if len(rest) == 1 {
		return nil, ir.NewMissingOperationError()
	}
	if denied := globals.denied(); len(denied) > 0 {
		return nil, ir.NewDeniedGlobalArgumentsError(serviceToken, denied)
	}

	opToken := rest[1]
	args := rest[2:]

	var cmd *ir.Command
	switch {
	case opToken == "wait":
		cmd, err = p.parseWaiter(svc, serviceToken, args)
	case serviceToken == "s3":
		// The bare s3 namespace only carries the high-level file
		// commands; the API surface lives under s3api.
		cmd, err = p.parseServiceCustomization(svc, "s3", opToken, args)
	case hasServiceCustomization(svc.Name, opToken):
		cmd, err = p.parseServiceCustomization(svc, svc.Name, opToken, args)
	default:
		if svc.Name == "emr" {
			if _, deniedOp := emrDeniedOperations[opToken]; deniedOp {
				return nil, ir.NewOperationNotAllowedError(svc.Name, opToken)
			}
		}
		cmd, err = p.parseOperation(svc, serviceToken, opToken, args)
	}
	if err != nil {
		return nil, err
	}

	cmd.Region = resolveRegion(svc.Name, globals.region, cmd.Parameters)
	cmd.ClientSideQuery = globals.query
	if globals.query != "" {
		if _, qerr := query.Parse(globals.query); qerr != nil {
			return nil, ir.NewClientSideFilterError(svc.Name, cmd.OperationName(), globals.query, qerr.Error())
		}
	}

	p.log.Debug().
		Str("service", cmd.ServiceName()).
		Str("operation", cmd.OperationName()).
		Bool("customization", cmd.IsCustomization).
		Msg("translated command")
	return cmd, nil
}

// parseOperation handles the regular, catalog-backed API surface.
func (p *Parser) parseOperation(svc *catalog.Service, serviceToken, opToken string, args []string) (*ir.Command, error) {
	op := svc.OperationByCLIName(opToken)
	if op == nil {
		return nil, ir.NewInvalidServiceOperationError(serviceToken, opToken)
	}
	meta := ir.CommandMetadata{
		ServiceSDKName:     svc.Name,
		ServiceFullSDKName: svc.FullName,
		OperationSDKName:   op.Name,
		HasStreamingOutput: op.Streaming,
	}

	parsed, err := parseArgTable(op, meta, args)
	if err != nil {
		return nil, err
	}
	if err := checkParsedArgs(op, meta, serviceToken, opToken, parsed); err != nil {
		return nil, err
	}
	if err := validateFilters(svc.Name, opToken, op, parsed.values); err != nil {
		return nil, err
	}
	if err := runCustomValidations(svc.Name, op.Name, parsed.values); err != nil {
		return nil, err
	}
	if err := interp.ValidateSerialization(svc, op, parsed.values); err != nil {
		return nil, ir.NewRequestSerializationError(svc.Name, opToken, err.Error())
	}

	return &ir.Command{Metadata: meta, Parameters: parsed.values}, nil
}

// parseWaiter handles `<service> wait <condition>` subcommands. The
// argument table is the underlying polled operation's.
func (p *Parser) parseWaiter(svc *catalog.Service, serviceToken string, args []string) (*ir.Command, error) {
	if len(args) == 0 {
		return nil, ir.NewMissingOperationError()
	}
	condition := args[0]
	waiter := svc.WaiterByCondition(condition)
	if waiter == nil {
		return nil, ir.NewInvalidServiceOperationError(serviceToken, "wait "+condition)
	}

	meta := ir.CommandMetadata{
		ServiceSDKName:     svc.Name,
		ServiceFullSDKName: svc.FullName,
		OperationSDKName:   "wait " + condition,
	}
	op := catalog.NewOperation("wait "+condition, waiter.Parameters)
	parsed, err := parseArgTable(op, meta, args[1:])
	if err != nil {
		return nil, err
	}
	if err := checkParsedArgs(op, meta, serviceToken, "wait "+condition, parsed); err != nil {
		return nil, err
	}

	return &ir.Command{Metadata: meta, Parameters: parsed.values, IsCustomization: true}, nil
}

// parseServiceCustomization handles CLI-only commands that have no
// one-to-one API operation.
func (p *Parser) parseServiceCustomization(svc *catalog.Service, namespace, opToken string, args []string) (*ir.Command, error) {
	var spec customSpec
	var ok bool
	if namespace == "s3" && svc.Name == "s3" {
		spec, ok = s3Customizations[opToken]
	} else {
		spec, ok = serviceCustomizations[namespace][opToken]
	}
	if !ok {
		return nil, ir.NewInvalidServiceOperationError(namespace, opToken)
	}

	meta := ir.CommandMetadata{
		ServiceSDKName:     svc.Name,
		ServiceFullSDKName: svc.FullName,
		OperationSDKName:   opToken,
	}
	params, err := parseCustomization(namespace, opToken, spec, meta, args)
	if err != nil {
		return nil, err
	}
	return &ir.Command{Metadata: meta, Parameters: params, IsCustomization: true}, nil
}

func hasServiceCustomization(service, operation string) bool {
	ops, ok := serviceCustomizations[service]
	if !ok {
		return false
	}
	_, ok = ops[operation]
	return ok
}

// resolveRegion combines the explicit --region value with regions
// recovered from ARN-shaped parameter values. Globally pinned services
// override both.
func resolveRegion(service, explicit string, params map[string]any) string {
	var values []string
	for _, v := range params {
		if s, ok := v.(string); ok {
			values = append(values, s)
		}
	}
	return regions.Resolve(service, explicit, regions.FromARNs(values), "")
}
