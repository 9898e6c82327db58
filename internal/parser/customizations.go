package parser

import (
	"github.com/cloudgate-project/cloudgate/internal/catalog"
	"github.com/cloudgate-project/cloudgate/internal/ir"
)

// customSpec describes a CLI-only operation: its named arguments plus
// how many positional arguments it takes.
type customSpec struct {
	params         []catalog.Parameter
	minPositional  int
	maxPositional  int
	positionalName string
}

// The emr high-level family expands into several dependent API calls on
// the client; the expansion is not reproducible here, so every member is
// rejected outright.
var emrDeniedOperations = map[string]struct{}{
	"create-cluster":            {},
	"describe-cluster":          {},
	"terminate-cluster":         {},
	"modify-cluster-attributes": {},
	"install-applications":      {},
	"add-steps":                 {},
	"add-instance-groups":       {},
	"restore-from-hbase-backup": {},
	"create-hbase-backup":       {},
	"schedule-hbase-backup":     {},
	"disable-hbase-backup":      {},
	"create-default-roles":      {},
}

// The s3 command namespace is entirely CLI customizations; the API
// operations live under s3api.
var s3Customizations = map[string]customSpec{
	"ls": {
		params: []catalog.Parameter{
			{Name: "Recursive", Type: "boolean"},
			{Name: "HumanReadable", Type: "boolean"},
			{Name: "Summarize", Type: "boolean"},
			{Name: "PageSize", Type: "integer"},
			{Name: "RequestPayer", Type: "string"},
		},
		minPositional: 0, maxPositional: 1, positionalName: "paths",
	},
	"cp": {
		params: []catalog.Parameter{
			{Name: "Recursive", Type: "boolean"},
			{Name: "Dryrun", Type: "boolean"},
			{Name: "Exclude", Type: "string"},
			{Name: "Include", Type: "string"},
			{Name: "Acl", Type: "string"},
			{Name: "StorageClass", Type: "string"},
			{Name: "Sse", Type: "string"},
		},
		minPositional: 2, maxPositional: 2, positionalName: "paths",
	},
	"mv": {
		params: []catalog.Parameter{
			{Name: "Recursive", Type: "boolean"},
			{Name: "Dryrun", Type: "boolean"},
			{Name: "Exclude", Type: "string"},
			{Name: "Include", Type: "string"},
			{Name: "Acl", Type: "string"},
		},
		minPositional: 2, maxPositional: 2, positionalName: "paths",
	},
	"rm": {
		params: []catalog.Parameter{
			{Name: "Recursive", Type: "boolean"},
			{Name: "Dryrun", Type: "boolean"},
			{Name: "Exclude", Type: "string"},
			{Name: "Include", Type: "string"},
		},
		minPositional: 1, maxPositional: 1, positionalName: "paths",
	},
	"sync": {
		params: []catalog.Parameter{
			{Name: "Delete", Type: "boolean"},
			{Name: "Dryrun", Type: "boolean"},
			{Name: "Exclude", Type: "string"},
			{Name: "Include", Type: "string"},
		},
		minPositional: 2, maxPositional: 2, positionalName: "paths",
	},
	"mb": {
		minPositional: 1, maxPositional: 1, positionalName: "paths",
	},
	"rb": {
		params: []catalog.Parameter{
			{Name: "Force", Type: "boolean"},
		},
		minPositional: 1, maxPositional: 1, positionalName: "paths",
	},
	"presign": {
		params: []catalog.Parameter{
			{Name: "ExpiresIn", Type: "integer"},
		},
		minPositional: 1, maxPositional: 1, positionalName: "paths",
	},
	"website": {
		params: []catalog.Parameter{
			{Name: "IndexDocument", Type: "string"},
			{Name: "ErrorDocument", Type: "string"},
		},
		minPositional: 1, maxPositional: 1, positionalName: "paths",
	},
}

// Customizations hanging off real API services, keyed by canonical
// service name.
var serviceCustomizations = map[string]map[string]customSpec{
	"ssm": {
		"start-session": {
			params: []catalog.Parameter{
				{Name: "Target", Type: "string", Required: true},
				{Name: "DocumentName", Type: "string", Required: true},
				{Name: "Parameters", Type: "map"},
				{Name: "Reason", Type: "string"},
			},
		},
	},
	"rds": {
		"generate-db-auth-token": {
			params: []catalog.Parameter{
				{Name: "Hostname", Type: "string", Required: true},
				{Name: "Port", Type: "integer", Required: true},
				{Name: "Username", Type: "string", Required: true},
			},
		},
	},
	"datapipeline": {
		"list-runs": {
			params: []catalog.Parameter{
				{Name: "PipelineId", Type: "string", Required: true},
				{Name: "Status", Type: "string"},
				{Name: "StartInterval", Type: "string"},
				{Name: "ScheduleInterval", Type: "string"},
			},
		},
	},
	"config": {
		"get-status": {},
	},
}

// parseCustomization validates a CLI-only operation against its
// hard-coded argument table and returns flag-keyed parameters.
func parseCustomization(service, operation string, spec customSpec, meta ir.CommandMetadata, tokens []string) (map[string]any, error) {
	op := catalog.NewOperation(operation, spec.params)
	parsed, err := parseArgTable(op, meta, tokens)
	if err != nil {
		return nil, err
	}

	positionals := parsed.unknownPositionals
	if len(positionals) > spec.maxPositional {
		parsed.unknownPositionals = positionals[spec.maxPositional:]
		positionals = positionals[:spec.maxPositional]
	} else {
		parsed.unknownPositionals = nil
	}
	if len(positionals) < spec.minPositional {
		parsed.missing = append(parsed.missing, spec.positionalName)
	}

	if err := checkParsedArgs(op, meta, service, operation, parsed); err != nil {
		return nil, err
	}

	params := make(map[string]any, len(parsed.values)+1)
	for name, value := range parsed.values {
		params[catalog.CLIFlag(name)] = value
	}
	if len(positionals) > 0 {
		params[spec.positionalName] = positionals
	}
	return params, nil
}
