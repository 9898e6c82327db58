// Package catalog holds the read-only schema of services, operations,
// parameters, filters and pagination bounds the translation engine
// validates against. The corpus is embedded at build time and loaded once
// into an explicitly constructed, dependency-injected Catalog; there is no
// hidden module state.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cloudgate-project/cloudgate/internal/ir"
)

//go:embed data/services.json
var dataFS embed.FS

// DeniedPseudoServices are `aws` subcommands that are not API services and
// must never resolve.
var DeniedPseudoServices = map[string]struct{}{
	"configure": {},
	"history":   {},
}

// Parameter describes one input member of an operation.
type Parameter struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"` // string, integer, long, boolean, list, structure, map, timestamp, blob
	Required bool     `json:"required,omitempty"`
	Choices  []string `json:"choices,omitempty"`
	Min      int      `json:"min,omitempty"` // integer bounds for limit keys
	Max      int      `json:"max,omitempty"`
}

// Pagination describes an operation's pagination contract.
type Pagination struct {
	InputToken       string   `json:"input_token"`
	OutputToken      string   `json:"output_token"`
	LimitKey         string   `json:"limit_key,omitempty"`
	ResultKeys       []string `json:"result_keys"`
	NonAggregateKeys []string `json:"non_aggregate_keys,omitempty"`
}

// FilterSpec describes the shape and permitted names of an operation's
// Filters parameter. An empty Allowed set bypasses name validation.
type FilterSpec struct {
	Keys         []string `json:"keys"`
	Allowed      []string `json:"allowed,omitempty"`
	AllowsTagKey bool     `json:"allows_tag_key,omitempty"`
}

// Operation is one entry in a service's API surface.
type Operation struct {
	Name       string      `json:"name"`
	HTTPMethod string      `json:"http_method,omitempty"` // rest protocols
	RequestURI string      `json:"request_uri,omitempty"`
	Parameters []Parameter `json:"parameters,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Filters    *FilterSpec `json:"filters,omitempty"`
	Streaming  bool        `json:"streaming,omitempty"`
	Plane      string      `json:"plane,omitempty"` // ControlPlane | DataPlane
	ActionType string      `json:"type,omitempty"`  // ReadOnly | Mutating
	ResultPath []string    `json:"result_path,omitempty"`

	paramsByName map[string]*Parameter
	paramsByFlag map[string]*Parameter
}

// Param returns the parameter with the given wire name.
func (o *Operation) Param(name string) *Parameter { return o.paramsByName[name] }

// ParamByFlag returns the parameter for a --flag form name.
func (o *Operation) ParamByFlag(flag string) *Parameter { return o.paramsByFlag[flag] }

// RequiredFlags returns the --flag names of all required parameters, sorted.
func (o *Operation) RequiredFlags() []string {
	var flags []string
	for i := range o.Parameters {
		if o.Parameters[i].Required {
			flags = append(flags, CLIFlag(o.Parameters[i].Name))
		}
	}
	sort.Strings(flags)
	return flags
}

// SupportedFlags returns the --flag names of all parameters, sorted.
func (o *Operation) SupportedFlags() []string {
	flags := make([]string, 0, len(o.Parameters))
	for i := range o.Parameters {
		flags = append(flags, CLIFlag(o.Parameters[i].Name))
	}
	sort.Strings(flags)
	return flags
}

// CanPaginate reports whether the operation declares a pagination contract.
func (o *Operation) CanPaginate() bool { return o.Pagination != nil }

// NewOperation builds an operation outside the embedded corpus, with its
// lookup indexes populated. CLI customizations and waiter subcommands
// parse their arguments through synthetic operations built this way.
func NewOperation(name string, params []Parameter) *Operation {
	op := &Operation{Name: name, Parameters: params}
	op.paramsByName = make(map[string]*Parameter, len(params))
	op.paramsByFlag = make(map[string]*Parameter, len(params))
	for i := range op.Parameters {
		p := &op.Parameters[i]
		op.paramsByName[p.Name] = p
		op.paramsByFlag[CLIFlag(p.Name)] = p
	}
	return op
}

// Waiter is a `wait <condition>` subcommand backed by a polling operation.
type Waiter struct {
	Condition  string      `json:"condition"`
	Operation  string      `json:"operation"`
	Parameters []Parameter `json:"parameters,omitempty"`
}

// Service is one service's catalog entry.
type Service struct {
	Name           string                `json:"name"`
	FullName       string                `json:"full_name,omitempty"`
	Protocol       string                `json:"protocol"` // query | json | rest-json | rest-xml
	APIVersion     string                `json:"api_version"`
	EndpointPrefix string                `json:"endpoint_prefix"`
	SigningName    string                `json:"signing_name,omitempty"`
	TargetPrefix   string                `json:"target_prefix,omitempty"`
	Aliases        []string              `json:"aliases,omitempty"`
	Operations     map[string]*Operation `json:"operations"`
	Waiters        map[string]*Waiter    `json:"waiters,omitempty"`

	opsByCLIName map[string]*Operation
}

// OperationByCLIName resolves an operation by its hyphenated CLI name.
func (s *Service) OperationByCLIName(cliName string) *Operation {
	return s.opsByCLIName[cliName]
}

// WaiterByCondition resolves a wait condition.
func (s *Service) WaiterByCondition(condition string) *Waiter {
	if s.Waiters == nil {
		return nil
	}
	return s.Waiters[condition]
}

// Catalog is the loaded, immutable schema corpus.
type Catalog struct {
	services map[string]*Service
	aliases  map[string]string
	confirm  map[string]map[string]struct{}
}

// Load parses the embedded corpus and builds the derived indexes.
func Load() (*Catalog, error) {
	raw, err := dataFS.ReadFile("data/services.json")
	if err != nil {
		return nil, fmt.Errorf("reading embedded catalog: %w", err)
	}

	var services map[string]*Service
	if err := json.Unmarshal(raw, &services); err != nil {
		return nil, fmt.Errorf("parsing embedded catalog: %w", err)
	}

	cat := &Catalog{
		services: services,
		aliases:  make(map[string]string),
		confirm:  make(map[string]map[string]struct{}),
	}

	for name, svc := range services {
		svc.Name = name
		svc.opsByCLIName = make(map[string]*Operation, len(svc.Operations))
		for opName, op := range svc.Operations {
			op.Name = opName
			op.paramsByName = make(map[string]*Parameter, len(op.Parameters))
			op.paramsByFlag = make(map[string]*Parameter, len(op.Parameters))
			for i := range op.Parameters {
				p := &op.Parameters[i]
				op.paramsByName[p.Name] = p
				op.paramsByFlag[CLIFlag(p.Name)] = p
			}
			svc.opsByCLIName[XformName(opName)] = op

			if requiresConsent(op) {
				if cat.confirm[name] == nil {
					cat.confirm[name] = make(map[string]struct{})
				}
				cat.confirm[name][opName] = struct{}{}
			}
		}
		for _, alias := range svc.Aliases {
			cat.aliases[alias] = name
		}
	}

	return cat, nil
}

// requiresConsent implements the confirm-list derivation: any mutating or
// unclassified operation must be confirmed before execution.
func requiresConsent(op *Operation) bool {
	if op.ActionType == "Mutating" || op.ActionType == "" || op.ActionType == "Unknown" {
		return true
	}
	return op.Plane != "ControlPlane" && op.Plane != "DataPlane"
}

// ResolveService maps a service token to its catalog entry, following
// aliases and rejecting denied pseudo-commands.
func (c *Catalog) ResolveService(token string) (*Service, error) {
	if _, denied := DeniedPseudoServices[token]; denied {
		return nil, ir.NewServiceNotAllowedError(token)
	}
	name := token
	if canonical, ok := c.aliases[token]; ok {
		name = canonical
	}
	svc, ok := c.services[name]
	if !ok {
		return nil, ir.NewInvalidServiceError(token)
	}
	return svc, nil
}

// Service returns a service entry by canonical name, or nil.
func (c *Catalog) Service(name string) *Service { return c.services[name] }

// ServiceNames returns all canonical service names, sorted.
func (c *Catalog) ServiceNames() []string {
	names := make([]string, 0, len(c.services))
	for name := range c.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RequiresConsent reports whether (service, operation) is on the
// must-confirm list.
func (c *Catalog) RequiresConsent(service, operation string) bool {
	ops, ok := c.confirm[service]
	if !ok {
		return false
	}
	_, ok = ops[operation]
	return ok
}

// IsReadOnly reports whether the catalog classifies the operation as
// read-only. Unknown operations are not read-only.
func (c *Catalog) IsReadOnly(service, operation string) bool {
	svc, ok := c.services[service]
	if !ok {
		return false
	}
	op, ok := svc.Operations[operation]
	if !ok {
		return false
	}
	return op.ActionType == "ReadOnly"
}

// Classify returns the (plane, action-type) classification for the given
// pair. Unknown pairs yield the unknown classification; this never fails.
func (c *Catalog) Classify(service, operation string) ir.Classification {
	svc, ok := c.services[service]
	if !ok {
		return ir.UnknownClassification
	}
	op, ok := svc.Operations[operation]
	if !ok {
		return ir.UnknownClassification
	}

	apiType := ir.APIUnknown
	switch op.Plane {
	case "ControlPlane":
		apiType = ir.APIManagement
	case "DataPlane":
		apiType = ir.APIData
	}

	action := ir.ActionUnknown
	switch op.ActionType {
	case "ReadOnly":
		action = ir.ActionReadOnly
	case "Mutating":
		action = ir.ActionMutating
	}

	return ir.Classification{ActionTypes: []ir.ActionType{action}, APIType: apiType}
}
