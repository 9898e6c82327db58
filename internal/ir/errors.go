package ir

import (
	"fmt"
	"strings"
)

// ValidationError marks a failure caused by a malformed command. These can
// feed a reformulation loop on the caller side.
type ValidationError interface {
	error
	AsFailure() Failure
}

// MissingContextError marks a failure where the command is plausible but
// underspecified. The caller should ask a clarifying question instead of
// reformulating. The resolved metadata is carried so the caller can prompt
// for the specific missing pieces.
type MissingContextError interface {
	error
	AsFailure() Failure
	CommandMetadata() CommandMetadata
}

type baseError struct {
	reason  string
	context *FailureContext
}

func (e *baseError) Error() string      { return e.reason }
func (e *baseError) AsFailure() Failure { return Failure{Reason: e.reason, Context: e.context} }

// ParseError reports a lexical failure.
type ParseError struct{ baseError }

// NewParseError wraps a lexical failure message.
func NewParseError(msg string) *ParseError {
	return &ParseError{baseError{reason: msg}}
}

// ProhibitedOperatorsError reports shell or assignment operators in the
// command. All offending tokens are reported together.
type ProhibitedOperatorsError struct {
	baseError
	Operators []string
}

func NewProhibitedOperatorsError(operators []string) *ProhibitedOperatorsError {
	return &ProhibitedOperatorsError{
		baseError: baseError{
			reason:  fmt.Sprintf("The CLI command contains prohibited operators: %s", strings.Join(operators, ", ")),
			context: &FailureContext{Operators: operators},
		},
		Operators: operators,
	}
}

// InvalidServiceError reports a service token that is not in the catalog.
type InvalidServiceError struct {
	baseError
	Service string
}

func NewInvalidServiceError(service string) *InvalidServiceError {
	return &InvalidServiceError{
		baseError: baseError{
			reason:  fmt.Sprintf("The service '%s' does not exist.", service),
			context: &FailureContext{Service: service},
		},
		Service: service,
	}
}

// InvalidServiceOperationError reports an operation token that the resolved
// service does not support.
type InvalidServiceOperationError struct {
	baseError
	Service   string
	Operation string
}

func NewInvalidServiceOperationError(service, operation string) *InvalidServiceOperationError {
	return &InvalidServiceOperationError{
		baseError: baseError{
			reason:  fmt.Sprintf("The operation '%s' is invalid for service '%s'.", operation, service),
			context: &FailureContext{Service: service, Operation: operation},
		},
		Service:   service,
		Operation: operation,
	}
}

// ServiceNotAllowedError reports a denied non-API pseudo-command.
type ServiceNotAllowedError struct {
	baseError
	Service string
}

func NewServiceNotAllowedError(service string) *ServiceNotAllowedError {
	return &ServiceNotAllowedError{
		baseError: baseError{
			reason:  fmt.Sprintf("The command '%s' is not a supported service command.", service),
			context: &FailureContext{Service: service},
		},
		Service: service,
	}
}

// OperationNotAllowedError reports a CLI customization that is explicitly
// unsupported, such as high-level multi-call commands.
type OperationNotAllowedError struct {
	baseError
	Service   string
	Operation string
}

func NewOperationNotAllowedError(service, operation string) *OperationNotAllowedError {
	return &OperationNotAllowedError{
		baseError: baseError{
			reason:  fmt.Sprintf("The operation '%s %s' is a client-side customization and is not allowed.", service, operation),
			context: &FailureContext{Service: service, Operation: operation},
		},
		Service:   service,
		Operation: operation,
	}
}

// MissingOperationError reports a command that names a service but no operation.
type MissingOperationError struct{ baseError }

func NewMissingOperationError() *MissingOperationError {
	return &MissingOperationError{baseError{reason: "The CLI command is missing an operation after the service name."}}
}

// InvalidParametersReceivedError reports unknown flags. Both the invalid
// flags and the full sorted set of valid flags are listed.
type InvalidParametersReceivedError struct {
	baseError
	InvalidParameters []string
	CorrectParameters []string
}

func NewInvalidParametersReceivedError(service, operation string, invalid, correct []string) *InvalidParametersReceivedError {
	return &InvalidParametersReceivedError{
		baseError: baseError{
			reason: fmt.Sprintf(
				"The following parameters are invalid for %s %s: %s. Valid parameters are: %s",
				service, operation, strings.Join(invalid, ", "), strings.Join(correct, ", "),
			),
			context: &FailureContext{Service: service, Operation: operation, Parameters: invalid},
		},
		InvalidParameters: invalid,
		CorrectParameters: correct,
	}
}

// MisspelledParametersError reports an unknown flag close enough to exactly
// one supported flag to suggest it instead.
type MisspelledParametersError struct {
	baseError
	UnknownParameter  string
	ExistingParameter string
}

func NewMisspelledParametersError(service, operation, unknown, existing string) *MisspelledParametersError {
	return &MisspelledParametersError{
		baseError: baseError{
			reason: fmt.Sprintf(
				"The parameter '%s' is invalid for %s %s. Did you mean '%s'?",
				unknown, service, operation, existing,
			),
			context: &FailureContext{Service: service, Operation: operation, Parameters: []string{unknown}},
		},
		UnknownParameter:  unknown,
		ExistingParameter: existing,
	}
}

// MissingRequiredParametersError reports schema-required flags absent from
// the command. This is a missing-context failure: the command is plausible,
// the caller should ask for the missing values.
type MissingRequiredParametersError struct {
	baseError
	Parameters []string
	Metadata   CommandMetadata
}

func NewMissingRequiredParametersError(service, operation string, parameters []string, metadata CommandMetadata) *MissingRequiredParametersError {
	return &MissingRequiredParametersError{
		baseError: baseError{
			reason:  fmt.Sprintf("The following parameters are missing for %s %s: %s", service, operation, strings.Join(parameters, ", ")),
			context: &FailureContext{Service: service, Operation: operation, Parameters: parameters},
		},
		Parameters: parameters,
		Metadata:   metadata,
	}
}

func (e *MissingRequiredParametersError) CommandMetadata() CommandMetadata { return e.Metadata }

// UnknownArgumentsError reports stray positional arguments.
type UnknownArgumentsError struct {
	baseError
	UnknownArgs []string
}

func NewUnknownArgumentsError(service, operation string, args []string) *UnknownArgumentsError {
	return &UnknownArgumentsError{
		baseError: baseError{
			reason:  fmt.Sprintf("The following arguments are unknown for %s %s: %s", service, operation, strings.Join(args, ", ")),
			context: &FailureContext{Service: service, Operation: operation, Args: args},
		},
		UnknownArgs: args,
	}
}

// DeniedGlobalArgumentsError reports globally denied flags such as --debug.
type DeniedGlobalArgumentsError struct {
	baseError
	DeniedArgs []string
}

func NewDeniedGlobalArgumentsError(service string, args []string) *DeniedGlobalArgumentsError {
	return &DeniedGlobalArgumentsError{
		baseError: baseError{
			reason:  fmt.Sprintf("The following global arguments are not allowed: %s", strings.Join(args, ", ")),
			context: &FailureContext{Service: service, Args: args},
		},
		DeniedArgs: args,
	}
}

// ExpectedArgumentError reports a flag given the wrong number of values.
// Carries metadata so the caller can re-prompt; a missing-context failure.
type ExpectedArgumentError struct {
	baseError
	Parameter string
	Metadata  CommandMetadata
}

func NewExpectedArgumentError(parameter, msg string, metadata CommandMetadata) *ExpectedArgumentError {
	return &ExpectedArgumentError{
		baseError: baseError{
			reason:  fmt.Sprintf("The parameter '%s' %s.", parameter, msg),
			context: &FailureContext{Service: metadata.ServiceSDKName, Operation: metadata.OperationSDKName, Parameters: []string{parameter}},
		},
		Parameter: parameter,
		Metadata:  metadata,
	}
}

func (e *ExpectedArgumentError) CommandMetadata() CommandMetadata { return e.Metadata }

// InvalidTypeForParameterError reports a value that cannot be coerced to the
// parameter's declared type.
type InvalidTypeForParameterError struct {
	baseError
	Parameter string
}

func NewInvalidTypeForParameterError(parameter, typeName string) *InvalidTypeForParameterError {
	return &InvalidTypeForParameterError{
		baseError: baseError{
			reason:  fmt.Sprintf("The parameter '%s' received an invalid value: expected type %s.", parameter, typeName),
			context: &FailureContext{Parameters: []string{parameter}},
		},
		Parameter: parameter,
	}
}

// InvalidChoiceForParameterError reports a value outside a parameter's
// declared choice set.
type InvalidChoiceForParameterError struct {
	baseError
	Parameter string
	Value     string
}

func NewInvalidChoiceForParameterError(parameter, value string) *InvalidChoiceForParameterError {
	return &InvalidChoiceForParameterError{
		baseError: baseError{
			reason:  fmt.Sprintf("The value '%s' is not a valid choice for parameter '%s'.", value, parameter),
			context: &FailureContext{Parameters: []string{parameter}},
		},
		Parameter: parameter,
		Value:     value,
	}
}

// ShortHandParserError reports a shorthand-syntax construction failure with
// the underlying message attached.
type ShortHandParserError struct {
	baseError
	Parameter string
}

func NewShortHandParserError(parameter, msg string) *ShortHandParserError {
	return &ShortHandParserError{
		baseError: baseError{
			reason:  fmt.Sprintf("Error parsing parameter '%s': %s", parameter, msg),
			context: &FailureContext{Parameters: []string{parameter}},
		},
		Parameter: parameter,
	}
}

// UnsupportedFilterError reports a filter object whose key set matches none
// of the canonical shapes.
type UnsupportedFilterError struct {
	baseError
	FilterKeys []string
}

func NewUnsupportedFilterError(service, operation string, filterKeys []string) *UnsupportedFilterError {
	return &UnsupportedFilterError{
		baseError: baseError{
			reason: fmt.Sprintf(
				"Filter validation for %s %s is not supported: the filter object has keys %s",
				service, operation, strings.Join(filterKeys, ", "),
			),
			context: &FailureContext{Service: service, Operation: operation},
		},
		FilterKeys: filterKeys,
	}
}

// MalformedFilterError reports a filter element whose key set does not
// exactly match the operation's filter shape.
type MalformedFilterError struct {
	baseError
	GivenKeys    []string
	ExpectedKeys []string
}

func NewMalformedFilterError(service, operation string, given, expected []string) *MalformedFilterError {
	return &MalformedFilterError{
		baseError: baseError{
			reason: fmt.Sprintf(
				"Malformed filter for %s %s: got keys {%s}, expected {%s}",
				service, operation, strings.Join(given, ", "), strings.Join(expected, ", "),
			),
			context: &FailureContext{Service: service, Operation: operation},
		},
		GivenKeys:    given,
		ExpectedKeys: expected,
	}
}

// UnknownFiltersError reports filter names outside the permitted set.
type UnknownFiltersError struct {
	baseError
	Filters []string
}

func NewUnknownFiltersError(service string, filters []string) *UnknownFiltersError {
	return &UnknownFiltersError{
		baseError: baseError{
			reason:  fmt.Sprintf("The following filters are invalid for %s: %s", service, strings.Join(filters, ", ")),
			context: &FailureContext{Service: service, Parameters: filters},
		},
		Filters: filters,
	}
}

// ParameterPatternError reports a service-specific identifier pattern
// mismatch. The message format is load-bearing for callers.
type ParameterPatternError struct {
	baseError
	Parameter string
	Pattern   string
}

func NewParameterPatternError(name, pattern string) *ParameterPatternError {
	return &ParameterPatternError{
		baseError: baseError{
			reason: fmt.Sprintf(
				"The parameter '%s' received an invalid input: Invalid parameter value: The parameter %s does not match the %s pattern",
				name, name, pattern,
			),
			context: &FailureContext{Parameters: []string{name}},
		},
		Parameter: name,
		Pattern:   pattern,
	}
}

// RequestSerializationError reports a dry-run serialization failure.
type RequestSerializationError struct {
	baseError
	Service   string
	Operation string
}

func NewRequestSerializationError(service, operation, msg string) *RequestSerializationError {
	return &RequestSerializationError{
		baseError: baseError{
			reason:  fmt.Sprintf("Failed to serialize the request for %s %s: %s", service, operation, msg),
			context: &FailureContext{Service: service, Operation: operation},
		},
		Service:   service,
		Operation: operation,
	}
}

// ClientSideFilterError reports an unparseable --query expression.
type ClientSideFilterError struct {
	baseError
	Query string
}

func NewClientSideFilterError(service, operation, query, msg string) *ClientSideFilterError {
	return &ClientSideFilterError{
		baseError: baseError{
			reason:  fmt.Sprintf("The client-side query '%s' is invalid for %s %s: %s", query, service, operation, msg),
			context: &FailureContext{Service: service, Operation: operation},
		},
		Query: query,
	}
}

// CommandValidationError wraps any other construction failure. Nothing is
// swallowed: the underlying message always surfaces.
type CommandValidationError struct{ baseError }

func NewCommandValidationError(msg string) *CommandValidationError {
	return &CommandValidationError{baseError{reason: msg}}
}
