// Package ir holds the intermediate representation of a translated CLI
// command: the immutable identity of a resolved operation, the validated
// parameter set, and the outcome of a translation attempt.
package ir

import "strings"

// CommandMetadata is the immutable identity of a resolved operation.
type CommandMetadata struct {
	ServiceSDKName     string
	ServiceFullSDKName string
	OperationSDKName   string
	HasStreamingOutput bool
}

// Command is the validated, structured form of a parsed CLI command,
// ready for interpretation.
type Command struct {
	Metadata        CommandMetadata
	Parameters      map[string]any
	Region          string
	ClientSideQuery string
	IsCustomization bool
}

// ServiceName returns the SDK service name. The service name is always
// the underlying API (e.g. s3, never the s3api alias).
func (c *Command) ServiceName() string { return c.Metadata.ServiceSDKName }

// ServiceFullName returns the human-readable service name, if known.
func (c *Command) ServiceFullName() string { return c.Metadata.ServiceFullSDKName }

// OperationName returns the wire-style operation name (e.g. DescribeInstances).
func (c *Command) OperationName() string { return c.Metadata.OperationSDKName }

// HasStreamingOutput reports whether the operation's output is a stream.
func (c *Command) HasStreamingOutput() bool { return c.Metadata.HasStreamingOutput }

// FailureContext carries the command parts relevant to a failure.
type FailureContext struct {
	Service    string   `json:"service,omitempty"`
	Operation  string   `json:"operation,omitempty"`
	Operators  []string `json:"operators,omitempty"`
	Region     string   `json:"region,omitempty"`
	Args       []string `json:"args,omitempty"`
	Parameters []string `json:"parameters,omitempty"`
}

// Failure is a single serializable validation or missing-context failure.
type Failure struct {
	Reason  string          `json:"reason"`
	Context *FailureContext `json:"context,omitempty"`
}

// ActionType classifies an operation by its effect.
type ActionType string

const (
	ActionReadOnly ActionType = "read-only"
	ActionMutating ActionType = "mutating"
	ActionUnknown  ActionType = "unknown"
)

// APIType classifies an operation by its plane. Management refers to
// control plane operations in CloudTrail's parlance, Data to data plane.
type APIType string

const (
	APIManagement APIType = "management"
	APIData       APIType = "data"
	APIUnknown    APIType = "unknown"
)

// Classification is the (plane, action-type) classification of a command.
type Classification struct {
	ActionTypes []ActionType `json:"action_types"`
	APIType     APIType      `json:"api_type"`
}

// UnknownClassification is the default when the pair is not in the catalog.
var UnknownClassification = Classification{
	ActionTypes: []ActionType{ActionUnknown},
	APIType:     APIUnknown,
}

// Translation is the result of translating a CLI command. At most one of
// Command, ValidationFailures and MissingContextFailures is populated.
// Classification is always present once the metadata is known.
type Translation struct {
	Command                *Command
	Metadata               *CommandMetadata
	Program                string
	Classification         *Classification
	ValidationFailures     []Failure
	MissingContextFailures []Failure
}

// Failed reports whether the translation produced no executable command.
func (t *Translation) Failed() bool {
	return len(t.ValidationFailures) > 0 || len(t.MissingContextFailures) > 0
}

// Equal compares two translations by their failure lists and normalized
// program text, ignoring incidental whitespace.
func (t *Translation) Equal(other *Translation) bool {
	if other == nil {
		return false
	}
	return equalFailures(t.ValidationFailures, other.ValidationFailures) &&
		equalFailures(t.MissingContextFailures, other.MissingContextFailures) &&
		equalLines(normalizeProgram(t.Program), normalizeProgram(other.Program))
}

func equalFailures(a, b []Failure) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Reason != b[i].Reason {
			return false
		}
	}
	return true
}

func normalizeProgram(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
