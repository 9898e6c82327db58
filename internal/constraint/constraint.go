// Package constraint gates translated commands against the caller's
// execution policy. Every constraint is verified; failures accumulate
// instead of short-circuiting so callers see the full list at once.
package constraint

import (
	"errors"

	"github.com/cloudgate-project/cloudgate/internal/ir"
)

// Constraint is a named predicate over a translated command and its
// classification. Verify returns nil when the command satisfies it.
type Constraint struct {
	Name   string
	Verify func(cmd *ir.Command, cls ir.Classification) error
}

// ReadOnly rejects any command whose action types are not all read-only.
var ReadOnly = Constraint{
	Name: "read-only",
	Verify: func(cmd *ir.Command, cls ir.Classification) error {
		if len(cls.ActionTypes) == 0 {
			return errors.New("Command is not Read Only")
		}
		for _, at := range cls.ActionTypes {
			if at != ir.ActionReadOnly {
				return errors.New("Command is not Read Only")
			}
		}
		return nil
	},
}

// ControlPlane rejects data-plane and unclassified commands.
var ControlPlane = Constraint{
	Name: "control-plane",
	Verify: func(cmd *ir.Command, cls ir.Classification) error {
		if cls.APIType != ir.APIManagement {
			return errors.New("Command is not Control Plane")
		}
		return nil
	},
}

// NoStreamingOutput rejects operations that return a streaming body.
var NoStreamingOutput = Constraint{
	Name: "no-streaming-output",
	Verify: func(cmd *ir.Command, cls ir.Classification) error {
		if cmd.Metadata.HasStreamingOutput {
			return errors.New("Command has streaming output")
		}
		return nil
	},
}

// AllowEverything accepts every command.
var AllowEverything = Constraint{
	Name:   "allow-everything",
	Verify: func(*ir.Command, ir.Classification) error { return nil },
}

// Engine holds an ordered constraint set and evaluates all of it.
type Engine struct {
	constraints []Constraint
}

func NewEngine(constraints ...Constraint) *Engine {
	return &Engine{constraints: constraints}
}

// Verify runs every constraint against the command and returns one
// failure per violated constraint, in registration order.
func (e *Engine) Verify(cmd *ir.Command, cls ir.Classification) []ir.Failure {
	var failures []ir.Failure
	for _, c := range e.constraints {
		if err := c.Verify(cmd, cls); err != nil {
			failures = append(failures, ir.Failure{
				Reason: err.Error(),
				Context: &ir.FailureContext{
					Service:   cmd.Metadata.ServiceSDKName,
					Operation: cmd.Metadata.OperationSDKName,
				},
			})
		}
	}
	return failures
}
