// Package errs defines the semantic error kinds the engine can surface,
// per the error handling design. Callers distinguish kinds with errors.As,
// never by inspecting message text.
package errs

import "fmt"

// Kind is one of the semantic error categories the engine can surface.
type Kind string

const (
	// KindInvalidInput marks malformed caller input: empty content, a
	// non-ISO timestamp. Never retried.
	KindInvalidInput Kind = "invalid-input"
	// KindAgentSchema marks an LLM response that stayed structurally
	// invalid JSON after every strategy and retry.
	KindAgentSchema Kind = "agent-schema"
	// KindAgentAlignment marks a response whose list length or entity
	// names don't align with its input. Not retryable: the prompt or
	// input must change.
	KindAgentAlignment Kind = "agent-alignment"
	// KindGraphTransient marks a connection loss, deadlock, or timeout
	// reported by the graph client after its own internal retries.
	KindGraphTransient Kind = "graph-transient"
	// KindGraphConstraint marks a unique-constraint violation. Never
	// retried.
	KindGraphConstraint Kind = "graph-constraint"
	// KindDependencyUnavailable marks an embedding or LLM call that
	// failed after its own retries.
	KindDependencyUnavailable Kind = "dependency-unavailable"
)

// Error wraps a Kind, the component that raised it, and the underlying
// cause. It implements errors.Unwrap so callers can still inspect cause
// chains with errors.Is/errors.As.
type Error struct {
	Kind      Kind
	Component string
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Component, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Component, e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an *Error for the given kind, component, and cause.
func New(kind Kind, component string, cause error) *Error {
	return &Error{Kind: kind, Component: component, Cause: cause}
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
			err = e.Cause
			continue
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
