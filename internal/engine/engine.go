// ABOUTME: Abstract Generation Engine contract consumed by the gateway.
// ABOUTME: An engine turns (instruction, output schema) into a schema-conforming JSON value.

package engine

import (
	"context"
	"encoding/json"
	"errors"
)

// Engine failure taxonomy. Backends wrap their native errors so upper layers
// can classify with errors.Is; anything that matches neither sentinel is
// treated as a generic execution failure.
var (
	// ErrGuardrail means the engine's content-safety layer rejected the request.
	ErrGuardrail = errors.New("generation blocked by guardrail")

	// ErrUnavailable means the engine is not ready to serve (model missing,
	// backend unreachable, resources exhausted).
	ErrUnavailable = errors.New("engine unavailable")
)

// OutputSchema names the shape a generation call must produce.
type OutputSchema int

const (
	// SchemaStringList constrains output to a JSON array of strings.
	SchemaStringList OutputSchema = iota

	// SchemaText constrains output to a single JSON string.
	SchemaText
)

// String returns the schema's wire-level output format name.
func (s OutputSchema) String() string {
	switch s {
	case SchemaStringList:
		return "string_list"
	case SchemaText:
		return "text"
	default:
		return "unknown"
	}
}

// Engine is the opaque generation capability. Any backend satisfying this
// one contract works: an on-device model, a remote API, or a mock.
type Engine interface {
	// OpenContext creates a fresh multi-turn context seeded with the given
	// system instructions.
	OpenContext(ctx context.Context, instructions string) (Context, error)

	// Ready reports whether the engine can currently serve generation calls.
	// Implementations must respect ctx deadlines so callers can bound the probe.
	Ready(ctx context.Context) error

	// Close releases all engine resources.
	Close() error
}

// Context is one conversational context inside the engine. Calls accumulate
// turn history; a Context is never shared between sessions.
type Context interface {
	// Respond executes text against the context and returns a value conforming
	// to schema, encoded as a bare JSON value.
	Respond(ctx context.Context, text string, schema OutputSchema) (json.RawMessage, error)

	// Close releases the context.
	Close() error
}
