// ABOUTME: Deterministic in-process engine used by tests and the mock backend.
// ABOUTME: Fabricates schema-conforming values and simulates engine failures on trigger phrases.

package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/lumenlabs/lumen-gateway/internal/engine"
)

// Trigger substrings. A Respond call whose text contains one of these fails
// with the corresponding engine error, letting callers exercise the full
// failure taxonomy without a real backend.
const (
	TriggerGuardrail   = "[[guardrail]]"
	TriggerUnavailable = "[[unavailable]]"
	TriggerFailure     = "[[failure]]"
)

// Engine is a no-I/O engine.Engine implementation.
type Engine struct {
	mu     sync.Mutex
	ready  error
	closed bool

	contexts int // total contexts ever opened
}

var _ engine.Engine = (*Engine)(nil)

// New creates a mock engine that reports ready.
func New() *Engine {
	return &Engine{}
}

// SetReadyError makes subsequent Ready and OpenContext calls fail with err.
// Pass nil to restore readiness.
func (e *Engine) SetReadyError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ready = err
}

// OpenContext creates a fresh context. Instructions containing TriggerFailure
// are rejected, modeling an engine that refuses malformed instructions.
func (e *Engine) OpenContext(_ context.Context, instructions string) (engine.Context, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, fmt.Errorf("open context: %w", engine.ErrUnavailable)
	}
	if e.ready != nil {
		return nil, fmt.Errorf("open context: %w", e.ready)
	}
	if strings.Contains(instructions, TriggerFailure) {
		return nil, errors.New("instructions rejected by engine")
	}

	e.contexts++
	return &mockContext{instructions: instructions}, nil
}

// Ready reports the configured readiness state.
func (e *Engine) Ready(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("ready: %w", engine.ErrUnavailable)
	}
	return e.ready
}

// Close marks the engine closed.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// ContextsOpened returns how many contexts have been created, for tests.
func (e *Engine) ContextsOpened() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.contexts
}

type mockContext struct {
	mu           sync.Mutex
	instructions string
	turns        int
	closed       bool
}

// Respond fabricates a schema-conforming value derived from the input text.
func (c *mockContext) Respond(_ context.Context, text string, schema engine.OutputSchema) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("respond: %w", engine.ErrUnavailable)
	}

	switch {
	case strings.Contains(text, TriggerGuardrail):
		return nil, fmt.Errorf("respond: %w", engine.ErrGuardrail)
	case strings.Contains(text, TriggerUnavailable):
		return nil, fmt.Errorf("respond: %w", engine.ErrUnavailable)
	case strings.Contains(text, TriggerFailure):
		return nil, errors.New("simulated engine failure")
	}

	c.turns++

	switch schema {
	case engine.SchemaStringList:
		// First few whitespace-separated tokens, lowercased, stand in for tags.
		fields := strings.Fields(text)
		if len(fields) > 3 {
			fields = fields[:3]
		}
		items := make([]string, 0, len(fields))
		for _, f := range fields {
			items = append(items, strings.ToLower(strings.Trim(f, ".,:;!?")))
		}
		if len(items) == 0 {
			items = []string{"empty"}
		}
		return json.Marshal(items)
	case engine.SchemaText:
		return json.Marshal(fmt.Sprintf("mock response %d: %d chars", c.turns, len(text)))
	default:
		return nil, fmt.Errorf("unsupported schema %v", schema)
	}
}

func (c *mockContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
