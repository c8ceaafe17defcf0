// ABOUTME: Executes message commands against a session's engine context.
// ABOUTME: Truncates content, assembles the instruction, and maps engine failures to error codes.

package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lumenlabs/lumen-gateway/internal/engine"
	"github.com/lumenlabs/lumen-gateway/internal/protocol"
	"github.com/lumenlabs/lumen-gateway/internal/session"
)

// separator sits between the caller's prompt and the content block. It is
// the only text the gateway ever adds to a request.
const separator = "\n\n---\n\n"

// CodedError carries a protocol error code alongside the underlying cause.
// The code is all the client sees; the cause stays in the logs.
type CodedError struct {
	Code string
	Err  error
}

func (e *CodedError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *CodedError) Unwrap() error { return e.Err }

// Executor translates (prompt, content, output format) into one engine call.
// It holds no task knowledge; all semantic intent comes from the caller.
type Executor struct {
	maxContentChars int
	logger          *slog.Logger
}

// New creates an Executor that truncates content to maxContentChars
// characters before it reaches the engine.
func New(maxContentChars int, logger *slog.Logger) *Executor {
	return &Executor{
		maxContentChars: maxContentChars,
		logger:          logger,
	}
}

// Execute runs one message against the session's engine context and returns
// the result as a bare JSON value. Failures come back as *CodedError; the
// session itself is never mutated here.
func (x *Executor) Execute(ctx context.Context, sess *session.Session, prompt, content, outputFormat string) (json.RawMessage, error) {
	schema, err := schemaFor(outputFormat)
	if err != nil {
		return nil, err
	}

	truncated := truncate(content, x.maxContentChars)
	if len(truncated) < len(content) {
		x.logger.Debug("content truncated",
			"session_id", sess.ID,
			"original_chars", len([]rune(content)),
			"max_chars", x.maxContentChars,
		)
	}

	instruction := prompt + separator + truncated

	result, err := sess.Context.Respond(ctx, instruction, schema)
	if err != nil {
		return nil, mapEngineError(err)
	}
	return result, nil
}

// schemaFor maps a wire output format to an engine schema. Unknown formats
// are rejected before any engine work happens.
func schemaFor(outputFormat string) (engine.OutputSchema, error) {
	switch outputFormat {
	case protocol.FormatStringList:
		return engine.SchemaStringList, nil
	case protocol.FormatText:
		return engine.SchemaText, nil
	default:
		return 0, &CodedError{Code: protocol.ErrCodeUnknownOutputFormat}
	}
}

// truncate cuts s to at most max characters, never splitting a UTF-8
// sequence. Content of exactly max characters passes through unmodified.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s // byte length bounds rune length
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// mapEngineError converts an engine failure into the wire error taxonomy.
func mapEngineError(err error) error {
	switch {
	case errors.Is(err, engine.ErrGuardrail):
		return &CodedError{Code: protocol.ErrCodeGuardrailBlocked, Err: err}
	case errors.Is(err, engine.ErrUnavailable):
		return &CodedError{Code: protocol.ErrCodeModelUnavailable, Err: err}
	default:
		return &CodedError{Code: protocol.ErrCodeExecutionFailed, Err: err}
	}
}

// MapEngineError is the shared mapping for engine failures that happen
// outside Execute, such as a context rejection at session-open time.
func MapEngineError(err error) *CodedError {
	var coded *CodedError
	mapped := mapEngineError(err)
	errors.As(mapped, &coded)
	return coded
}
