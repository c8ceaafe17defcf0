// ABOUTME: Command router for lumen-gateway
// ABOUTME: Validates required fields per command and dispatches to session, executor, or checker

package gateway

import (
	"context"
	"errors"

	"github.com/lumenlabs/lumen-gateway/internal/executor"
	"github.com/lumenlabs/lumen-gateway/internal/protocol"
)

// dispatch maps a decoded request to its handler. Each handler validates its
// own required fields before doing any work; an empty string counts as
// absent, not merely a missing key.
func (g *Gateway) dispatch(ctx context.Context, req *protocol.Request) *protocol.Response {
	switch req.Command {
	case protocol.CmdOpenSession:
		return g.handleOpenSession(ctx, req)
	case protocol.CmdMessage:
		return g.handleMessage(ctx, req)
	case protocol.CmdCloseSession:
		return g.handleCloseSession(req)
	case protocol.CmdCheckAvailability:
		return g.handleCheckAvailability()
	case protocol.CmdShutdown:
		return protocol.OKResponse()
	default:
		g.logger.Debug("unknown command", "command", string(req.Command))
		return protocol.ErrorResponse(protocol.ErrCodeUnknownCommand)
	}
}

// handleOpenSession creates a session with the caller's instructions or the
// task-agnostic default. Engine rejection of the instructions maps through
// the standard failure taxonomy.
func (g *Gateway) handleOpenSession(ctx context.Context, req *protocol.Request) *protocol.Response {
	id, err := g.sessions.Open(ctx, req.Instructions)
	if err != nil {
		coded := executor.MapEngineError(err)
		g.logger.Error("opening session", "error", err, "code", coded.Code)
		return protocol.ErrorResponse(coded.Code)
	}
	return protocol.SessionResponse(id)
}

// handleMessage validates fields, resolves the session, and executes one
// generation call. A failed execution leaves the session open; the activity
// bump from the successful lookup stands regardless.
func (g *Gateway) handleMessage(ctx context.Context, req *protocol.Request) *protocol.Response {
	if req.SessionID == "" {
		return protocol.ErrorResponse(protocol.ErrCodeSessionIDRequired)
	}
	if req.Prompt == "" {
		return protocol.ErrorResponse(protocol.ErrCodePromptRequired)
	}
	if req.Content == "" {
		return protocol.ErrorResponse(protocol.ErrCodeContentRequired)
	}
	if req.OutputFormat == "" {
		return protocol.ErrorResponse(protocol.ErrCodeOutputFormatRequired)
	}

	sess, ok := g.sessions.Get(req.SessionID)
	if !ok {
		return protocol.ErrorResponse(protocol.ErrCodeSessionNotFound)
	}

	result, err := g.executor.Execute(ctx, sess, req.Prompt, req.Content, req.OutputFormat)
	if err != nil {
		var coded *executor.CodedError
		if errors.As(err, &coded) {
			g.logger.Error("message execution failed",
				"session_id", sess.ID,
				"code", coded.Code,
				"error", err,
			)
			return protocol.ErrorResponse(coded.Code)
		}
		g.logger.Error("message execution failed", "session_id", sess.ID, "error", err)
		return protocol.ErrorResponse(protocol.ErrCodeExecutionFailed)
	}

	return protocol.ResultResponse(result)
}

// handleCloseSession removes a session explicitly.
func (g *Gateway) handleCloseSession(req *protocol.Request) *protocol.Response {
	if req.SessionID == "" {
		return protocol.ErrorResponse(protocol.ErrCodeSessionIDRequired)
	}

	if err := g.sessions.Close(req.SessionID); err != nil {
		return protocol.ErrorResponse(protocol.ErrCodeSessionNotFound)
	}
	return protocol.OKResponse()
}

// handleCheckAvailability runs the synchronous capability probe. A negative
// result is still an ok response, never an error.
func (g *Gateway) handleCheckAvailability() *protocol.Response {
	available, reason := g.checker.Check()
	return protocol.AvailabilityResponse(available, reason)
}
