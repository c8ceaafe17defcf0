// ABOUTME: Wire types for the NDJSON protocol between supervisor and gateway.
// ABOUTME: Defines commands, requests, the three response shapes, and error codes.

package protocol

import (
	"encoding/json"
	"fmt"
)

// Command identifies a protocol operation.
type Command string

// The five recognized commands. Anything else is rejected with
// ErrCodeUnknownCommand.
const (
	CmdOpenSession       Command = "open-session"
	CmdMessage           Command = "message"
	CmdCloseSession      Command = "close-session"
	CmdCheckAvailability Command = "check-availability"
	CmdShutdown          Command = "shutdown"
)

// Error codes returned in the `error` field of failure responses.
const (
	ErrCodeInvalidJSON          = "invalid_json"
	ErrCodeUnknownCommand       = "unknown_command"
	ErrCodeSessionIDRequired    = "session_id_required"
	ErrCodePromptRequired       = "prompt_required"
	ErrCodeContentRequired      = "content_required"
	ErrCodeOutputFormatRequired = "output_format_required"
	ErrCodeSessionNotFound      = "session_not_found"
	ErrCodeUnknownOutputFormat  = "unknown_output_format"
	ErrCodeGuardrailBlocked     = "guardrail_blocked"
	ErrCodeModelUnavailable     = "model_unavailable"
	ErrCodeExecutionFailed      = "execution_failed"
)

// Output formats a message may request. The set is intentionally small;
// adding a shape means adding a schema and an encoding case, never task logic.
const (
	FormatStringList = "string_list"
	FormatText       = "text"
)

// Request is one decoded input line. All fields except Command are
// command-dependent; an empty string counts as absent.
type Request struct {
	Command      Command `json:"command"`
	SessionID    string  `json:"session_id,omitempty"`
	Instructions string  `json:"instructions,omitempty"`
	Prompt       string  `json:"prompt,omitempty"`
	Content      string  `json:"content,omitempty"`
	OutputFormat string  `json:"output_format,omitempty"`
}

// Response is one output line. Exactly one of the three shapes is ever
// populated: success (OK with optional SessionID/Result), error (OK false
// with Error), or availability (OK with Available set).
//
// Result is a bare JSON value, not a wrapped object: an array of strings for
// string_list, a string for text. RawMessage keeps an empty-string result
// distinguishable from an absent one.
type Response struct {
	OK        bool            `json:"ok"`
	SessionID string          `json:"session_id,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	Available *bool           `json:"available,omitempty"`
	Reason    string          `json:"reason,omitempty"`
}

// DecodeRequest parses a single input line into a Request.
func DecodeRequest(line []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}
	return &req, nil
}

// OKResponse builds a bare success response.
func OKResponse() *Response {
	return &Response{OK: true}
}

// SessionResponse builds the success response for open-session.
func SessionResponse(sessionID string) *Response {
	return &Response{OK: true, SessionID: sessionID}
}

// ResultResponse builds the success response for message. The result must
// already be encoded as a bare JSON value.
func ResultResponse(result json.RawMessage) *Response {
	return &Response{OK: true, Result: result}
}

// ErrorResponse builds a failure response carrying an error code.
func ErrorResponse(code string) *Response {
	return &Response{OK: false, Error: code}
}

// AvailabilityResponse builds the response for check-availability. The
// reason is only meaningful when available is false.
func AvailabilityResponse(available bool, reason string) *Response {
	return &Response{OK: true, Available: &available, Reason: reason}
}

// Encode serializes the response to a single line without trailing newline.
func (r *Response) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding response: %w", err)
	}
	return data, nil
}
