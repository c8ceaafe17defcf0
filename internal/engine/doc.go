// Package engine defines the Generation Engine contract.
//
// The gateway never talks to a model directly; it talks to an Engine. An
// Engine hands out Contexts (multi-turn conversational state) and each
// Context answers Respond calls with a value conforming to a requested
// OutputSchema. Guided generation is the backend's problem: the Gemini
// backend lowers schemas to genai response schemas, the OpenAI-compatible
// backend uses JSON mode with validated parsing as a fallback, and the mock
// backend fabricates conforming values deterministically.
//
// Failures surface through two sentinels, ErrGuardrail and ErrUnavailable,
// wrapped around backend detail. Everything else is a generic execution
// failure from the caller's point of view.
package engine
