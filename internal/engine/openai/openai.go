// ABOUTME: OpenAI-compatible engine backend over plain HTTP chat completions.
// ABOUTME: Serves hosted OpenAI endpoints and local Ollama; recovers string lists from loosely formatted output.

package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lumenlabs/lumen-gateway/internal/engine"
)

// DefaultOllamaBaseURL is used when the backend targets a local Ollama
// daemon and no base URL is configured.
const DefaultOllamaBaseURL = "http://127.0.0.1:11434/v1"

// listFormatHint is appended to string-list requests. Local models served
// through the compatibility endpoint have no schema enforcement, so the
// response is parsed leniently afterwards.
const listFormatHint = "\n\nRespond with a JSON array of strings and nothing else."

// Engine talks to any chat-completions endpoint speaking the OpenAI wire
// format. An empty API key is accepted; local daemons ignore the header.
type Engine struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

var _ engine.Engine = (*Engine)(nil)

// New creates an engine for the given endpoint. An empty baseURL targets
// the local Ollama default.
func New(apiKey, model, baseURL string, logger *slog.Logger) (*Engine, error) {
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}
	return &Engine{
		apiKey:  apiKey,
		model:   model,
		baseURL: normalizeBaseURL(baseURL),
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}, nil
}

// normalizeBaseURL trims trailing slashes and ensures the /v1 prefix the
// chat-completions path hangs off.
func normalizeBaseURL(baseURL string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if strings.HasSuffix(trimmed, "/v1") {
		return trimmed
	}
	return trimmed + "/v1"
}

// OpenContext starts a conversation context seeded with instructions.
func (e *Engine) OpenContext(_ context.Context, instructions string) (engine.Context, error) {
	return &chatContext{
		engine:  e,
		history: []chatMessage{{Role: "system", Content: instructions}},
	}, nil
}

// Ready probes the endpoint's model listing. For Ollama this confirms the
// daemon is up; for hosted endpoints it confirms auth and reachability.
func (e *Engine) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: models endpoint returned %d", engine.ErrUnavailable, resp.StatusCode)
	}
	return nil
}

func (e *Engine) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatContext is one conversation. History accumulates only on successful
// turns.
type chatContext struct {
	engine *Engine

	mu      sync.Mutex
	history []chatMessage
	closed  bool
}

func (c *chatContext) Respond(ctx context.Context, text string, schema engine.OutputSchema) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("context is closed")
	}

	userText := text
	if schema == engine.SchemaStringList {
		userText += listFormatHint
	}
	userTurn := chatMessage{Role: "user", Content: userText}
	messages := append(append([]chatMessage{}, c.history...), userTurn)

	content, err := c.engine.complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	result, err := encodeResult(content, schema)
	if err != nil {
		return nil, err
	}

	c.history = append(c.history, userTurn, chatMessage{Role: "assistant", Content: content})
	return result, nil
}

func (c *chatContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.history = nil
	return nil
}

// complete performs one chat-completions round trip and returns the
// assistant's text.
func (e *Engine) complete(ctx context.Context, messages []chatMessage) (string, error) {
	payload := map[string]any{
		"model":    e.model,
		"messages": messages,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", engine.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode >= 400 {
		err := fmt.Errorf("chat completions returned %d: %s", resp.StatusCode, truncateBody(respBody))
		switch {
		case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
			return "", fmt.Errorf("%w: %v", engine.ErrUnavailable, err)
		default:
			return "", err
		}
	}

	var decoded struct {
		Choices []struct {
			FinishReason string `json:"finish_reason"`
			Message      struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", fmt.Errorf("decoding chat completion: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	choice := decoded.Choices[0]
	if choice.FinishReason == "content_filter" {
		return "", fmt.Errorf("%w: completion stopped by content filter", engine.ErrGuardrail)
	}
	return choice.Message.Content, nil
}

func truncateBody(body []byte) string {
	const limit = 512
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}

// encodeResult converts assistant text into the bare JSON value the schema
// calls for.
func encodeResult(content string, schema engine.OutputSchema) (json.RawMessage, error) {
	switch schema {
	case engine.SchemaStringList:
		items := parseStringList(content)
		if len(items) == 0 {
			return nil, fmt.Errorf("model returned no usable list items")
		}
		return json.Marshal(items)
	case engine.SchemaText:
		return json.Marshal(content)
	default:
		return nil, fmt.Errorf("unsupported output schema %v", schema)
	}
}

// parseStringList recovers a string list from model output that may or may
// not be clean JSON. It tries, in order: the whole text as a JSON array,
// the first bracketed span as a JSON array, then line or comma splitting.
func parseStringList(content string) []string {
	trimmed := strings.TrimSpace(content)

	if items, ok := decodeStringArray(trimmed); ok {
		return items
	}

	if start := strings.Index(trimmed, "["); start >= 0 {
		if end := strings.LastIndex(trimmed, "]"); end > start {
			if items, ok := decodeStringArray(trimmed[start : end+1]); ok {
				return items
			}
		}
	}

	var sep string
	if strings.Contains(trimmed, "\n") {
		sep = "\n"
	} else {
		sep = ","
	}

	var items []string
	for _, part := range strings.Split(trimmed, sep) {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, "- ")
		part = strings.Trim(part, `"`)
		if part != "" {
			items = append(items, part)
		}
	}
	return items
}

func decodeStringArray(s string) ([]string, bool) {
	var items []string
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, false
	}
	return items, true
}
