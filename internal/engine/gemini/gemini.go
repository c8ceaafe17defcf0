// ABOUTME: Gemini engine backend using the Google Gen AI SDK.
// ABOUTME: Maps schema-guided generation onto JSON response mode and the safety taxonomy onto engine sentinels.

package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"google.golang.org/genai"

	"github.com/lumenlabs/lumen-gateway/internal/engine"
)

// Engine talks to the Gemini API. One Engine serves many contexts; each
// context carries its own instructions and turn history.
type Engine struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

var _ engine.Engine = (*Engine)(nil)

// New creates a Gemini engine for the given model.
func New(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Engine, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Engine{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// OpenContext starts a conversation context seeded with instructions.
func (e *Engine) OpenContext(_ context.Context, instructions string) (engine.Context, error) {
	return &geminiContext{
		engine: e,
		system: &genai.Content{
			Parts: []*genai.Part{{Text: instructions}},
		},
	}, nil
}

// Ready probes the API by fetching the configured model's metadata. It
// verifies both connectivity and that the model name resolves.
func (e *Engine) Ready(ctx context.Context) error {
	if _, err := e.client.Models.Get(ctx, e.model, nil); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrUnavailable, err)
	}
	return nil
}

// Close releases the engine. The genai client holds no persistent
// connections that need explicit teardown.
func (e *Engine) Close() error {
	return nil
}

// geminiContext is one conversation. History accumulates only on
// successful turns, so a failed generation never poisons the context.
type geminiContext struct {
	engine *Engine
	system *genai.Content

	mu      sync.Mutex
	history []*genai.Content
	closed  bool
}

func (c *geminiContext) Respond(ctx context.Context, text string, schema engine.OutputSchema) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("context is closed")
	}

	userTurn := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: text}},
	}
	contents := append(append([]*genai.Content{}, c.history...), userTurn)

	config := &genai.GenerateContentConfig{
		SystemInstruction: c.system,
	}
	if schema == engine.SchemaStringList {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = &genai.Schema{
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		}
	}

	resp, err := c.engine.client.Models.GenerateContent(ctx, c.engine.model, contents, config)
	if err != nil {
		return nil, mapAPIError(err)
	}
	if err := checkBlocked(resp); err != nil {
		return nil, err
	}

	raw := resp.Text()
	result, err := encodeResult(raw, schema)
	if err != nil {
		return nil, err
	}

	c.history = append(c.history, userTurn, &genai.Content{
		Role:  "model",
		Parts: []*genai.Part{{Text: raw}},
	})
	return result, nil
}

func (c *geminiContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.history = nil
	return nil
}

// encodeResult converts the model's raw text into the bare JSON value the
// schema calls for. String-list output arrives as JSON thanks to response
// mode; it is still validated before being passed through.
func encodeResult(raw string, schema engine.OutputSchema) (json.RawMessage, error) {
	switch schema {
	case engine.SchemaStringList:
		var items []string
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return nil, fmt.Errorf("model returned malformed string list: %w", err)
		}
		return json.Marshal(items)
	case engine.SchemaText:
		return json.Marshal(raw)
	default:
		return nil, fmt.Errorf("unsupported output schema %v", schema)
	}
}

// checkBlocked maps safety refusals onto the guardrail sentinel. A blocked
// prompt surfaces in PromptFeedback; a blocked completion surfaces as the
// candidate's finish reason.
func checkBlocked(resp *genai.GenerateContentResponse) error {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return fmt.Errorf("%w: prompt blocked (%s)", engine.ErrGuardrail, resp.PromptFeedback.BlockReason)
	}
	for _, cand := range resp.Candidates {
		switch cand.FinishReason {
		case genai.FinishReasonSafety, genai.FinishReasonRecitation, genai.FinishReasonProhibitedContent, genai.FinishReasonSPII, genai.FinishReasonBlocklist:
			return fmt.Errorf("%w: response blocked (%s)", engine.ErrGuardrail, cand.FinishReason)
		}
	}
	if len(resp.Candidates) == 0 {
		return fmt.Errorf("model returned no candidates")
	}
	return nil
}

// mapAPIError classifies transport and quota failures as unavailability.
// Anything else stays a plain execution failure.
func mapAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429, 500, 502, 503, 504:
			return fmt.Errorf("%w: %v", engine.ErrUnavailable, err)
		}
		return err
	}
	// No structured API error means the request never reached the service.
	return fmt.Errorf("%w: %v", engine.ErrUnavailable, err)
}
