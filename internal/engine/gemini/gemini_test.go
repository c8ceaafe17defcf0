// ABOUTME: Tests for Gemini response handling
// ABOUTME: Covers result encoding, safety-block detection, and API error classification

package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/lumenlabs/lumen-gateway/internal/engine"
)

func TestEncodeResult_StringList(t *testing.T) {
	result, err := encodeResult(`["red", "green", "blue"]`, engine.SchemaStringList)
	require.NoError(t, err)

	var items []string
	require.NoError(t, json.Unmarshal(result, &items))
	assert.Equal(t, []string{"red", "green", "blue"}, items)
}

func TestEncodeResult_StringListMalformed(t *testing.T) {
	_, err := encodeResult(`not a json array`, engine.SchemaStringList)
	assert.Error(t, err)
}

func TestEncodeResult_Text(t *testing.T) {
	result, err := encodeResult("a plain summary", engine.SchemaText)
	require.NoError(t, err)
	assert.Equal(t, `"a plain summary"`, string(result))
}

func TestEncodeResult_TextEscapesSpecials(t *testing.T) {
	result, err := encodeResult("line one\nline \"two\"", engine.SchemaText)
	require.NoError(t, err)

	var text string
	require.NoError(t, json.Unmarshal(result, &text))
	assert.Equal(t, "line one\nline \"two\"", text)
}

func TestCheckBlocked(t *testing.T) {
	tests := []struct {
		name      string
		resp      *genai.GenerateContentResponse
		guardrail bool
		wantErr   bool
	}{
		{
			name: "clean response",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonStop}},
			},
		},
		{
			name: "prompt blocked",
			resp: &genai.GenerateContentResponse{
				PromptFeedback: &genai.GenerateContentResponsePromptFeedback{
					BlockReason: genai.BlockedReasonSafety,
				},
			},
			guardrail: true,
			wantErr:   true,
		},
		{
			name: "candidate blocked by safety",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
			},
			guardrail: true,
			wantErr:   true,
		},
		{
			name:    "no candidates",
			resp:    &genai.GenerateContentResponse{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkBlocked(tt.resp)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.guardrail, errors.Is(err, engine.ErrGuardrail))
		})
	}
}

func TestMapAPIError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		unavailable bool
	}{
		{"rate limited", genai.APIError{Code: 429, Message: "quota"}, true},
		{"server error", genai.APIError{Code: 503, Message: "overloaded"}, true},
		{"bad request stays plain", genai.APIError{Code: 400, Message: "bad schema"}, false},
		{"transport failure", fmt.Errorf("dial tcp: connection refused"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := mapAPIError(tt.err)
			assert.Equal(t, tt.unavailable, errors.Is(mapped, engine.ErrUnavailable))
		})
	}
}
