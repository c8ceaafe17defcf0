// ABOUTME: Tests for the mock engine
// ABOUTME: Verifies trigger phrases, schema-conforming output, and lifecycle state

package mock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlabs/lumen-gateway/internal/engine"
)

func TestRespond_Triggers(t *testing.T) {
	e := New()
	ectx, err := e.OpenContext(context.Background(), "sys")
	require.NoError(t, err)

	tests := []struct {
		trigger  string
		sentinel error
	}{
		{TriggerGuardrail, engine.ErrGuardrail},
		{TriggerUnavailable, engine.ErrUnavailable},
		{TriggerFailure, nil},
	}

	for _, tt := range tests {
		_, err := ectx.Respond(context.Background(), "text "+tt.trigger, engine.SchemaText)
		require.Error(t, err)
		if tt.sentinel != nil {
			assert.ErrorIs(t, err, tt.sentinel)
		} else {
			assert.NotErrorIs(t, err, engine.ErrGuardrail)
			assert.NotErrorIs(t, err, engine.ErrUnavailable)
		}
	}
}

func TestRespond_StringListConformsToSchema(t *testing.T) {
	e := New()
	ectx, err := e.OpenContext(context.Background(), "sys")
	require.NoError(t, err)

	result, err := ectx.Respond(context.Background(), "Red Green Blue Yellow", engine.SchemaStringList)
	require.NoError(t, err)

	var items []string
	require.NoError(t, json.Unmarshal(result, &items))
	assert.Equal(t, []string{"red", "green", "blue"}, items)
}

func TestRespond_TextConformsToSchema(t *testing.T) {
	e := New()
	ectx, err := e.OpenContext(context.Background(), "sys")
	require.NoError(t, err)

	result, err := ectx.Respond(context.Background(), "hello", engine.SchemaText)
	require.NoError(t, err)

	var text string
	require.NoError(t, json.Unmarshal(result, &text))
	assert.NotEmpty(t, text)
}

func TestOpenContext_RejectsFailureInstructions(t *testing.T) {
	e := New()
	_, err := e.OpenContext(context.Background(), "bad "+TriggerFailure)
	assert.Error(t, err)
	assert.Equal(t, 0, e.ContextsOpened())
}

func TestSetReadyError(t *testing.T) {
	e := New()
	require.NoError(t, e.Ready(context.Background()))

	probeErr := errors.New("model weights missing")
	e.SetReadyError(probeErr)
	assert.ErrorIs(t, e.Ready(context.Background()), probeErr)

	_, err := e.OpenContext(context.Background(), "sys")
	assert.ErrorIs(t, err, probeErr)

	e.SetReadyError(nil)
	assert.NoError(t, e.Ready(context.Background()))
}

func TestClosedEngineAndContext(t *testing.T) {
	e := New()
	ectx, err := e.OpenContext(context.Background(), "sys")
	require.NoError(t, err)

	require.NoError(t, ectx.Close())
	_, err = ectx.Respond(context.Background(), "p", engine.SchemaText)
	assert.ErrorIs(t, err, engine.ErrUnavailable)

	require.NoError(t, e.Close())
	assert.ErrorIs(t, e.Ready(context.Background()), engine.ErrUnavailable)
	_, err = e.OpenContext(context.Background(), "sys")
	assert.ErrorIs(t, err, engine.ErrUnavailable)
}
