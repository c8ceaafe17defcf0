// ABOUTME: Tests for model catalog loading and resolution
// ABOUTME: Covers TOML parsing, validation errors, and id-to-model resolution

package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmptyPathReturnsDefault(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	require.NotEmpty(t, c.Models)

	_, ok := c.Lookup("gemini-flash")
	assert.True(t, ok)
}

func TestLoad_TOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	content := `
[[models]]
id = "tiny"
backend = "openai"
model = "tinyllama:1b"
display_name = "Tiny Llama"
description = "Smallest usable model."
quality_tier = "basic"

[[models]]
id = "flash"
backend = "gemini"
model = "gemini-2.0-flash"
display_name = "Gemini Flash"
quality_tier = "great"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Len(t, c.Models, 2)

	entry, ok := c.Lookup("tiny")
	require.True(t, ok)
	assert.Equal(t, "tinyllama:1b", entry.Model)
	assert.Equal(t, "openai", entry.Backend)
}

func TestLoad_DuplicateIDRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	content := `
[[models]]
id = "dup"
backend = "openai"
model = "a"

[[models]]
id = "dup"
backend = "openai"
model = "b"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestLoad_MissingModelNameRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	content := `
[[models]]
id = "incomplete"
backend = "openai"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	c := Default()

	// Catalog id for the matching backend resolves to the model name.
	assert.Equal(t, "gemini-2.0-flash", c.Resolve("gemini", "gemini-flash"))

	// Catalog id for a different backend passes through.
	assert.Equal(t, "gemini-flash", c.Resolve("openai", "gemini-flash"))

	// Unknown references pass through untouched.
	assert.Equal(t, "my-custom-model", c.Resolve("openai", "my-custom-model"))
}
