// ABOUTME: Curated model catalog for the generation backends.
// ABOUTME: Loads TOML catalog files and resolves catalog ids to backend model names.

package catalog

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Entry is static metadata for one model in the catalog.
type Entry struct {
	ID          string `toml:"id"`
	Backend     string `toml:"backend"`
	Model       string `toml:"model"`
	DisplayName string `toml:"display_name"`
	Description string `toml:"description"`
	QualityTier string `toml:"quality_tier"`
}

// Catalog is an ordered list of known models, basic tier first.
type Catalog struct {
	Models []Entry `toml:"models"`
}

// defaultCatalog mirrors the curated set shipped with the desktop app.
// Used whenever no catalog file is configured.
var defaultCatalog = Catalog{
	Models: []Entry{
		{
			ID:          "gemini-flash-lite",
			Backend:     "gemini",
			Model:       "gemini-2.0-flash-lite",
			DisplayName: "Gemini Flash Lite",
			Description: "Fast and lightweight. Good for quick tasks.",
			QualityTier: "basic",
		},
		{
			ID:          "gemini-flash",
			Backend:     "gemini",
			Model:       "gemini-2.0-flash",
			DisplayName: "Gemini Flash",
			Description: "Great quality, balanced performance. Recommended.",
			QualityTier: "great",
		},
		{
			ID:          "llama-3.2-3b",
			Backend:     "openai",
			Model:       "llama3.2:3b",
			DisplayName: "Llama 3.2 3B",
			Description: "Compact local model served by an OpenAI-compatible runtime.",
			QualityTier: "basic",
		},
		{
			ID:          "qwen3-8b",
			Backend:     "openai",
			Model:       "qwen3:8b",
			DisplayName: "Qwen 3 8B",
			Description: "Strong local model. Needs 16GB+ RAM.",
			QualityTier: "best",
		},
	},
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c := defaultCatalog
	models := make([]Entry, len(c.Models))
	copy(models, c.Models)
	return &Catalog{Models: models}
}

// Load reads a catalog from the given TOML path. An empty path returns the
// embedded default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	var c Catalog
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}

	return &c, nil
}

// Validate checks that every entry is complete and ids are unique.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Models))
	for i, m := range c.Models {
		if m.ID == "" {
			return fmt.Errorf("models[%d]: id is required", i)
		}
		if m.Model == "" {
			return fmt.Errorf("model %q: model name is required", m.ID)
		}
		if m.Backend == "" {
			return fmt.Errorf("model %q: backend is required", m.ID)
		}
		if seen[m.ID] {
			return fmt.Errorf("duplicate model id %q", m.ID)
		}
		seen[m.ID] = true
	}
	return nil
}

// Lookup returns the entry with the given id.
func (c *Catalog) Lookup(id string) (Entry, bool) {
	for _, m := range c.Models {
		if m.ID == id {
			return m, true
		}
	}
	return Entry{}, false
}

// Resolve maps a configured model reference to a backend model name. A
// reference naming a catalog entry for the given backend resolves to that
// entry's model; anything else passes through untouched so callers can name
// backend models directly.
func (c *Catalog) Resolve(backend, ref string) string {
	if entry, ok := c.Lookup(ref); ok && entry.Backend == backend {
		return entry.Model
	}
	return ref
}
