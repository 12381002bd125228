package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Package providers contains remote article source configs (YAML/JSON) and
// the fetchers that query them.

// Provider describes one remote article source.
type Provider struct {
	ID        string         `json:"id" yaml:"id"`
	Name      string         `json:"name" yaml:"name"`
	Type      string         `json:"type" yaml:"type"`
	SourceURL string         `json:"source_url" yaml:"source_url"`
	Config    map[string]any `json:"config" yaml:"config"`
}

type registryFile struct {
	Providers []Provider `json:"providers" yaml:"providers"`
}

// Registry holds the loaded provider entries.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
	idx       map[string]Provider
}

// Built-in provider entries used when no providers file is configured.
var builtinProviders = []Provider{
	{
		ID:        "eventregistry",
		Name:      "Event Registry",
		Type:      TypeEventRegistry,
		SourceURL: "https://eventregistry.org/api/v1/article/getArticles",
	},
	{
		ID:        "google-news-rss",
		Name:      "Google News",
		Type:      TypeRSS,
		SourceURL: "https://news.google.com/rss/search?q={query}&hl=en-US&gl=US&ceid=US:en",
	},
}

// DefaultRegistry returns a registry of the built-in providers.
func DefaultRegistry() *Registry {
	reg, err := newRegistry(builtinProviders)
	if err != nil {
		panic(fmt.Sprintf("builtin providers invalid: %v", err))
	}
	return reg
}

// LoadRegistry reads provider entries from a YAML or JSON file; the format
// follows the extension and defaults to YAML.
func LoadRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("providers file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}

	var parsed registryFile
	unmarshal := yaml.Unmarshal
	if strings.EqualFold(filepath.Ext(path), ".json") {
		unmarshal = json.Unmarshal
	}
	if err := unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode providers file %s: %w", filepath.Base(path), err)
	}
	if len(parsed.Providers) == 0 {
		return nil, errors.New("providers file contains no providers entries")
	}
	return newRegistry(parsed.Providers)
}

func newRegistry(entries []Provider) (*Registry, error) {
	reg := &Registry{
		providers: make([]Provider, 0, len(entries)),
		idx:       make(map[string]Provider, len(entries)),
	}
	for i := range entries {
		p := sanitizeProvider(entries[i])
		if err := validateProvider(p); err != nil {
			return nil, fmt.Errorf("provider[%d]: %w", i, err)
		}
		key := strings.ToLower(p.ID)
		if _, exists := reg.idx[key]; exists {
			return nil, fmt.Errorf("duplicate provider id %q", p.ID)
		}
		reg.providers = append(reg.providers, p)
		reg.idx[key] = p
	}
	return reg, nil
}

// All returns a copy of the loaded providers.
func (r *Registry) All() []Provider {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// ByID returns the provider entry for the given id, if loaded.
func (r *Registry) ByID(id string) (Provider, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	if r == nil || id == "" {
		return Provider{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.idx[id]
	return p, ok
}

func sanitizeProvider(p Provider) Provider {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.Type = strings.ToLower(strings.TrimSpace(p.Type))
	p.SourceURL = strings.TrimSpace(p.SourceURL)

	if p.Config == nil {
		p.Config = map[string]any{}
	}
	return p
}

func validateProvider(p Provider) error {
	if p.ID == "" {
		return errors.New("id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("name is required for provider %q", p.ID)
	}
	if p.Type == "" {
		return fmt.Errorf("type is required for provider %q", p.ID)
	}
	if p.SourceURL == "" {
		return fmt.Errorf("source_url is required for provider %q", p.ID)
	}
	return nil
}
