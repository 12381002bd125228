package providers

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistryYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "providers.yaml")
	content := `
providers:
  - id: eventregistry
    name: Event Registry
    type: EventRegistry
    source_url: https://eventregistry.org/api/v1/article/getArticles
    config:
      language: eng
      user_agent: CityPulse/1.0
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write providers file: %v", err)
	}

	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry returned error: %v", err)
	}

	if got := len(reg.All()); got != 1 {
		t.Fatalf("expected 1 provider, got %d", got)
	}

	p, ok := reg.ByID("EventRegistry")
	if !ok {
		t.Fatalf("expected provider id eventregistry to be loaded")
	}
	if p.Type != TypeEventRegistry {
		t.Fatalf("expected type to be lower-cased, got %s", p.Type)
	}
	if ConfigString(p, ConfigLanguageKey, "") != "eng" {
		t.Fatalf("unexpected language config: %v", p.Config)
	}
	if Headers(p)["User-Agent"] != "CityPulse/1.0" {
		t.Fatalf("unexpected headers: %v", Headers(p))
	}
}

func TestLoadRegistryDuplicateID(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "providers.yaml")
	content := `
providers:
  - id: duplicate
    name: Provider One
    type: rss
    source_url: https://p1.example/?q={query}
  - id: duplicate
    name: Provider Two
    type: rss
    source_url: https://p2.example/?q={query}
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write providers file: %v", err)
	}

	if _, err := LoadRegistry(file); err == nil {
		t.Fatalf("expected duplicate provider error, got nil")
	}
}

func TestLoadRegistryJSONMissingSourceURL(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "providers.json")
	content := `{"providers":[{"id":"x","name":"X","type":"rss"}]}`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write providers file: %v", err)
	}

	if _, err := LoadRegistry(file); err == nil {
		t.Fatalf("expected validation error for missing source_url")
	}
}

func TestDefaultRegistryHasBuiltins(t *testing.T) {
	reg := DefaultRegistry()
	for _, id := range []string{"eventregistry", "google-news-rss"} {
		if _, ok := reg.ByID(id); !ok {
			t.Errorf("missing builtin provider %q", id)
		}
	}
}

func TestConfigIntAcceptsNumbersAndStrings(t *testing.T) {
	p := Provider{Config: map[string]any{"a": 5, "b": float64(7), "c": "9", "d": "x", "e": -1}}
	cases := map[string]int{"a": 5, "b": 7, "c": 9, "d": 3, "e": 3, "missing": 3}
	for key, want := range cases {
		if got := ConfigInt(p, key, 3); got != want {
			t.Errorf("ConfigInt(%q) = %d want %d", key, got, want)
		}
	}
}

func TestDefaultFetcherRegistryResolvesByType(t *testing.T) {
	reg := DefaultFetcherRegistry(&fakeHTTPClient{}, Credentials{})
	f, err := reg.FetcherFor(Provider{ID: "custom", Type: TypeRSS})
	if err != nil {
		t.Fatalf("FetcherFor: %v", err)
	}
	if f.ID() != TypeRSS {
		t.Fatalf("unexpected fetcher %s", f.ID())
	}
	if _, err := reg.FetcherFor(Provider{ID: "custom", Type: "sitemap"}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestFetcherOverrideWinsOverType(t *testing.T) {
	reg := DefaultFetcherRegistry(&fakeHTTPClient{}, Credentials{})
	custom := NewRSSFetcher(&fakeHTTPClient{})
	reg.Override(" Local-Feed ", custom)

	f, err := reg.FetcherFor(Provider{ID: "local-feed", Type: TypeEventRegistry})
	if err != nil {
		t.Fatalf("FetcherFor: %v", err)
	}
	if f != custom {
		t.Fatalf("expected id override, got %s", f.ID())
	}
	if _, err := reg.FetcherFor(Provider{Type: TypeRSS}); err == nil {
		t.Fatalf("expected error for empty provider id")
	}
}

func TestShippedProvidersFileLoads(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join("..", "..", "configs", "providers.yaml"))
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	fetchers := DefaultFetcherRegistry(&fakeHTTPClient{}, Credentials{})
	for _, p := range reg.All() {
		if _, err := fetchers.FetcherFor(p); err != nil {
			t.Errorf("provider %s has no fetcher: %v", p.ID, err)
		}
	}
	if _, ok := reg.ByID("eventregistry"); !ok {
		t.Fatalf("eventregistry entry missing")
	}
}
