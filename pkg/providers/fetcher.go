package providers

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/city-pulse/pkg/httpclient"
)

const defaultFetchTimeout = 15 * time.Second

// Credentials carries secrets injected from configuration.
type Credentials struct {
	EventRegistryAPIKey string
}

// Fetchers resolves a Fetcher for a provider entry. An override registered
// under the provider id wins over the fetcher for its type.
type Fetchers struct {
	mu        sync.RWMutex
	overrides map[string]Fetcher
	types     map[string]Fetcher
}

// NewFetcherRegistry returns a registry with fetchers registered as id
// overrides.
func NewFetcherRegistry(overrides ...Fetcher) *Fetchers {
	f := &Fetchers{
		overrides: make(map[string]Fetcher),
		types:     make(map[string]Fetcher),
	}
	for _, o := range overrides {
		if o != nil {
			f.Override(o.ID(), o)
		}
	}
	return f
}

// DefaultFetcherRegistry registers the Event Registry and RSS fetchers by type.
func DefaultFetcherRegistry(client HTTPClient, creds Credentials) *Fetchers {
	if client == nil {
		client = DefaultHTTPClient()
	}
	f := NewFetcherRegistry()
	f.Register(TypeEventRegistry, NewEventRegistryFetcher(client, creds.EventRegistryAPIKey))
	f.Register(TypeRSS, NewRSSFetcher(client))
	return f
}

// DefaultHTTPClient returns the resty-backed client used by fetchers.
func DefaultHTTPClient() HTTPClient { return httpclient.NewRestyClient(defaultFetchTimeout) }

// Register binds fetcher to a provider type.
func (f *Fetchers) Register(typ string, fetcher Fetcher) {
	f.set(f.types, typ, fetcher)
}

// Override binds fetcher to a single provider id.
func (f *Fetchers) Override(id string, fetcher Fetcher) {
	f.set(f.overrides, id, fetcher)
}

func (f *Fetchers) set(m map[string]Fetcher, key string, fetcher Fetcher) {
	key = normalizeKey(key)
	if key == "" || fetcher == nil {
		return
	}
	f.mu.Lock()
	m[key] = fetcher
	f.mu.Unlock()
}

// FetcherFor implements FetcherRegistry.
func (f *Fetchers) FetcherFor(cfg Provider) (Fetcher, error) {
	if f == nil {
		return nil, fmt.Errorf("fetcher registry is nil")
	}
	id := normalizeKey(cfg.ID)
	if id == "" {
		return nil, fmt.Errorf("provider id is empty")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if fetcher, ok := f.overrides[id]; ok {
		return fetcher, nil
	}
	if fetcher, ok := f.types[normalizeKey(cfg.Type)]; ok {
		return fetcher, nil
	}
	return nil, fmt.Errorf("no fetcher for provider %q (type %q)", cfg.ID, cfg.Type)
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
