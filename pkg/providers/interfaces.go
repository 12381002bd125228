package providers

import (
	"context"

	"github.com/samvad-hq/city-pulse/internal/domain"
	"github.com/samvad-hq/city-pulse/pkg/httpclient"
)

// Fetcher retrieves articles matching a query from one remote source type.
// Implementations return a *FetchError on any failure, including an empty result.
type Fetcher interface {
	ID() string
	Fetch(ctx context.Context, cfg Provider, q Query) ([]domain.Article, error)
}

// FetcherRegistry resolves the fetcher implementation for a given provider config.
type FetcherRegistry interface {
	FetcherFor(cfg Provider) (Fetcher, error)
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within providers.
type HTTPClient = httpclient.Client

// HTTPResponse aliases httpclient.Response.
type HTTPResponse = httpclient.Response
