// Package news resolves the article feed for a city, falling back to a
// synthetic feed whenever the configured remote source cannot deliver.
package news

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/city-pulse/internal/domain"
	"github.com/samvad-hq/city-pulse/internal/logger"
	"github.com/samvad-hq/city-pulse/internal/metrics"
	"github.com/samvad-hq/city-pulse/pkg/providers"
)

// Origin tells where a feed came from.
type Origin string

const (
	OriginRemote    Origin = "remote"
	OriginSynthetic Origin = "synthetic"
)

// ProviderSynthetic disables the remote lookup entirely.
const ProviderSynthetic = "synthetic"

// ErrRemoteDisabled is the fallback reason when no remote source is configured.
var ErrRemoteDisabled = errors.New("remote source disabled")

// Result is the outcome of a feed lookup. Articles is never empty; Err holds
// the remote failure that caused a synthetic feed, if any.
type Result struct {
	Articles []domain.Article
	Origin   Origin
	Err      error
}

// Synthetic reports whether the feed is placeholder data.
func (r Result) Synthetic() bool { return r.Origin == OriginSynthetic }

// Options tunes remote lookups.
type Options struct {
	ProviderID    string
	PageSize      int
	RecencyWindow time.Duration
	Timeout       time.Duration
}

// Provider is the article source used by the coordinator.
type Provider struct {
	source   providers.Provider
	fetcher  providers.Fetcher
	synth    *Generator
	opts     Options
	log      logger.Logger
	remoteOn bool
}

// NewProvider resolves opts.ProviderID against the registries. An empty id or
// "synthetic" yields a provider that only serves synthetic feeds.
func NewProvider(reg *providers.Registry, fetchers providers.FetcherRegistry, synth *Generator, opts Options, log logger.Logger) (*Provider, error) {
	if synth == nil {
		synth = NewGenerator(DefaultSyntheticCount, 0)
	}
	p := &Provider{synth: synth, opts: opts, log: logger.Ensure(log)}

	id := strings.TrimSpace(opts.ProviderID)
	if id == "" || strings.EqualFold(id, ProviderSynthetic) {
		return p, nil
	}
	if reg == nil || fetchers == nil {
		return nil, errors.New("news provider requires provider and fetcher registries")
	}

	source, ok := reg.ByID(id)
	if !ok {
		return nil, fmt.Errorf("news provider %q not found in registry", id)
	}
	fetcher, err := fetchers.FetcherFor(source)
	if err != nil {
		return nil, fmt.Errorf("resolve fetcher for %q: %w", id, err)
	}

	p.source = source
	p.fetcher = fetcher
	p.remoteOn = true
	return p, nil
}

// ArticlesForCity returns the feed for city. Any remote failure, including a
// timeout, is answered with the synthetic feed.
func (p *Provider) ArticlesForCity(ctx context.Context, city string) Result {
	return p.lookup(ctx, strings.TrimSpace(city))
}

// Search runs the same lookup for a free-text query.
func (p *Provider) Search(ctx context.Context, query string) Result {
	return p.lookup(ctx, strings.TrimSpace(query))
}

func (p *Provider) lookup(ctx context.Context, keyword string) Result {
	label := p.label()
	start := time.Now()

	articles, err := p.remote(ctx, keyword)
	if err == nil {
		metrics.RecordFetch(label, metrics.OutcomeRemote, time.Since(start).Seconds())
		return Result{Articles: articles, Origin: OriginRemote}
	}

	reason := fallbackReason(err)
	metrics.RecordFetch(label, metrics.OutcomeSynthetic, time.Since(start).Seconds())
	metrics.RecordFallback(reason)
	if !errors.Is(err, ErrRemoteDisabled) {
		p.log.WarnObj("remote lookup failed, using synthetic feed", "fallback", map[string]any{
			"provider": label,
			"keyword":  keyword,
			"reason":   reason,
			"error":    err.Error(),
		})
	}

	return Result{Articles: p.synth.Generate(keyword), Origin: OriginSynthetic, Err: err}
}

type fetchOutcome struct {
	articles []domain.Article
	err      error
}

// remote runs the fetch in its own goroutine so a fetcher that ignores ctx
// is still abandoned at the deadline.
func (p *Provider) remote(ctx context.Context, keyword string) ([]domain.Article, error) {
	if !p.remoteOn {
		return nil, ErrRemoteDisabled
	}

	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	q := providers.NewQuery(keyword, p.opts.PageSize, p.opts.RecencyWindow)
	done := make(chan fetchOutcome, 1)
	go func() {
		articles, err := p.fetcher.Fetch(ctx, p.source, q)
		done <- fetchOutcome{articles: articles, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		if len(out.articles) == 0 {
			return nil, &providers.FetchError{ProviderID: p.source.ID, Op: "decode", Err: providers.ErrEmptyResult}
		}
		return out.articles, nil
	case <-ctx.Done():
		return nil, &providers.FetchError{ProviderID: p.source.ID, Op: "request", Err: ctx.Err()}
	}
}

func (p *Provider) label() string {
	if !p.remoteOn {
		return ProviderSynthetic
	}
	return p.source.ID
}

func fallbackReason(err error) string {
	var fe *providers.FetchError
	switch {
	case errors.Is(err, ErrRemoteDisabled):
		return "disabled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, providers.ErrEmptyResult):
		return "empty"
	case errors.As(err, &fe):
		return fe.Op
	default:
		return "error"
	}
}
