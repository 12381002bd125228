package providers

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/samvad-hq/city-pulse/internal/domain"
)

// TypeRSS identifies keyword-search RSS/Atom feeds. The source_url carries a
// {query} placeholder replaced by the escaped keyword.
const TypeRSS = "rss"

const queryPlaceholder = "{query}"

// rssFetcher downloads a search feed and parses it with gofeed.
type rssFetcher struct {
	client HTTPClient
	parser *gofeed.Parser
	now    func() time.Time
}

// NewRSSFetcher builds a fetcher for keyword-search feeds.
func NewRSSFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &rssFetcher{
		client: client,
		parser: gofeed.NewParser(),
		now:    time.Now,
	}
}

func (f *rssFetcher) ID() string {
	return TypeRSS
}

func (f *rssFetcher) Fetch(ctx context.Context, cfg Provider, q Query) ([]domain.Article, error) {
	if !strings.EqualFold(cfg.Type, TypeRSS) {
		return nil, fetchErr(cfg.ID, "validate", fmt.Errorf("incompatible provider type %q", cfg.Type))
	}

	feedURL := searchURL(cfg.SourceURL, q.Keyword)
	resp, err := f.client.Get(ctx, feedURL, Headers(cfg))
	if err != nil {
		return nil, fetchErr(cfg.ID, "request", err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, fetchErr(cfg.ID, "response", err)
	}

	feed, err := f.parser.Parse(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fetchErr(cfg.ID, "decode", err)
	}

	now := f.now()
	cutoff := now.Add(-q.RecencyWindow)
	raws := make([]RawArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		raw := itemToRaw(feed, item)
		if !raw.PublishedAt.IsZero() && raw.PublishedAt.Before(cutoff) {
			continue
		}
		raws = append(raws, raw)
	}

	sort.SliceStable(raws, func(i, j int) bool {
		return raws[i].PublishedAt.After(raws[j].PublishedAt)
	})
	if len(raws) > q.PageSize {
		raws = raws[:q.PageSize]
	}

	articles := NormalizeAll(raws, q.Keyword, now)
	if len(articles) == 0 {
		return nil, fetchErr(cfg.ID, "decode", ErrEmptyResult)
	}
	return articles, nil
}

func searchURL(template, keyword string) string {
	return strings.ReplaceAll(template, queryPlaceholder, url.QueryEscape(keyword))
}

func itemToRaw(feed *gofeed.Feed, item *gofeed.Item) RawArticle {
	raw := RawArticle{
		Title:       item.Title,
		Body:        firstNonEmpty(item.Description, item.Content),
		URL:         item.Link,
		SourceTitle: feed.Title,
	}
	if raw.URL == "" && strings.HasPrefix(item.GUID, "http") {
		raw.URL = item.GUID
	}
	if item.PublishedParsed != nil {
		raw.PublishedAt = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		raw.PublishedAt = *item.UpdatedParsed
	}
	if item.Image != nil {
		raw.ImageURL = item.Image.URL
	}
	if raw.ImageURL == "" {
		for _, enc := range item.Enclosures {
			if enc != nil && strings.HasPrefix(enc.Type, "image/") {
				raw.ImageURL = enc.URL
				break
			}
		}
	}
	for _, p := range item.Authors {
		if p != nil {
			raw.Authors = append(raw.Authors, p.Name)
		}
	}
	return raw
}
