package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/city-pulse/internal/domain"
)

// TypeEventRegistry identifies the Event Registry article search API.
const TypeEventRegistry = "eventregistry"

// eventRegistryRequest is the getArticles request body.
type eventRegistryRequest struct {
	Action                 string   `json:"action"`
	Keyword                string   `json:"keyword"`
	ArticlesPage           int      `json:"articlesPage"`
	ArticlesCount          int      `json:"articlesCount"`
	ArticlesSortBy         string   `json:"articlesSortBy"`
	ArticlesSortByAsc      bool     `json:"articlesSortByAsc"`
	DataType               []string `json:"dataType"`
	ForceMaxDataTimeWindow int      `json:"forceMaxDataTimeWindow"`
	ResultType             string   `json:"resultType"`
	Lang                   string   `json:"lang,omitempty"`
	APIKey                 string   `json:"apiKey"`
}

type eventRegistryResponse struct {
	Articles *struct {
		Results []eventRegistryArticle `json:"results"`
	} `json:"articles"`
	Error string `json:"error"`
}

type eventRegistryArticle struct {
	URI      string `json:"uri"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Image    string `json:"image"`
	URL      string `json:"url"`
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
	Source   *struct {
		URI   string `json:"uri"`
		Title string `json:"title"`
	} `json:"source"`
	Authors []json.RawMessage `json:"authors"`
}

// eventRegistryFetcher queries the Event Registry getArticles endpoint.
type eventRegistryFetcher struct {
	client HTTPClient
	apiKey string
	now    func() time.Time
}

// NewEventRegistryFetcher builds a fetcher authenticated with apiKey.
func NewEventRegistryFetcher(client HTTPClient, apiKey string) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &eventRegistryFetcher{
		client: client,
		apiKey: strings.TrimSpace(apiKey),
		now:    time.Now,
	}
}

func (f *eventRegistryFetcher) ID() string {
	return TypeEventRegistry
}

func (f *eventRegistryFetcher) Fetch(ctx context.Context, cfg Provider, q Query) ([]domain.Article, error) {
	if !strings.EqualFold(cfg.Type, TypeEventRegistry) {
		return nil, fetchErr(cfg.ID, "validate", fmt.Errorf("incompatible provider type %q", cfg.Type))
	}
	if f.apiKey == "" {
		return nil, fetchErr(cfg.ID, "validate", errors.New("api key is not configured"))
	}

	body := eventRegistryRequest{
		Action:                 "getArticles",
		Keyword:                q.Keyword,
		ArticlesPage:           q.Page,
		ArticlesCount:          q.PageSize,
		ArticlesSortBy:         "date",
		ArticlesSortByAsc:      false,
		DataType:               []string{"news"},
		ForceMaxDataTimeWindow: q.WindowDays(),
		ResultType:             "articles",
		Lang:                   ConfigString(cfg, ConfigLanguageKey, ""),
		APIKey:                 f.apiKey,
	}

	resp, err := f.client.PostJSON(ctx, cfg.SourceURL, Headers(cfg), body)
	if err != nil {
		return nil, fetchErr(cfg.ID, "request", err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, fetchErr(cfg.ID, "response", err)
	}

	var decoded eventRegistryResponse
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return nil, fetchErr(cfg.ID, "decode", err)
	}
	if decoded.Error != "" {
		return nil, fetchErr(cfg.ID, "response", errors.New(decoded.Error))
	}
	if decoded.Articles == nil || len(decoded.Articles.Results) == 0 {
		return nil, fetchErr(cfg.ID, "decode", ErrEmptyResult)
	}

	raws := make([]RawArticle, 0, len(decoded.Articles.Results))
	for _, rec := range decoded.Articles.Results {
		raws = append(raws, rec.raw())
	}
	articles := NormalizeAll(raws, q.Keyword, f.now())
	if len(articles) == 0 {
		return nil, fetchErr(cfg.ID, "decode", ErrEmptyResult)
	}
	return articles, nil
}

func (a eventRegistryArticle) raw() RawArticle {
	raw := RawArticle{
		URI:         a.URI,
		Title:       a.Title,
		Body:        a.Body,
		ImageURL:    a.Image,
		URL:         a.URL,
		PublishedAt: parseEventTime(a.DateTime, a.Date),
		Authors:     authorNames(a.Authors),
	}
	if a.Source != nil {
		raw.SourceTitle = a.Source.Title
		raw.SourceURI = a.Source.URI
	}
	return raw
}

// parseEventTime accepts an RFC3339 dateTime or a bare date.
func parseEventTime(dateTime, date string) time.Time {
	if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(dateTime)); err == nil {
		return ts
	}
	if ts, err := time.Parse("2006-01-02", strings.TrimSpace(date)); err == nil {
		return ts
	}
	return time.Time{}
}

// authorNames accepts authors encoded either as objects with a name or as bare strings.
func authorNames(raw []json.RawMessage) []string {
	names := make([]string, 0, len(raw))
	for _, msg := range raw {
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(msg, &obj); err == nil && obj.Name != "" {
			names = append(names, obj.Name)
			continue
		}
		var s string
		if err := json.Unmarshal(msg, &s); err == nil && s != "" {
			names = append(names, s)
		}
	}
	return names
}
