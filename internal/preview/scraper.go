// Package preview fetches article pages and extracts Open Graph metadata for
// the article view.
package preview

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/samvad-hq/city-pulse/internal/domain"
	"github.com/samvad-hq/city-pulse/internal/format"
	"github.com/samvad-hq/city-pulse/internal/logger"
	"github.com/samvad-hq/city-pulse/pkg/httpclient"
)

const (
	maxHTMLBodyBytes = 1 << 20 // 1 MiB
	defaultUserAgent = "CityPulse/1.0 (+https://github.com/samvad-hq/city-pulse)"
)

// Preview is the metadata shown before opening an article.
type Preview struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image,omitempty"`
	SiteName    string `json:"siteName,omitempty"`
	PublishedAt string `json:"publishedAt,omitempty"`
}

// PageError reports a non-200 article page.
type PageError struct {
	URL    string
	Status int
}

func (e *PageError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
}

// Scraper fetches article pages and extracts metadata from OG tags.
type Scraper struct {
	client  httpclient.Client
	log     logger.Logger
	headers map[string]string
}

// NewScraper constructs a scraper with the provided HTTP client (or default).
func NewScraper(client httpclient.Client, log logger.Logger) *Scraper {
	if client == nil {
		client = httpclient.NewRestyClient(10 * time.Second)
	}
	return &Scraper{
		client: client,
		log:    logger.Ensure(log),
		headers: map[string]string{
			"User-Agent": defaultUserAgent,
			"Accept":     "text/html,application/xhtml+xml",
		},
	}
}

// Preview validates rawURL, fetches the page, and returns its metadata.
// Invalid input yields a *format.ValidationError before any request is made.
func (s *Scraper) Preview(ctx context.Context, rawURL string) (Preview, error) {
	u, err := format.ParseURL(rawURL)
	if err != nil {
		return Preview{}, err
	}
	pageURL := u.String()

	resp, err := s.client.Get(ctx, pageURL, s.headers)
	if err != nil {
		return Preview{}, fmt.Errorf("http fetch: %w", err)
	}
	if resp.StatusCode() != 200 {
		return Preview{}, &PageError{URL: pageURL, Status: resp.StatusCode()}
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	meta, err := parseMeta(body)
	if err != nil {
		return Preview{}, err
	}
	meta.URL = firstNonEmpty(resolveURL(meta.URL, pageURL), pageURL)
	meta.ImageURL = resolveURL(meta.ImageURL, pageURL)
	return meta, nil
}

// Enrich fills placeholder fields of article from its page metadata. The
// article is returned unchanged when the page cannot be read.
func (s *Scraper) Enrich(ctx context.Context, article domain.Article) domain.Article {
	meta, err := s.Preview(ctx, article.URL)
	if err != nil {
		s.log.WarnObj("article metadata scrape failed", "metadata_error", map[string]any{
			"url":   article.URL,
			"error": err.Error(),
		})
		return article
	}

	updated := article
	if isPlaceholder(updated.Title, "No title") && meta.Title != "" {
		updated.Title = meta.Title
	}
	if isPlaceholder(updated.Description, "No description available") && meta.Description != "" {
		updated.Description = meta.Description
	}
	if (updated.ImageURL == "" || strings.Contains(updated.ImageURL, "picsum.photos/seed/")) && meta.ImageURL != "" {
		updated.ImageURL = meta.ImageURL
	}
	if isPlaceholder(updated.Source, "Unknown Source") && meta.SiteName != "" {
		updated.Source = meta.SiteName
	}
	return updated
}

func isPlaceholder(v, sentinel string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == sentinel
}

func parseMeta(body []byte) (Preview, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Preview{}, fmt.Errorf("parse html: %w", err)
	}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	canonical, _ := doc.Find(`link[rel="canonical"]`).First().Attr("href")

	return Preview{
		URL: firstNonEmpty(extract(`meta[property="og:url"]`), canonical),
		Title: firstNonEmpty(
			extract(`meta[property="og:title"]`),
			extract(`meta[name="twitter:title"]`),
			strings.TrimSpace(doc.Find("title").First().Text()),
		),
		Description: firstNonEmpty(
			extract(`meta[property="og:description"]`),
			extract(`meta[name="description"]`),
		),
		ImageURL: firstNonEmpty(
			extract(`meta[property="og:image"]`),
			extract(`meta[name="twitter:image"]`),
		),
		SiteName:    extract(`meta[property="og:site_name"]`),
		PublishedAt: extract(`meta[property="article:published_time"]`),
	}, nil
}

// resolveURL makes ref absolute against base; invalid refs resolve to "".
func resolveURL(ref, base string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return b.ResolveReference(r).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
