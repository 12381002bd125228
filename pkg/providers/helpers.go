package providers

import (
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/samvad-hq/city-pulse/internal/domain"
	"github.com/samvad-hq/city-pulse/internal/format"
)

// Sentinels substituted for missing remote fields.
const (
	NoTitle         = "No title"
	NoDescription   = "No description available"
	UnknownSource   = "Unknown Source"
	UnknownAuthor   = "Unknown"
	eventArticleURL = "https://eventregistry.org/article/"
)

var textPolicy = bluemonday.StrictPolicy()

// RawArticle is a source record before normalization.
type RawArticle struct {
	URI         string
	Title       string
	Body        string
	ImageURL    string
	URL         string
	PublishedAt time.Time
	SourceTitle string
	SourceURI   string
	Authors     []string
}

// PlaceholderImage returns the deterministic placeholder image for keyword and index.
func PlaceholderImage(keyword string, index int) string {
	return fmt.Sprintf("https://picsum.photos/seed/%s-%d/400/300", format.Slug(keyword), index)
}

// Normalize maps raw into the canonical Article shape, substituting sentinel
// defaults for missing fields. ok is false when no URL can be resolved.
func Normalize(raw RawArticle, keyword string, index int, now time.Time) (domain.Article, bool) {
	title := plainText(raw.Title)
	body := plainText(raw.Body)

	url := strings.TrimSpace(raw.URL)
	if url == "" && strings.TrimSpace(raw.URI) != "" {
		url = eventArticleURL + strings.TrimSpace(raw.URI)
	}
	if url == "" {
		return domain.Article{}, false
	}

	published := raw.PublishedAt
	if published.IsZero() {
		published = now
	}

	author := ""
	for _, a := range raw.Authors {
		if a = strings.TrimSpace(a); a != "" {
			author = a
			break
		}
	}

	return domain.Article{
		Title:       firstNonEmpty(title, NoTitle),
		Description: firstNonEmpty(body, title, NoDescription),
		Content:     body,
		ImageURL:    firstNonEmpty(raw.ImageURL, PlaceholderImage(keyword, index)),
		URL:         url,
		PublishedAt: published.UTC(),
		Source:      firstNonEmpty(raw.SourceTitle, raw.SourceURI, UnknownSource),
		Author:      firstNonEmpty(author, UnknownAuthor),
	}, true
}

// NormalizeAll normalizes raws in order, dropping records without a URL and
// repeats of a URL already seen.
func NormalizeAll(raws []RawArticle, keyword string, now time.Time) []domain.Article {
	articles := make([]domain.Article, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	for _, raw := range raws {
		article, ok := Normalize(raw, keyword, len(articles), now)
		if !ok {
			continue
		}
		if _, dup := seen[article.URL]; dup {
			continue
		}
		seen[article.URL] = struct{}{}
		articles = append(articles, article)
	}
	return articles
}

// plainText strips markup and collapses whitespace.
func plainText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	cleaned := html.UnescapeString(textPolicy.Sanitize(s))
	return strings.Join(strings.Fields(cleaned), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "<empty>"
	}
	return format.Truncate(s, maxLen)
}

func checkStatus(resp HTTPResponse) error {
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("status %d body: %s", resp.StatusCode(), responseSnippet(resp.Body()))
	}
	return nil
}
