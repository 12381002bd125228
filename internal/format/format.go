// Package format holds display helpers shared by the API and CLI.
package format

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// Slug lowercases s and joins its whitespace-separated words with '-'.
func Slug(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}

// RelativeTime renders t relative to now: "Just now", "5m ago", "3h ago",
// "2d ago", or a calendar date once a week has passed.
func RelativeTime(t, now time.Time) string {
	minutes := int(now.Sub(t) / time.Minute)
	switch {
	case minutes < 1:
		return "Just now"
	case minutes < 60:
		return fmt.Sprintf("%dm ago", minutes)
	case minutes < 24*60:
		return fmt.Sprintf("%dh ago", minutes/60)
	case minutes < 7*24*60:
		return fmt.Sprintf("%dd ago", minutes/(24*60))
	default:
		return t.Format("Jan 2, 2006")
	}
}

// Truncate cuts text to at most max runes, appending "..." when shortened.
func Truncate(text string, max int) string {
	if max < 0 {
		max = 0
	}
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:max])) + "..."
}

// ValidationError reports input rejected before any I/O.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// ParseURL accepts absolute http(s) URLs with a host.
func ParseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &ValidationError{Field: "url", Value: raw, Reason: "empty"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &ValidationError{Field: "url", Value: raw, Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &ValidationError{Field: "url", Value: raw, Reason: "scheme must be http or https"}
	}
	if u.Host == "" {
		return nil, &ValidationError{Field: "url", Value: raw, Reason: "missing host"}
	}
	return u, nil
}

// ValidURL reports whether raw passes ParseURL.
func ValidURL(raw string) bool {
	_, err := ParseURL(raw)
	return err == nil
}
