package domain

import (
	"strings"
	"time"
)

// Domain contains core models shared by storage, providers and the coordinator.

// Article is a single news item. URL identifies it within a feed.
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content,omitempty"`
	ImageURL    string    `json:"image"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"date"`
	Source      string    `json:"source"`
	Author      string    `json:"author,omitempty"`
}

// BookmarkedArticle is an Article saved by the user.
type BookmarkedArticle struct {
	Article
	BookmarkedAt time.Time `json:"bookmarkedAt"`
}

// City is static reference data; only the selected name is persisted.
type City struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Country string `json:"country" yaml:"country"`
}

// Severity grades an EmergencyAlert.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists every severity from most to least urgent.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// ParseSeverity normalizes s and reports whether it names a known severity.
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Severities {
		if sev == known {
			return sev, true
		}
	}
	return "", false
}

// EmergencyAlert is a static city alert.
type EmergencyAlert struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
	Date        time.Time `json:"date"`
	Category    string    `json:"category"`
}

// CloneArticles returns a copy of articles that callers may mutate.
func CloneArticles(articles []Article) []Article {
	if articles == nil {
		return nil
	}
	out := make([]Article, len(articles))
	copy(out, articles)
	return out
}

// CloneBookmarks returns a copy of bookmarks that callers may mutate.
func CloneBookmarks(bookmarks []BookmarkedArticle) []BookmarkedArticle {
	if bookmarks == nil {
		return nil
	}
	out := make([]BookmarkedArticle, len(bookmarks))
	copy(out, bookmarks)
	return out
}
