package publishers

import (
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/city-pulse/internal/domain"
)

// EventType names an activity event.
type EventType string

const (
	EventCitySelected    EventType = "city.selected"
	EventBookmarkAdded   EventType = "bookmark.added"
	EventBookmarkRemoved EventType = "bookmark.removed"
	EventFeedRefreshed   EventType = "feed.refreshed"
)

// Event represents the payload published downstream.
type Event struct {
	ID           string          `json:"id"`
	Type         EventType       `json:"type"`
	City         string          `json:"city"`
	Article      *domain.Article `json:"article,omitempty"`
	Origin       string          `json:"origin,omitempty"`
	ArticleCount int             `json:"article_count,omitempty"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// NewEvent constructs an Event of typ for city.
func NewEvent(typ EventType, city string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		City:       city,
		OccurredAt: time.Now().UTC(),
	}
}

// WithArticle returns a copy of e carrying article.
func (e Event) WithArticle(article domain.Article) Event {
	e.Article = &article
	return e
}

// WithFeed returns a copy of e describing a feed of count articles from origin.
func (e Event) WithFeed(origin string, count int) Event {
	e.Origin = origin
	e.ArticleCount = count
	return e
}

// attributes are the routing attributes attached to queue/topic messages.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"event_type": string(e.Type),
		"city":       e.City,
	}
}
