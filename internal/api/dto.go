package api

import (
	"time"

	"github.com/samvad-hq/city-pulse/internal/domain"
)

const summaryLength = 160

type CityRequest struct {
	Name string `json:"name"`
}

type CityResponse struct {
	Name string `json:"name"`
}

type ArticleResponse struct {
	domain.Article
	Summary    string `json:"summary"`
	Age        string `json:"age"`
	Bookmarked bool   `json:"bookmarked"`
}

type BookmarkResponse struct {
	ArticleResponse
	BookmarkedAt time.Time `json:"bookmarkedAt"`
}

type StateResponse struct {
	SelectedCity string             `json:"selectedCity"`
	Origin       string             `json:"origin,omitempty"`
	Loading      bool               `json:"loading"`
	Articles     []ArticleResponse  `json:"articles"`
	Bookmarks    []BookmarkResponse `json:"bookmarks"`
}

type ArticlesResponse struct {
	City     string            `json:"city"`
	Articles []ArticleResponse `json:"articles"`
	Total    int               `json:"total"`
}

type RefreshResponse struct {
	Applied  bool              `json:"applied"`
	City     string            `json:"city"`
	Origin   string            `json:"origin,omitempty"`
	Articles []ArticleResponse `json:"articles"`
}

type BookmarksResponse struct {
	Bookmarks []BookmarkResponse `json:"bookmarks"`
	Total     int                `json:"total"`
}

type BookmarkStatusResponse struct {
	URL        string `json:"url"`
	Bookmarked bool   `json:"bookmarked"`
}

type CitiesResponse struct {
	Cities []domain.City `json:"cities"`
	Total  int           `json:"total"`
}

type AlertResponse struct {
	domain.EmergencyAlert
	Age string `json:"age"`
}

type AlertsResponse struct {
	Alerts []AlertResponse `json:"alerts"`
	Total  int             `json:"total"`
}

type SearchResponse struct {
	Query    string            `json:"query"`
	Origin   string            `json:"origin"`
	Articles []ArticleResponse `json:"articles"`
	Total    int               `json:"total"`
}
