package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/samvad-hq/city-pulse/internal/app"
	"github.com/samvad-hq/city-pulse/internal/domain"
	"github.com/samvad-hq/city-pulse/internal/format"
	"github.com/samvad-hq/city-pulse/internal/logger"
	"github.com/samvad-hq/city-pulse/internal/news"
	"github.com/samvad-hq/city-pulse/internal/preview"
	"github.com/samvad-hq/city-pulse/internal/storage"
)

// StateService is the coordinator surface the API drives.
type StateService interface {
	Snapshot() app.State
	SelectedCity() string
	SetCity(ctx context.Context, name string) error
	Articles() []domain.Article
	Refresh(ctx context.Context) bool
	Bookmarks() []domain.BookmarkedArticle
	ToggleBookmark(ctx context.Context, article domain.Article) (bool, error)
	IsBookmarked(url string) bool
	Subscribe(buffer int) (<-chan app.State, func())
}

// CityCatalog serves static city and alert data.
type CityCatalog interface {
	SearchCities(query string) []domain.City
	Alerts(severity string) ([]domain.EmergencyAlert, error)
}

// Previewer scrapes link metadata for a URL.
type Previewer interface {
	Preview(ctx context.Context, rawURL string) (preview.Preview, error)
}

// Searcher runs a free-text article lookup.
type Searcher interface {
	Search(ctx context.Context, query string) news.Result
}

// Handler serves the JSON endpoints.
type Handler struct {
	state    StateService
	catalog  CityCatalog
	previews Previewer
	search   Searcher
	log      logger.Logger
	now      func() time.Time
}

// NewHandler wires a Handler. previews and search may be nil, in which case
// their endpoints answer 501.
func NewHandler(state StateService, catalog CityCatalog, previews Previewer, search Searcher, log logger.Logger) *Handler {
	return &Handler{
		state:    state,
		catalog:  catalog,
		previews: previews,
		search:   search,
		log:      logger.Ensure(log),
		now:      time.Now,
	}
}

func (h *Handler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.stateResponse(h.state.Snapshot()))
}

func (h *Handler) GetCity(c *gin.Context) {
	c.JSON(http.StatusOK, CityResponse{Name: h.state.SelectedCity()})
}

func (h *Handler) PutCity(c *gin.Context) {
	var req CityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.state.SetCity(c.Request.Context(), req.Name); err != nil {
		h.writeError(c, "set city failed", err)
		return
	}
	c.JSON(http.StatusOK, h.stateResponse(h.state.Snapshot()))
}

func (h *Handler) GetArticles(c *gin.Context) {
	articles := h.state.Articles()
	c.JSON(http.StatusOK, ArticlesResponse{
		City:     h.state.SelectedCity(),
		Articles: h.articleResponses(articles),
		Total:    len(articles),
	})
}

func (h *Handler) RefreshArticles(c *gin.Context) {
	applied := h.state.Refresh(c.Request.Context())
	snap := h.state.Snapshot()
	c.JSON(http.StatusOK, RefreshResponse{
		Applied:  applied,
		City:     snap.SelectedCity,
		Origin:   string(snap.FeedOrigin),
		Articles: h.articleResponses(snap.Articles),
	})
}

func (h *Handler) GetBookmarks(c *gin.Context) {
	bookmarks := h.state.Bookmarks()
	res := BookmarksResponse{Bookmarks: make([]BookmarkResponse, 0, len(bookmarks)), Total: len(bookmarks)}
	now := h.now()
	for _, b := range bookmarks {
		res.Bookmarks = append(res.Bookmarks, BookmarkResponse{
			ArticleResponse: h.articleResponse(b.Article, now),
			BookmarkedAt:    b.BookmarkedAt,
		})
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ToggleBookmark(c *gin.Context) {
	var article domain.Article
	if err := c.ShouldBindJSON(&article); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	bookmarked, err := h.state.ToggleBookmark(c.Request.Context(), article)
	if err != nil {
		h.writeError(c, "toggle bookmark failed", err)
		return
	}
	c.JSON(http.StatusOK, BookmarkStatusResponse{URL: article.URL, Bookmarked: bookmarked})
}

func (h *Handler) CheckBookmark(c *gin.Context) {
	url := strings.TrimSpace(c.Query("url"))
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing url parameter"})
		return
	}
	c.JSON(http.StatusOK, BookmarkStatusResponse{URL: url, Bookmarked: h.state.IsBookmarked(url)})
}

func (h *Handler) GetCities(c *gin.Context) {
	cities := h.catalog.SearchCities(c.Query("q"))
	c.JSON(http.StatusOK, CitiesResponse{Cities: cities, Total: len(cities)})
}

func (h *Handler) GetAlerts(c *gin.Context) {
	alerts, err := h.catalog.Alerts(c.Query("severity"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid severity"})
		return
	}

	res := AlertsResponse{Alerts: make([]AlertResponse, 0, len(alerts)), Total: len(alerts)}
	now := h.now()
	for _, a := range alerts {
		res.Alerts = append(res.Alerts, AlertResponse{EmergencyAlert: a, Age: format.RelativeTime(a.Date, now)})
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetPreview(c *gin.Context) {
	if h.previews == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Previews disabled"})
		return
	}

	p, err := h.previews.Preview(c.Request.Context(), c.Query("url"))
	if err != nil {
		var validation *format.ValidationError
		if errors.As(err, &validation) || errors.Is(err, context.DeadlineExceeded) {
			h.writeError(c, "preview failed", err)
			return
		}
		h.log.WarnObj("preview failed", "api_error", map[string]any{
			"url":   c.Query("url"),
			"error": err.Error(),
		})
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upstream page unavailable"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) SearchArticles(c *gin.Context) {
	if h.search == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Search disabled"})
		return
	}
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing q parameter"})
		return
	}

	result := h.search.Search(c.Request.Context(), q)
	c.JSON(http.StatusOK, SearchResponse{
		Query:    q,
		Origin:   string(result.Origin),
		Articles: h.articleResponses(result.Articles),
		Total:    len(result.Articles),
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps domain errors onto status codes. Messages stay generic;
// details go to the log.
func (h *Handler) writeError(c *gin.Context, msg string, err error) {
	var validation *format.ValidationError

	switch {
	case errors.Is(err, app.ErrInvalidCity):
		c.JSON(http.StatusBadRequest, gin.H{"error": "City name is required"})
		return
	case errors.Is(err, app.ErrInvalidArticle):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Article url is required"})
		return
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + validation.Field})
		return
	}

	h.log.ErrorObj(msg, "api_error", map[string]any{
		"path":  c.FullPath(),
		"error": err.Error(),
	})
	switch {
	case storage.IsStorageError(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage unavailable"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Upstream timeout"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

func (h *Handler) stateResponse(s app.State) StateResponse {
	now := h.now()
	res := StateResponse{
		SelectedCity: s.SelectedCity,
		Origin:       string(s.FeedOrigin),
		Loading:      s.Loading,
		Articles:     make([]ArticleResponse, 0, len(s.Articles)),
		Bookmarks:    make([]BookmarkResponse, 0, len(s.Bookmarks)),
	}
	for _, a := range s.Articles {
		res.Articles = append(res.Articles, h.articleResponse(a, now))
	}
	for _, b := range s.Bookmarks {
		res.Bookmarks = append(res.Bookmarks, BookmarkResponse{
			ArticleResponse: h.articleResponse(b.Article, now),
			BookmarkedAt:    b.BookmarkedAt,
		})
	}
	return res
}

func (h *Handler) articleResponses(articles []domain.Article) []ArticleResponse {
	now := h.now()
	out := make([]ArticleResponse, 0, len(articles))
	for _, a := range articles {
		out = append(out, h.articleResponse(a, now))
	}
	return out
}

func (h *Handler) articleResponse(a domain.Article, now time.Time) ArticleResponse {
	return ArticleResponse{
		Article:    a,
		Summary:    format.Truncate(a.Description, summaryLength),
		Age:        format.RelativeTime(a.PublishedAt, now),
		Bookmarked: h.state.IsBookmarked(a.URL),
	}
}
