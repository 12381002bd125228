package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/city-pulse/internal/app"
	"github.com/samvad-hq/city-pulse/internal/catalog"
	"github.com/samvad-hq/city-pulse/internal/domain"
	"github.com/samvad-hq/city-pulse/internal/format"
	"github.com/samvad-hq/city-pulse/internal/news"
	"github.com/samvad-hq/city-pulse/internal/preview"
	"github.com/samvad-hq/city-pulse/internal/storage"
)

type staticSource struct{}

func (staticSource) ArticlesForCity(_ context.Context, city string) news.Result {
	return news.Result{
		Articles: []domain.Article{{
			Title:       city + " council approves budget",
			Description: strings.Repeat("Long description. ", 20),
			URL:         "https://news.example/" + format.Slug(city) + "/budget",
			PublishedAt: time.Now().Add(-2 * time.Hour),
			Source:      "Example Times",
		}},
		Origin: news.OriginRemote,
	}
}

func (staticSource) Search(_ context.Context, query string) news.Result {
	return news.Result{
		Articles: []domain.Article{{Title: query + " result", URL: "https://news.example/search"}},
		Origin:   news.OriginSynthetic,
	}
}

// failingStore rejects writes once failWrites is set.
type failingStore struct {
	*storage.MemoryStore
	failWrites atomic.Bool
}

func (f *failingStore) Set(ctx context.Context, key, value string) error {
	if f.failWrites.Load() {
		return errors.New("disk full")
	}
	return f.MemoryStore.Set(ctx, key, value)
}

type fakePreviewer struct {
	preview preview.Preview
	err     error
}

func (f fakePreviewer) Preview(_ context.Context, rawURL string) (preview.Preview, error) {
	if _, err := format.ParseURL(rawURL); err != nil {
		return preview.Preview{}, err
	}
	return f.preview, f.err
}

type testEnv struct {
	router *gin.Engine
	coord  *app.Coordinator
	store  *failingStore
}

func newTestEnv(t *testing.T, previews Previewer) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := &failingStore{MemoryStore: storage.NewMemoryStore()}
	coord, err := app.NewCoordinator(storage.NewRecords(store, nil), staticSource{}, nil, nil, app.Options{})
	require.NoError(t, err)
	t.Cleanup(coord.Close)
	coord.Initialize(context.Background())

	cat, err := catalog.Default(time.Now())
	require.NoError(t, err)

	h := NewHandler(coord, cat, previews, staticSource{}, nil)
	return &testEnv{router: NewRouter(h, []string{"*"}, nil), coord: coord, store: store}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestGetStateReturnsDefaultCityFeed(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, w.Code)

	res := decode[StateResponse](t, w)
	assert.Equal(t, app.DefaultCity, res.SelectedCity)
	assert.Equal(t, "remote", res.Origin)
	assert.False(t, res.Loading)
	require.Len(t, res.Articles, 1)
	assert.Equal(t, "2h ago", res.Articles[0].Age)
	assert.LessOrEqual(t, len([]rune(res.Articles[0].Summary)), summaryLength+3)
	assert.Empty(t, res.Bookmarks)
}

func TestPutCitySwitchesFeed(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPut, "/api/city", `{"name":"Tokyo"}`)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[StateResponse](t, w)
	assert.Equal(t, "Tokyo", res.SelectedCity)
	require.Len(t, res.Articles, 1)
	assert.Equal(t, "Tokyo council approves budget", res.Articles[0].Title)

	w = env.do(t, http.MethodGet, "/api/city", "")
	assert.Equal(t, "Tokyo", decode[CityResponse](t, w).Name)
}

func TestPutCityValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPut, "/api/city", `{"name":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, "/api/city", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, app.DefaultCity, env.coord.SelectedCity())
}

func TestPutCityStorageFailureKeepsCity(t *testing.T) {
	env := newTestEnv(t, nil)
	env.store.failWrites.Store(true)

	w := env.do(t, http.MethodPut, "/api/city", `{"name":"Paris"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "disk full")
	assert.Equal(t, app.DefaultCity, env.coord.SelectedCity())
}

func TestToggleBookmarkRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)
	article := `{"title":"Saved","url":"https://news.example/saved","source":"Example"}`

	w := env.do(t, http.MethodPost, "/api/bookmarks/toggle", article)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[BookmarkStatusResponse](t, w).Bookmarked)

	w = env.do(t, http.MethodGet, "/api/bookmarks/check?url=https://news.example/saved", "")
	assert.True(t, decode[BookmarkStatusResponse](t, w).Bookmarked)

	w = env.do(t, http.MethodGet, "/api/bookmarks", "")
	list := decode[BookmarksResponse](t, w)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "Saved", list.Bookmarks[0].Title)
	assert.True(t, list.Bookmarks[0].Bookmarked)
	assert.False(t, list.Bookmarks[0].BookmarkedAt.IsZero())

	w = env.do(t, http.MethodPost, "/api/bookmarks/toggle", article)
	assert.False(t, decode[BookmarkStatusResponse](t, w).Bookmarked)
	assert.Empty(t, env.coord.Bookmarks())
}

func TestToggleBookmarkErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/bookmarks/toggle", `{"title":"no url"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.store.failWrites.Store(true)
	w = env.do(t, http.MethodPost, "/api/bookmarks/toggle", `{"url":"https://news.example/x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, env.coord.IsBookmarked("https://news.example/x"))
}

func TestCheckBookmarkRequiresURL(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodGet, "/api/bookmarks/check", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefreshArticles(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodPost, "/api/articles/refresh", "")
	require.Equal(t, http.StatusOK, w.Code)

	res := decode[RefreshResponse](t, w)
	assert.True(t, res.Applied)
	assert.Equal(t, app.DefaultCity, res.City)
	assert.Len(t, res.Articles, 1)

	w = env.do(t, http.MethodGet, "/api/articles", "")
	assert.Equal(t, 1, decode[ArticlesResponse](t, w).Total)
}

func TestGetCitiesFilters(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/api/cities", "")
	assert.Equal(t, 15, decode[CitiesResponse](t, w).Total)

	w = env.do(t, http.MethodGet, "/api/cities?q=JAPAN", "")
	res := decode[CitiesResponse](t, w)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, "Tokyo", res.Cities[0].Name)
}

func TestGetAlerts(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/api/alerts", "")
	all := decode[AlertsResponse](t, w)
	require.Equal(t, 5, all.Total)
	for _, a := range all.Alerts {
		assert.NotEmpty(t, a.Age)
	}

	w = env.do(t, http.MethodGet, "/api/alerts?severity=high", "")
	for _, a := range decode[AlertsResponse](t, w).Alerts {
		assert.Equal(t, domain.SeverityHigh, a.Severity)
	}

	w = env.do(t, http.MethodGet, "/api/alerts?severity=apocalyptic", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPreview(t *testing.T) {
	env := newTestEnv(t, fakePreviewer{preview: preview.Preview{URL: "https://news.example/a", Title: "A"}})

	w := env.do(t, http.MethodGet, "/api/preview?url=https://news.example/a", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "A", decode[preview.Preview](t, w).Title)

	w = env.do(t, http.MethodGet, "/api/preview?url=ftp://news.example/a", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPreviewUpstreamFailures(t *testing.T) {
	env := newTestEnv(t, fakePreviewer{err: &preview.PageError{URL: "https://news.example/a", Status: 404}})
	w := env.do(t, http.MethodGet, "/api/preview?url=https://news.example/a", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	env = newTestEnv(t, nil)
	w = env.do(t, http.MethodGet, "/api/preview?url=https://news.example/a", "")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestSearchArticles(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/api/search?q=transit", "")
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[SearchResponse](t, w)
	assert.Equal(t, "synthetic", res.Origin)
	assert.Equal(t, "transit result", res.Articles[0].Title)

	w = env.do(t, http.MethodGet, "/api/search", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "citypulse_")
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/city", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestStreamStatePushesChanges(t *testing.T) {
	env := newTestEnv(t, nil)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/state/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	events := make(chan StateResponse, 16)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			var s StateResponse
			if json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &s) == nil {
				events <- s
			}
		}
	}()

	first := <-events
	assert.Equal(t, app.DefaultCity, first.SelectedCity)

	require.NoError(t, env.coord.SetCity(context.Background(), "Lagos"))
	for s := range events {
		if s.SelectedCity == "Lagos" && !s.Loading {
			require.Len(t, s.Articles, 1)
			assert.Equal(t, "Lagos council approves budget", s.Articles[0].Title)
			return
		}
	}
	t.Fatal("stream ended before the Lagos feed arrived")
}
