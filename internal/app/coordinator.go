package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/city-pulse/internal/domain"
	"github.com/samvad-hq/city-pulse/internal/logger"
	"github.com/samvad-hq/city-pulse/internal/metrics"
	"github.com/samvad-hq/city-pulse/internal/news"
	"github.com/samvad-hq/city-pulse/internal/storage"
	"github.com/samvad-hq/city-pulse/pkg/publishers"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrInvalidCity rejects a blank city name.
	ErrInvalidCity = errors.New("city name must not be empty")
	// ErrInvalidArticle rejects an article without a URL.
	ErrInvalidArticle = errors.New("article url must not be empty")
)

// DefaultCity is selected when nothing usable is persisted.
const DefaultCity = "New York"

const defaultPublishTimeout = 10 * time.Second

// ArticleSource resolves the feed for a city. Implementations always return
// a non-empty list.
type ArticleSource interface {
	ArticlesForCity(ctx context.Context, city string) news.Result
}

// EventPublisher delivers activity events.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// State is a point-in-time copy of the coordinator state.
type State struct {
	SelectedCity string                     `json:"selectedCity"`
	Articles     []domain.Article           `json:"articles"`
	FeedOrigin   news.Origin                `json:"feedOrigin,omitempty"`
	Loading      bool                       `json:"loading"`
	Bookmarks    []domain.BookmarkedArticle `json:"bookmarks"`
}

// Options tunes a Coordinator.
type Options struct {
	DefaultCity    string
	PublishTimeout time.Duration
}

// Coordinator owns the selected city, the feed and the bookmarks, and
// mediates every read and write against storage and the article source.
// All methods are safe for concurrent use.
type Coordinator struct {
	records *storage.Records
	source  ArticleSource
	events  EventPublisher
	log     logger.Logger
	opts    Options

	mu         sync.RWMutex
	state      State
	generation uint64

	// cityMu keeps persisted and in-memory city order identical.
	cityMu   sync.Mutex
	toggleMu sync.Mutex
	toggles  singleflight.Group

	subs    map[int]chan State
	nextSub int
	closed  bool

	publishWG sync.WaitGroup
}

// NewCoordinator builds a coordinator. events may be nil.
func NewCoordinator(records *storage.Records, source ArticleSource, events EventPublisher, log logger.Logger, opts Options) (*Coordinator, error) {
	if records == nil {
		return nil, errors.New("coordinator requires storage records")
	}
	if source == nil {
		return nil, errors.New("coordinator requires an article source")
	}
	opts.DefaultCity = strings.TrimSpace(opts.DefaultCity)
	if opts.DefaultCity == "" {
		opts.DefaultCity = DefaultCity
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = defaultPublishTimeout
	}

	return &Coordinator{
		records: records,
		source:  source,
		events:  events,
		log:     logger.Ensure(log),
		opts:    opts,
		state: State{
			SelectedCity: opts.DefaultCity,
			Articles:     []domain.Article{},
			Bookmarks:    []domain.BookmarkedArticle{},
		},
		subs: make(map[int]chan State),
	}, nil
}

// Initialize loads the persisted city and bookmarks, then fetches the feed
// for the city. Storage failures fall back to the default city and an empty
// bookmark list. City and bookmark writers wait until the loaded state is
// applied.
func (c *Coordinator) Initialize(ctx context.Context) {
	c.cityMu.Lock()
	c.toggleMu.Lock()

	city := c.opts.DefaultCity
	stored, found, err := c.records.ReadSelectedCity(ctx)
	switch {
	case err != nil:
		c.storageFailed("read_city", err)
	case found:
		city = stored
	}

	bookmarks, err := c.records.ReadBookmarks(ctx)
	if err != nil {
		c.storageFailed("read_bookmarks", err)
		bookmarks = []domain.BookmarkedArticle{}
	}
	metrics.SetBookmarks(len(bookmarks))

	c.mu.Lock()
	c.state.SelectedCity = city
	c.state.Bookmarks = bookmarks
	gen := c.beginFetchLocked()
	c.mu.Unlock()
	c.toggleMu.Unlock()
	c.cityMu.Unlock()

	c.log.InfoObj("coordinator initialized", "coordinator_state", map[string]any{
		"city":      city,
		"bookmarks": len(bookmarks),
	})
	c.runFetch(ctx, gen, city)
}

// SetCity persists name as the selected city and fetches its feed. When the
// city cannot be persisted the previous selection is kept and no fetch runs.
func (c *Coordinator) SetCity(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidCity
	}

	c.cityMu.Lock()
	if err := c.records.WriteSelectedCity(ctx, name); err != nil {
		c.cityMu.Unlock()
		c.storageFailed("write_city", err)
		return err
	}
	c.mu.Lock()
	c.state.SelectedCity = name
	gen := c.beginFetchLocked()
	c.mu.Unlock()
	c.cityMu.Unlock()

	c.publish(publishers.NewEvent(publishers.EventCitySelected, name))
	c.runFetch(ctx, gen, name)
	return nil
}

// Refresh re-fetches the feed for the current city and reports whether the
// result was applied. A result superseded by a newer fetch is discarded.
func (c *Coordinator) Refresh(ctx context.Context) bool {
	c.mu.Lock()
	city := c.state.SelectedCity
	gen := c.beginFetchLocked()
	c.mu.Unlock()

	return c.runFetch(ctx, gen, city)
}

// beginFetchLocked tags a new fetch and raises the loading flag.
func (c *Coordinator) beginFetchLocked() uint64 {
	c.generation++
	c.state.Loading = true
	c.notifyLocked()
	return c.generation
}

// runFetch resolves the feed for city and applies it when gen is still the
// latest fetch. The fetch outlives a cancelled caller; the source's own
// timeout bounds it.
func (c *Coordinator) runFetch(ctx context.Context, gen uint64, city string) bool {
	res := c.source.ArticlesForCity(context.WithoutCancel(ctx), city)

	c.mu.Lock()
	if gen != c.generation {
		latest := c.generation
		c.mu.Unlock()
		metrics.RecordStale()
		c.log.DebugObj("discarding stale feed", "stale_fetch", map[string]any{
			"city":       city,
			"generation": gen,
			"latest":     latest,
		})
		return false
	}
	c.state.Articles = domain.CloneArticles(res.Articles)
	c.state.FeedOrigin = res.Origin
	c.state.Loading = false
	c.notifyLocked()
	c.mu.Unlock()

	c.publish(publishers.NewEvent(publishers.EventFeedRefreshed, city).WithFeed(string(res.Origin), len(res.Articles)))
	return true
}

// ToggleBookmark removes article from the bookmarks when present and adds it
// otherwise, returning whether it is bookmarked afterwards. Concurrent calls
// for the same URL share one execution. On a storage failure the in-memory
// bookmarks are unchanged and the error is returned.
func (c *Coordinator) ToggleBookmark(ctx context.Context, article domain.Article) (bool, error) {
	url := strings.TrimSpace(article.URL)
	if url == "" {
		return false, ErrInvalidArticle
	}
	article.URL = url

	v, err, _ := c.toggles.Do(url, func() (any, error) {
		return c.toggle(ctx, article)
	})
	if err != nil {
		return c.IsBookmarked(url), err
	}
	return v.(bool), nil
}

func (c *Coordinator) toggle(ctx context.Context, article domain.Article) (bool, error) {
	c.toggleMu.Lock()
	defer c.toggleMu.Unlock()

	remove := c.IsBookmarked(article.URL)
	var err error
	if remove {
		err = c.records.DeleteBookmark(ctx, article.URL)
	} else {
		_, err = c.records.WriteBookmark(ctx, article)
	}
	if err != nil {
		c.storageFailed("toggle_bookmark", err)
		return false, err
	}

	bookmarks, err := c.records.ReadBookmarks(ctx)
	if err != nil {
		c.storageFailed("read_bookmarks", err)
		bookmarks = c.applyLocally(remove, article)
	}

	c.mu.Lock()
	c.state.Bookmarks = bookmarks
	c.notifyLocked()
	c.mu.Unlock()
	metrics.SetBookmarks(len(bookmarks))

	typ := publishers.EventBookmarkAdded
	if remove {
		typ = publishers.EventBookmarkRemoved
	}
	c.publish(publishers.NewEvent(typ, c.SelectedCity()).WithArticle(article))
	return !remove, nil
}

// applyLocally mirrors a persisted toggle in memory when the reload failed.
func (c *Coordinator) applyLocally(remove bool, article domain.Article) []domain.BookmarkedArticle {
	current := c.Bookmarks()
	out := make([]domain.BookmarkedArticle, 0, len(current)+1)
	if !remove {
		out = append(out, domain.BookmarkedArticle{Article: article, BookmarkedAt: time.Now().UTC()})
	}
	for _, b := range current {
		if b.URL != article.URL {
			out = append(out, b)
		}
	}
	return out
}

// IsBookmarked reports whether url is in the in-memory bookmark list.
func (c *Coordinator) IsBookmarked(url string) bool {
	url = strings.TrimSpace(url)
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, b := range c.state.Bookmarks {
		if b.URL == url {
			return true
		}
	}
	return false
}

// SelectedCity returns the current city.
func (c *Coordinator) SelectedCity() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.SelectedCity
}

// Articles returns a copy of the feed.
func (c *Coordinator) Articles() []domain.Article {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.CloneArticles(c.state.Articles)
}

// Loading reports whether a fetch is outstanding.
func (c *Coordinator) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Loading
}

// Bookmarks returns a copy of the bookmark list, most recent first.
func (c *Coordinator) Bookmarks() []domain.BookmarkedArticle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.CloneBookmarks(c.state.Bookmarks)
}

// Snapshot returns a deep copy of the state.
func (c *Coordinator) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() State {
	s := c.state
	s.Articles = domain.CloneArticles(c.state.Articles)
	s.Bookmarks = domain.CloneBookmarks(c.state.Bookmarks)
	return s
}

// Subscribe returns a channel receiving a snapshot after every state change.
// A subscriber that falls behind only sees the latest snapshot. cancel closes
// the channel.
func (c *Coordinator) Subscribe(buffer int) (<-chan State, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan State, buffer)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// notifyLocked sends the current state to every subscriber without blocking.
func (c *Coordinator) notifyLocked() {
	if len(c.subs) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		// full: drop the oldest pending snapshot
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (c *Coordinator) publish(evt publishers.Event) {
	if c.events == nil {
		return
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.publishWG.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.publishWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.PublishTimeout)
		defer cancel()

		delivered, err := c.events.Publish(ctx, evt)
		if err != nil {
			metrics.RecordPublish(string(evt.Type), "error")
			c.log.WarnObj("activity publish failed", "publish_error", map[string]any{
				"event_id":   evt.ID,
				"event_type": evt.Type,
				"delivered":  delivered,
				"error":      err.Error(),
			})
			return
		}
		metrics.RecordPublish(string(evt.Type), "ok")
	}()
}

func (c *Coordinator) storageFailed(op string, err error) {
	metrics.RecordStorageError(op)
	c.log.ErrorObj("storage operation failed", "storage_error", map[string]any{
		"op":    op,
		"error": err.Error(),
	})
}

// Close closes subscriber channels, stops accepting activity events and
// waits for the ones in flight. Events raised after Close are dropped.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()

	c.publishWG.Wait()
}
