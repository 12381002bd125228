package storage

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/city-pulse/internal/domain"
	"github.com/samvad-hq/city-pulse/internal/logger"
)

// Keys of the two logical records.
const (
	BookmarksKey    = "city_pulse:bookmarks"
	SelectedCityKey = "city_pulse:selected_city"
)

// Records exposes the bookmark list and selected city on top of a Store.
// Read-modify-write sequences on the bookmark list are serialized.
type Records struct {
	store Store
	log   logger.Logger
	now   func() time.Time
	mu    sync.Mutex
}

// NewRecords wraps store. A nil log discards corrupt-record warnings.
func NewRecords(store Store, log logger.Logger) *Records {
	return &Records{
		store: store,
		log:   logger.Ensure(log),
		now:   time.Now,
	}
}

// ReadBookmarks returns the stored bookmark list, or an empty list when the
// record is absent or cannot be decoded.
func (r *Records) ReadBookmarks(ctx context.Context) ([]domain.BookmarkedArticle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readBookmarks(ctx)
}

func (r *Records) readBookmarks(ctx context.Context) ([]domain.BookmarkedArticle, error) {
	raw, found, err := r.store.Get(ctx, BookmarksKey)
	if err != nil {
		return nil, wrapErr("read bookmarks", BookmarksKey, err)
	}
	if !found || strings.TrimSpace(raw) == "" {
		return []domain.BookmarkedArticle{}, nil
	}

	var bookmarks []domain.BookmarkedArticle
	if err := json.Unmarshal([]byte(raw), &bookmarks); err != nil {
		r.log.WarnObj("bookmark record corrupt; treating as empty", "storage_warning", map[string]any{
			"key":   BookmarksKey,
			"error": err.Error(),
		})
		return []domain.BookmarkedArticle{}, nil
	}
	if bookmarks == nil {
		bookmarks = []domain.BookmarkedArticle{}
	}
	return bookmarks, nil
}

func (r *Records) writeBookmarks(ctx context.Context, bookmarks []domain.BookmarkedArticle) error {
	payload, err := json.Marshal(bookmarks)
	if err != nil {
		return wrapErr("encode bookmarks", BookmarksKey, err)
	}
	return wrapErr("write bookmarks", BookmarksKey, r.store.Set(ctx, BookmarksKey, string(payload)))
}

// WriteBookmark prepends article, stamped with the current time, and persists
// the full list. An existing entry with the same URL is replaced.
func (r *Records) WriteBookmark(ctx context.Context, article domain.Article) (domain.BookmarkedArticle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.readBookmarks(ctx)
	if err != nil {
		return domain.BookmarkedArticle{}, err
	}

	entry := domain.BookmarkedArticle{
		Article:      article,
		BookmarkedAt: r.now().UTC(),
	}
	updated := make([]domain.BookmarkedArticle, 0, len(existing)+1)
	updated = append(updated, entry)
	updated = append(updated, withoutURL(existing, article.URL)...)

	if err := r.writeBookmarks(ctx, updated); err != nil {
		return domain.BookmarkedArticle{}, err
	}
	return entry, nil
}

// DeleteBookmark removes every entry for url and persists the remainder.
func (r *Records) DeleteBookmark(ctx context.Context, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.readBookmarks(ctx)
	if err != nil {
		return err
	}
	return r.writeBookmarks(ctx, withoutURL(existing, url))
}

// ReadSelectedCity returns the persisted city name; found is false when no
// non-empty value is stored.
func (r *Records) ReadSelectedCity(ctx context.Context) (string, bool, error) {
	raw, found, err := r.store.Get(ctx, SelectedCityKey)
	if err != nil {
		return "", false, wrapErr("read selected city", SelectedCityKey, err)
	}
	city := strings.TrimSpace(raw)
	if !found || city == "" {
		return "", false, nil
	}
	return city, true, nil
}

// WriteSelectedCity persists name as the selected city.
func (r *Records) WriteSelectedCity(ctx context.Context, name string) error {
	return wrapErr("write selected city", SelectedCityKey, r.store.Set(ctx, SelectedCityKey, name))
}

func withoutURL(bookmarks []domain.BookmarkedArticle, url string) []domain.BookmarkedArticle {
	out := make([]domain.BookmarkedArticle, 0, len(bookmarks))
	for _, b := range bookmarks {
		if b.URL == url {
			continue
		}
		out = append(out, b)
	}
	return out
}
