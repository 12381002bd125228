package providers

import (
	"errors"
	"fmt"
	"time"
)

// Query describes a keyword search against a remote source.
type Query struct {
	Keyword       string
	Page          int
	PageSize      int
	RecencyWindow time.Duration
}

const (
	DefaultPageSize      = 20
	DefaultRecencyWindow = 31 * 24 * time.Hour
)

// NewQuery builds the fixed first-page, newest-first query for keyword.
func NewQuery(keyword string, pageSize int, window time.Duration) Query {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if window <= 0 {
		window = DefaultRecencyWindow
	}
	return Query{Keyword: keyword, Page: 1, PageSize: pageSize, RecencyWindow: window}
}

// WindowDays returns the recency window rounded up to whole days.
func (q Query) WindowDays() int {
	days := int((q.RecencyWindow + 24*time.Hour - 1) / (24 * time.Hour))
	if days <= 0 {
		return 1
	}
	return days
}

// ErrEmptyResult reports a well-formed response without any usable article.
var ErrEmptyResult = errors.New("no articles in response")

// FetchError reports a failed remote lookup.
type FetchError struct {
	ProviderID string
	Op         string
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("provider %s %s: %v", e.ProviderID, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func fetchErr(providerID, op string, err error) error {
	return &FetchError{ProviderID: providerID, Op: op, Err: err}
}
