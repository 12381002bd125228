package providers

import (
	"context"
	"errors"
	"testing"
	"time"
)

const erURL = "https://eventregistry.example/api/v1/article/getArticles"

func erProvider() Provider {
	return Provider{
		ID:        "eventregistry",
		Name:      "Event Registry",
		Type:      TypeEventRegistry,
		SourceURL: erURL,
		Config:    map[string]any{ConfigLanguageKey: "eng"},
	}
}

func TestEventRegistryFetchParsesArticles(t *testing.T) {
	body := `{"articles":{"results":[
		{"uri":"1","title":"Bridge reopens","body":"The bridge reopened today.","image":"https://img.example/1.jpg",
		 "url":"https://news.example/bridge","dateTime":"2025-05-01T10:00:00Z",
		 "source":{"uri":"news.example","title":"News Example"},"authors":[{"name":"Jo Writer"}]},
		{"uri":"2","title":"","body":"","dateTime":"bogus","date":"2025-04-30","authors":["Plain Name"]}
	]}}`
	client := &fakeHTTPClient{responses: map[string]fakeResponse{erURL: {body: []byte(body), statusCode: 200}}}
	f := NewEventRegistryFetcher(client, "secret").(*eventRegistryFetcher)
	f.now = func() time.Time { return time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC) }

	articles, err := f.Fetch(context.Background(), erProvider(), NewQuery("Berlin", 20, 0))
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(articles))
	}

	first := articles[0]
	if first.Title != "Bridge reopens" || first.Source != "News Example" || first.Author != "Jo Writer" {
		t.Errorf("unexpected first article %+v", first)
	}
	if !first.PublishedAt.Equal(time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected published time %v", first.PublishedAt)
	}

	second := articles[1]
	if second.Title != NoTitle || second.Description != NoDescription {
		t.Errorf("expected sentinels, got %+v", second)
	}
	if second.URL != "https://eventregistry.org/article/2" {
		t.Errorf("unexpected fallback url %s", second.URL)
	}
	if second.ImageURL != PlaceholderImage("Berlin", 1) {
		t.Errorf("unexpected placeholder %s", second.ImageURL)
	}
	if second.Author != "Plain Name" || second.Source != UnknownSource {
		t.Errorf("unexpected author/source %q/%q", second.Author, second.Source)
	}
	if !second.PublishedAt.Equal(time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected date fallback %v", second.PublishedAt)
	}

	req, ok := client.bodies[0].(eventRegistryRequest)
	if !ok {
		t.Fatalf("unexpected request body type %T", client.bodies[0])
	}
	if req.Keyword != "Berlin" || req.APIKey != "secret" || req.ArticlesCount != 20 ||
		req.ArticlesSortBy != "date" || req.ForceMaxDataTimeWindow != 31 || req.Lang != "eng" {
		t.Errorf("unexpected request %+v", req)
	}
}

func TestEventRegistryFetchFailures(t *testing.T) {
	cases := []struct {
		name   string
		apiKey string
		client *fakeHTTPClient
	}{
		{name: "missing key", apiKey: "", client: &fakeHTTPClient{}},
		{name: "transport", apiKey: "k", client: &fakeHTTPClient{err: errors.New("dial tcp: refused")}},
		{name: "status", apiKey: "k", client: &fakeHTTPClient{responses: map[string]fakeResponse{erURL: {body: []byte("nope"), statusCode: 503}}}},
		{name: "malformed", apiKey: "k", client: &fakeHTTPClient{responses: map[string]fakeResponse{erURL: {body: []byte("{"), statusCode: 200}}}},
		{name: "api error", apiKey: "k", client: &fakeHTTPClient{responses: map[string]fakeResponse{erURL: {body: []byte(`{"error":"invalid key"}`), statusCode: 200}}}},
		{name: "empty", apiKey: "k", client: &fakeHTTPClient{responses: map[string]fakeResponse{erURL: {body: []byte(`{"articles":{"results":[]}}`), statusCode: 200}}}},
		{name: "missing articles", apiKey: "k", client: &fakeHTTPClient{responses: map[string]fakeResponse{erURL: {body: []byte(`{}`), statusCode: 200}}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := NewEventRegistryFetcher(tc.client, tc.apiKey)
			_, err := f.Fetch(context.Background(), erProvider(), NewQuery("Tokyo", 20, 0))
			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("expected FetchError, got %v", err)
			}
			if fe.ProviderID != "eventregistry" {
				t.Errorf("unexpected provider id %s", fe.ProviderID)
			}
		})
	}
}

func TestEventRegistryRejectsWrongType(t *testing.T) {
	f := NewEventRegistryFetcher(&fakeHTTPClient{}, "k")
	p := erProvider()
	p.Type = TypeRSS
	if _, err := f.Fetch(context.Background(), p, NewQuery("Tokyo", 20, 0)); err == nil {
		t.Fatalf("expected type validation error")
	}
}
