package news

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateShapesFifteenArticles(t *testing.T) {
	g := NewGenerator(0, 42)
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	articles := g.Generate("New York")
	require.Len(t, articles, DefaultSyntheticCount)

	first := articles[0]
	assert.Equal(t, "New York's Tech Startups Secure $50M in Funding", first.Title)
	assert.Equal(t, "TechCrunch", first.Source)
	assert.Equal(t, "Sarah Johnson", first.Author)
	assert.Equal(t, "https://example.com/news/new-york/technology-0", first.URL)
	assert.Equal(t, "https://picsum.photos/seed/new-york-Technology-0/800/600", first.ImageURL)
	assert.True(t, strings.HasPrefix(first.Description, "Breaking news from New York: "+first.Title+"."))
	assert.Contains(t, first.Content, "recent developments in New York")

	assert.Equal(t, "Major Tech Company Opens New Office in New York", articles[6].Title)
	assert.Equal(t, "Reuters", articles[6].Source)
	assert.Equal(t, "Michael Smith", articles[7].Author)
	assert.Equal(t, "https://example.com/news/new-york/entertainment-14", articles[14].URL)

	seen := map[string]bool{}
	for i, a := range articles {
		assert.False(t, seen[a.URL], "duplicate url %s", a.URL)
		seen[a.URL] = true

		age := now.Sub(a.PublishedAt)
		assert.GreaterOrEqual(t, age, time.Duration(i)*time.Hour)
		assert.Less(t, age, time.Duration(i)*time.Hour+maxJitter)
	}
}

func TestGenerateTimestampsVaryButStayNewestFirst(t *testing.T) {
	g := NewGenerator(15, 7)
	now := time.Now()
	g.now = func() time.Time { return now }

	a := g.Generate("Tokyo")
	b := g.Generate("Tokyo")
	require.Len(t, a, 15)
	require.Len(t, b, 15)

	for i := 1; i < len(a); i++ {
		assert.True(t, a[i-1].PublishedAt.After(a[i].PublishedAt), "first feed not strictly decreasing at %d", i)
		assert.True(t, b[i-1].PublishedAt.After(b[i].PublishedAt), "second feed not strictly decreasing at %d", i)
	}

	differs := false
	for i := range a {
		assert.Equal(t, a[i].URL, b[i].URL)
		if !a[i].PublishedAt.Equal(b[i].PublishedAt) {
			differs = true
		}
	}
	assert.True(t, differs, "expected jitter to vary between calls")
}

func TestGenerateIsReproducibleForSeed(t *testing.T) {
	now := time.Now()
	g1 := NewGenerator(5, 99)
	g2 := NewGenerator(5, 99)
	g1.now = func() time.Time { return now }
	g2.now = func() time.Time { return now }

	assert.Equal(t, g1.Generate("Paris"), g2.Generate("Paris"))
}

func TestGenerateEscapesPercentInTemplates(t *testing.T) {
	articles := NewGenerator(20, 1).Generate("Oslo")
	require.Len(t, articles, 20)
	assert.Equal(t, "Local Businesses in Oslo Report 30% Growth This Quarter", articles[16].Title)
}

func TestSynthesizeUsesDefaultCount(t *testing.T) {
	assert.Len(t, Synthesize("Dubai"), DefaultSyntheticCount)
}
