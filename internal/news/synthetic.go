package news

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/city-pulse/internal/domain"
	"github.com/samvad-hq/city-pulse/internal/format"
)

// DefaultSyntheticCount is the number of placeholder articles per feed.
const DefaultSyntheticCount = 15

const maxJitter = 30 * time.Minute

type topic struct {
	category string
	titles   [4]string // %[1]s is the city
	sources  [4]string
}

var topics = [...]topic{
	{
		category: "Technology",
		titles: [4]string{
			"%[1]s's Tech Startups Secure $50M in Funding",
			"AI Revolution Transforms %[1]s's Healthcare Sector",
			"5G Network Expansion Reaches All Districts in %[1]s",
			"%[1]s Becomes Hub for Green Technology Innovation",
		},
		sources: [4]string{"TechCrunch", "Wired", "The Verge", "Tech Times"},
	},
	{
		category: "Business",
		titles: [4]string{
			"%[1]s Stock Market Hits Record High Amid Economic Growth",
			"Major Tech Company Opens New Office in %[1]s",
			"%[1]s's Real Estate Market Shows Strong Recovery",
			"Local Businesses in %[1]s Report 30%% Growth This Quarter",
		},
		sources: [4]string{"Bloomberg", "Financial Times", "Reuters", "Business Insider"},
	},
	{
		category: "Politics",
		titles: [4]string{
			"%[1]s Mayor Announces New Infrastructure Development Plan",
			"Climate Change Policy Gets Approval in %[1]s",
			"%[1]s Council Approves $2B Budget for Public Services",
			"New Education Reform Bill Passes in %[1]s Legislature",
		},
		sources: [4]string{"BBC News", "CNN", "The Guardian", "Associated Press"},
	},
	{
		category: "Sports",
		titles: [4]string{
			"%[1]s Team Wins Championship After Historic Season",
			"International Sports Tournament Coming to %[1]s Next Year",
			"Local Athlete from %[1]s Qualifies for Olympics",
			"%[1]s Unveils Plans for New State-of-the-Art Stadium",
		},
		sources: [4]string{"ESPN", "Sports Illustrated", "Sky Sports", "Fox Sports"},
	},
	{
		category: "Entertainment",
		titles: [4]string{
			"Major Film Festival Announced in %[1]s for Summer 2024",
			"%[1]s's Music Scene Attracts International Artists",
			"New Art Museum Opens in Downtown %[1]s",
			"Local Theater Production from %[1]s Wins National Award",
		},
		sources: [4]string{"Entertainment Weekly", "Variety", "Hollywood Reporter", "Billboard"},
	},
}

var (
	firstNames = [...]string{"Sarah", "Michael", "Emma", "James", "Olivia", "William"}
	lastNames  = [...]string{"Johnson", "Smith", "Williams", "Brown", "Davis", "Miller"}
)

// Generator produces placeholder feeds when the remote source is unusable.
// Output is newest first; timestamps carry jitter drawn from a seeded
// generator so repeated calls differ while staying reproducible per seed.
type Generator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	count int
	now   func() time.Time
}

// NewGenerator returns a generator of count articles. A zero seed is replaced
// by one derived from the clock.
func NewGenerator(count int, seed uint64) *Generator {
	if count <= 0 {
		count = DefaultSyntheticCount
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Generator{
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		count: count,
		now:   time.Now,
	}
}

var defaultGenerator = NewGenerator(DefaultSyntheticCount, 0)

// Synthesize returns a placeholder feed for city from the package generator.
func Synthesize(city string) []domain.Article {
	return defaultGenerator.Generate(city)
}

// Generate builds the placeholder feed for city.
func (g *Generator) Generate(city string) []domain.Article {
	city = strings.TrimSpace(city)
	slug := format.Slug(city)

	g.mu.Lock()
	now := g.now()
	jitter := make([]time.Duration, g.count)
	for i := range jitter {
		jitter[i] = time.Duration(g.rng.Int64N(int64(maxJitter)))
	}
	g.mu.Unlock()

	articles := make([]domain.Article, 0, g.count)
	for i := 0; i < g.count; i++ {
		t := topics[i%len(topics)]
		title := fmt.Sprintf(t.titles[(i/len(topics))%len(t.titles)], city)

		articles = append(articles, domain.Article{
			Title: title,
			Description: fmt.Sprintf("Breaking news from %s: %s. Our reporters bring you comprehensive coverage "+
				"of this developing story with expert analysis and on-ground reporting.", city, title),
			Content: fmt.Sprintf("Detailed coverage of recent developments in %s. This story continues to develop "+
				"as more information becomes available. Stay tuned for updates.", city),
			ImageURL:    fmt.Sprintf("https://picsum.photos/seed/%s-%s-%d/800/600", slug, t.category, i),
			URL:         fmt.Sprintf("https://example.com/news/%s/%s-%d", slug, strings.ToLower(t.category), i),
			PublishedAt: now.Add(-time.Duration(i)*time.Hour - jitter[i]).UTC(),
			Source:      t.sources[i%len(t.sources)],
			Author:      firstNames[i%len(firstNames)] + " " + lastNames[(i/len(firstNames))%len(lastNames)],
		})
	}
	return articles
}
