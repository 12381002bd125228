// Package catalog serves the static reference data: selectable cities and
// emergency alerts.
package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/samvad-hq/city-pulse/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var builtin []byte

// SeverityAll disables severity filtering.
const SeverityAll = "all"

type alertEntry struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Severity    string `json:"severity" yaml:"severity"`
	Category    string `json:"category" yaml:"category"`
	Age         string `json:"age" yaml:"age"`
}

type catalogFile struct {
	Cities []domain.City `json:"cities" yaml:"cities"`
	Alerts []alertEntry  `json:"alerts" yaml:"alerts"`
}

// Catalog holds cities and alerts. Alert dates are relative to load time.
type Catalog struct {
	cities []domain.City
	alerts []domain.EmergencyAlert
}

// Default returns the embedded catalog.
func Default(now time.Time) (*Catalog, error) {
	return parse(builtin, ".yaml", now)
}

// Load reads the catalog from path, or the embedded catalog when path is empty.
func Load(path string, now time.Time) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(now)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return parse(raw, filepath.Ext(path), now)
}

func parse(raw []byte, ext string, now time.Time) (*Catalog, error) {
	var file catalogFile
	var err error
	if strings.EqualFold(ext, ".json") {
		err = json.Unmarshal(raw, &file)
	} else {
		err = yaml.Unmarshal(raw, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(file.Cities) == 0 {
		return nil, errors.New("catalog contains no cities")
	}

	c := &Catalog{cities: make([]domain.City, 0, len(file.Cities))}
	seen := make(map[string]bool, len(file.Cities))
	for i, city := range file.Cities {
		city.Name = strings.TrimSpace(city.Name)
		city.Country = strings.TrimSpace(city.Country)
		if city.Name == "" {
			return nil, fmt.Errorf("city[%d]: name is required", i)
		}
		key := strings.ToLower(city.Name)
		if seen[key] {
			return nil, fmt.Errorf("city[%d]: duplicate name %q", i, city.Name)
		}
		seen[key] = true
		c.cities = append(c.cities, city)
	}

	for i, entry := range file.Alerts {
		sev, ok := domain.ParseSeverity(entry.Severity)
		if !ok {
			return nil, fmt.Errorf("alert[%d]: unknown severity %q", i, entry.Severity)
		}
		var age time.Duration
		if strings.TrimSpace(entry.Age) != "" {
			if age, err = time.ParseDuration(strings.TrimSpace(entry.Age)); err != nil || age < 0 {
				return nil, fmt.Errorf("alert[%d]: invalid age %q", i, entry.Age)
			}
		}
		c.alerts = append(c.alerts, domain.EmergencyAlert{
			ID:          entry.ID,
			Title:       entry.Title,
			Description: entry.Description,
			Severity:    sev,
			Date:        now.Add(-age).UTC(),
			Category:    entry.Category,
		})
	}
	return c, nil
}

// Cities returns every city in catalog order.
func (c *Catalog) Cities() []domain.City {
	out := make([]domain.City, len(c.cities))
	copy(out, c.cities)
	return out
}

// SearchCities matches query case-insensitively against city name or country.
// A blank query returns every city.
func (c *Catalog) SearchCities(query string) []domain.City {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return c.Cities()
	}
	out := make([]domain.City, 0)
	for _, city := range c.cities {
		if strings.Contains(strings.ToLower(city.Name), q) || strings.Contains(strings.ToLower(city.Country), q) {
			out = append(out, city)
		}
	}
	return out
}

// City looks a city up by name.
func (c *Catalog) City(name string) (domain.City, bool) {
	for _, city := range c.cities {
		if strings.EqualFold(city.Name, strings.TrimSpace(name)) {
			return city, true
		}
	}
	return domain.City{}, false
}

// Alerts returns alerts matching severity ("all" or blank for every alert),
// newest first.
func (c *Catalog) Alerts(severity string) ([]domain.EmergencyAlert, error) {
	filter := strings.ToLower(strings.TrimSpace(severity))
	var want domain.Severity
	if filter != "" && filter != SeverityAll {
		sev, ok := domain.ParseSeverity(filter)
		if !ok {
			return nil, fmt.Errorf("unknown severity %q", severity)
		}
		want = sev
	}

	out := make([]domain.EmergencyAlert, 0, len(c.alerts))
	for _, a := range c.alerts {
		if want == "" || a.Severity == want {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}
