package utils

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DefaultCategory is returned when nothing in the catalogue matches.
const DefaultCategory = "Miscellaneous"

//go:embed categories.json
var categoriesJSON []byte

type CategoryInfo struct {
	Name          string   `json:"name"`
	Icon          string   `json:"icon"`
	Color         string   `json:"color"`
	Subcategories []string `json:"subcategories"`
	Keywords      []string `json:"keywords,omitempty"`
}

type CategoryMatch struct {
	Category    string  `json:"category"`
	Confidence  float64 `json:"confidence"`
	Subcategory string  `json:"subcategory,omitempty"`
}

// CategoryMatcher maps free-text names ("uber to airport") to catalogue
// categories by keyword containment.
type CategoryMatcher struct {
	categories []CategoryInfo // sorted by name for deterministic matching
}

func NewCategoryMatcher() (*CategoryMatcher, error) {
	return NewCategoryMatcherFromJSON(categoriesJSON)
}

func NewCategoryMatcherFromJSON(data []byte) (*CategoryMatcher, error) {
	var raw map[string]CategoryInfo
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse category catalogue: %w", err)
	}

	categories := make([]CategoryInfo, 0, len(raw))
	for name, info := range raw {
		info.Name = name
		categories = append(categories, info)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })

	return &CategoryMatcher{categories: categories}, nil
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s]`)

func normalizeString(s string) string {
	return nonAlphanumeric.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "")
}

// Match returns the best catalogue category for name. An exact keyword hit
// has confidence 1; containment in either direction scores by length ratio.
func (m *CategoryMatcher) Match(name string) CategoryMatch {
	best := CategoryMatch{Category: DefaultCategory}

	normalized := normalizeString(name)
	if normalized == "" {
		return best
	}

	for _, c := range m.categories {
		for _, keyword := range c.Keywords {
			kw := normalizeString(keyword)
			if kw == "" {
				continue
			}
			if normalized == kw {
				return CategoryMatch{Category: c.Name, Confidence: 1, Subcategory: firstOrEmpty(c.Subcategories)}
			}

			var confidence float64
			switch {
			case strings.Contains(normalized, kw):
				confidence = float64(len(kw)) / float64(len(normalized))
			case strings.Contains(kw, normalized):
				confidence = float64(len(normalized)) / float64(len(kw))
			}
			if confidence > best.Confidence {
				best = CategoryMatch{Category: c.Name, Confidence: confidence, Subcategory: firstOrEmpty(c.Subcategories)}
			}
		}
	}
	return best
}

// Normalize returns the catalogue spelling of category, or DefaultCategory.
func (m *CategoryMatcher) Normalize(category string) string {
	trimmed := strings.TrimSpace(category)
	if trimmed == "" {
		return DefaultCategory
	}
	for _, c := range m.categories {
		if strings.EqualFold(c.Name, trimmed) {
			return c.Name
		}
	}
	return DefaultCategory
}

// Categories lists the catalogue without keywords.
func (m *CategoryMatcher) Categories() []CategoryInfo {
	out := make([]CategoryInfo, 0, len(m.categories))
	for _, c := range m.categories {
		c.Keywords = nil
		out = append(out, c)
	}
	return out
}

func (m *CategoryMatcher) Metadata(category string) (CategoryInfo, bool) {
	for _, c := range m.categories {
		if c.Name == category {
			return c, true
		}
	}
	return CategoryInfo{}, false
}

func firstOrEmpty(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
