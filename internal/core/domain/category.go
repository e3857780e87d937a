package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

type Category string

const (
	CategoryLegal          Category = "legal"
	CategoryFinancial      Category = "financial"
	CategoryTechnical      Category = "technical"
	CategoryMedical        Category = "medical"
	CategoryContract       Category = "contract"
	CategoryReport         Category = "report"
	CategoryCorrespondence Category = "correspondence"
)

const categoryCount = 7

// categories is the closed vocabulary in declaration order. The order is
// the tie-break for equal scores.
var categories = [categoryCount]Category{
	CategoryLegal,
	CategoryFinancial,
	CategoryTechnical,
	CategoryMedical,
	CategoryContract,
	CategoryReport,
	CategoryCorrespondence,
}

func Categories() []Category {
	out := make([]Category, categoryCount)
	copy(out, categories[:])
	return out
}

func CategoryLabels() []string {
	out := make([]string, 0, categoryCount)
	for _, c := range categories {
		out = append(out, string(c))
	}
	return out
}

func ParseCategory(raw string) (Category, bool) {
	normalized := Category(strings.ToLower(strings.TrimSpace(raw)))
	if normalized.index() < 0 {
		return "", false
	}
	return normalized, true
}

func (c Category) index() int {
	for i, known := range categories {
		if known == c {
			return i
		}
	}
	return -1
}

func (c Category) Valid() bool {
	return c.index() >= 0
}

// CategoryScores holds exactly one score per category.
type CategoryScores [categoryCount]float64

// ScoresFromMap keeps the scores of known categories. Unknown labels are
// dropped and missing categories score 0.
func ScoresFromMap(raw map[string]float64) CategoryScores {
	var out CategoryScores
	for label, score := range raw {
		c, ok := ParseCategory(label)
		if !ok {
			continue
		}
		out[c.index()] = score
	}
	return out
}

func (s CategoryScores) Get(c Category) float64 {
	i := c.index()
	if i < 0 {
		return 0
	}
	return s[i]
}

func (s *CategoryScores) Set(c Category, score float64) {
	if i := c.index(); i >= 0 {
		s[i] = score
	}
}

// Ranked orders categories by descending score. Equal scores keep
// declaration order.
func (s CategoryScores) Ranked() RankedScores {
	out := make(RankedScores, 0, categoryCount)
	for i, c := range categories {
		out = append(out, CategoryScore{Category: c, Score: s[i]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

type CategoryScore struct {
	Category Category `json:"category"`
	Score    float64  `json:"score"`
}

// RankedScores is an ordered category to score mapping. It encodes as a
// JSON object whose key order is the ranking.
type RankedScores []CategoryScore

func (r RankedScores) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, item := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(item.Category))
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(item.Score)
		if err != nil {
			return nil, fmt.Errorf("encode score for %s: %w", item.Category, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *RankedScores) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("ranked scores: expected object, got %v", tok)
	}

	out := make(RankedScores, 0, categoryCount)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("ranked scores: expected key, got %v", keyTok)
		}
		var score float64
		if err := dec.Decode(&score); err != nil {
			return fmt.Errorf("ranked scores: decode %q: %w", key, err)
		}
		out = append(out, CategoryScore{Category: Category(key), Score: score})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}

// ClassificationResult is the fused outcome of the classification engine.
type ClassificationResult struct {
	PrimaryCategory Category     `json:"primary_category"`
	Confidence      float64      `json:"confidence"`
	AllCategories   RankedScores `json:"all_categories"`
	Method          string       `json:"method"`
}
