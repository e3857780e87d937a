package ollama

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/document-structurer/internal/core/domain"
	"github.com/kirillkom/document-structurer/internal/infrastructure/chunking"
	"github.com/kirillkom/document-structurer/internal/infrastructure/textstats"
)

const defaultLanguage = "en"

type entityResponse struct {
	Persons       []string `json:"persons"`
	Organizations []string `json:"organizations"`
	Dates         []string `json:"dates"`
	Locations     []string `json:"locations"`
	KeyPhrases    []string `json:"key_phrases"`
	Language      string   `json:"language"`
}

// EntityExtractor recognises entities chunk by chunk. Every mention is kept
// in document order; only mentions repeated by the chunk overlap are dropped.
// Statistics are computed locally.
type EntityExtractor struct {
	client   *Client
	splitter *chunking.Splitter
}

func NewEntityExtractor(client *Client, splitter *chunking.Splitter) *EntityExtractor {
	if splitter == nil {
		splitter = chunking.NewSplitter(0, 200)
	}
	return &EntityExtractor{client: client, splitter: splitter}
}

func (e *EntityExtractor) Extract(ctx context.Context, text string) (domain.Metadata, error) {
	var (
		persons, orgs, dates, locations mentionList
		phrases                         phraseSet
		language                        string
	)
	for i, chunk := range e.splitter.Chunks(text) {
		var parsed entityResponse
		if err := e.client.generateJSON(ctx, "entities", buildEntityPrompt(chunk.Text), &parsed); err != nil {
			return domain.Metadata{}, fmt.Errorf("entities chunk %d: %w", i, err)
		}

		persons.add(chunk.Overlap, parsed.Persons)
		orgs.add(chunk.Overlap, parsed.Organizations)
		dates.add(chunk.Overlap, parsed.Dates)
		locations.add(chunk.Overlap, parsed.Locations)
		for _, phrase := range parsed.KeyPhrases {
			if len(strings.Fields(phrase)) > 1 {
				phrases.add(phrase)
			}
		}
		if language == "" {
			language = strings.ToLower(strings.TrimSpace(parsed.Language))
		}
	}
	if language == "" {
		language = defaultLanguage
	}

	return domain.Metadata{
		Entities: domain.EntityBundle{
			Persons:       persons.values(),
			Organizations: orgs.values(),
			Dates:         dates.values(),
			Locations:     locations.values(),
		},
		KeyPhrases: phrases.values(),
		Statistics: textstats.Compute(text),
		Language:   language,
	}, nil
}

// mentionList keeps repeated mentions. A mention the previous chunk already
// reported is skipped as many times as it occurs in the current overlap.
type mentionList struct {
	items []string
	prev  map[string]int
}

func (m *mentionList) add(overlap string, values []string) {
	overlap = collapseSpace(overlap)
	current := make(map[string]int, len(values))
	skipped := make(map[string]int)
	for _, raw := range values {
		v := collapseSpace(raw)
		if v == "" {
			continue
		}
		current[v]++
		if skipped[v] < min(m.prev[v], strings.Count(overlap, v)) {
			skipped[v]++
			continue
		}
		m.items = append(m.items, v)
	}
	m.prev = current
}

func (m *mentionList) values() []string {
	if m.items == nil {
		return []string{}
	}
	return m.items
}

// phraseSet keeps the first occurrence of every key phrase.
type phraseSet struct {
	seen  map[string]struct{}
	items []string
}

func (p *phraseSet) add(phrase string) {
	if p.seen == nil {
		p.seen = make(map[string]struct{})
	}
	phrase = collapseSpace(phrase)
	if phrase == "" {
		return
	}
	if _, ok := p.seen[phrase]; ok {
		return
	}
	p.seen[phrase] = struct{}{}
	p.items = append(p.items, phrase)
}

func (p *phraseSet) values() []string {
	if p.items == nil {
		return []string{}
	}
	return p.items
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
