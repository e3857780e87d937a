package legal

import (
	"sort"
	"strings"

	"github.com/kirillkom/document-structurer/internal/core/domain"
)

// ExtractLegalMetadata derives legal metadata from a processed document.
// A nil result yields empty metadata of unknown type.
func (e *Engine) ExtractLegalMetadata(result *domain.ProcessResult) domain.LegalMetadata {
	meta := domain.LegalMetadata{
		DocumentType: domain.LegalTypeUnknown,
		Parties:      []string{},
		References:   []string{},
	}
	if result == nil {
		return meta
	}

	entities := result.Metadata.Entities
	meta.DocumentType = DetectDocumentType(result.Content, result.Classification.PrimaryCategory)
	meta.Jurisdiction = ExtractJurisdiction(result.Content, entities.Locations)
	if len(entities.Dates) > 0 {
		date := entities.Dates[0]
		meta.Date = &date
	}
	if len(entities.Persons) > 0 {
		meta.Parties = append([]string(nil), entities.Persons...)
	}
	meta.References = ExtractReferences(result.Content)
	return meta
}

// DetectDocumentType applies the keyword rules to legal documents only.
func DetectDocumentType(content string, primary domain.Category) domain.LegalDocumentType {
	if primary != domain.CategoryLegal {
		return domain.LegalTypeUnknown
	}
	lower := strings.ToLower(content)
	for _, rule := range documentTypeRules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(lower, keyword) {
				return rule.Type
			}
		}
	}
	return domain.LegalTypeUnknown
}

// ExtractJurisdiction returns the lowercased remainder of the line starting
// at the first jurisdiction indicator. Without an indicator it falls back to
// the first location entity.
func ExtractJurisdiction(content string, locations []string) *string {
	lower := strings.ToLower(content)
	for _, indicator := range jurisdictionIndicators {
		start := strings.Index(lower, indicator)
		if start < 0 {
			continue
		}
		line := lower[start:]
		if end := strings.IndexByte(line, '\n'); end >= 0 {
			line = line[:end]
		}
		found := strings.TrimSpace(line)
		return &found
	}
	if len(locations) > 0 {
		location := locations[0]
		return &location
	}
	return nil
}

// ExtractReferences returns the distinct citations in content, sorted.
func ExtractReferences(content string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, citation := range citationPatterns {
		for _, match := range citation.Pattern.FindAllString(content, -1) {
			if _, ok := seen[match]; ok {
				continue
			}
			seen[match] = struct{}{}
			out = append(out, match)
		}
	}
	sort.Strings(out)
	return out
}
