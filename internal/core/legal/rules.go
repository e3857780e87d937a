package legal

import (
	"regexp"

	"github.com/kirillkom/document-structurer/internal/core/domain"
)

// DocumentTypeRule assigns Type when any keyword occurs in lowercased content.
type DocumentTypeRule struct {
	Type     domain.LegalDocumentType
	Keywords []string
}

// CitationPattern recognises one family of legal citations.
type CitationPattern struct {
	Name    string
	Pattern *regexp.Regexp
}

// Rules are evaluated in order; the first match wins.
var documentTypeRules = []DocumentTypeRule{
	{Type: domain.LegalTypeContract, Keywords: []string{"contract"}},
	{Type: domain.LegalTypeAgreement, Keywords: []string{"agreement"}},
	{Type: domain.LegalTypeLegislation, Keywords: []string{"act", "statute"}},
	{Type: domain.LegalTypeJudicialDecision, Keywords: []string{"judgment", "ruling"}},
}

var jurisdictionIndicators = []string{"jurisdiction", "governed by", "laws of"}

var citationPatterns = []CitationPattern{
	{Name: "us_code", Pattern: regexp.MustCompile(`\b\d+\s+U\.S\.C\.\s+\d+\b`)},
	{Name: "statutes_at_large", Pattern: regexp.MustCompile(`\b\d+\s+Stat\.\s+\d+\b`)},
	{Name: "federal_reporter", Pattern: regexp.MustCompile(`\b\d+\s+F\.\s+\d+\b`)},
	{Name: "uk", Pattern: regexp.MustCompile(`\b\d+\s+U\.K\.\s+\d+\b`)},
}

func DocumentTypeRules() []DocumentTypeRule {
	out := make([]DocumentTypeRule, len(documentTypeRules))
	copy(out, documentTypeRules)
	return out
}

func JurisdictionIndicators() []string {
	out := make([]string, len(jurisdictionIndicators))
	copy(out, jurisdictionIndicators)
	return out
}

func CitationPatterns() []CitationPattern {
	out := make([]CitationPattern, len(citationPatterns))
	copy(out, citationPatterns)
	return out
}
