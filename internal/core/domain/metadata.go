package domain

type EntityBundle struct {
	Persons       []string `json:"persons"`
	Organizations []string `json:"organizations"`
	Dates         []string `json:"dates"`
	Locations     []string `json:"locations"`
}

// Normalized replaces nil lists with empty ones so that every entity kind
// is always present.
func (b EntityBundle) Normalized() EntityBundle {
	return EntityBundle{
		Persons:       nonNil(b.Persons),
		Organizations: nonNil(b.Organizations),
		Dates:         nonNil(b.Dates),
		Locations:     nonNil(b.Locations),
	}
}

type TextStatistics struct {
	WordCount         int     `json:"word_count"`
	SentenceCount     int     `json:"sentence_count"`
	AvgWordLength     float64 `json:"avg_word_length"`
	AvgSentenceLength float64 `json:"avg_sentence_length"`
}

type Metadata struct {
	Entities   EntityBundle   `json:"entities"`
	KeyPhrases []string       `json:"key_phrases"`
	Statistics TextStatistics `json:"statistics"`
	Language   string         `json:"language"`
}

type LegalDocumentType string

const (
	LegalTypeContract         LegalDocumentType = "contract"
	LegalTypeAgreement        LegalDocumentType = "agreement"
	LegalTypeLegislation      LegalDocumentType = "legislation"
	LegalTypeJudicialDecision LegalDocumentType = "judicial_decision"
	LegalTypeUnknown          LegalDocumentType = "unknown"
)

// LegalMetadata is derived from content and entities of a legal document.
// Jurisdiction and Date are nil when nothing was found.
type LegalMetadata struct {
	DocumentType LegalDocumentType `json:"document_type"`
	Jurisdiction *string           `json:"jurisdiction"`
	Date         *string           `json:"date"`
	Parties      []string          `json:"parties"`
	References   []string          `json:"references"`
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
