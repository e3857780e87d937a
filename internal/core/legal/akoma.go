package legal

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/document-structurer/internal/core/domain"
)

const (
	NamespaceAKN = "http://docs.oasis-open.org/legaldocml/ns/akn/3.0"
	NamespaceUKL = "http://docs.oasis-open.org/legaldocml/ns/akn/3.0/ukl"

	frbrDateLayout = "2006-01-02T15:04:05.000000Z07:00"
)

type aknDocument struct {
	XMLName  xml.Name    `xml:"akn:akomaNtoso"`
	XmlnsAKN string      `xml:"xmlns:akn,attr"`
	XmlnsUKL string      `xml:"xmlns:ukl,attr"`
	Meta     aknMeta     `xml:"akn:meta"`
	MainBody aknMainBody `xml:"akn:mainBody"`
}

type aknMeta struct {
	Identification aknIdentification `xml:"akn:identification"`
	Classification aknClassification `xml:"akn:classification"`
}

type aknIdentification struct {
	Work aknFRBRWork `xml:"akn:FRBRWork"`
}

type aknFRBRWork struct {
	This string `xml:"akn:FRBRthis"`
	URI  string `xml:"akn:FRBRuri"`
	Date string `xml:"akn:FRBRdate"`
}

type aknClassification struct {
	Keywords []aknKeyword `xml:"akn:keyword"`
}

type aknKeyword struct {
	Confidence string `xml:"confidence,attr"`
	Value      string `xml:",chardata"`
}

type aknMainBody struct {
	Content aknMainContent `xml:"akn:mainContent"`
}

type aknMainContent struct {
	Sections []string `xml:"akn:section"`
}

// CreateAkomaNtoso renders the document as Akoma Ntoso XML. Every call gets
// a fresh work identifier and the current timestamp.
func (e *Engine) CreateAkomaNtoso(result *domain.ProcessResult) (string, error) {
	if result == nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "create akoma ntoso", fmt.Errorf("result is nil"))
	}

	keywords := make([]aknKeyword, 0, len(result.Classification.AllCategories))
	for _, entry := range result.Classification.AllCategories {
		keywords = append(keywords, aknKeyword{
			Confidence: strconv.FormatFloat(entry.Score, 'g', -1, 64),
			Value:      string(entry.Category),
		})
	}

	doc := aknDocument{
		XmlnsAKN: NamespaceAKN,
		XmlnsUKL: NamespaceUKL,
		Meta: aknMeta{
			Identification: aknIdentification{Work: aknFRBRWork{
				This: "#" + e.newID(),
				URI:  result.FileInfo.Path,
				Date: e.now().Format(frbrDateLayout),
			}},
			Classification: aknClassification{Keywords: keywords},
		},
		MainBody: aknMainBody{Content: aknMainContent{Sections: SplitSections(result.Content)}},
	}

	raw, err := xml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal akoma ntoso: %w", err)
	}
	return string(raw), nil
}

// SplitSections groups trimmed non-blank lines into sections. Blank lines
// separate sections and lines within a section are joined with "\n".
func SplitSections(content string) []string {
	var (
		sections []string
		current  []string
	)
	flush := func() {
		if len(current) > 0 {
			sections = append(sections, strings.Join(current, "\n"))
			current = current[:0]
		}
	}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return sections
}

func defaultID() string {
	return uuid.NewString()
}
