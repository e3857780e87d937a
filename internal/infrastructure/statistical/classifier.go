package statistical

import (
	"errors"
	"fmt"

	"github.com/kirillkom/document-structurer/internal/core/domain"
)

const (
	DefaultMaxFeatures = 5000
	DefaultAlpha       = 1.0
)

type Sample struct {
	Text  string
	Label domain.Category
}

// SeedSamples is the fixed training set the default classifier is fitted on.
func SeedSamples() []Sample {
	return []Sample{
		{Text: "This is a legal contract between parties", Label: domain.CategoryLegal},
		{Text: "Financial report for Q1 2024", Label: domain.CategoryFinancial},
		{Text: "Technical documentation for API", Label: domain.CategoryTechnical},
		{Text: "Medical report and diagnosis", Label: domain.CategoryMedical},
		{Text: "Contract terms and conditions", Label: domain.CategoryContract},
		{Text: "Annual report 2023", Label: domain.CategoryReport},
		{Text: "Business correspondence", Label: domain.CategoryCorrespondence},
	}
}

// Classifier chains a tf-idf vectorizer with a multinomial naive Bayes model.
type Classifier struct {
	vectorizer *TfidfVectorizer
	model      *MultinomialNB
}

func NewClassifier(samples []Sample, maxFeatures int, alpha float64) (*Classifier, error) {
	if len(samples) == 0 {
		return nil, errors.New("statistical classifier: no training samples")
	}
	texts := make([]string, 0, len(samples))
	labels := make([]string, 0, len(samples))
	for _, s := range samples {
		texts = append(texts, s.Text)
		labels = append(labels, string(s.Label))
	}

	vectorizer := NewTfidfVectorizer(maxFeatures)
	if err := vectorizer.Fit(texts); err != nil {
		return nil, fmt.Errorf("fit vectorizer: %w", err)
	}
	matrix := make([][]float64, 0, len(texts))
	for _, text := range texts {
		matrix = append(matrix, vectorizer.Transform(text))
	}

	model := NewMultinomialNB(alpha)
	if err := model.Fit(matrix, labels); err != nil {
		return nil, fmt.Errorf("fit model: %w", err)
	}
	return &Classifier{vectorizer: vectorizer, model: model}, nil
}

func NewSeededClassifier(maxFeatures int) (*Classifier, error) {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	return NewClassifier(SeedSamples(), maxFeatures, DefaultAlpha)
}

func (c *Classifier) PredictProba(text string) (map[string]float64, error) {
	if c == nil || c.model == nil || !c.vectorizer.Fitted() {
		return nil, errors.New("statistical classifier is not fitted")
	}
	return c.model.PredictProba(c.vectorizer.Transform(text))
}
