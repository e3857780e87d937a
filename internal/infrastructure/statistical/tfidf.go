package statistical

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
)

var tokenPattern = regexp.MustCompile(`\b\w\w+\b`)

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// TfidfVectorizer maps text to l2-normalised tf-idf vectors with smoothed
// idf weights.
type TfidfVectorizer struct {
	MaxFeatures int

	vocabulary map[string]int
	idf        []float64
}

func NewTfidfVectorizer(maxFeatures int) *TfidfVectorizer {
	return &TfidfVectorizer{MaxFeatures: maxFeatures}
}

func (v *TfidfVectorizer) Fit(docs []string) error {
	if len(docs) == 0 {
		return errors.New("tfidf: empty corpus")
	}

	docFreq := make(map[string]int)
	totalFreq := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, tok := range tokenize(doc) {
			totalFreq[tok]++
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			docFreq[tok]++
		}
	}
	if len(docFreq) == 0 {
		return errors.New("tfidf: corpus has no tokens")
	}

	terms := make([]string, 0, len(docFreq))
	for term := range docFreq {
		terms = append(terms, term)
	}
	if v.MaxFeatures > 0 && len(terms) > v.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if totalFreq[terms[i]] != totalFreq[terms[j]] {
				return totalFreq[terms[i]] > totalFreq[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.MaxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	v.vocabulary = make(map[string]int, len(terms))
	v.idf = make([]float64, len(terms))
	for i, term := range terms {
		v.vocabulary[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}
	return nil
}

func (v *TfidfVectorizer) Fitted() bool {
	return v.vocabulary != nil
}

func (v *TfidfVectorizer) Features() int {
	return len(v.idf)
}

// Transform returns a dense vector over the fitted vocabulary. Text with no
// known terms maps to the zero vector.
func (v *TfidfVectorizer) Transform(text string) []float64 {
	out := make([]float64, len(v.idf))
	for _, tok := range tokenize(text) {
		if idx, ok := v.vocabulary[tok]; ok {
			out[idx]++
		}
	}

	var norm float64
	for i, tf := range out {
		out[i] = tf * v.idf[i]
		norm += out[i] * out[i]
	}
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i := range out {
		out[i] /= norm
	}
	return out
}
