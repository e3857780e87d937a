package textstats

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/document-structurer/internal/core/domain"
)

// sentenceEnd matches terminal punctuation followed by whitespace. Closing
// quotes and brackets stay with the sentence they end.
var sentenceEnd = regexp.MustCompile(`[.!?]+["')\]]*\s+`)

// Words splits text on whitespace. Punctuation stays attached to its word
// and counts towards the average word length.
func Words(text string) []string {
	return strings.Fields(text)
}

func Sentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var out []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[last:loc[1]]); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if s := strings.TrimSpace(text[last:]); s != "" {
		out = append(out, s)
	}
	return out
}

func Compute(text string) domain.TextStatistics {
	words := Words(text)
	sentences := Sentences(text)

	stats := domain.TextStatistics{
		WordCount:     len(words),
		SentenceCount: len(sentences),
	}
	if len(words) > 0 {
		var letters int
		for _, w := range words {
			letters += utf8.RuneCountInString(w)
		}
		stats.AvgWordLength = float64(letters) / float64(len(words))
	}
	if len(sentences) > 0 {
		stats.AvgSentenceLength = float64(len(words)) / float64(len(sentences))
	}
	return stats
}
