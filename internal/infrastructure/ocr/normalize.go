package ocr

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^[ \t]*[_\-=]{3,}[ \t]*$`)
	reFormFeed   = regexp.MustCompile(`\f`)
)

// Normalize collapses noisy whitespace in OCR output. Blank lines survive
// as single paragraph breaks.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reFormFeed.ReplaceAllString(s, "\n")
	s = reBoxNoise.ReplaceAllString(s, "")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	s = strings.Join(lines, "\n")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Confidence scores OCR output between 0 and 1 from its mean word length
// and word count.
func Confidence(text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}
	var letters int
	for _, w := range words {
		letters += utf8.RuneCountInString(w)
	}
	avgWordLength := float64(letters) / float64(len(words))
	volume := math.Min(float64(len(words))/100, 1)
	return math.Min(1, avgWordLength*0.3+volume*0.7)
}
