package ollama

import (
	"strings"
	"unicode/utf8"
)

const zeroShotSnippetRunes = 4000

func buildZeroShotPrompt(text string, labels []string) string {
	return `You are a zero-shot document classifier.
Score how well the document matches each candidate label.
Candidate labels: ` + strings.Join(labels, ", ") + `
Return strict JSON object {"scores": {"<label>": number}} with every candidate label as a key.
Scores are probabilities between 0 and 1 that sum to 1.
No markdown, no extra keys.

Document:
` + truncateRunes(text, zeroShotSnippetRunes)
}

func buildEntityPrompt(text string) string {
	return `You are a named entity recogniser for business and legal documents.
Return strict JSON object with keys:
persons (array of strings), organizations (array of strings), dates (array of strings),
locations (array of strings), key_phrases (array of multi-word noun phrases), language (ISO 639-1 code).
Copy entity text exactly as written, in order of appearance.
List an entity once per mention; repeated mentions are listed again.
No markdown, no extra keys.

Document:
` + text
}

func truncateRunes(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max])
}
