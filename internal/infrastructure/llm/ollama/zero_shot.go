package ollama

import (
	"context"
	"errors"
	"math"
	"strings"
)

// ZeroShotClassifier asks the model to score text against candidate labels.
type ZeroShotClassifier struct {
	client *Client
}

func NewZeroShotClassifier(client *Client) *ZeroShotClassifier {
	return &ZeroShotClassifier{client: client}
}

// ClassifyZeroShot returns a probability for every requested label. Labels
// the model ignored score 0 and the rest are normalised to sum to 1. When
// the model scored none of them every label is 0.
func (z *ZeroShotClassifier) ClassifyZeroShot(ctx context.Context, text string, labels []string) (map[string]float64, error) {
	if len(labels) == 0 {
		return nil, errors.New("zero-shot: no candidate labels")
	}

	var parsed struct {
		Scores map[string]float64 `json:"scores"`
	}
	if err := z.client.generateJSON(ctx, "zero_shot", buildZeroShotPrompt(text, labels), &parsed); err != nil {
		return nil, err
	}

	byKey := make(map[string]float64, len(parsed.Scores))
	for label, score := range parsed.Scores {
		byKey[strings.ToLower(strings.TrimSpace(label))] = score
	}

	out := make(map[string]float64, len(labels))
	var sum float64
	for _, label := range labels {
		score := byKey[strings.ToLower(label)]
		if math.IsNaN(score) || score < 0 {
			score = 0
		}
		out[label] = min(score, 1)
		sum += out[label]
	}
	if sum == 0 {
		return out, nil
	}
	for label := range out {
		out[label] /= sum
	}
	return out, nil
}
