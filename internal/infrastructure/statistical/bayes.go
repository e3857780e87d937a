package statistical

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// MultinomialNB is a multinomial naive Bayes model with additive smoothing
// and class priors estimated from the training labels.
type MultinomialNB struct {
	Alpha float64

	classes        []string
	classLogPrior  []float64
	featureLogProb [][]float64
}

func NewMultinomialNB(alpha float64) *MultinomialNB {
	return &MultinomialNB{Alpha: alpha}
}

func (nb *MultinomialNB) Fit(samples [][]float64, labels []string) error {
	if len(samples) == 0 {
		return errors.New("naive bayes: no samples")
	}
	if len(samples) != len(labels) {
		return fmt.Errorf("naive bayes: %d samples but %d labels", len(samples), len(labels))
	}
	features := len(samples[0])

	classIndex := make(map[string]int)
	for _, label := range labels {
		if _, ok := classIndex[label]; !ok {
			classIndex[label] = 0
		}
	}
	nb.classes = make([]string, 0, len(classIndex))
	for label := range classIndex {
		nb.classes = append(nb.classes, label)
	}
	sort.Strings(nb.classes)
	for i, label := range nb.classes {
		classIndex[label] = i
	}

	classCount := make([]float64, len(nb.classes))
	featureCount := make([][]float64, len(nb.classes))
	for i := range featureCount {
		featureCount[i] = make([]float64, features)
	}
	for i, row := range samples {
		if len(row) != features {
			return fmt.Errorf("naive bayes: sample %d has %d features, want %d", i, len(row), features)
		}
		c := classIndex[labels[i]]
		classCount[c]++
		for j, value := range row {
			featureCount[c][j] += value
		}
	}

	total := float64(len(samples))
	nb.classLogPrior = make([]float64, len(nb.classes))
	nb.featureLogProb = make([][]float64, len(nb.classes))
	for c := range nb.classes {
		nb.classLogPrior[c] = math.Log(classCount[c] / total)

		var smoothedTotal float64
		for _, count := range featureCount[c] {
			smoothedTotal += count + nb.Alpha
		}
		nb.featureLogProb[c] = make([]float64, features)
		for j, count := range featureCount[c] {
			nb.featureLogProb[c][j] = math.Log((count + nb.Alpha) / smoothedTotal)
		}
	}
	return nil
}

func (nb *MultinomialNB) Classes() []string {
	out := make([]string, len(nb.classes))
	copy(out, nb.classes)
	return out
}

// PredictProba returns the posterior probability of every class.
func (nb *MultinomialNB) PredictProba(x []float64) (map[string]float64, error) {
	if len(nb.classes) == 0 {
		return nil, errors.New("naive bayes: model is not fitted")
	}
	if len(x) != len(nb.featureLogProb[0]) {
		return nil, fmt.Errorf("naive bayes: got %d features, want %d", len(x), len(nb.featureLogProb[0]))
	}

	joint := make([]float64, len(nb.classes))
	maxJoint := math.Inf(-1)
	for c := range nb.classes {
		score := nb.classLogPrior[c]
		for j, value := range x {
			if value != 0 {
				score += value * nb.featureLogProb[c][j]
			}
		}
		joint[c] = score
		if score > maxJoint {
			maxJoint = score
		}
	}

	var sum float64
	for _, score := range joint {
		sum += math.Exp(score - maxJoint)
	}
	logNorm := maxJoint + math.Log(sum)

	out := make(map[string]float64, len(nb.classes))
	for c, label := range nb.classes {
		out[label] = math.Exp(joint[c] - logNorm)
	}
	return out, nil
}
