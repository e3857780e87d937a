package classification

import (
	"context"
	"errors"
	"strings"

	"github.com/kirillkom/document-structurer/internal/core/domain"
	"github.com/kirillkom/document-structurer/internal/core/ports"
)

const (
	NeuralWeight      = 0.6
	StatisticalWeight = 0.4

	MethodCombined = "combined"
)

// Engine fuses a zero-shot classifier with a statistical classifier over
// the closed category vocabulary.
type Engine struct {
	neural      ports.ZeroShotClassifier
	statistical ports.StatisticalClassifier
	labels      []string
}

func NewEngine(neural ports.ZeroShotClassifier, statistical ports.StatisticalClassifier) *Engine {
	return &Engine{
		neural:      neural,
		statistical: statistical,
		labels:      domain.CategoryLabels(),
	}
}

// Classify requires non-empty text. A failing classifier aborts the call
// with a *domain.ClassificationError naming the stage.
func (e *Engine) Classify(ctx context.Context, text string) (domain.ClassificationResult, error) {
	if strings.TrimSpace(text) == "" {
		return domain.ClassificationResult{}, domain.WrapError(domain.ErrInvalidInput, "classify", errors.New("text is empty"))
	}

	neuralRaw, err := e.neural.ClassifyZeroShot(ctx, text, e.labels)
	if err != nil {
		return domain.ClassificationResult{}, &domain.ClassificationError{Stage: domain.StageZeroShot, Err: err}
	}
	statisticalRaw, err := e.statistical.PredictProba(text)
	if err != nil {
		return domain.ClassificationResult{}, &domain.ClassificationError{Stage: domain.StageStatistical, Err: err}
	}

	ranked := Fuse(domain.ScoresFromMap(neuralRaw), domain.ScoresFromMap(statisticalRaw)).Ranked()
	return domain.ClassificationResult{
		PrimaryCategory: ranked[0].Category,
		Confidence:      ranked[0].Score,
		AllCategories:   ranked,
		Method:          MethodCombined,
	}, nil
}

// Fuse combines the two score sets with fixed weights. The result is not
// renormalised.
func Fuse(neural, statistical domain.CategoryScores) domain.CategoryScores {
	var out domain.CategoryScores
	for _, c := range domain.Categories() {
		out.Set(c, NeuralWeight*neural.Get(c)+StatisticalWeight*statistical.Get(c))
	}
	return out
}
