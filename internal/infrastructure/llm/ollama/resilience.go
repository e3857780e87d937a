package ollama

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/document-structurer/internal/infrastructure/resilience"
)

// HTTPStatusError is a non-2xx reply from the Ollama API.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("ollama %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("ollama %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// ModelOutputError means the model answered but its text was not the JSON
// object the prompt asked for. The server is healthy, so the breaker
// ignores it.
type ModelOutputError struct {
	Operation string
	Err       error
}

func (e *ModelOutputError) Error() string {
	return fmt.Sprintf("ollama %s: unusable model output: %v", e.Operation, e.Err)
}

func (e *ModelOutputError) Unwrap() error { return e.Err }

func classifyOllamaError(err error) resilience.Outcome {
	if outcome, ok := resilience.ClassifyCommon(err); ok {
		return outcome
	}

	var outputErr *ModelOutputError
	if errors.As(err, &outputErr) {
		return resilience.OutcomeIgnored
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return resilience.ClassifyHTTPStatus(statusErr.StatusCode)
	}
	return resilience.OutcomeFailed
}
