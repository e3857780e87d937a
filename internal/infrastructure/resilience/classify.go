package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/kirillkom/document-structurer/internal/core/domain"
)

// Outcome tells the executor what a failed call says about the remote side.
type Outcome int

const (
	// OutcomeIgnored failures are caused by the caller or by the payload.
	// They are returned as is and never count against the breaker.
	OutcomeIgnored Outcome = iota
	// OutcomeFailed counts against the breaker but is not attempted again.
	OutcomeFailed
	// OutcomeTransient counts against the breaker and may be retried.
	OutcomeTransient
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeFailed:
		return "failed"
	case OutcomeTransient:
		return "transient"
	default:
		return "unknown"
	}
}

type ErrorClassifier func(err error) Outcome

// ClassifyCommon handles the failures every remote dependency shares:
// cancellation, an open breaker and network errors. ok is false when the
// adapter has to decide itself.
func ClassifyCommon(err error) (outcome Outcome, ok bool) {
	switch {
	case err == nil:
		return OutcomeIgnored, true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeIgnored, true
	case IsCircuitOpen(err):
		return OutcomeTransient, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return OutcomeTransient, true
	}
	return OutcomeFailed, false
}

// ClassifyHTTPStatus maps a non-2xx reply. Other 4xx replies mean the
// request was wrong, not that the service is unhealthy.
func ClassifyHTTPStatus(statusCode int) Outcome {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return OutcomeTransient
	}
	if statusCode >= 400 && statusCode < 500 {
		return OutcomeIgnored
	}
	return OutcomeFailed
}

// MarkTemporary tags transient failures with domain.ErrTemporary so callers
// can answer 503 and the worker can leave the document for a later run.
func MarkTemporary(operation string, err error, classify ErrorClassifier) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if IsCircuitOpen(err) || (classify != nil && classify(err) == OutcomeTransient) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
