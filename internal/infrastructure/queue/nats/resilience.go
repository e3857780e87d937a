package nats

import (
	"errors"

	"github.com/kirillkom/document-structurer/internal/infrastructure/resilience"
	"github.com/nats-io/nats.go"
)

// classifyNATSError retries while the connection is down or reconnecting.
// Oversized or malformed publishes are the caller's fault and leave the
// breaker alone.
func classifyNATSError(err error) resilience.Outcome {
	if outcome, ok := resilience.ClassifyCommon(err); ok {
		return outcome
	}
	switch {
	case errors.Is(err, nats.ErrNoServers),
		errors.Is(err, nats.ErrTimeout),
		errors.Is(err, nats.ErrConnectionClosed),
		errors.Is(err, nats.ErrConnectionReconnecting),
		errors.Is(err, nats.ErrDisconnected):
		return resilience.OutcomeTransient
	case errors.Is(err, nats.ErrMaxPayload),
		errors.Is(err, nats.ErrBadSubject):
		return resilience.OutcomeIgnored
	}
	return resilience.OutcomeFailed
}

func markTemporary(err error) error {
	return resilience.MarkTemporary("nats publish", err, classifyNATSError)
}
