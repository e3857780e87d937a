package nats

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type ingestedEvent struct {
	DocumentID  string    `json:"document_id"`
	PublishedAt time.Time `json:"published_at"`
}

func encodeIngestedEvent(documentID string, publishedAt time.Time) ([]byte, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, errors.New("nats publish: empty document id")
	}
	payload, err := json.Marshal(ingestedEvent{DocumentID: documentID, PublishedAt: publishedAt.UTC()})
	if err != nil {
		return nil, fmt.Errorf("encode ingested event: %w", err)
	}
	return payload, nil
}

// decodeIngestedEvent also accepts a bare document id payload.
func decodeIngestedEvent(data []byte) (ingestedEvent, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ingestedEvent{}, errors.New("empty event payload")
	}
	if trimmed[0] != '{' {
		return ingestedEvent{DocumentID: string(trimmed)}, nil
	}

	var event ingestedEvent
	if err := json.Unmarshal(trimmed, &event); err != nil {
		return ingestedEvent{}, fmt.Errorf("decode ingested event: %w", err)
	}
	if strings.TrimSpace(event.DocumentID) == "" {
		return ingestedEvent{}, errors.New("ingested event without document id")
	}
	return event, nil
}
