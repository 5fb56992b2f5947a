package events

import (
	"time"

	"github.com/google/uuid"
)

type Meta struct {
	// Request correlation id, when the event was caused by an HTTP request.
	CorrelationID *string `json:"correlation_id,omitempty"`
	ID            string  `json:"id"`
	// Emitting service.
	Producer *string   `json:"producer,omitempty"`
	Time     time.Time `json:"time"`
	// Hook name, e.g. livechat.agent.status_set
	Type string `json:"type"`
}

type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

func NewEnvelope(name, producer string, data any, now time.Time) Envelope {
	meta := Meta{
		ID:   uuid.NewString(),
		Time: now.UTC(),
		Type: name,
	}
	if producer != "" {
		meta.Producer = &producer
	}
	return Envelope{Meta: meta, Data: data}
}
