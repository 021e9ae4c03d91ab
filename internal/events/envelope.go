// Package events publishes chat lifecycle events to external systems.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/Vovarama1992/supchat/internal/supchat"
)

const Producer = "supchat"

type Meta struct {
	// Trace / request correlation ID, the chat id
	CorrelationID string `json:"correlation_id,omitempty"`
	// Unique event ID
	ID string `json:"id"`
	// Emitting service
	Producer string `json:"producer,omitempty"`
	// Timestamp of the lifecycle change
	Time time.Time `json:"time"`
	// Event name and version, e.g. supchat.chat.closed.v1
	Type string `json:"type"`
}

type Envelope struct {
	Meta Meta          `json:"meta"`
	Data supchat.Event `json:"data"`
}

func NewEnvelope(ev supchat.Event) Envelope {
	t := ev.Time
	if t.IsZero() {
		t = time.Now()
	}
	return Envelope{
		Meta: Meta{
			CorrelationID: ev.ChatID,
			ID:            uuid.NewString(),
			Producer:      Producer,
			Time:          t.UTC(),
			Type:          TypeName(ev.Type),
		},
		Data: ev,
	}
}

// TypeName is also the routing key.
func TypeName(t supchat.EventType) string {
	return Producer + "." + string(t) + ".v1"
}
