// Package audit holds the audit sinks that deliver workflow transitions to logs,
// brokers and other subscribers.
package audit

import (
	"encoding/json"
	"time"

	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
)

const (
	specVersion     = "1.0"
	contentTypeJSON = "application/json"
	eventTypePrefix = "com.retailops."
)

// Envelope is the CloudEvents form an audit event travels in on brokers.
type Envelope struct {
	SpecVersion     string           `json:"specversion"`
	Type            string           `json:"type"`
	Source          string           `json:"source"`
	Subject         string           `json:"subject"`
	ID              string           `json:"id"`
	Time            time.Time        `json:"time"`
	DataContentType string           `json:"datacontenttype"`
	CorrelationID   string           `json:"correlationid,omitempty"`
	Data            ports.AuditEvent `json:"data"`
}

// NewEnvelope wraps event. The subject is the aggregate so one aggregate's events share a partition.
func NewEnvelope(source string, event ports.AuditEvent) Envelope {
	return Envelope{
		SpecVersion:     specVersion,
		Type:            eventTypePrefix + event.Action,
		Source:          source,
		Subject:         event.AggregateType + "/" + event.AggregateID,
		ID:              event.ID,
		Time:            event.OccurredAt,
		DataContentType: contentTypeJSON,
		CorrelationID:   event.CorrelationID,
		Data:            event,
	}
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
