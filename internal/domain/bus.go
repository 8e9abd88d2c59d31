package domain

import (
	"context"
)

// EventBus defines the interface for event-driven communication.
// Supports Go channels (Community) or NATS (Pro).
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, institutionID string, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, institutionID string, topic string, handler MessageHandler) (Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID            string            `json:"id"`
	InstitutionID string            `json:"institutionId"`
	Topic         string            `json:"topic"`
	Payload       []byte            `json:"payload"`
	Metadata      map[string]string `json:"metadata"`
	Timestamp     int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string `json:"type" yaml:"type"`

	// Channel settings (Community tier)
	ChannelBufferSize int `json:"channelBufferSize" yaml:"channelBufferSize"`

	// NATS settings (Pro tier)
	NATSUrl           string `json:"natsUrl" yaml:"natsUrl"`
	NATSToken         string `json:"-" yaml:"natsToken"`
	NATSMaxReconnects int    `json:"natsMaxReconnects" yaml:"natsMaxReconnects"`
	NATSReconnectWait int    `json:"natsReconnectWait" yaml:"natsReconnectWait"` // seconds
}

// Standard topic names for the assessment pipeline.
const (
	TopicAssessmentSubmitted = "pulse.assessment.submitted"
	TopicAssessmentScored    = "pulse.assessment.scored"
	TopicHighRisk            = "pulse.assessment.high_risk"
)

// AnyInstitution subscribes to a topic across every institution.
const AnyInstitution = "*"

// SubmissionEvent is the payload of TopicAssessmentSubmitted.
type SubmissionEvent struct {
	AssessmentID string     `json:"assessmentId,omitempty"`
	TraceID      string     `json:"traceId,omitempty"`
	Answers      RawPayload `json:"answers"`
}

// OutcomeEvent is the payload of TopicAssessmentScored and TopicHighRisk.
type OutcomeEvent struct {
	AssessmentID    string    `json:"assessmentId"`
	InstitutionID   string    `json:"institutionId"`
	RiskLevel       string    `json:"riskLevel"`
	RiskProbability float64   `json:"riskProbability"`
	Confidence      string    `json:"confidence"`
	TraceID         string    `json:"traceId,omitempty"`
	Response        *Response `json:"response"`
}

// NewOutcomeEvent summarizes a stored assessment for subscribers.
func NewOutcomeEvent(a *Assessment) *OutcomeEvent {
	return &OutcomeEvent{
		AssessmentID:    a.ID,
		InstitutionID:   a.InstitutionID,
		RiskLevel:       a.RiskLevel,
		RiskProbability: a.RiskProbability,
		Confidence:      a.Confidence,
		TraceID:         a.TraceID,
		Response:        a.Response,
	}
}
