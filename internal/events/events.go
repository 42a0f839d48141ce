package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// AnalysisCompleted is emitted after an analysis run has been persisted.
type AnalysisCompleted struct {
	AssignmentID  string    `json:"assignmentId"`
	RunID         string    `json:"runId"`
	Scored        int       `json:"scored"`
	Skipped       int       `json:"skipped"`
	MaxPlagiarism int       `json:"maxPlagiarism"`
	Flagged       int       `json:"flagged"`
	CompletedAt   time.Time `json:"completedAt"`
}

// Publisher delivers analysis events to downstream consumers.
type Publisher interface {
	PublishAnalysisCompleted(ctx context.Context, event AnalysisCompleted) error
}

type subjectPublisher interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes JSON events on a single subject.
type NATSPublisher struct {
	conn    subjectPublisher
	subject string
}

// NewNATSPublisher wraps an open NATS connection.
func NewNATSPublisher(conn *nats.Conn, subject string) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject}
}

// PublishAnalysisCompleted implements Publisher.
func (p *NATSPublisher) PublishAnalysisCompleted(ctx context.Context, event AnalysisCompleted) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode analysis event: %w", err)
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publish analysis event on %s: %w", p.subject, err)
	}

	return nil
}

// NopPublisher drops every event. Used when NATS is not configured.
type NopPublisher struct{}

// PublishAnalysisCompleted implements Publisher.
func (NopPublisher) PublishAnalysisCompleted(context.Context, AnalysisCompleted) error {
	return nil
}
