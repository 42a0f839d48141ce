package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	subject string
	data    []byte
	err     error
}

func (r *recordingConn) Publish(subject string, data []byte) error {
	r.subject = subject
	r.data = data
	return r.err
}

func TestNATSPublisherEncodesEvent(t *testing.T) {
	conn := &recordingConn{}
	publisher := &NATSPublisher{conn: conn, subject: "integrity.analysis.completed"}

	completedAt := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	err := publisher.PublishAnalysisCompleted(context.Background(), AnalysisCompleted{
		AssignmentID:  "a1",
		RunID:         "r1",
		Scored:        3,
		Skipped:       1,
		MaxPlagiarism: 88,
		Flagged:       2,
		CompletedAt:   completedAt,
	})
	require.NoError(t, err)
	require.Equal(t, "integrity.analysis.completed", conn.subject)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(conn.data, &decoded))
	require.Equal(t, "a1", decoded["assignmentId"])
	require.Equal(t, float64(88), decoded["maxPlagiarism"])
	require.Equal(t, "2024-10-01T12:00:00Z", decoded["completedAt"])
}

func TestNATSPublisherWrapsErrors(t *testing.T) {
	boom := errors.New("boom")
	publisher := &NATSPublisher{conn: &recordingConn{err: boom}, subject: "s"}
	require.ErrorIs(t, publisher.PublishAnalysisCompleted(context.Background(), AnalysisCompleted{}), boom)
}

func TestNATSPublisherHonoursCancelledContext(t *testing.T) {
	conn := &recordingConn{}
	publisher := &NATSPublisher{conn: conn, subject: "s"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, publisher.PublishAnalysisCompleted(ctx, AnalysisCompleted{}), context.Canceled)
	require.Empty(t, conn.subject)
}

func TestNopPublisher(t *testing.T) {
	require.NoError(t, NopPublisher{}.PublishAnalysisCompleted(context.Background(), AnalysisCompleted{}))
}
