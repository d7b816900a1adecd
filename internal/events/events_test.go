//go:generate mockgen -source=events.go -destination=mocks/mocks.go -package=mocks Publisher

package events

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	subjects []string
	payloads []string
	err      error
}

func (c *recordingConn) Publish(subj string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.subjects = append(c.subjects, subj)
	c.payloads = append(c.payloads, string(data))
	return nil
}

func TestJobCreated(t *testing.T) {
	conn := &recordingConn{}
	p := NewPublisher(conn, nil)
	sessionID, jobID := uuid.New(), uuid.New()

	require.NoError(t, p.JobCreated(context.Background(), sessionID, jobID))
	assert.Equal(t, []string{"hairai.job.created." + sessionID.String()}, conn.subjects)
	assert.Equal(t, []string{jobID.String()}, conn.payloads)
}

func TestReportGenerated(t *testing.T) {
	conn := &recordingConn{}
	p := NewPublisher(conn, nil)
	sessionID := uuid.New()

	require.NoError(t, p.ReportGenerated(context.Background(), sessionID))
	assert.Equal(t, []string{"hairai.report.generated." + sessionID.String()}, conn.subjects)
	assert.Equal(t, []string{sessionID.String()}, conn.payloads)
}

func TestPublishError(t *testing.T) {
	conn := &recordingConn{err: errors.New("nats: connection closed")}
	p := NewPublisher(conn, nil)

	err := p.ReportGenerated(context.Background(), uuid.New())
	assert.ErrorContains(t, err, "connection closed")
}

func TestNilConnDropsEvents(t *testing.T) {
	p := NewPublisher(nil, nil)
	assert.NoError(t, p.JobCreated(context.Background(), uuid.New(), uuid.New()))
}

func TestParseSubjectID(t *testing.T) {
	id := uuid.New()

	got, err := ParseSubjectID(Subject(ReportGeneratedSubject, id))
	require.NoError(t, err)
	assert.Equal(t, id, got)

	for _, bad := range []string{"", "hairai", "hairai.report.generated.", "hairai.report.generated.nope"} {
		_, err := ParseSubjectID(bad)
		assert.Error(t, err, bad)
	}

	got, err = ParsePayloadID([]byte(" " + id.String() + "\n"))
	require.NoError(t, err)
	assert.Equal(t, id, got)
}
