// Package events publishes analysis domain events on NATS. Subjects carry the
// owning id as their last token and the payload is the subject entity's id.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

const (
	SubjectPrefix = "hairai"

	// hairai.job.created.<sessionID>, payload <jobID>
	JobCreatedSubject = SubjectPrefix + ".job.created"
	// hairai.report.generated.<sessionID>, payload <sessionID>
	ReportGeneratedSubject = SubjectPrefix + ".report.generated"
)

// Conn is the subset of *nats.Conn used for publishing.
type Conn interface {
	Publish(subj string, data []byte) error
}

type Publisher interface {
	JobCreated(ctx context.Context, sessionID, jobID uuid.UUID) error
	ReportGenerated(ctx context.Context, sessionID uuid.UUID) error
}

type natsPublisher struct {
	nc     Conn
	logger *slog.Logger
}

// NewPublisher returns a Publisher over nc. A nil nc yields a publisher that
// drops every event.
func NewPublisher(nc Conn, logger *slog.Logger) Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &natsPublisher{nc: nc, logger: logger}
}

func (p *natsPublisher) JobCreated(ctx context.Context, sessionID, jobID uuid.UUID) error {
	return p.publish(ctx, Subject(JobCreatedSubject, sessionID), jobID)
}

func (p *natsPublisher) ReportGenerated(ctx context.Context, sessionID uuid.UUID) error {
	return p.publish(ctx, Subject(ReportGeneratedSubject, sessionID), sessionID)
}

func (p *natsPublisher) publish(ctx context.Context, subject string, id uuid.UUID) error {
	if p.nc == nil {
		return nil
	}
	if err := p.nc.Publish(subject, []byte(id.String())); err != nil {
		p.logger.WarnContext(ctx, "events: publish failed", "subject", subject, "error", err)
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func Subject(base string, id uuid.UUID) string {
	return base + "." + id.String()
}

// ParseSubjectID extracts the trailing id from a subject built by Subject.
func ParseSubjectID(subject string) (uuid.UUID, error) {
	i := strings.LastIndexByte(subject, '.')
	if i < 0 || i == len(subject)-1 {
		return uuid.Nil, fmt.Errorf("subject %q has no id token", subject)
	}
	return uuid.Parse(subject[i+1:])
}

// ParsePayloadID parses an id payload, tolerating surrounding whitespace.
func ParsePayloadID(data []byte) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(string(data)))
}
