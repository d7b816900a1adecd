// Package queue hands analysis jobs to the external worker through a durable
// RabbitMQ queue.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Alijeyrad/hairai_backend/config"
	"github.com/Alijeyrad/hairai_backend/pkg/metrics"
	"github.com/Alijeyrad/hairai_backend/pkg/observability"
)

const DefaultQueueName = "analysis_jobs"

type Config struct {
	QueueName     string
	PrefetchCount int

	// Reconnection is bounded by both values; whichever is hit first wins.
	ReconnectMaxTries   uint
	ReconnectInitial    time.Duration
	ReconnectMaxElapsed time.Duration
}

func FromCentralConfig(c config.QueueConfig) Config {
	cfg := Config{
		QueueName:           c.Name,
		PrefetchCount:       c.PrefetchCount,
		ReconnectMaxTries:   c.ReconnectMaxTries,
		ReconnectInitial:    time.Duration(c.ReconnectInitialMs) * time.Millisecond,
		ReconnectMaxElapsed: time.Duration(c.ReconnectMaxElapsedSecs) * time.Second,
	}
	return cfg.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.QueueName == "" {
		c.QueueName = DefaultQueueName
	}
	if c.PrefetchCount <= 0 {
		c.PrefetchCount = 10
	}
	if c.ReconnectMaxTries == 0 {
		c.ReconnectMaxTries = 5
	}
	if c.ReconnectInitial <= 0 {
		c.ReconnectInitial = 500 * time.Millisecond
	}
	if c.ReconnectMaxElapsed <= 0 {
		c.ReconnectMaxElapsed = 10 * time.Second
	}
	return c
}

// JobReady is the message body the worker consumes.
type JobReady struct {
	JobID     uuid.UUID `json:"JobId"`
	Timestamp time.Time `json:"Timestamp"`
}

// Dispatcher publishes JobReady messages. The amqp channel is not safe for
// concurrent use, so publishing and reconnecting happen under mu.
type Dispatcher struct {
	cfg     Config
	dial    Dialer
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu     sync.Mutex
	conn   Connection
	ch     Channel
	closed bool
}

func NewDispatcher(cfg Config, dial Dialer, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		cfg:     cfg.withDefaults(),
		dial:    dial,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Start connects and declares the queue. A failure is returned but leaves the
// dispatcher usable; the next Publish retries the connection.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	return d.ensureChannel(ctx)
}

// Publish sends one persistent JobReady message. The publish itself is
// attempted once; only the connection is re-established on failure.
func (d *Dispatcher) Publish(ctx context.Context, jobID uuid.UUID) (err error) {
	if jobID == uuid.Nil {
		return ErrEmptyJobID
	}

	ctx, span := observability.Tracer().Start(ctx, "queue.Publish")
	span.SetAttributes(attribute.String("job.id", jobID.String()), attribute.String("queue.name", d.cfg.QueueName))
	start := time.Now()
	defer func() {
		d.metrics.ObserveDispatch(start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	now := d.now().UTC()
	body, err := json.Marshal(JobReady{JobID: jobID, Timestamp: now})
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPublish, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if err := d.ensureChannel(ctx); err != nil {
		return err
	}

	err = d.ch.PublishWithContext(ctx, "", d.cfg.QueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    now,
		Body:         body,
	})
	if err != nil {
		d.logger.ErrorContext(ctx, "queue: publish failed", "job_id", jobID, "queue", d.cfg.QueueName, "error", err)
		return fmt.Errorf("%w: %v", ErrPublish, err)
	}

	d.logger.DebugContext(ctx, "queue: job published", "job_id", jobID, "queue", d.cfg.QueueName)
	return nil
}

// ensureChannel must be called with mu held.
func (d *Dispatcher) ensureChannel(ctx context.Context) error {
	if d.ch != nil && !d.ch.IsClosed() && d.conn != nil && !d.conn.IsClosed() {
		return nil
	}
	d.teardown()

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = d.cfg.ReconnectInitial

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		d.metrics.IncReconnect()
		return struct{}{}, d.connect(ctx)
	},
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(d.cfg.ReconnectMaxTries),
		backoff.WithMaxElapsedTime(d.cfg.ReconnectMaxElapsed),
		backoff.WithNotify(func(err error, wait time.Duration) {
			d.logger.WarnContext(ctx, "queue: connect failed, retrying", "error", err, "wait", wait)
		}),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (d *Dispatcher) connect(ctx context.Context) error {
	conn, err := d.dial(ctx)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := ch.Qos(d.cfg.PrefetchCount, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("qos: %w", err)
	}

	// durable, not auto-deleted, not exclusive
	if _, err := ch.QueueDeclare(d.cfg.QueueName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare %s: %w", d.cfg.QueueName, err)
	}

	d.conn, d.ch = conn, ch
	d.logger.InfoContext(ctx, "queue: connected", "queue", d.cfg.QueueName)
	return nil
}

func (d *Dispatcher) teardown() {
	if d.ch != nil {
		_ = d.ch.Close()
		d.ch = nil
	}
	if d.conn != nil {
		_ = d.conn.Close()
		d.conn = nil
	}
}

// Healthy reports whether an open channel is currently held.
func (d *Dispatcher) Healthy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.closed && d.ch != nil && !d.ch.IsClosed()
}

func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.teardown()
	return nil
}
