package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	mu        sync.Mutex
	closed    bool
	failNext  error
	published []amqp.Publishing
	declared  []string

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func (c *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.declared = append(c.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) Qos(int, int, bool) error { return nil }

func (c *fakeChannel) PublishWithContext(_ context.Context, _, _ string, _, _ bool, msg amqp.Publishing) error {
	n := c.inflight.Add(1)
	defer c.inflight.Add(-1)
	for {
		cur := c.maxInflight.Load()
		if n <= cur || c.maxInflight.CompareAndSwap(cur, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failNext != nil {
		err := c.failNext
		c.failNext = nil
		return err
	}
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type fakeConn struct {
	ch     *fakeChannel
	closed atomic.Bool
}

func (c *fakeConn) Channel() (Channel, error) { return c.ch, nil }
func (c *fakeConn) IsClosed() bool            { return c.closed.Load() }
func (c *fakeConn) Close() error              { c.closed.Store(true); return nil }

// broker hands out fresh connections and can be told to refuse dials.
type broker struct {
	mu     sync.Mutex
	down   int // number of dials to refuse
	dials  int
	latest *fakeConn
}

func (b *broker) dial(context.Context) (Connection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dials++
	if b.down != 0 {
		if b.down > 0 {
			b.down--
		}
		return nil, errors.New("connection refused")
	}
	b.latest = &fakeConn{ch: &fakeChannel{}}
	return b.latest, nil
}

func testConfig() Config {
	return Config{
		QueueName:           "analysis_jobs",
		ReconnectMaxTries:   3,
		ReconnectInitial:    time.Millisecond,
		ReconnectMaxElapsed: time.Second,
	}
}

func TestPublishRejectsNilJobID(t *testing.T) {
	b := &broker{}
	d := NewDispatcher(testConfig(), b.dial, nil, nil)

	err := d.Publish(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, ErrEmptyJobID)
	assert.Zero(t, b.dials)
}

func TestPublishMessageShape(t *testing.T) {
	b := &broker{}
	d := NewDispatcher(testConfig(), b.dial, nil, nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return fixed }

	require.NoError(t, d.Start(context.Background()))
	jobID := uuid.New()
	require.NoError(t, d.Publish(context.Background(), jobID))

	ch := b.latest.ch
	require.Len(t, ch.published, 1)
	assert.Equal(t, []string{"analysis_jobs"}, ch.declared)

	msg := ch.published[0]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.NotEmpty(t, msg.MessageId)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Body, &body))
	assert.Equal(t, jobID.String(), body["JobId"])
	assert.Equal(t, "2026-03-01T12:00:00Z", body["Timestamp"])
}

func TestPublishIsSerialized(t *testing.T) {
	b := &broker{}
	d := NewDispatcher(testConfig(), b.dial, nil, nil)
	require.NoError(t, d.Start(context.Background()))

	var wg sync.WaitGroup
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, d.Publish(context.Background(), uuid.New()))
		}()
	}
	wg.Wait()

	ch := b.latest.ch
	assert.Len(t, ch.published, 25)
	assert.EqualValues(t, 1, ch.maxInflight.Load())
}

func TestPublishReconnectsAfterChannelClosed(t *testing.T) {
	b := &broker{}
	d := NewDispatcher(testConfig(), b.dial, nil, nil)
	require.NoError(t, d.Start(context.Background()))

	first := b.latest
	require.NoError(t, first.ch.Close())
	b.down = 2

	require.NoError(t, d.Publish(context.Background(), uuid.New()))
	assert.NotSame(t, first, b.latest)
	assert.Len(t, b.latest.ch.published, 1)
	assert.Equal(t, 4, b.dials)
	assert.True(t, d.Healthy())
}

func TestPublishGivesUpWhenBrokerStaysDown(t *testing.T) {
	b := &broker{down: -1}
	d := NewDispatcher(testConfig(), b.dial, nil, nil)

	err := d.Start(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)

	err = d.Publish(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 6, b.dials)
	assert.False(t, d.Healthy())
}

func TestPublishFailureIsNotRetried(t *testing.T) {
	b := &broker{}
	d := NewDispatcher(testConfig(), b.dial, nil, nil)
	require.NoError(t, d.Start(context.Background()))
	b.latest.ch.failNext = errors.New("channel flow")

	err := d.Publish(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrPublish)
	assert.Empty(t, b.latest.ch.published)
	assert.Equal(t, 1, b.dials)
}

func TestClose(t *testing.T) {
	b := &broker{}
	d := NewDispatcher(testConfig(), b.dial, nil, nil)
	require.NoError(t, d.Start(context.Background()))

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.True(t, b.latest.IsClosed())
	assert.ErrorIs(t, d.Publish(context.Background(), uuid.New()), ErrClosed)
}

func TestFromCentralConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultQueueName, cfg.QueueName)
	assert.Equal(t, 10, cfg.PrefetchCount)
	assert.EqualValues(t, 5, cfg.ReconnectMaxTries)
}
