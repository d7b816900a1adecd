package queue

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection and Channel are the parts of amqp091 the dispatcher uses, so
// tests can substitute a fake broker.
type Connection interface {
	Channel() (Channel, error)
	IsClosed() bool
	Close() error
}

type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// Dialer opens a new broker connection.
type Dialer func(ctx context.Context) (Connection, error)

type amqpConnection struct {
	*amqp.Connection
}

func (c amqpConnection) Channel() (Channel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// AMQPDialer dials url with the given heartbeat.
func AMQPDialer(url string, heartbeat time.Duration) Dialer {
	return func(ctx context.Context) (Connection, error) {
		conn, err := amqp.DialConfig(url, amqp.Config{
			Heartbeat: heartbeat,
			Locale:    "en_US",
			Dial:      amqp.DefaultDial(30 * time.Second),
		})
		if err != nil {
			return nil, err
		}
		return amqpConnection{conn}, nil
	}
}
