package ingest

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/aadarsh2904/GoQunat-Project/internal/metrics"
)

// AMQPConsumer consumes snapshots from a durable queue bound to a topic exchange.
type AMQPConsumer struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
	books    Swapper
	logger   *zap.Logger
	now      func() time.Time
	done     chan struct{}
}

// NewAMQPConsumer dials the broker and opens a channel.
func NewAMQPConsumer(url, exchange, queue string, books Swapper, logger *zap.Logger) (*AMQPConsumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return &AMQPConsumer{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		queue:    queue,
		books:    books,
		logger:   logger,
		now:      time.Now,
		done:     make(chan struct{}),
	}, nil
}

// Start declares the topology and begins consuming in the background.
func (c *AMQPConsumer) Start(ctx context.Context) error {
	if err := c.channel.ExchangeDeclare(c.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", c.exchange, err)
	}
	if _, err := c.channel.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", c.queue, err)
	}
	if err := c.channel.QueueBind(c.queue, "#", c.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", c.queue, err)
	}
	if err := c.channel.Qos(64, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	msgs, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume from %s: %w", c.queue, err)
	}

	c.logger.Info("ingest.amqp_consuming",
		zap.String("exchange", c.exchange),
		zap.String("queue", c.queue))

	go c.consume(ctx, msgs)
	return nil
}

func (c *AMQPConsumer) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("ingest.amqp_channel_closed")
				return
			}
			c.process(ctx, msg)
		}
	}
}

// process acks accepted snapshots. Undecodable or invalid books are dropped
// without requeue since redelivery cannot fix them.
func (c *AMQPConsumer) process(ctx context.Context, msg amqp.Delivery) {
	snap, err := apply(ctx, c.books, msg.Body, c.now().UTC())
	if err != nil {
		venue := "unknown"
		if snap != nil {
			venue = snap.Venue
		}
		metrics.IncBookSwap(venue, "amqp", "rejected")
		c.logger.Warn("ingest.amqp_message_dropped",
			zap.String("routing_key", msg.RoutingKey),
			zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}
	metrics.IncBookSwap(snap.Venue, "amqp", "ok")
	_ = msg.Ack(false)
}

// Close stops consumption and closes the channel and connection.
func (c *AMQPConsumer) Close() error {
	close(c.done)

	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
