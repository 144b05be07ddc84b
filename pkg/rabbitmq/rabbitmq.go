package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	"dietlog/internal/models"

	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
)

// DefaultQueue is where meal events are published when Config.Queue is empty.
const DefaultQueue = "meal_events"

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL   string
	Queue string
}

// NewClient connects to RabbitMQ, opens a channel and declares the meal
// event queue.
func NewClient(cfg Config) (*Client, error) {
	queue := cfg.Queue
	if queue == "" {
		queue = DefaultQueue
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := declare(ch, queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare %s: %w", queue, err)
	}

	logrus.WithField("queue", queue).Info("RabbitMQ client connected")

	return &Client{
		conn:    conn,
		channel: ch,
		queue:   queue,
	}, nil
}

func declare(ch *amqp.Channel, queue string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// PublishMealEvent publishes a meal change to the queue as persistent JSON.
func (c *Client) PublishMealEvent(event models.MealEvent) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal meal event: %w", err)
	}

	err = c.channel.Publish(
		"",      // default exchange
		c.queue, // routing key: the queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         event.Type,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	logrus.WithFields(logrus.Fields{"type": event.Type, "meal_id": event.MealID}).Debug("Sent meal event")
	return nil
}

// DecodeMealEvent parses a delivery body produced by PublishMealEvent.
func DecodeMealEvent(body []byte) (models.MealEvent, error) {
	var event models.MealEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return event, fmt.Errorf("failed to decode meal event: %w", err)
	}
	return event, nil
}

// ConsumeMealEvents starts a goroutine that hands each delivery to handler.
// Deliveries are acked when handler returns nil and requeued otherwise.
func (c *Client) ConsumeMealEvents(handler func(msg amqp.Delivery) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	queue, err := declare(c.channel, c.queue)
	if err != nil {
		return fmt.Errorf("failed to declare queue for consuming: %w", err)
	}

	msgs, err := c.channel.Consume(
		queue.Name,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	logrus.WithField("queue", queue.Name).Info("Waiting for meal events")

	go func() {
		for msg := range msgs {
			if err := handler(msg); err != nil {
				logrus.WithError(err).WithField("tag", msg.DeliveryTag).Error("Error processing message")
				if requeueErr := msg.Nack(false, true); requeueErr != nil {
					logrus.WithError(requeueErr).WithField("tag", msg.DeliveryTag).Error("Error nacking message")
				}
			} else if ackErr := msg.Ack(false); ackErr != nil {
				logrus.WithError(ackErr).WithField("tag", msg.DeliveryTag).Error("Error acking message")
			}
		}
	}()

	return nil
}

// LogMealEvent is a consumer handler that records each event in the log.
// Malformed bodies are acknowledged so they are not redelivered forever.
func LogMealEvent(msg amqp.Delivery) error {
	event, err := DecodeMealEvent(msg.Body)
	if err != nil {
		logrus.WithError(err).WithField("tag", msg.DeliveryTag).Warn("Dropping malformed meal event")
		return nil
	}
	logrus.WithFields(logrus.Fields{
		"type":    event.Type,
		"meal_id": event.MealID,
		"user_id": event.UserID,
	}).Info("Received meal event")
	return nil
}
