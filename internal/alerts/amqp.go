package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const operatorQueue = "tessera.operator"

// AMQPPublisher delivers alerts to a durable broker queue. Failures are
// logged and returned; callers decide whether a lost alert may be ignored
// (it never blocks a saga from reaching its terminal state).
type AMQPPublisher struct {
	url    string
	queue  string
	logger *log.Logger
}

func NewAMQPPublisher(url string, logger *log.Logger) *AMQPPublisher {
	if logger == nil {
		logger = log.Default()
	}
	return &AMQPPublisher{url: url, queue: operatorQueue, logger: logger}
}

func (p *AMQPPublisher) Publish(ctx context.Context, alert Alert) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.logger.Printf("alerts: dial failed: %v", err)
		return fmt.Errorf("alerts dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.Printf("alerts: channel open failed: %v", err)
		return fmt.Errorf("alerts channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so alerts survive broker restarts; declaring is idempotent.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		p.logger.Printf("alerts: queue declare failed: %v", err)
		return fmt.Errorf("alerts queue declare: %w", err)
	}

	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("alerts marshal: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.logger.Printf("alerts: publish failed: %v", err)
		return fmt.Errorf("alerts publish: %w", err)
	}
	return nil
}

// Noop discards alerts; used in tests and local runs without a broker.
type Noop struct{}

func (Noop) Publish(context.Context, Alert) error { return nil }
