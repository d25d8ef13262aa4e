package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const ticketQueueName = "ticket.issued"

// Publisher pushes TicketIssuedEvents onto the durable ticket.issued
// queue.  Publishing is fire-and-forget from the caller's perspective:
// errors are logged and returned, and settlement callers ignore them.
type Publisher interface {
	PublishTicketIssued(ctx context.Context, event TicketIssuedEvent) error
}

// AMQPPublisher publishes over RabbitMQ, dialing per publish.  At this
// system's volume a connection per message is simpler than managing a
// long-lived channel, and a broker outage degrades to logged errors
// instead of failed checkouts.
type AMQPPublisher struct {
	url string
}

// NewAMQPPublisher returns a publisher for the given broker URL.
func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{url: url}
}

// PublishTicketIssued declares the durable queue (idempotent) and
// publishes the event as a persistent JSON message.
func (p *AMQPPublisher) PublishTicketIssued(ctx context.Context, event TicketIssuedEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("notify: dial broker failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("notify: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		ticketQueueName, // name
		true,            // durable
		false,           // autoDelete
		false,           // exclusive
		false,           // noWait
		nil,             // args
	); err != nil {
		log.Printf("notify: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("notify: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",              // default exchange
		ticketQueueName, // routing key = queue name
		false,           // mandatory
		false,           // immediate
		pub,
	); err != nil {
		log.Printf("notify: publish failed: %v", err)
		return err
	}
	return nil
}
