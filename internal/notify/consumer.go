package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/colorfest/ticket-booking/internal/model"
	"github.com/colorfest/ticket-booking/internal/monitoring"
)

// BookingLoader is the slice of the booking repository the consumer
// needs: re-reading a booking with its ticket/event names.
type BookingLoader interface {
	GetDetail(ctx context.Context, id uint64) (*model.BookingDetail, error)
}

// Consumer is the background worker that drains ticket.issued and
// delivers tickets.  It owns its own failure domain: a message that
// cannot be delivered is logged, counted and rejected without requeue so
// a poisoned message cannot wedge the queue, and settlement state is
// never revisited.
type Consumer struct {
	url      string
	bookings BookingLoader
	mailer   Mailer
	logDir   string
}

// NewConsumer builds a consumer for the given broker URL.  Delivery
// attempts are appended to <logDir>/delivery.log.
func NewConsumer(url string, bookings BookingLoader, mailer Mailer, logDir string) *Consumer {
	if logDir == "" {
		logDir = "logs"
	}
	return &Consumer{url: url, bookings: bookings, mailer: mailer, logDir: logDir}
}

// Run connects to the broker and consumes until the context is
// cancelled.  Connection failures are retried with capped exponential
// backoff so a broker restart does not kill the worker.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			log.Printf("notify-consumer: dial broker failed: %v; retrying in %s", err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := c.consumeLoop(ctx, conn); err != nil {
			log.Printf("notify-consumer: consume loop ended: %v; reconnecting", err)
			_ = conn.Close()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(20, 0, false); err != nil {
		log.Printf("notify-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(ticketQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(ticketQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleDelivery(ctx, d.Body); err != nil {
				log.Printf("notify-consumer: deliver failed: %v", err)
				monitoring.NotificationFailed()
				_ = d.Nack(false, false) // reject, no requeue, to avoid tight redelivery loops
				continue
			}
			monitoring.NotificationDelivered()
			_ = d.Ack(false)
		}
	}
}

// handleDelivery processes one ticket.issued message end to end.  A
// booking that no longer exists or is not paid is skipped without error:
// the settlement that enqueued the job is the source of truth, and a
// later failed/reconciled state must not produce a ticket.
func (c *Consumer) handleDelivery(ctx context.Context, body []byte) error {
	var ev TicketIssuedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	detail, err := c.bookings.GetDetail(ctx, ev.BookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("notify-consumer: booking %d not found, dropping", ev.BookingID)
			return nil
		}
		return fmt.Errorf("load booking %d: %w", ev.BookingID, err)
	}
	if detail.Status != model.BookingPaid {
		log.Printf("notify-consumer: booking %d is %s, skipping delivery", detail.ID, detail.Status)
		return nil
	}

	payload := QRPayload(*detail)
	if err := c.appendDeliveryLog(*detail, payload); err != nil {
		log.Printf("notify-consumer: delivery log write failed: %v", err)
	}
	if err := c.mailer.Send(ctx, *detail, payload); err != nil {
		return fmt.Errorf("send ticket for booking %d: %w", detail.ID, err)
	}
	return nil
}

func (c *Consumer) appendDeliveryLog(d model.BookingDetail, payload string) error {
	if err := os.MkdirAll(c.logDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(c.logDir, "delivery.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	line := fmt.Sprintf("[%s] Ticket delivered | booking_id=%d | order_id=%s | email=%s | event=%q | ticket=%q x%d | qr=%q\n",
		time.Now().UTC().Format(time.RFC3339), d.ID, d.OrderID, d.CustomerEmail, d.EventTitle, d.TicketName, d.Quantity, payload)
	_, err = f.WriteString(line)
	return err
}
