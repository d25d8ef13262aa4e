package notify

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"github.com/domodwyer/mailyak/v3"

	"github.com/colorfest/ticket-booking/internal/model"
)

// Mailer ships one paid booking's ticket to the customer.  The qrPayload
// is the token gate staff will scan; how the channel renders it (PNG,
// attachment, inline) is the mailer's concern.
type Mailer interface {
	Send(ctx context.Context, d model.BookingDetail, qrPayload string) error
}

// SMTPMailer sends the ticket email through a plain SMTP relay with the
// QR payload attached.  Credentials are optional for relays that accept
// unauthenticated local mail.
type SMTPMailer struct {
	addr string // host:port
	user string
	pass string
	from string
}

// NewSMTPMailer builds a mailer for the given relay address and sender.
func NewSMTPMailer(addr, user, pass, from string) *SMTPMailer {
	return &SMTPMailer{addr: addr, user: user, pass: pass, from: from}
}

// Send composes and sends the ticket email.  The context is accepted for
// interface symmetry; net/smtp does not support cancellation mid-send.
func (m *SMTPMailer) Send(_ context.Context, d model.BookingDetail, qrPayload string) error {
	var auth smtp.Auth
	if m.user != "" {
		host := m.addr
		if i := strings.IndexByte(host, ':'); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", m.user, m.pass, host)
	}
	mail := mailyak.New(m.addr, auth)
	mail.From(m.from)
	mail.To(d.CustomerEmail)
	mail.Subject(fmt.Sprintf("Your Tickets for %s", d.EventTitle))
	mail.Plain().Set(ticketBody(d))
	mail.Attach(fmt.Sprintf("ticket_qr_%d.txt", d.ID), strings.NewReader(qrPayload))
	return mail.Send()
}

func ticketBody(d model.BookingDetail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", d.CustomerName)
	fmt.Fprintf(&b, "Thank you for purchasing tickets to %s!\n\n", d.EventTitle)
	b.WriteString("Booking Details:\n")
	fmt.Fprintf(&b, "- Ticket: %s\n", d.TicketName)
	fmt.Fprintf(&b, "- Quantity: %d\n", d.Quantity)
	fmt.Fprintf(&b, "- Amount Paid: %s\n", d.TotalAmount.StringFixed(2))
	fmt.Fprintf(&b, "- Order/Payment ID: %s\n\n", d.PaymentID)
	b.WriteString("Please find your ticket QR code attached. Show it at the entry gates for verification.\n")
	return b.String()
}

// LogMailer is the delivery sink used when no SMTP relay is configured:
// it records what would have been sent and succeeds.  Useful in local
// and test environments.
type LogMailer struct{}

// Send logs the delivery instead of mailing it.
func (LogMailer) Send(_ context.Context, d model.BookingDetail, qrPayload string) error {
	log.Printf("notify: [dry-run] ticket for booking %d to %s qr=%q", d.ID, d.CustomerEmail, qrPayload)
	return nil
}
