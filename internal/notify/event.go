// Package notify defines the ticket delivery pipeline: messages
// published after settlement commits and the background worker that
// turns them into QR-coded ticket emails.  Delivery is at-least-once and
// strictly decoupled from the settlement transaction: a failed or slow
// delivery can never roll back or block a payment.
package notify

import (
	"fmt"

	"github.com/colorfest/ticket-booking/internal/model"
)

// TicketIssuedEvent is published once per booking when its order
// settles.  It deliberately carries only identifiers: the consumer
// re-reads the booking from the database so it always renders
// already-committed paid state.
type TicketIssuedEvent struct {
	BookingID uint64 `json:"booking_id"`
	OrderID   string `json:"order_id"`
}

// QRPayload renders the compact token encoded into the ticket's QR
// code: booking id, customer name, ticket name with quantity, and the
// event title.  Gate staff scan this for entry verification.
func QRPayload(d model.BookingDetail) string {
	return fmt.Sprintf("ID:%d|%s|%s x%d|%s", d.ID, d.CustomerName, d.TicketName, d.Quantity, d.EventTitle)
}
