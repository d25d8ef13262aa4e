package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Booking status lifecycle.  A booking is created as pending at
// reservation time and moves to exactly one of paid or failed at
// confirmation.  Both paid and failed are terminal; stale pendings are
// deleted by the expiry sweep rather than transitioned.
const (
	BookingPending = "pending"
	BookingPaid    = "paid"
	BookingFailed  = "failed"
)

// Booking is one row per (ticket type, customer, checkout).  Bookings
// created in the same checkout share an OrderID and always settle
// together as a batch.
type Booking struct {
	ID            uint64          // bookings.id
	TicketTypeID  uint64          // bookings.ticket_type_id
	CustomerName  string          // bookings.customer_name
	CustomerEmail string          // bookings.customer_email
	CustomerPhone string          // bookings.customer_phone
	Quantity      int64           // bookings.quantity
	TotalAmount   decimal.Decimal // bookings.total_amount
	OrderID       string          // bookings.order_id (gateway order correlation token)
	PaymentID     string          // bookings.payment_id (empty until paid)
	Status        string          // bookings.status
	CreatedAt     time.Time       // bookings.created_at
}

// BookingDetail is a booking joined with the ticket tier and event names
// it refers to.  It is what ticket delivery and the organizer dashboard
// render from.
type BookingDetail struct {
	Booking
	TicketName string // ticket_types.name
	EventID    uint64 // ticket_types.event_id
	EventTitle string // events.title
}
