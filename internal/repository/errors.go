// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking service and handlers to distinguish between failure scenarios
// without inspecting error strings.
package repository

import "errors"

// ErrEventNotFound is returned when an event lookup matches no row.
var ErrEventNotFound = errors.New("event not found")

// ErrTicketTypeNotFound is returned when one or more requested ticket
// types do not exist or belong to a different event.
var ErrTicketTypeNotFound = errors.New("ticket type not found")

// ErrInsufficientStock is returned when a ticket type does not have
// enough remaining quantity to cover a reservation or settlement.  At
// settlement time this is raised only after acquiring the row lock, so
// it is the authoritative oversell rejection.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrNoPendingBookings is returned by SettleOrder when an order has no
// pending rows left.  Callers use it to detect duplicate confirmations
// and replay the already-paid result instead of failing.
var ErrNoPendingBookings = errors.New("no pending bookings for order")
