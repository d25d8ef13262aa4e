package model

import "github.com/shopspring/decimal"

// TicketType is a priced tier of tickets for one event (VIP, Early Bird,
// ...).  QuantityAvailable is the contended counter: it is decremented
// only at settlement time, never at reservation time, and must never go
// negative.
type TicketType struct {
	ID                uint64          // ticket_types.id
	EventID           uint64          // ticket_types.event_id
	Name              string          // ticket_types.name
	Price             decimal.Decimal // ticket_types.price
	QuantityAvailable int64           // ticket_types.quantity_available
	Description       string          // ticket_types.description
}

// PriceMinorUnits returns the tier price in integer minor currency units
// (paise for INR), the representation payment gateways expect.
func (t TicketType) PriceMinorUnits() int64 {
	return t.Price.Mul(decimal.NewFromInt(100)).IntPart()
}
