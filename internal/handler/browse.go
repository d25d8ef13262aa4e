// Package handler exposes HTTP handlers for the public and organizer
// APIs.  This file defines the unauthenticated browse surface: published
// events, their ticket tiers with live availability, and paid-ticket
// retrieval by order id.  Responses contain only customer-safe fields.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/colorfest/ticket-booking/internal/model"
	"github.com/colorfest/ticket-booking/internal/notify"
	"github.com/colorfest/ticket-booking/internal/repository"
)

// BrowseHandler aggregates the repositories needed for unauthenticated
// browsing.
type BrowseHandler struct {
	EventRepo   *repository.EventRepo
	TicketRepo  *repository.TicketTypeRepo
	BookingRepo *repository.BookingRepo
}

// PublicEvent is an event exposed via the public API.
type PublicEvent struct {
	ID           uint64    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	VenueName    string    `json:"venue_name"`
	VenueAddress string    `json:"venue_address"`
	StartsAt     time.Time `json:"starts_at"`
}

// PublicTicketType is a ticket tier exposed via the public API.  Price
// is rendered with two decimals; QuantityAvailable is the live counter
// at read time.
type PublicTicketType struct {
	ID                uint64 `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	Price             string `json:"price"`
	QuantityAvailable int64  `json:"quantity_available"`
}

// PublicTicket is one paid booking rendered for ticket retrieval,
// including the QR payload the gate scans.
type PublicTicket struct {
	BookingID    uint64 `json:"booking_id"`
	CustomerName string `json:"customer_name"`
	TicketName   string `json:"ticket_name"`
	Quantity     int64  `json:"quantity"`
	Amount       string `json:"amount"`
	PaymentID    string `json:"payment_id"`
	EventTitle   string `json:"event_title"`
	QRPayload    string `json:"qr_payload"`
}

// ListEvents handles GET /v1/events.  It returns all published events,
// soonest first.
func (h *BrowseHandler) ListEvents(c echo.Context) error {
	events, err := h.EventRepo.ListPublished(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]PublicEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, PublicEvent{
			ID: ev.ID, Title: ev.Title, Description: ev.Description,
			VenueName: ev.VenueName, VenueAddress: ev.VenueAddress, StartsAt: ev.StartsAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// ListEventTickets handles GET /v1/events/:id/tickets.  It validates the
// event exists and is published, then returns its tiers with live price
// and availability.
func (h *BrowseHandler) ListEventTickets(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	event, err := h.EventRepo.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !event.IsPublished {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}
	tiers, err := h.TicketRepo.ListByEvent(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]PublicTicketType, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, PublicTicketType{
			ID: t.ID, Name: t.Name, Description: t.Description,
			Price: t.Price.StringFixed(2), QuantityAvailable: t.QuantityAvailable,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"event": event.Title, "items": out})
}

// GetOrderTickets handles GET /v1/orders/:order_id/tickets.  It returns
// the paid bookings of an order with their QR payloads so the customer
// can re-download tickets.  Pending or failed orders yield 404; only
// settled state is ever shown here.
func (h *BrowseHandler) GetOrderTickets(c echo.Context) error {
	orderID := c.Param("order_id")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	paid, err := h.BookingRepo.ListDetailsByOrder(c.Request().Context(), orderID, model.BookingPaid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if len(paid) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no paid tickets for this order"})
	}
	out := make([]PublicTicket, 0, len(paid))
	for _, d := range paid {
		out = append(out, PublicTicket{
			BookingID:    d.ID,
			CustomerName: d.CustomerName,
			TicketName:   d.TicketName,
			Quantity:     d.Quantity,
			Amount:       d.TotalAmount.StringFixed(2),
			PaymentID:    d.PaymentID,
			EventTitle:   d.EventTitle,
			QRPayload:    notify.QRPayload(d),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}
