package handler

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/colorfest/ticket-booking/internal/model"
	"github.com/colorfest/ticket-booking/internal/repository"
	"github.com/colorfest/ticket-booking/internal/utils"
)

// OrganizerHandler implements the single-organizer admin API: login,
// event and ticket-tier management, and the per-event bookings
// dashboard.  The account itself comes from configuration; this system
// serves one festival team, not arbitrary tenants.
type OrganizerHandler struct {
	EventRepo   *repository.EventRepo
	TicketRepo  *repository.TicketTypeRepo
	BookingRepo *repository.BookingRepo

	Email        string // configured organizer login
	PasswordHash string // bcrypt hash computed at startup
	JWTSecret    string
	AccessTTLMin int
}

// Login handles POST /v1/auth/login.  Credentials are checked against
// the configured organizer account; on success a short-lived organizer
// JWT is returned.
func (h *OrganizerHandler) Login(c echo.Context) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	emailOK := subtle.ConstantTimeCompare([]byte(body.Email), []byte(h.Email)) == 1
	passOK := utils.VerifyPassword(h.PasswordHash, body.Password)
	if !emailOK || !passOK {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	tok, err := utils.NewOrganizerToken(h.JWTSecret, h.Email, h.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue token"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token": tok.Token,
		"expires_at":   tok.Exp.Format(time.RFC3339),
	})
}

// eventRequest is the body for creating or updating an event.
type eventRequest struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	VenueName    string    `json:"venue_name"`
	VenueAddress string    `json:"venue_address"`
	StartsAt     time.Time `json:"starts_at"`
	IsPublished  bool      `json:"is_published"`
}

// ListAllEvents handles GET /v1/organizer/events, including unpublished
// drafts.
func (h *OrganizerHandler) ListAllEvents(c echo.Context) error {
	events, err := h.EventRepo.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": events})
}

// CreateEvent handles POST /v1/organizer/events.
func (h *OrganizerHandler) CreateEvent(c echo.Context) error {
	var body eventRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Title == "" || body.VenueName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and venue_name are required"})
	}
	ev := model.Event{
		Title:        body.Title,
		Description:  body.Description,
		VenueName:    body.VenueName,
		VenueAddress: body.VenueAddress,
		StartsAt:     body.StartsAt,
		IsPublished:  body.IsPublished,
	}
	if err := h.EventRepo.Create(c.Request().Context(), &ev); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, ev)
}

// UpdateEvent handles PUT /v1/organizer/events/:id.
func (h *OrganizerHandler) UpdateEvent(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var body eventRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ev := model.Event{
		ID:           id,
		Title:        body.Title,
		Description:  body.Description,
		VenueName:    body.VenueName,
		VenueAddress: body.VenueAddress,
		StartsAt:     body.StartsAt,
		IsPublished:  body.IsPublished,
	}
	if err := h.EventRepo.Update(c.Request().Context(), &ev); err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, ev)
}

// DeleteEvent handles DELETE /v1/organizer/events/:id.  Ticket tiers
// and bookings cascade.
func (h *OrganizerHandler) DeleteEvent(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	if err := h.EventRepo.Delete(c.Request().Context(), id); err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ticketRequest is the body for creating or updating a ticket tier.
// Price travels as a decimal string ("499.00") to avoid float drift.
type ticketRequest struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	Price             string `json:"price"`
	QuantityAvailable int64  `json:"quantity_available"`
}

func (r ticketRequest) parsePrice() (decimal.Decimal, bool) {
	p, err := decimal.NewFromString(r.Price)
	if err != nil || p.IsNegative() {
		return decimal.Zero, false
	}
	return p, true
}

// CreateTicketType handles POST /v1/organizer/events/:id/tickets.
func (h *OrganizerHandler) CreateTicketType(c echo.Context) error {
	ctx := c.Request().Context()
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || eventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	if _, err := h.EventRepo.GetByID(ctx, eventID); err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	var body ticketRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	price, ok := body.parsePrice()
	if body.Name == "" || !ok || body.QuantityAvailable < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, non-negative price and quantity are required"})
	}
	t := model.TicketType{
		EventID:           eventID,
		Name:              body.Name,
		Description:       body.Description,
		Price:             price,
		QuantityAvailable: body.QuantityAvailable,
	}
	if err := h.TicketRepo.Create(ctx, &t); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, t)
}

// UpdateTicketType handles PUT /v1/organizer/tickets/:id.
func (h *OrganizerHandler) UpdateTicketType(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	var body ticketRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	price, ok := body.parsePrice()
	if body.Name == "" || !ok || body.QuantityAvailable < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, non-negative price and quantity are required"})
	}
	t := model.TicketType{
		ID:                id,
		Name:              body.Name,
		Description:       body.Description,
		Price:             price,
		QuantityAvailable: body.QuantityAvailable,
	}
	if err := h.TicketRepo.Update(c.Request().Context(), &t); err != nil {
		if err == repository.ErrTicketTypeNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket type not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, t)
}

// DeleteTicketType handles DELETE /v1/organizer/tickets/:id.
func (h *OrganizerHandler) DeleteTicketType(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	if err := h.TicketRepo.Delete(c.Request().Context(), id); err != nil {
		if err == repository.ErrTicketTypeNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket type not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ListEventBookings handles GET /v1/organizer/events/:id/bookings, the
// sales dashboard.  Stale pendings older than the TTL disappear from
// this listing once any reservation for the event has run the sweep.
func (h *OrganizerHandler) ListEventBookings(c echo.Context) error {
	ctx := c.Request().Context()
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || eventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	if _, err := h.EventRepo.GetByID(ctx, eventID); err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	bookings, err := h.BookingRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": bookings})
}
