package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/colorfest/ticket-booking/internal/payment"
	"github.com/colorfest/ticket-booking/internal/repository"
	"github.com/colorfest/ticket-booking/internal/service"
)

// CheckoutHandler exposes the two booking-core operations over HTTP:
// reservation (checkout) and payment confirmation.  All invariants live
// in the service; this layer binds requests and maps error kinds onto
// status codes.
type CheckoutHandler struct {
	Bookings      *service.BookingService
	PaymentBypass bool
	GatewayKeyID  string // public key id the payment widget needs
}

// checkoutRequest is the body of POST /v1/events/:id/checkout.
type checkoutRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	Items         []struct {
		TicketTypeID uint64 `json:"ticket_type_id"`
		Quantity     int64  `json:"quantity"`
	} `json:"items"`
}

// Checkout handles POST /v1/events/:id/checkout.  It reserves the
// requested quantities as a pending order and returns what the payment
// widget needs.  Clients must keep the returned order_id in their
// session: reloading the payment page replays the display step and never
// re-runs reservation.
func (h *CheckoutHandler) Checkout(c echo.Context) error {
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || eventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var body checkoutRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	items := make(map[uint64]int64, len(body.Items))
	for _, it := range body.Items {
		if it.Quantity == 0 {
			continue // unselected tiers arrive as zero rows from the form
		}
		items[it.TicketTypeID] += it.Quantity
	}

	result, err := h.Bookings.Reserve(c.Request().Context(), eventID, service.Customer{
		Name:  body.CustomerName,
		Email: body.CustomerEmail,
		Phone: body.CustomerPhone,
	}, items)
	switch {
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrEventNotFound), errors.Is(err, repository.ErrTicketTypeNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrInsufficientStock):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, payment.ErrGateway):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment gateway unavailable, please retry"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"order_id":     result.OrderID,
		"amount":       result.AmountMinorUnits,
		"amount_major": result.Total.StringFixed(2),
		"currency":     result.Currency,
		"key_id":       h.GatewayKeyID,
		"bypass":       h.PaymentBypass,
	})
}

// VerifyPayment handles POST /v1/payments/verify, the callback posted
// after the customer completes (or fakes, in bypass mode) payment.  It
// is safe to call repeatedly with the same order id: a replayed
// confirmation returns the same paid set without double-charging stock.
func (h *CheckoutHandler) VerifyPayment(c echo.Context) error {
	var proof payment.Proof
	if err := c.Bind(&proof); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if proof.OrderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order_id is required"})
	}
	if h.PaymentBypass && proof.PaymentID == "" {
		// Bypass checkouts have no gateway-issued payment id; synthesize
		// one tied to the order.
		proof.PaymentID = "bypassed_" + proof.OrderID
	}

	settled, err := h.Bookings.Confirm(c.Request().Context(), proof)
	switch {
	case errors.Is(err, service.ErrVerificationFailed):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "invalid payment signature"})
	case errors.Is(err, service.ErrOrderNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	case errors.Is(err, repository.ErrInsufficientStock):
		// Money may have moved: the order stays pending and support takes
		// over, so tell the payer explicitly rather than failing silently.
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "tickets sold out before confirmation; your order is held for manual review, you will be contacted",
		})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	items := make([]PublicTicket, 0, len(settled))
	for _, d := range settled {
		items = append(items, PublicTicket{
			BookingID:    d.ID,
			CustomerName: d.CustomerName,
			TicketName:   d.TicketName,
			Quantity:     d.Quantity,
			Amount:       d.TotalAmount.StringFixed(2),
			PaymentID:    d.PaymentID,
			EventTitle:   d.EventTitle,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"order_id": proof.OrderID, "items": items})
}
