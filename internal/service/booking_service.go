// Package service implements the booking reservation and settlement
// core: the only part of the system with real invariants.  Stock is
// never decremented at reservation time; the authoritative availability
// check and the decrement both happen inside the settlement transaction
// under the ticket-type row lock.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/colorfest/ticket-booking/internal/model"
	"github.com/colorfest/ticket-booking/internal/monitoring"
	"github.com/colorfest/ticket-booking/internal/notify"
	"github.com/colorfest/ticket-booking/internal/payment"
	"github.com/colorfest/ticket-booking/internal/repository"
)

// ErrValidation marks malformed customer input.  Handlers translate it
// into a 400 and re-prompt the user.
var ErrValidation = errors.New("validation error")

// ErrVerificationFailed marks a rejected payment proof.  The order's
// pending bookings have been transitioned to failed when it is returned.
var ErrVerificationFailed = errors.New("payment verification failed")

// ErrOrderNotFound is returned by Confirm for an order id with no
// bookings in any state.
var ErrOrderNotFound = errors.New("order not found")

// EventStore is the slice of the event repository the service needs.
type EventStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
}

// TicketStore reads ticket tiers for the unlocked reservation pre-check.
type TicketStore interface {
	GetByIDsForEvent(ctx context.Context, eventID uint64, ids []uint64) (map[uint64]model.TicketType, error)
}

// BookingStore owns booking rows and the two transactional critical
// sections (pending-batch creation and settlement).
type BookingStore interface {
	CreatePendingBatch(ctx context.Context, bookings []model.Booking) error
	SettleOrder(ctx context.Context, orderID, paymentID string) ([]model.BookingDetail, error)
	FailOrder(ctx context.Context, orderID string) (int64, error)
	ListDetailsByOrder(ctx context.Context, orderID, status string) ([]model.BookingDetail, error)
	PurgeStale(ctx context.Context, eventID uint64, cutoff time.Time) (int64, error)
	PurgeCustomerPending(ctx context.Context, eventID uint64, customerEmail string) (int64, error)
}

// Customer is the checkout contact captured with every booking row.
type Customer struct {
	Name  string
	Email string
	Phone string
}

// ReserveResult is what the checkout page needs to launch payment.  The
// caller must stash OrderID in its session so a page reload replays the
// display step instead of re-running Reserve.
type ReserveResult struct {
	OrderID          string
	AmountMinorUnits int64
	Total            decimal.Decimal
	Currency         string
}

// Options tunes the service.  Zero values fall back to the defaults
// below.
type Options struct {
	PendingTTL     time.Duration // age after which pending bookings are purged
	GatewayTimeout time.Duration // bound on payment gateway calls
	Currency       string
}

const (
	defaultPendingTTL     = 20 * time.Minute
	defaultGatewayTimeout = 10 * time.Second
	defaultCurrency       = "INR"
)

// BookingService coordinates reservation and settlement across the
// stores, the payment gateway and the notification publisher.
type BookingService struct {
	events    EventStore
	tickets   TicketStore
	bookings  BookingStore
	gateway   payment.Gateway
	publisher notify.Publisher
	opts      Options
	now       func() time.Time
}

// NewBookingService wires the service.  All dependencies must be
// non-nil.
func NewBookingService(events EventStore, tickets TicketStore, bookings BookingStore, gateway payment.Gateway, publisher notify.Publisher, opts Options) *BookingService {
	if events == nil || tickets == nil || bookings == nil || gateway == nil || publisher == nil {
		panic("nil dependency passed to NewBookingService")
	}
	if opts.PendingTTL <= 0 {
		opts.PendingTTL = defaultPendingTTL
	}
	if opts.GatewayTimeout <= 0 {
		opts.GatewayTimeout = defaultGatewayTimeout
	}
	if opts.Currency == "" {
		opts.Currency = defaultCurrency
	}
	return &BookingService{
		events:    events,
		tickets:   tickets,
		bookings:  bookings,
		gateway:   gateway,
		publisher: publisher,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Reserve runs a checkout up to the point where the customer is handed
// off to the payment gateway:
//
//   - validates the customer and requested quantities,
//   - pre-checks availability against the current (unlocked) counters
//     to fail fast (advisory only, the binding check is Confirm's),
//   - sweeps stale pending rows for the event plus this customer's own
//     prior pendings,
//   - opens the payment order (bounded timeout; nothing has been
//     written yet, so a gateway failure leaves no state behind),
//   - inserts the pending batch in one all-or-nothing transaction.
func (s *BookingService) Reserve(ctx context.Context, eventID uint64, customer Customer, items map[uint64]int64) (*ReserveResult, error) {
	if err := validateCustomer(customer); err != nil {
		monitoring.ReservationOutcome("validation_error")
		return nil, err
	}
	if len(items) == 0 {
		monitoring.ReservationOutcome("validation_error")
		return nil, fmt.Errorf("%w: no tickets selected", ErrValidation)
	}
	ids := make([]uint64, 0, len(items))
	for id, qty := range items {
		if qty <= 0 {
			monitoring.ReservationOutcome("validation_error")
			return nil, fmt.Errorf("%w: quantity must be a positive integer", ErrValidation)
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		monitoring.ReservationOutcome("error")
		return nil, err
	}
	if !event.IsPublished {
		monitoring.ReservationOutcome("error")
		return nil, repository.ErrEventNotFound
	}

	tiers, err := s.tickets.GetByIDsForEvent(ctx, eventID, ids)
	if err != nil {
		monitoring.ReservationOutcome("error")
		return nil, err
	}

	// Cheap unlocked pre-check for immediate user feedback.  Passing it
	// does not guarantee stock at settlement time.
	total := decimal.Zero
	for _, id := range ids {
		tier := tiers[id]
		if tier.QuantityAvailable < items[id] {
			monitoring.ReservationOutcome("insufficient_stock")
			return nil, fmt.Errorf("%w: %s", repository.ErrInsufficientStock, tier.Name)
		}
		total = total.Add(tier.Price.Mul(decimal.NewFromInt(items[id])))
	}

	cutoff := s.now().Add(-s.opts.PendingTTL)
	if purged, err := s.bookings.PurgeStale(ctx, eventID, cutoff); err != nil {
		monitoring.ReservationOutcome("error")
		return nil, err
	} else if purged > 0 {
		log.Printf("booking: purged %d stale pending bookings for event %d", purged, eventID)
	}
	if _, err := s.bookings.PurgeCustomerPending(ctx, eventID, customer.Email); err != nil {
		monitoring.ReservationOutcome("error")
		return nil, err
	}

	amountMinor := total.Mul(decimal.NewFromInt(100)).IntPart()
	gwCtx, cancel := context.WithTimeout(ctx, s.opts.GatewayTimeout)
	defer cancel()
	started := time.Now()
	orderID, err := s.gateway.CreateOrder(gwCtx, amountMinor, s.opts.Currency, "rcpt_"+uuid.NewString())
	monitoring.ObserveGatewayLatency(time.Since(started).Seconds())
	if err != nil {
		monitoring.ReservationOutcome("gateway_error")
		return nil, err
	}

	bookings := make([]model.Booking, 0, len(ids))
	for _, id := range ids {
		tier := tiers[id]
		bookings = append(bookings, model.Booking{
			TicketTypeID:  id,
			CustomerName:  customer.Name,
			CustomerEmail: customer.Email,
			CustomerPhone: customer.Phone,
			Quantity:      items[id],
			TotalAmount:   tier.Price.Mul(decimal.NewFromInt(items[id])),
			OrderID:       orderID,
			Status:        model.BookingPending,
		})
	}
	if err := s.bookings.CreatePendingBatch(ctx, bookings); err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			monitoring.ReservationOutcome("insufficient_stock")
		} else {
			monitoring.ReservationOutcome("error")
		}
		return nil, err
	}

	monitoring.ReservationOutcome("created")
	return &ReserveResult{
		OrderID:          orderID,
		AmountMinorUnits: amountMinor,
		Total:            total,
		Currency:         s.opts.Currency,
	}, nil
}

// Confirm settles an order against a payment proof.
//
// A rejected proof marks the order's pending bookings failed (repeat
// calls are safe) and returns ErrVerificationFailed.  A valid proof
// settles the pending batch atomically; if the locked availability check
// fails the bookings stay pending for manual reconciliation, since the
// customer may already have paid.  A replayed confirmation (no pendings
// left but paid rows present) returns the existing paid set without
// error and without re-decrementing or re-notifying.
//
// Delivery jobs are dispatched only after the settlement transaction has
// committed, on a detached path whose failures are logged and counted
// but never surfaced to the payer.
func (s *BookingService) Confirm(ctx context.Context, proof payment.Proof) ([]model.BookingDetail, error) {
	if !s.gateway.Verify(proof) {
		if failed, err := s.bookings.FailOrder(ctx, proof.OrderID); err != nil {
			log.Printf("booking: marking order %s failed: %v", proof.OrderID, err)
		} else if failed > 0 {
			log.Printf("booking: order %s marked failed (%d bookings) after rejected proof", proof.OrderID, failed)
		}
		monitoring.SettlementOutcome("verification_failed")
		return nil, ErrVerificationFailed
	}

	settled, err := s.bookings.SettleOrder(ctx, proof.OrderID, proof.PaymentID)
	switch {
	case errors.Is(err, repository.ErrNoPendingBookings):
		paid, listErr := s.bookings.ListDetailsByOrder(ctx, proof.OrderID, model.BookingPaid)
		if listErr != nil {
			monitoring.SettlementOutcome("error")
			return nil, listErr
		}
		if len(paid) == 0 {
			monitoring.SettlementOutcome("error")
			return nil, ErrOrderNotFound
		}
		// Duplicate callback or resubmitted form: replay the result.
		monitoring.SettlementOutcome("replayed")
		return paid, nil
	case errors.Is(err, repository.ErrInsufficientStock):
		monitoring.OversellRejected()
		monitoring.SettlementOutcome("insufficient_stock")
		return nil, fmt.Errorf("order %s left pending for manual reconciliation: %w", proof.OrderID, err)
	case err != nil:
		monitoring.SettlementOutcome("error")
		return nil, err
	}

	monitoring.SettlementOutcome("settled")
	s.dispatchDelivery(settled)
	return settled, nil
}

// dispatchDelivery schedules one notification job per settled booking on
// a detached goroutine so a slow broker cannot block the confirmation
// response.  Once scheduled, each attempt runs to its own completion.
func (s *BookingService) dispatchDelivery(settled []model.BookingDetail) {
	events := make([]notify.TicketIssuedEvent, 0, len(settled))
	for _, b := range settled {
		events = append(events, notify.TicketIssuedEvent{BookingID: b.ID, OrderID: b.OrderID})
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, ev := range events {
			if err := s.publisher.PublishTicketIssued(ctx, ev); err != nil {
				log.Printf("booking: schedule delivery for booking %d: %v", ev.BookingID, err)
				monitoring.NotificationFailed()
			}
		}
	}()
}

func validateCustomer(c Customer) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: customer name is required", ErrValidation)
	}
	if strings.TrimSpace(c.Email) == "" || !strings.Contains(c.Email, "@") {
		return fmt.Errorf("%w: a valid customer email is required", ErrValidation)
	}
	if strings.TrimSpace(c.Phone) == "" {
		return fmt.Errorf("%w: customer phone is required", ErrValidation)
	}
	return nil
}
