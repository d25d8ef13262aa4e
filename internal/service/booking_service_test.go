package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/colorfest/ticket-booking/internal/model"
	"github.com/colorfest/ticket-booking/internal/notify"
	"github.com/colorfest/ticket-booking/internal/payment"
	"github.com/colorfest/ticket-booking/internal/repository"
	"github.com/colorfest/ticket-booking/internal/service"
)

type mockEventStore struct{ mock.Mock }

func (m *mockEventStore) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	args := m.Called(ctx, id)
	if ev := args.Get(0); ev != nil {
		return ev.(*model.Event), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockTicketStore struct{ mock.Mock }

func (m *mockTicketStore) GetByIDsForEvent(ctx context.Context, eventID uint64, ids []uint64) (map[uint64]model.TicketType, error) {
	args := m.Called(ctx, eventID, ids)
	if tiers := args.Get(0); tiers != nil {
		return tiers.(map[uint64]model.TicketType), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockBookingStore struct{ mock.Mock }

func (m *mockBookingStore) CreatePendingBatch(ctx context.Context, bookings []model.Booking) error {
	return m.Called(ctx, bookings).Error(0)
}

func (m *mockBookingStore) SettleOrder(ctx context.Context, orderID, paymentID string) ([]model.BookingDetail, error) {
	args := m.Called(ctx, orderID, paymentID)
	if settled := args.Get(0); settled != nil {
		return settled.([]model.BookingDetail), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookingStore) FailOrder(ctx context.Context, orderID string) (int64, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBookingStore) ListDetailsByOrder(ctx context.Context, orderID, status string) ([]model.BookingDetail, error) {
	args := m.Called(ctx, orderID, status)
	if details := args.Get(0); details != nil {
		return details.([]model.BookingDetail), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookingStore) PurgeStale(ctx context.Context, eventID uint64, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, eventID, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBookingStore) PurgeCustomerPending(ctx context.Context, eventID uint64, customerEmail string) (int64, error) {
	args := m.Called(ctx, eventID, customerEmail)
	return args.Get(0).(int64), args.Error(1)
}

type mockGateway struct{ mock.Mock }

func (m *mockGateway) CreateOrder(ctx context.Context, amountMinorUnits int64, currency, receipt string) (string, error) {
	args := m.Called(ctx, amountMinorUnits, currency, receipt)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) Verify(proof payment.Proof) bool {
	return m.Called(proof).Bool(0)
}

// capturePublisher records published events on a channel so tests can
// wait for the detached delivery goroutine.
type capturePublisher struct {
	events chan notify.TicketIssuedEvent
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{events: make(chan notify.TicketIssuedEvent, 16)}
}

func (p *capturePublisher) PublishTicketIssued(_ context.Context, ev notify.TicketIssuedEvent) error {
	p.events <- ev
	return nil
}

func publishedEvent(t *testing.T, p *capturePublisher) notify.TicketIssuedEvent {
	t.Helper()
	select {
	case ev := <-p.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published event")
		return notify.TicketIssuedEvent{}
	}
}

func newTestService(t *testing.T) (*service.BookingService, *mockEventStore, *mockTicketStore, *mockBookingStore, *mockGateway, *capturePublisher) {
	t.Helper()
	events := &mockEventStore{}
	tickets := &mockTicketStore{}
	bookings := &mockBookingStore{}
	gateway := &mockGateway{}
	publisher := newCapturePublisher()
	svc := service.NewBookingService(events, tickets, bookings, gateway, publisher, service.Options{})
	return svc, events, tickets, bookings, gateway, publisher
}

func publishedEventFixture() *model.Event {
	return &model.Event{ID: 7, Title: "Color Festival", IsPublished: true}
}

func tierFixture() map[uint64]model.TicketType {
	return map[uint64]model.TicketType{
		3: {ID: 3, EventID: 7, Name: "Early Bird", Price: decimal.RequireFromString("499.00"), QuantityAvailable: 50},
		5: {ID: 5, EventID: 7, Name: "VIP", Price: decimal.RequireFromString("1500.00"), QuantityAvailable: 10},
	}
}

func validCustomer() service.Customer {
	return service.Customer{Name: "Asha Rao", Email: "asha@example.com", Phone: "9876543210"}
}

func TestReserve_RejectsBadCustomer(t *testing.T) {
	svc, _, _, _, _, _ := newTestService(t)
	ctx := context.Background()
	items := map[uint64]int64{3: 2}

	cases := []struct {
		name     string
		customer service.Customer
	}{
		{"missing name", service.Customer{Email: "a@b.c", Phone: "1"}},
		{"missing email", service.Customer{Name: "A", Phone: "1"}},
		{"bad email", service.Customer{Name: "A", Email: "not-an-email", Phone: "1"}},
		{"missing phone", service.Customer{Name: "A", Email: "a@b.c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Reserve(ctx, 7, tc.customer, items)
			assert.ErrorIs(t, err, service.ErrValidation)
		})
	}
}

func TestReserve_RejectsEmptyAndNonPositiveQuantities(t *testing.T) {
	svc, _, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Reserve(ctx, 7, validCustomer(), map[uint64]int64{})
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = svc.Reserve(ctx, 7, validCustomer(), map[uint64]int64{3: 0})
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = svc.Reserve(ctx, 7, validCustomer(), map[uint64]int64{3: -2})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestReserve_UnpublishedEventIsNotFound(t *testing.T) {
	svc, events, _, _, _, _ := newTestService(t)
	ctx := context.Background()
	events.On("GetByID", ctx, uint64(7)).Return(&model.Event{ID: 7, IsPublished: false}, nil)

	_, err := svc.Reserve(ctx, 7, validCustomer(), map[uint64]int64{3: 1})
	assert.ErrorIs(t, err, repository.ErrEventNotFound)
}

func TestReserve_PreCheckInsufficientStock(t *testing.T) {
	svc, events, tickets, _, gateway, _ := newTestService(t)
	ctx := context.Background()
	events.On("GetByID", ctx, uint64(7)).Return(publishedEventFixture(), nil)
	tickets.On("GetByIDsForEvent", ctx, uint64(7), []uint64{5}).Return(tierFixture(), nil)

	_, err := svc.Reserve(ctx, 7, validCustomer(), map[uint64]int64{5: 11})
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)
	gateway.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReserve_GatewayFailureWritesNothing(t *testing.T) {
	svc, events, tickets, bookings, gateway, _ := newTestService(t)
	ctx := context.Background()
	events.On("GetByID", ctx, uint64(7)).Return(publishedEventFixture(), nil)
	tickets.On("GetByIDsForEvent", ctx, uint64(7), []uint64{3}).Return(tierFixture(), nil)
	bookings.On("PurgeStale", ctx, uint64(7), mock.AnythingOfType("time.Time")).Return(int64(0), nil)
	bookings.On("PurgeCustomerPending", ctx, uint64(7), "asha@example.com").Return(int64(0), nil)
	gateway.On("CreateOrder", mock.Anything, int64(99800), "INR", mock.AnythingOfType("string")).
		Return("", payment.ErrGateway)

	_, err := svc.Reserve(ctx, 7, validCustomer(), map[uint64]int64{3: 2})
	assert.ErrorIs(t, err, payment.ErrGateway)
	bookings.AssertNotCalled(t, "CreatePendingBatch", mock.Anything, mock.Anything)
}

func TestReserve_Success(t *testing.T) {
	svc, events, tickets, bookings, gateway, _ := newTestService(t)
	ctx := context.Background()
	events.On("GetByID", ctx, uint64(7)).Return(publishedEventFixture(), nil)
	tickets.On("GetByIDsForEvent", ctx, uint64(7), []uint64{3, 5}).Return(tierFixture(), nil)
	bookings.On("PurgeStale", ctx, uint64(7), mock.AnythingOfType("time.Time")).Return(int64(2), nil)
	bookings.On("PurgeCustomerPending", ctx, uint64(7), "asha@example.com").Return(int64(0), nil)
	// 2 * 499.00 + 1 * 1500.00 = 2498.00 -> 249800 paise
	gateway.On("CreateOrder", mock.Anything, int64(249800), "INR", mock.AnythingOfType("string")).
		Return("order_test_123", nil)
	bookings.On("CreatePendingBatch", ctx, mock.MatchedBy(func(rows []model.Booking) bool {
		if len(rows) != 2 {
			return false
		}
		// sorted by ticket type id
		return rows[0].TicketTypeID == 3 && rows[0].Quantity == 2 &&
			rows[0].OrderID == "order_test_123" && rows[0].Status == model.BookingPending &&
			rows[0].TotalAmount.Equal(decimal.RequireFromString("998.00")) &&
			rows[1].TicketTypeID == 5 && rows[1].Quantity == 1 &&
			rows[1].TotalAmount.Equal(decimal.RequireFromString("1500.00"))
	})).Return(nil)

	res, err := svc.Reserve(ctx, 7, validCustomer(), map[uint64]int64{3: 2, 5: 1})
	require.NoError(t, err)
	assert.Equal(t, "order_test_123", res.OrderID)
	assert.Equal(t, int64(249800), res.AmountMinorUnits)
	assert.Equal(t, "INR", res.Currency)
	assert.True(t, res.Total.Equal(decimal.RequireFromString("2498.00")))
	bookings.AssertExpectations(t)
}

func TestConfirm_RejectedProofFailsOrder(t *testing.T) {
	svc, _, _, bookings, gateway, _ := newTestService(t)
	ctx := context.Background()
	proof := payment.Proof{OrderID: "order_test_123", PaymentID: "pay_1", Signature: "bogus"}
	gateway.On("Verify", proof).Return(false)
	bookings.On("FailOrder", ctx, "order_test_123").Return(int64(2), nil)

	_, err := svc.Confirm(ctx, proof)
	assert.ErrorIs(t, err, service.ErrVerificationFailed)
	bookings.AssertExpectations(t)
}

func TestConfirm_SettlesAndSchedulesDelivery(t *testing.T) {
	svc, _, _, bookings, gateway, publisher := newTestService(t)
	ctx := context.Background()
	proof := payment.Proof{OrderID: "order_test_123", PaymentID: "pay_1", Signature: "good"}
	settled := []model.BookingDetail{
		{Booking: model.Booking{ID: 11, OrderID: "order_test_123", Status: model.BookingPaid}},
		{Booking: model.Booking{ID: 12, OrderID: "order_test_123", Status: model.BookingPaid}},
	}
	gateway.On("Verify", proof).Return(true)
	bookings.On("SettleOrder", ctx, "order_test_123", "pay_1").Return(settled, nil)

	got, err := svc.Confirm(ctx, proof)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	first := publishedEvent(t, publisher)
	second := publishedEvent(t, publisher)
	assert.ElementsMatch(t, []uint64{11, 12}, []uint64{first.BookingID, second.BookingID})
	assert.Equal(t, "order_test_123", first.OrderID)
}

func TestConfirm_ReplayReturnsPaidSetWithoutRepublishing(t *testing.T) {
	svc, _, _, bookings, gateway, publisher := newTestService(t)
	ctx := context.Background()
	proof := payment.Proof{OrderID: "order_test_123", PaymentID: "pay_1", Signature: "good"}
	paid := []model.BookingDetail{
		{Booking: model.Booking{ID: 11, OrderID: "order_test_123", Status: model.BookingPaid}},
	}
	gateway.On("Verify", proof).Return(true)
	bookings.On("SettleOrder", ctx, "order_test_123", "pay_1").Return(nil, repository.ErrNoPendingBookings)
	bookings.On("ListDetailsByOrder", ctx, "order_test_123", model.BookingPaid).Return(paid, nil)

	got, err := svc.Confirm(ctx, proof)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, uint64(11), got[0].ID)

	select {
	case ev := <-publisher.events:
		t.Fatalf("unexpected publish for booking %d on replay", ev.BookingID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConfirm_UnknownOrder(t *testing.T) {
	svc, _, _, bookings, gateway, _ := newTestService(t)
	ctx := context.Background()
	proof := payment.Proof{OrderID: "order_nope", PaymentID: "pay_1", Signature: "good"}
	gateway.On("Verify", proof).Return(true)
	bookings.On("SettleOrder", ctx, "order_nope", "pay_1").Return(nil, repository.ErrNoPendingBookings)
	bookings.On("ListDetailsByOrder", ctx, "order_nope", model.BookingPaid).Return([]model.BookingDetail{}, nil)

	_, err := svc.Confirm(ctx, proof)
	assert.ErrorIs(t, err, service.ErrOrderNotFound)
}

func TestConfirm_OversellLeavesOrderPending(t *testing.T) {
	svc, _, _, bookings, gateway, publisher := newTestService(t)
	ctx := context.Background()
	proof := payment.Proof{OrderID: "order_test_123", PaymentID: "pay_1", Signature: "good"}
	gateway.On("Verify", proof).Return(true)
	bookings.On("SettleOrder", ctx, "order_test_123", "pay_1").Return(nil, repository.ErrInsufficientStock)

	_, err := svc.Confirm(ctx, proof)
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)
	bookings.AssertNotCalled(t, "FailOrder", mock.Anything, mock.Anything)

	select {
	case ev := <-publisher.events:
		t.Fatalf("unexpected publish for booking %d after oversell", ev.BookingID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConfirm_FailOrderErrorStillRejects(t *testing.T) {
	svc, _, _, bookings, gateway, _ := newTestService(t)
	ctx := context.Background()
	proof := payment.Proof{OrderID: "order_test_123", PaymentID: "pay_1", Signature: "bogus"}
	gateway.On("Verify", proof).Return(false)
	bookings.On("FailOrder", ctx, "order_test_123").Return(int64(0), errors.New("db down"))

	_, err := svc.Confirm(ctx, proof)
	assert.ErrorIs(t, err, service.ErrVerificationFailed)
}
