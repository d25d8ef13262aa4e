package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/colorfest/ticket-booking/internal/model"
)

// BookingRepo provides data access to the bookings table and owns the
// two transactional critical sections of the system: creating a pending
// batch at reservation time and settling a batch at confirmation time.
// Settlement is the only place quantity_available is decremented, and it
// happens under the ticket-type row lock so concurrent confirmations for
// the same tier serialize; the loser of the race observes the winner's
// decrement and is rejected instead of overselling.
type BookingRepo struct {
	db      *sql.DB
	tickets *TicketTypeRepo
}

// NewBookingRepo returns a BookingRepo bound to the given database.  The
// ticket repository is used for the locked availability re-check and the
// decrement inside settlement transactions.
func NewBookingRepo(db *sql.DB, tickets *TicketTypeRepo) *BookingRepo {
	return &BookingRepo{db: db, tickets: tickets}
}

const bookingDetailQuery = `SELECT b.id, b.ticket_type_id, b.customer_name, b.customer_email, b.customer_phone,
	       b.quantity, b.total_amount, b.order_id, COALESCE(b.payment_id, ''), b.status, b.created_at,
	       t.name, t.event_id, e.title
	FROM bookings b
	JOIN ticket_types t ON t.id = b.ticket_type_id
	JOIN events e ON e.id = t.event_id`

func scanBookingDetail(row interface{ Scan(...any) error }) (model.BookingDetail, error) {
	var d model.BookingDetail
	err := row.Scan(&d.ID, &d.TicketTypeID, &d.CustomerName, &d.CustomerEmail, &d.CustomerPhone,
		&d.Quantity, &d.TotalAmount, &d.OrderID, &d.PaymentID, &d.Status, &d.CreatedAt,
		&d.TicketName, &d.EventID, &d.EventTitle)
	return d, err
}

// CreatePendingBatch inserts one pending booking per requested item
// inside a single transaction.  Before inserting, it re-reads the
// availability of every referenced tier; if any tier cannot cover its
// requested quantity the whole batch is aborted with
// ErrInsufficientStock and no rows are created.  The read is not locked:
// it narrows the race window left by the caller's pre-check, while the
// binding check stays in SettleOrder.  Nothing is decremented here; a
// pending booking holds no stock.
func (r *BookingRepo) CreatePendingBatch(ctx context.Context, bookings []model.Booking) error {
	if len(bookings) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	need := make(map[uint64]int64, len(bookings))
	ids := make([]uint64, 0, len(bookings))
	for _, b := range bookings {
		if _, seen := need[b.TicketTypeID]; !seen {
			ids = append(ids, b.TicketTypeID)
		}
		need[b.TicketTypeID] += b.Quantity
	}
	avail, err := r.availabilityTx(ctx, tx, ids)
	if err != nil {
		return err
	}
	for id, qty := range need {
		have, ok := avail[id]
		if !ok {
			return ErrTicketTypeNotFound
		}
		if have < qty {
			return ErrInsufficientStock
		}
	}

	query := `INSERT INTO bookings (ticket_type_id, customer_name, customer_email, customer_phone,
		quantity, total_amount, order_id, status) VALUES `
	args := make([]interface{}, 0, len(bookings)*8)
	for i, b := range bookings {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, b.TicketTypeID, b.CustomerName, b.CustomerEmail, b.CustomerPhone,
			b.Quantity, b.TotalAmount, b.OrderID, model.BookingPending)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// availabilityTx reads the current quantity_available for the given
// tiers inside the transaction, without locking the rows.
func (r *BookingRepo) availabilityTx(ctx context.Context, tx *sql.Tx, ids []uint64) (map[uint64]int64, error) {
	if len(ids) == 0 {
		return map[uint64]int64{}, nil
	}
	query := `SELECT id, quantity_available FROM ticket_types WHERE id IN (` + placeholders(len(ids)) + `)`
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64]int64, len(ids))
	for rows.Next() {
		var id uint64
		var qty int64
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, err
		}
		out[id] = qty
	}
	return out, rows.Err()
}

// SettleOrder transitions every pending booking of an order to paid and
// decrements the referenced tiers, all inside one transaction:
//
//  1. The order's pending rows are read FOR UPDATE.
//  2. Every referenced ticket-type row is locked FOR UPDATE, which
//     serializes concurrent settlements touching the same tier.
//  3. The locked availability is checked against the batch; if any tier
//     falls short the transaction aborts with ErrInsufficientStock and
//     the bookings stay pending for manual reconciliation (the customer
//     may already have been charged by the gateway).
//  4. Otherwise each booking is marked paid with the payment id attached
//     and each tier decremented, then the transaction commits.
//
// When the order has no pending rows at all, ErrNoPendingBookings is
// returned so the caller can distinguish a replayed confirmation from an
// unknown order.
func (r *BookingRepo) SettleOrder(ctx context.Context, orderID, paymentID string) ([]model.BookingDetail, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, ticket_type_id, quantity FROM bookings WHERE order_id = ? AND status = ? FOR UPDATE`,
		orderID, model.BookingPending)
	if err != nil {
		return nil, err
	}
	type pendingRow struct {
		id           uint64
		ticketTypeID uint64
		quantity     int64
	}
	var pendings []pendingRow
	for rows.Next() {
		var p pendingRow
		if scanErr := rows.Scan(&p.id, &p.ticketTypeID, &p.quantity); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		pendings = append(pendings, p)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(pendings) == 0 {
		return nil, ErrNoPendingBookings
	}

	need := make(map[uint64]int64)
	ids := make([]uint64, 0, len(pendings))
	for _, p := range pendings {
		if _, seen := need[p.ticketTypeID]; !seen {
			ids = append(ids, p.ticketTypeID)
		}
		need[p.ticketTypeID] += p.quantity
	}
	locked, err := r.tickets.LockByIDsTx(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	for id, qty := range need {
		if locked[id].QuantityAvailable < qty {
			return nil, ErrInsufficientStock
		}
	}

	for _, p := range pendings {
		if _, err := tx.ExecContext(ctx,
			`UPDATE bookings SET status = ?, payment_id = ? WHERE id = ?`,
			model.BookingPaid, paymentID, p.id); err != nil {
			return nil, err
		}
	}
	for id, qty := range need {
		if err := r.tickets.DecrementTx(ctx, tx, id, qty); err != nil {
			return nil, err
		}
	}

	// Read the settled rows back before committing so the caller gets
	// the exact state that was persisted.
	settled := make([]model.BookingDetail, 0, len(pendings))
	drows, err := tx.QueryContext(ctx,
		bookingDetailQuery+` WHERE b.order_id = ? AND b.status = ? ORDER BY b.id ASC`,
		orderID, model.BookingPaid)
	if err != nil {
		return nil, err
	}
	for drows.Next() {
		d, scanErr := scanBookingDetail(drows)
		if scanErr != nil {
			drows.Close()
			return nil, scanErr
		}
		settled = append(settled, d)
	}
	if err := drows.Close(); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return settled, nil
}

// FailOrder marks the order's pending bookings as failed after a
// rejected payment proof.  Paid rows are never touched, so calling it
// repeatedly (duplicate failure callbacks) is safe.  Returns the number
// of rows transitioned.
func (r *BookingRepo) FailOrder(ctx context.Context, orderID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE order_id = ? AND status = ?`,
		model.BookingFailed, orderID, model.BookingPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListDetailsByOrder returns the order's bookings with ticket and event
// names attached, optionally filtered by status (empty string means all).
func (r *BookingRepo) ListDetailsByOrder(ctx context.Context, orderID, status string) ([]model.BookingDetail, error) {
	query := bookingDetailQuery + ` WHERE b.order_id = ?`
	args := []interface{}{orderID}
	if status != "" {
		query += ` AND b.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY b.id ASC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]model.BookingDetail, 0)
	for rows.Next() {
		d, err := scanBookingDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// GetDetail loads one booking with its ticket and event names.  Returns
// sql.ErrNoRows when the id does not exist; ticket delivery treats that
// as a permanently failed job.
func (r *BookingRepo) GetDetail(ctx context.Context, id uint64) (*model.BookingDetail, error) {
	row := r.db.QueryRowContext(ctx, bookingDetailQuery+` WHERE b.id = ?`, id)
	d, err := scanBookingDetail(row)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListByEvent returns all bookings of an event, newest first, for the
// organizer dashboard.
func (r *BookingRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		bookingDetailQuery+` WHERE t.event_id = ? ORDER BY b.created_at DESC, b.id DESC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]model.BookingDetail, 0)
	for rows.Next() {
		d, err := scanBookingDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// PurgeStale deletes the event's pending bookings created before the
// cutoff.  Pending rows hold no stock, so this is row hygiene for the
// dashboard and availability listings, not a resource release.  Returns
// the number of rows removed.
func (r *BookingRepo) PurgeStale(ctx context.Context, eventID uint64, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE b FROM bookings b
		 JOIN ticket_types t ON t.id = b.ticket_type_id
		 WHERE t.event_id = ? AND b.status = ? AND b.created_at < ?`,
		eventID, model.BookingPending, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PurgeCustomerPending deletes the customer's own prior pending bookings
// for the event regardless of age, so an abandoned checkout does not
// pile up duplicate pending batches when the customer retries.
func (r *BookingRepo) PurgeCustomerPending(ctx context.Context, eventID uint64, customerEmail string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE b FROM bookings b
		 JOIN ticket_types t ON t.id = b.ticket_type_id
		 WHERE t.event_id = ? AND b.customer_email = ? AND b.status = ?`,
		eventID, customerEmail, model.BookingPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
