package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/colorfest/ticket-booking/internal/model"
)

// TicketTypeRepo provides data access to the ticket_types table.  The
// quantity_available column is the contended resource of the whole
// system: plain reads of it are advisory only, and any decision that
// mutates it must go through LockByIDsTx so concurrent settlements for
// the same tier serialize on the row lock.
type TicketTypeRepo struct {
	db *sql.DB
}

// NewTicketTypeRepo returns a new TicketTypeRepo bound to the given database.
func NewTicketTypeRepo(db *sql.DB) *TicketTypeRepo { return &TicketTypeRepo{db: db} }

const ticketColumns = `id, event_id, name, price, quantity_available, description`

func scanTicketType(row interface{ Scan(...any) error }) (model.TicketType, error) {
	var t model.TicketType
	err := row.Scan(&t.ID, &t.EventID, &t.Name, &t.Price, &t.QuantityAvailable, &t.Description)
	return t, err
}

// ListByEvent returns all tiers of an event with live price and
// availability, cheapest first.
func (r *TicketTypeRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.TicketType, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ticketColumns+` FROM ticket_types WHERE event_id = ? ORDER BY price ASC, id ASC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tiers := make([]model.TicketType, 0)
	for rows.Next() {
		t, err := scanTicketType(rows)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, t)
	}
	return tiers, rows.Err()
}

// GetByIDsForEvent fetches the requested tiers keyed by id, restricted
// to a single event so a checkout cannot mix tiers across events.  It
// returns ErrTicketTypeNotFound when any requested id is missing.  The
// returned quantities are an unlocked snapshot; they back the cheap
// reservation pre-check, not the authoritative settlement check.
func (r *TicketTypeRepo) GetByIDsForEvent(ctx context.Context, eventID uint64, ids []uint64) (map[uint64]model.TicketType, error) {
	if len(ids) == 0 {
		return map[uint64]model.TicketType{}, nil
	}
	query := `SELECT ` + ticketColumns + ` FROM ticket_types WHERE event_id = ? AND id IN (` + placeholders(len(ids)) + `)`
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, eventID)
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64]model.TicketType, len(ids))
	for rows.Next() {
		t, err := scanTicketType(rows)
		if err != nil {
			return nil, err
		}
		out[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) != len(ids) {
		return nil, ErrTicketTypeNotFound
	}
	return out, nil
}

// LockByIDsTx re-reads the given tiers under an exclusive row lock
// (SELECT ... FOR UPDATE) inside the supplied transaction.  Two
// settlements racing for the same tier block here, so the second one
// observes the first's decrement.  IDs are locked in ascending order to
// keep lock acquisition deterministic across transactions.
func (r *TicketTypeRepo) LockByIDsTx(ctx context.Context, tx *sql.Tx, ids []uint64) (map[uint64]model.TicketType, error) {
	if len(ids) == 0 {
		return map[uint64]model.TicketType{}, nil
	}
	query := `SELECT ` + ticketColumns + ` FROM ticket_types WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY id ASC FOR UPDATE`
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64]model.TicketType, len(ids))
	for rows.Next() {
		t, err := scanTicketType(rows)
		if err != nil {
			return nil, err
		}
		out[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) != len(ids) {
		return nil, ErrTicketTypeNotFound
	}
	return out, nil
}

// DecrementTx subtracts qty from a tier's availability within the
// supplied transaction.  The WHERE guard re-asserts sufficiency so the
// counter can never go negative even if a caller skipped the locked
// re-check; zero affected rows is reported as ErrInsufficientStock.
func (r *TicketTypeRepo) DecrementTx(ctx context.Context, tx *sql.Tx, id uint64, qty int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE ticket_types SET quantity_available = quantity_available - ? WHERE id = ? AND quantity_available >= ?`,
		qty, id, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// Create inserts a tier for an event and populates its generated ID.
func (r *TicketTypeRepo) Create(ctx context.Context, t *model.TicketType) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO ticket_types (event_id, name, price, quantity_available, description) VALUES (?, ?, ?, ?, ?)`,
		t.EventID, t.Name, t.Price, t.QuantityAvailable, t.Description)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// Update rewrites a tier's mutable fields.
func (r *TicketTypeRepo) Update(ctx context.Context, t *model.TicketType) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE ticket_types SET name = ?, price = ?, quantity_available = ?, description = ? WHERE id = ?`,
		t.Name, t.Price, t.QuantityAvailable, t.Description, t.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var exists int
		if scanErr := r.db.QueryRowContext(ctx, `SELECT 1 FROM ticket_types WHERE id = ?`, t.ID).Scan(&exists); scanErr == sql.ErrNoRows {
			return ErrTicketTypeNotFound
		}
	}
	return nil
}

// Delete removes a tier and, via cascade, its bookings.
func (r *TicketTypeRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ticket_types WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTicketTypeNotFound
	}
	return nil
}

// placeholders returns a comma-separated list of n "?" markers for IN
// clauses.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
