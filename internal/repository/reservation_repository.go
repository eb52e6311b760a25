package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/iliyamo/site-reservation/internal/model"
	"github.com/iliyamo/site-reservation/internal/scheduling"
)

// ReservationRepo stores reservations and answers the booking lookups the
// availability engine needs.  All timestamps are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// BookingsForLocations returns, for every location in ids, the booked
// intervals that touch day.  Locations without bookings are absent from
// the map.
func (r *ReservationRepo) BookingsForLocations(ctx context.Context, ids []uint64, day time.Time) (map[uint64][]scheduling.Interval, error) {
	out := make(map[uint64][]scheduling.Interval, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 1)

	query, args, err := builder.Select("location_id", "starts_at", "ends_at").
		From("reservations").
		Where(squirrel.Eq{"location_id": ids}).
		Where(squirrel.Lt{"starts_at": to}).
		Where(squirrel.Gt{"ends_at": from}).
		OrderBy("location_id", "starts_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build bookings query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id uint64
			iv scheduling.Interval
		)
		if err := rows.Scan(&id, &iv.Start, &iv.End); err != nil {
			return nil, err
		}
		out[id] = append(out[id], iv)
	}
	return out, rows.Err()
}

// CreateIfFree inserts a reservation for [iv.Start, iv.End) on the
// location unless it overlaps an existing one.  The location row is
// locked FOR UPDATE for the duration of the transaction, so two writers
// on the same location are serialised and the overlap check always sees
// the other's committed row.
//
// An unknown location yields *scheduling.NotFoundError and a clash yields
// *scheduling.OverlapError carrying the conflicting interval.
func (r *ReservationRepo) CreateIfFree(ctx context.Context, locationID uint64, iv scheduling.Interval, userID uint64) (*model.Reservation, error) {
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

	if err := lockLocationTx(ctx, tx, locationID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &scheduling.NotFoundError{Resource: "location", ID: locationID}
		}
		return nil, err
	}

	var conflict scheduling.Interval
	err = tx.QueryRowContext(ctx,
		`SELECT starts_at, ends_at FROM reservations
		 WHERE location_id = ? AND starts_at < ? AND ends_at > ?
		 ORDER BY starts_at LIMIT 1`,
		locationID, iv.End, iv.Start).Scan(&conflict.Start, &conflict.End)
	switch {
	case err == nil:
		return nil, &scheduling.OverlapError{LocationID: locationID, Conflict: conflict}
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (location_id, booked_by, starts_at, ends_at) VALUES (?, ?, ?, ?)`,
		locationID, userID, iv.Start, iv.End)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out, err := getReservation(ctx, tx, uint64(id), false)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return out, nil
}

// GetByID returns ErrNotFound when no reservation has the id.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	out, err := getReservation(ctx, r.db, id, false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return out, err
}

// DeleteOwned removes the reservation when it belongs to locationID and was
// booked by userID.  A reservation that is missing or attached to another
// location yields *scheduling.NotFoundError; one booked by somebody else
// yields *scheduling.NotOwnerError and is left untouched.  The deleted row
// is returned.
func (r *ReservationRepo) DeleteOwned(ctx context.Context, locationID, reservationID, userID uint64) (*model.Reservation, error) {
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

	res, err := getReservation(ctx, tx, reservationID, true)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && res.LocationID != locationID) {
		return nil, &scheduling.NotFoundError{Resource: "reservation", ID: reservationID}
	}
	if err != nil {
		return nil, err
	}
	if res.BookedBy != userID {
		return nil, &scheduling.NotOwnerError{ReservationID: reservationID}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, reservationID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return res, nil
}

// ListByLocationOnDate returns the reservations of one location that touch
// day, ordered by start.
func (r *ReservationRepo) ListByLocationOnDate(ctx context.Context, locationID uint64, day time.Time) ([]model.Reservation, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	query, args, err := builder.Select("id", "location_id", "booked_by", "starts_at", "ends_at", "created_at").
		From("reservations").
		Where(squirrel.Eq{"location_id": locationID}).
		Where(squirrel.Lt{"starts_at": from.AddDate(0, 0, 1)}).
		Where(squirrel.Gt{"ends_at": from}).
		OrderBy("starts_at").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Reservation, 0)
	for rows.Next() {
		var m model.Reservation
		if err := rows.Scan(&m.ID, &m.LocationID, &m.BookedBy, &m.StartsAt, &m.EndsAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListByUser returns every reservation booked by userID with location and
// site names, most recent first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.ReservationDetail, error) {
	const q = `SELECT r.id, r.location_id, r.booked_by, r.starts_at, r.ends_at, r.created_at,
	                  l.name, s.id, s.name
	           FROM reservations r
	           JOIN locations l ON l.id = r.location_id
	           JOIN sites s     ON s.id = l.site_id
	           WHERE r.booked_by = ?
	           ORDER BY r.starts_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.ReservationDetail, 0)
	for rows.Next() {
		var d model.ReservationDetail
		if err := rows.Scan(&d.ID, &d.LocationID, &d.BookedBy, &d.StartsAt, &d.EndsAt, &d.CreatedAt,
			&d.LocationName, &d.SiteID, &d.SiteName); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getReservation(ctx context.Context, q queryRower, id uint64, forUpdate bool) (*model.Reservation, error) {
	sb := builder.Select("id", "location_id", "booked_by", "starts_at", "ends_at", "created_at").
		From("reservations").
		Where(squirrel.Eq{"id": id})
	if forUpdate {
		sb = sb.Suffix("FOR UPDATE")
	}
	query, args, err := sb.ToSql()
	if err != nil {
		return nil, err
	}
	var m model.Reservation
	if err := q.QueryRowContext(ctx, query, args...).Scan(
		&m.ID, &m.LocationID, &m.BookedBy, &m.StartsAt, &m.EndsAt, &m.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}
