package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Masterminds/squirrel"

	"github.com/iliyamo/site-reservation/internal/model"
)

var locationColumns = []string{
	"id", "site_id", "name", "location_type", "capacity",
	"description", "special_instructions", "created_at", "updated_at",
}

// LocationRepo persists the bookable locations of a site.
type LocationRepo struct {
	db *sql.DB
}

// NewLocationRepo returns a LocationRepo bound to db.
func NewLocationRepo(db *sql.DB) *LocationRepo { return &LocationRepo{db: db} }

func scanLocation(row interface{ Scan(...any) error }, l *model.Location) error {
	return row.Scan(&l.ID, &l.SiteID, &l.Name, &l.LocationType, &l.Capacity,
		&l.Description, &l.SpecialInstructions, &l.CreatedAt, &l.UpdatedAt)
}

// ListBySite returns the locations of a site ordered by name.  An unknown
// site yields an empty slice.
func (r *LocationRepo) ListBySite(ctx context.Context, siteID uint64) ([]model.Location, error) {
	query, args, err := builder.Select(locationColumns...).
		From("locations").
		Where(squirrel.Eq{"site_id": siteID}).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Location, 0)
	for rows.Next() {
		var l model.Location
		if err := scanLocation(rows, &l); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// GetByID returns ErrNotFound when no location has the id.
func (r *LocationRepo) GetByID(ctx context.Context, id uint64) (*model.Location, error) {
	query, args, err := builder.Select(locationColumns...).From("locations").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var l model.Location
	if err := scanLocation(r.db.QueryRowContext(ctx, query, args...), &l); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

// ExistingIDs returns the subset of ids that name real locations.
func (r *LocationRepo) ExistingIDs(ctx context.Context, ids []uint64) (map[uint64]bool, error) {
	out := make(map[uint64]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := builder.Select("id").From("locations").Where(squirrel.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// Create inserts l under l.SiteID.  A missing site yields ErrNotFound and
// a duplicate name within the site yields ErrConflict.
func (r *LocationRepo) Create(ctx context.Context, l *model.Location) error {
	query, args, err := builder.Insert("locations").
		Columns("site_id", "name", "location_type", "capacity", "description", "special_instructions").
		Values(l.SiteID, l.Name, l.LocationType, l.Capacity, l.Description, l.SpecialInstructions).
		ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		switch {
		case isMissingParent(err):
			return ErrNotFound
		case isDuplicate(err):
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*l = *created
	return nil
}

// Update overwrites the editable columns of the location with l.ID.  The
// owning site cannot change.
func (r *LocationRepo) Update(ctx context.Context, l *model.Location) error {
	query, args, err := builder.Update("locations").
		Set("name", l.Name).
		Set("location_type", l.LocationType).
		Set("capacity", l.Capacity).
		Set("description", l.Description).
		Set("special_instructions", l.SpecialInstructions).
		Where(squirrel.Eq{"id": l.ID}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	updated, err := r.GetByID(ctx, l.ID)
	if err != nil {
		return err
	}
	*l = *updated
	return nil
}

// Delete removes a location without reservations.  The location row is
// locked first so a concurrent booking cannot slip in between the count
// and the delete.
func (r *LocationRepo) Delete(ctx context.Context, id uint64) error {
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

	if err := lockLocationTx(ctx, tx, id); err != nil {
		return err
	}
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations WHERE location_id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM locations WHERE id = ?`, id); err != nil {
		if isReferenced(err) {
			return ErrConflict
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// lockLocationTx takes a row lock on the location for the rest of tx.
// Every writer that changes a location's reservations goes through it.
func lockLocationTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	var got uint64
	err := tx.QueryRowContext(ctx, `SELECT id FROM locations WHERE id = ? FOR UPDATE`, id).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
