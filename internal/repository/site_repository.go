package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"github.com/iliyamo/site-reservation/internal/model"
)

var siteColumns = []string{
	"id", "site_code", "parent_name", "name", "site_type", "capacity",
	"address_line1", "address_line2", "city", "state", "postal_code", "country",
	"directions", "description", "special_instructions", "rental_requirements",
	"signature_url", "image_url", "created_at", "updated_at",
}

// sitePatchable lists the columns PATCH may touch.
var sitePatchable = map[string]bool{
	"site_code": true, "parent_name": true, "name": true, "site_type": true,
	"capacity": true, "address_line1": true, "address_line2": true, "city": true,
	"state": true, "postal_code": true, "country": true, "directions": true,
	"description": true, "special_instructions": true, "rental_requirements": true,
	"signature_url": true, "image_url": true,
}

// SiteFilter narrows List.  Zero values mean no filtering.
type SiteFilter struct {
	Type   string
	Query  string // case-insensitive substring of the name
	Limit  uint64
	Offset uint64
}

// SiteRepo persists sites.
type SiteRepo struct {
	db *sql.DB
}

// NewSiteRepo returns a SiteRepo bound to db.
func NewSiteRepo(db *sql.DB) *SiteRepo { return &SiteRepo{db: db} }

func scanSite(row interface{ Scan(...any) error }, s *model.Site) error {
	return row.Scan(
		&s.ID, &s.SiteCode, &s.ParentName, &s.Name, &s.SiteType, &s.Capacity,
		&s.AddressLine1, &s.AddressLine2, &s.City, &s.State, &s.PostalCode, &s.Country,
		&s.Directions, &s.Description, &s.SpecialInstructions, &s.RentalRequirements,
		&s.SignatureURL, &s.ImageURL, &s.CreatedAt, &s.UpdatedAt,
	)
}

// List returns sites ordered by name.
func (r *SiteRepo) List(ctx context.Context, f SiteFilter) ([]model.Site, error) {
	sb := builder.Select(siteColumns...).From("sites").OrderBy("name ASC", "id ASC")
	if t := strings.TrimSpace(f.Type); t != "" {
		sb = sb.Where(squirrel.Eq{"site_type": t})
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		sb = sb.Where(squirrel.Like{"LOWER(name)": "%" + strings.ToLower(q) + "%"})
	}
	if f.Limit > 0 {
		sb = sb.Limit(f.Limit).Offset(f.Offset)
	}
	query, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build site list: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Site, 0)
	for rows.Next() {
		var s model.Site
		if err := scanSite(rows, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetByID returns ErrNotFound when no site has the id.
func (r *SiteRepo) GetByID(ctx context.Context, id uint64) (*model.Site, error) {
	query, args, err := builder.Select(siteColumns...).From("sites").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var s model.Site
	if err := scanSite(r.db.QueryRowContext(ctx, query, args...), &s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Create inserts s and reloads it so timestamps are populated.  A reused
// site_code yields ErrConflict.
func (r *SiteRepo) Create(ctx context.Context, s *model.Site) error {
	query, args, err := builder.Insert("sites").
		Columns(siteColumns[1:18]...).
		Values(s.SiteCode, s.ParentName, s.Name, s.SiteType, s.Capacity,
			s.AddressLine1, s.AddressLine2, s.City, s.State, s.PostalCode, s.Country,
			s.Directions, s.Description, s.SpecialInstructions, s.RentalRequirements,
			s.SignatureURL, s.ImageURL).
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
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*s = *created
	return nil
}

// Update overwrites every editable column of the site with s.ID.
func (r *SiteRepo) Update(ctx context.Context, s *model.Site) error {
	set := map[string]any{
		"site_code": s.SiteCode, "parent_name": s.ParentName, "name": s.Name,
		"site_type": s.SiteType, "capacity": s.Capacity,
		"address_line1": s.AddressLine1, "address_line2": s.AddressLine2,
		"city": s.City, "state": s.State, "postal_code": s.PostalCode, "country": s.Country,
		"directions": s.Directions, "description": s.Description,
		"special_instructions": s.SpecialInstructions, "rental_requirements": s.RentalRequirements,
		"signature_url": s.SignatureURL, "image_url": s.ImageURL,
	}
	if err := r.Patch(ctx, s.ID, set); err != nil {
		return err
	}
	updated, err := r.GetByID(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = *updated
	return nil
}

// Patch updates only the given columns.  Unknown column names are
// rejected before any SQL is built.
func (r *SiteRepo) Patch(ctx context.Context, id uint64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	for col := range fields {
		if !sitePatchable[col] {
			return fmt.Errorf("%w: %q", ErrUnknownField, col)
		}
	}
	query, args, err := builder.Update("sites").
		SetMap(fields).
		Where(squirrel.Eq{"id": id}).
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
	return nil
}

// Delete removes a site that has no locations.  A site that still has
// locations yields ErrConflict.
func (r *SiteRepo) Delete(ctx context.Context, id uint64) error {
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

	var exists uint64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM sites WHERE id = ? FOR UPDATE`, id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM locations WHERE site_id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sites WHERE id = ?`, id); err != nil {
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
