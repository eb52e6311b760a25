package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/Masterminds/squirrel"

	"github.com/iliyamo/site-reservation/internal/model"
)

var courseColumns = []string{
	"id", "course_code", "title", "description", "class_name", "location_id",
	"capacity", "total_registered", "status", "duration_minutes",
	"date_from", "date_to", "time_from", "time_to", "repeats", "repeat_until",
	"credits", "amount_cents", "created_by", "created_at", "updated_at",
}

// CourseFilter narrows List.
type CourseFilter struct {
	Status     string
	LocationID uint64
	Query      string
}

// CourseRepo persists courses and registrations.
type CourseRepo struct {
	db *sql.DB
}

// NewCourseRepo returns a CourseRepo bound to db.
func NewCourseRepo(db *sql.DB) *CourseRepo { return &CourseRepo{db: db} }

func scanCourse(row interface{ Scan(...any) error }, c *model.Course) error {
	return row.Scan(
		&c.ID, &c.CourseCode, &c.Title, &c.Description, &c.ClassName, &c.LocationID,
		&c.Capacity, &c.TotalRegistered, &c.Status, &c.DurationMinutes,
		&c.DateFrom, &c.DateTo, &c.TimeFrom, &c.TimeTo, &c.Repeats, &c.RepeatUntil,
		&c.Credits, &c.AmountCents, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
}

func (r *CourseRepo) query(ctx context.Context, sb squirrel.SelectBuilder) ([]model.Course, error) {
	query, args, err := sb.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Course, 0)
	for rows.Next() {
		var c model.Course
		if err := scanCourse(rows, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// List returns courses ordered by start date then title.
func (r *CourseRepo) List(ctx context.Context, f CourseFilter) ([]model.Course, error) {
	sb := builder.Select(courseColumns...).From("courses").OrderBy("date_from IS NULL", "date_from", "title")
	if f.Status != "" {
		sb = sb.Where(squirrel.Eq{"status": strings.ToUpper(f.Status)})
	}
	if f.LocationID != 0 {
		sb = sb.Where(squirrel.Eq{"location_id": f.LocationID})
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		sb = sb.Where(squirrel.Or{
			squirrel.Like{"LOWER(title)": like},
			squirrel.Like{"LOWER(course_code)": like},
		})
	}
	return r.query(ctx, sb)
}

// ListByUser returns the courses userID is registered for.
func (r *CourseRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Course, error) {
	cols := make([]string, len(courseColumns))
	for i, c := range courseColumns {
		cols[i] = "c." + c
	}
	sb := builder.Select(cols...).
		From("courses c").
		Join("course_registrations cr ON cr.course_id = c.id").
		Where(squirrel.Eq{"cr.user_id": userID}).
		OrderBy("c.date_from", "c.title")
	return r.query(ctx, sb)
}

// GetByID returns ErrNotFound when no course has the id.
func (r *CourseRepo) GetByID(ctx context.Context, id uint64) (*model.Course, error) {
	list, err := r.query(ctx, builder.Select(courseColumns...).From("courses").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

func courseValues(c *model.Course) map[string]any {
	return map[string]any{
		"course_code": c.CourseCode, "title": c.Title, "description": c.Description,
		"class_name": c.ClassName, "location_id": c.LocationID, "capacity": c.Capacity,
		"status": c.Status, "duration_minutes": c.DurationMinutes,
		"date_from": c.DateFrom, "date_to": c.DateTo, "time_from": c.TimeFrom, "time_to": c.TimeTo,
		"repeats": c.Repeats, "repeat_until": c.RepeatUntil,
		"credits": c.Credits, "amount_cents": c.AmountCents,
	}
}

// Create inserts c.  A reused course_code yields ErrConflict and an
// unknown location yields ErrNotFound.
func (r *CourseRepo) Create(ctx context.Context, c *model.Course) error {
	vals := courseValues(c)
	vals["created_by"] = c.CreatedBy
	query, args, err := builder.Insert("courses").SetMap(vals).ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		switch {
		case isDuplicate(err):
			return ErrConflict
		case isMissingParent(err):
			return ErrNotFound
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
	*c = *created
	return nil
}

// Update overwrites the editable columns.  total_registered is owned by
// Register and never written here.
func (r *CourseRepo) Update(ctx context.Context, c *model.Course) error {
	query, args, err := builder.Update("courses").SetMap(courseValues(c)).Where(squirrel.Eq{"id": c.ID}).ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		switch {
		case isDuplicate(err):
			return ErrConflict
		case isMissingParent(err):
			return ErrNotFound
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	updated, err := r.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}
	*c = *updated
	return nil
}

// Delete removes the course and, by cascade, its registrations.
func (r *CourseRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Register enrols userID in the course.  The course row is locked so the
// capacity check and the counter update cannot interleave with another
// registration.  Returns the course with its refreshed counter.
func (r *CourseRepo) Register(ctx context.Context, courseID, userID uint64) (*model.Course, error) {
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

	query, args, err := builder.Select(courseColumns...).
		From("courses").
		Where(squirrel.Eq{"id": courseID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, err
	}
	var c model.Course
	if err := scanCourse(tx.QueryRowContext(ctx, query, args...), &c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var already int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM course_registrations WHERE course_id = ? AND user_id = ?`,
		courseID, userID).Scan(&already); err != nil {
		return nil, err
	}
	if already > 0 {
		return nil, ErrAlreadyRegistered
	}
	if c.Status != model.CourseOpen {
		return nil, ErrCourseClosed
	}
	if c.Full() {
		return nil, ErrCourseFull
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO course_registrations (course_id, user_id) VALUES (?, ?)`,
		courseID, userID); err != nil {
		if isDuplicate(err) {
			return nil, ErrAlreadyRegistered
		}
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE courses SET total_registered =
		   (SELECT COUNT(*) FROM course_registrations WHERE course_id = ?)
		 WHERE id = ?`, courseID, courseID); err != nil {
		return nil, err
	}
	if err := tx.QueryRowContext(ctx,
		`SELECT total_registered FROM courses WHERE id = ?`, courseID).Scan(&c.TotalRegistered); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return &c, nil
}
