package model

import "time"

// Course statuses stored in courses.status.
const (
	CourseOpen      = "OPEN"
	CourseClosed    = "CLOSED"
	CourseCancelled = "CANCELLED"
)

// Course is a class students register for.  Capacity zero means
// unlimited; otherwise TotalRegistered never exceeds it.  Repeats and
// RepeatUntil are stored as entered and are not expanded into sessions.
type Course struct {
	ID              uint64     `json:"id"`                     // courses.id
	CourseCode      string     `json:"course_code"`            // courses.course_code
	Title           string     `json:"title"`                  // courses.title
	Description     *string    `json:"description,omitempty"`  // courses.description (nullable)
	ClassName       string     `json:"class_name"`             // courses.class_name
	LocationID      *uint64    `json:"location_id,omitempty"`  // courses.location_id (nullable)
	Capacity        uint32     `json:"capacity"`               // courses.capacity
	TotalRegistered uint32     `json:"total_registered"`       // courses.total_registered
	Status          string     `json:"status"`                 // courses.status
	DurationMinutes uint32     `json:"duration_minutes"`       // courses.duration_minutes
	DateFrom        *time.Time `json:"date_from,omitempty"`    // courses.date_from (nullable)
	DateTo          *time.Time `json:"date_to,omitempty"`      // courses.date_to (nullable)
	TimeFrom        *string    `json:"time_from,omitempty"`    // courses.time_from "HH:MM" (nullable)
	TimeTo          *string    `json:"time_to,omitempty"`      // courses.time_to "HH:MM" (nullable)
	Repeats         string     `json:"repeats"`                // courses.repeats
	RepeatUntil     *time.Time `json:"repeat_until,omitempty"` // courses.repeat_until (nullable)
	Credits         uint32     `json:"credits"`                // courses.credits
	AmountCents     uint32     `json:"amount_cents"`           // courses.amount_cents
	CreatedBy       *uint64    `json:"created_by,omitempty"`   // courses.created_by (nullable)
	CreatedAt       time.Time  `json:"created_at"`             // courses.created_at
	UpdatedAt       time.Time  `json:"updated_at"`             // courses.updated_at
}

// Full reports whether no seat is left.  Capacity zero never fills.
func (c Course) Full() bool {
	return c.Capacity > 0 && c.TotalRegistered >= c.Capacity
}

// CourseRegistration links a student to a course.
type CourseRegistration struct {
	ID        uint64    `json:"id"`         // course_registrations.id
	CourseID  uint64    `json:"course_id"`  // course_registrations.course_id
	UserID    uint64    `json:"user_id"`    // course_registrations.user_id
	CreatedAt time.Time `json:"created_at"` // course_registrations.created_at
}
