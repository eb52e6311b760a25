package scheduling

import (
	"errors"
	"fmt"
)

// InvalidParameterError rejects malformed input: a non-positive duration,
// an empty location set, a bad date. Generators swallow it and yield
// nothing; the reservation writer returns it.
type InvalidParameterError struct {
	Field  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// OutOfHoursError means the proposed interval leaves the operating window.
type OutOfHoursError struct {
	Interval Interval
	Window   Window
}

func (e *OutOfHoursError) Error() string {
	return fmt.Sprintf("%s is outside operating hours %s", e.Interval, e.Window)
}

// OverlapError means the location already has a booking that intersects
// the proposed interval.
type OverlapError struct {
	LocationID uint64
	Conflict   Interval
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("location %d is already booked for %s", e.LocationID, e.Conflict)
}

// NotOwnerError refuses a deletion attempted by someone other than the
// user who booked the reservation.
type NotOwnerError struct {
	ReservationID uint64
}

func (e *NotOwnerError) Error() string {
	return fmt.Sprintf("reservation %d belongs to another user", e.ReservationID)
}

// NotFoundError reports a missing location or reservation.
type NotFoundError struct {
	Resource string
	ID       uint64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// IsValidation reports whether err is one of the rejection kinds above,
// as opposed to an infrastructure failure.
func IsValidation(err error) bool {
	var (
		ip *InvalidParameterError
		oh *OutOfHoursError
		ov *OverlapError
		no *NotOwnerError
		nf *NotFoundError
	)
	return errors.As(err, &ip) || errors.As(err, &oh) || errors.As(err, &ov) ||
		errors.As(err, &no) || errors.As(err, &nf)
}
