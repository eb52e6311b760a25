package model

import "time"

// Reservation is one booked interval on one location.  BookedBy is the
// user who made it and the only one allowed to delete it.  StartsAt and
// EndsAt form a half-open interval that lies inside the operating window.
type Reservation struct {
	ID         uint64    `json:"id"`          // reservations.id
	LocationID uint64    `json:"location_id"` // reservations.location_id
	BookedBy   uint64    `json:"booked_by"`   // reservations.booked_by
	StartsAt   time.Time `json:"start"`       // reservations.starts_at
	EndsAt     time.Time `json:"end"`         // reservations.ends_at
	CreatedAt  time.Time `json:"created_at"`  // reservations.created_at
}

// ReservationDetail joins a reservation with the names a client needs to
// render it without further lookups.
type ReservationDetail struct {
	Reservation
	LocationName string `json:"location_name"`
	SiteID       uint64 `json:"site_id"`
	SiteName     string `json:"site_name"`
}
