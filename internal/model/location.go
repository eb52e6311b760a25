package model

import "time"

// Location is a bookable space inside a site (a gym, a classroom, a
// field).  Reservations and course sessions are always attached to a
// location, and availability is computed per location.
//
// Fields:
//  ID                 : primary key identifier.
//  SiteID             : owning site.
//  Name               : unique per site.
//  LocationType       : free-form category used for filtering.
//  Capacity           : head count; zero means unspecified.
//  Description        : optional description.
//  SpecialInstructions: optional access notes shown on booking.
type Location struct {
	ID                  uint64    `json:"id"`                             // locations.id
	SiteID              uint64    `json:"site_id"`                        // locations.site_id
	Name                string    `json:"name"`                           // locations.name
	LocationType        string    `json:"location_type"`                  // locations.location_type
	Capacity            uint32    `json:"capacity"`                       // locations.capacity
	Description         *string   `json:"description,omitempty"`          // locations.description (nullable)
	SpecialInstructions *string   `json:"special_instructions,omitempty"` // locations.special_instructions (nullable)
	CreatedAt           time.Time `json:"created_at"`                     // locations.created_at
	UpdatedAt           time.Time `json:"updated_at"`                     // locations.updated_at
}
