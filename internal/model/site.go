package model

import "time"

// Site is a facility that can be rented: a school, a park, a community
// centre.  A site contains one or more bookable locations.  Nullable text
// columns are pointers so that absent values are omitted from responses.
type Site struct {
	ID                  uint64    `json:"id"`                             // sites.id
	SiteCode            string    `json:"site_code"`                      // sites.site_code
	ParentName          *string   `json:"parent_name,omitempty"`          // sites.parent_name (nullable)
	Name                string    `json:"name"`                           // sites.name
	SiteType            string    `json:"site_type"`                      // sites.site_type
	Capacity            uint32    `json:"capacity"`                       // sites.capacity
	AddressLine1        string    `json:"address_line1"`                  // sites.address_line1
	AddressLine2        *string   `json:"address_line2,omitempty"`        // sites.address_line2 (nullable)
	City                string    `json:"city"`                           // sites.city
	State               string    `json:"state"`                          // sites.state
	PostalCode          string    `json:"postal_code"`                    // sites.postal_code
	Country             string    `json:"country"`                        // sites.country
	Directions          *string   `json:"directions,omitempty"`           // sites.directions (nullable)
	Description         *string   `json:"description,omitempty"`          // sites.description (nullable)
	SpecialInstructions *string   `json:"special_instructions,omitempty"` // sites.special_instructions (nullable)
	RentalRequirements  *string   `json:"rental_requirements,omitempty"`  // sites.rental_requirements (nullable)
	SignatureURL        *string   `json:"signature_url,omitempty"`        // sites.signature_url (nullable)
	ImageURL            *string   `json:"image_url,omitempty"`            // sites.image_url (nullable)
	CreatedAt           time.Time `json:"created_at"`                     // sites.created_at
	UpdatedAt           time.Time `json:"updated_at"`                     // sites.updated_at
}
