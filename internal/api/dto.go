package api

import "github.com/starford/rolodex/internal/models"

// ContactRequest is the request body for adding one contact.
type ContactRequest struct {
	Name        string `json:"name" example:"Amy"`
	PhoneNumber string `json:"phone_number" example:"555-0101"`
	Email       string `json:"email" example:"amy@example.com"`
}

// BatchRequest is the request body for adding several contacts at once.
type BatchRequest struct {
	Contacts []ContactRequest `json:"contacts" validate:"required"`
}

// Contact is the response type for a single contact (aliased from the domain layer).
type Contact = models.Contact

// ContactListResponse wraps the directory listing.
type ContactListResponse struct {
	Contacts []Contact `json:"contacts" validate:"required"`
	Size     int       `json:"size" example:"2" validate:"required"`
	Capacity int       `json:"capacity" example:"100" validate:"required"`
	Empty    bool      `json:"empty"`
}

// SizeResponse reports how full the directory is.
type SizeResponse struct {
	Size     int `json:"size" example:"2" validate:"required"`
	Capacity int `json:"capacity" example:"100" validate:"required"`
}

func (r ContactRequest) contact() models.Contact {
	return models.Contact{Name: r.Name, PhoneNumber: r.PhoneNumber, Email: r.Email}
}
