package dto

import (
	"github.com/owetrack/owetrack/internal/core/domain"
)

// CreateContactRequest is the payload for creating a contact. Setting
// RefUserID links the contact to another system user.
type CreateContactRequest struct {
	Name      string  `json:"name" binding:"required,max=255"`
	RefUserID *string `json:"refUserID" binding:"omitempty,uuid"`
}

// UpdateContactRequest carries optional contact updates.
type UpdateContactRequest struct {
	Name *string `json:"name" binding:"omitempty,max=255"`
}

// ListContactsParams holds pagination parameters for contact listings.
type ListContactsParams struct {
	Limit     int     `form:"limit"`
	NextToken *string `form:"nextToken"`
}

// ContactResponse defines the data returned for a contact.
type ContactResponse struct {
	ContactID   string  `json:"contactID"`
	OwnerUserID string  `json:"ownerUserID"`
	Name        string  `json:"name"`
	RefUserID   *string `json:"refUserID,omitempty"`
}

// ListContactsResponse is a page of contacts with a pagination token.
type ListContactsResponse struct {
	Contacts  []ContactResponse `json:"contacts"`
	NextToken *string           `json:"nextToken,omitempty"`
}

// ToContactResponse converts a domain.Contact to its response DTO.
func ToContactResponse(c *domain.Contact) ContactResponse {
	return ContactResponse{
		ContactID:   c.ContactID,
		OwnerUserID: c.OwnerUserID,
		Name:        c.Name,
		RefUserID:   c.RefUserID,
	}
}

// ToContactResponses converts a slice of domain contacts.
func ToContactResponses(cs []domain.Contact) []ContactResponse {
	responses := make([]ContactResponse, len(cs))
	for i := range cs {
		responses[i] = ToContactResponse(&cs[i])
	}
	return responses
}
