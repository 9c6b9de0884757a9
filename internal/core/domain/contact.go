package domain

// Contact is a counterparty as seen by its owner. If RefUserID is set the
// contact is linked: the counterparty is itself a system user, and every
// transaction against this contact is mirrored into a reciprocal contact
// owned by RefUserID. For a linked pair (A, B) the following must hold:
// A.OwnerUserID == B.RefUserID and B.OwnerUserID == A.RefUserID.
type Contact struct {
	ContactID   string  `json:"contactID"`
	OwnerUserID string  `json:"ownerUserID"`
	Name        string  `json:"name"`
	RefUserID   *string `json:"refUserID,omitempty"`
	AuditFields
}

// IsLinked reports whether the contact denotes another system user.
func (c *Contact) IsLinked() bool {
	return c.RefUserID != nil && *c.RefUserID != ""
}
