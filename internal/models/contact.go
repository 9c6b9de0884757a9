package models

// Contact represents a row in the contacts table.
// RefUserID uses a pointer for the nullable foreign key; a (owner_user_id,
// ref_user_id) pair is unique when ref_user_id is not null, which is what
// makes reciprocal get-or-create race-safe.
type Contact struct {
	ContactID   string  `db:"contact_id"`
	OwnerUserID string  `db:"owner_user_id"`
	Name        string  `db:"name"`
	RefUserID   *string `db:"ref_user_id"`
	AuditFields
}
