package domain

// User represents a user of the application. Each user owns an independent
// ledger of contacts, transactions and balances.
type User struct {
	UserID       string `json:"userID"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	AuditFields
}
