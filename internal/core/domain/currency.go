package domain

// Currency represents a unit of account. Currencies are global reference
// data; the ledger treats CurrencyID as an opaque foreign key.
type Currency struct {
	CurrencyID string `json:"currencyID"`
	Name       string `json:"name"`   // e.g. "US Dollar"
	Symbol     string `json:"symbol"` // e.g. "$"
	AuditFields
}
