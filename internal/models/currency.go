package models

// Currency represents a row in the currencies table. Global reference data.
type Currency struct {
	CurrencyID string `db:"currency_id"`
	Name       string `db:"name"`
	Symbol     string `db:"symbol"`
	AuditFields
}
