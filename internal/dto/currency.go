package dto

import (
	"github.com/owetrack/owetrack/internal/core/domain"
)

// CreateCurrencyRequest is the payload for registering a currency.
type CreateCurrencyRequest struct {
	Name   string `json:"name" binding:"required,max=100"`
	Symbol string `json:"symbol" binding:"required,max=10"`
}

// CurrencyResponse defines the data returned for a currency.
type CurrencyResponse struct {
	CurrencyID string `json:"currencyID"`
	Name       string `json:"name"`
	Symbol     string `json:"symbol"`
}

// ToCurrencyResponse converts a domain.Currency to its response DTO.
func ToCurrencyResponse(c *domain.Currency) CurrencyResponse {
	return CurrencyResponse{
		CurrencyID: c.CurrencyID,
		Name:       c.Name,
		Symbol:     c.Symbol,
	}
}

// ToCurrencyResponses converts a slice of domain currencies.
func ToCurrencyResponses(cs []domain.Currency) []CurrencyResponse {
	responses := make([]CurrencyResponse, len(cs))
	for i := range cs {
		responses[i] = ToCurrencyResponse(&cs[i])
	}
	return responses
}
