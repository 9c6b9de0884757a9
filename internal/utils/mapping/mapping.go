// Package mapping converts between persistence models and domain objects.
package mapping

import (
	"github.com/owetrack/owetrack/internal/core/domain"
	"github.com/owetrack/owetrack/internal/models"
)

func ToModelContact(d domain.Contact) models.Contact {
	return models.Contact{
		ContactID:   d.ContactID,
		OwnerUserID: d.OwnerUserID,
		Name:        d.Name,
		RefUserID:   d.RefUserID,
		AuditFields: toModelAudit(d.AuditFields),
	}
}

func ToDomainContact(m models.Contact) domain.Contact {
	return domain.Contact{
		ContactID:   m.ContactID,
		OwnerUserID: m.OwnerUserID,
		Name:        m.Name,
		RefUserID:   m.RefUserID,
		AuditFields: toDomainAudit(m.AuditFields),
	}
}

func ToModelTransaction(d domain.Transaction) models.Transaction {
	return models.Transaction{
		TransactionID:         d.TransactionID,
		ContactID:             d.ContactID,
		CurrencyID:            d.CurrencyID,
		UserID:                d.UserID,
		Amount:                d.Amount,
		Note:                  d.Note,
		DraftToken:            d.DraftToken,
		MirrorOfTransactionID: d.MirrorOfTransactionID,
		DeletedAt:             d.DeletedAt,
		AuditFields:           toModelAudit(d.AuditFields),
	}
}

func ToDomainTransaction(m models.Transaction) domain.Transaction {
	return domain.Transaction{
		TransactionID:         m.TransactionID,
		ContactID:             m.ContactID,
		CurrencyID:            m.CurrencyID,
		UserID:                m.UserID,
		Amount:                m.Amount,
		Note:                  m.Note,
		DraftToken:            m.DraftToken,
		MirrorOfTransactionID: m.MirrorOfTransactionID,
		DeletedAt:             m.DeletedAt,
		AuditFields:           toDomainAudit(m.AuditFields),
	}
}

func ToDomainTransactionSlice(ms []models.Transaction) []domain.Transaction {
	ds := make([]domain.Transaction, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainTransaction(m)
	}
	return ds
}

func ToDomainBalance(m models.Balance) domain.Balance {
	return domain.Balance{
		ContactID:     m.ContactID,
		CurrencyID:    m.CurrencyID,
		Amount:        m.Amount,
		CreatedAt:     m.CreatedAt,
		LastUpdatedAt: m.LastUpdatedAt,
	}
}

func ToDomainBalanceSlice(ms []models.Balance) []domain.Balance {
	ds := make([]domain.Balance, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainBalance(m)
	}
	return ds
}

func ToModelCurrency(d domain.Currency) models.Currency {
	return models.Currency{
		CurrencyID:  d.CurrencyID,
		Name:        d.Name,
		Symbol:      d.Symbol,
		AuditFields: toModelAudit(d.AuditFields),
	}
}

func ToDomainCurrency(m models.Currency) domain.Currency {
	return domain.Currency{
		CurrencyID:  m.CurrencyID,
		Name:        m.Name,
		Symbol:      m.Symbol,
		AuditFields: toDomainAudit(m.AuditFields),
	}
}

func ToModelUser(d domain.User) models.User {
	return models.User{
		UserID:       d.UserID,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		AuditFields:  toModelAudit(d.AuditFields),
	}
}

func ToDomainUser(m models.User) domain.User {
	return domain.User{
		UserID:       m.UserID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		AuditFields:  toDomainAudit(m.AuditFields),
	}
}

func ToModelMirrorIntent(d domain.MirrorIntent) models.MirrorIntent {
	return models.MirrorIntent{
		IntentID:            d.IntentID,
		OriginTransactionID: d.OriginTransactionID,
		ContactID:           d.ContactID,
		UserID:              d.UserID,
		CurrencyID:          d.CurrencyID,
		Amount:              d.Amount,
		Note:                d.Note,
		Status:              string(d.Status),
		Attempts:            d.Attempts,
		LastError:           d.LastError,
		CreatedAt:           d.CreatedAt,
		ProcessedAt:         d.ProcessedAt,
	}
}

func ToDomainMirrorIntent(m models.MirrorIntent) domain.MirrorIntent {
	return domain.MirrorIntent{
		IntentID:            m.IntentID,
		OriginTransactionID: m.OriginTransactionID,
		ContactID:           m.ContactID,
		UserID:              m.UserID,
		CurrencyID:          m.CurrencyID,
		Amount:              m.Amount,
		Note:                m.Note,
		Status:              domain.MirrorIntentStatus(m.Status),
		Attempts:            m.Attempts,
		LastError:           m.LastError,
		CreatedAt:           m.CreatedAt,
		ProcessedAt:         m.ProcessedAt,
	}
}

func toModelAudit(a domain.AuditFields) models.AuditFields {
	return models.AuditFields{
		CreatedAt:     a.CreatedAt,
		CreatedBy:     a.CreatedBy,
		LastUpdatedAt: a.LastUpdatedAt,
		LastUpdatedBy: a.LastUpdatedBy,
	}
}

func toDomainAudit(a models.AuditFields) domain.AuditFields {
	return domain.AuditFields{
		CreatedAt:     a.CreatedAt,
		CreatedBy:     a.CreatedBy,
		LastUpdatedAt: a.LastUpdatedAt,
		LastUpdatedBy: a.LastUpdatedBy,
	}
}
