package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/owetrack/owetrack/internal/core/ports/repositories"
)

// NewRepositoryProvider wires all pgsql repository implementations.
func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	contactRepo := newPgxContactRepository(dbPool)
	balanceRepo := newPgxBalanceRepository(dbPool)
	ledgerRepo := newPgxLedgerRepository(dbPool, balanceRepo)
	outboxRepo := newPgxOutboxRepository(dbPool)
	currencyRepo := newPgxCurrencyRepository(dbPool)
	userRepo := newPgxUserRepository(dbPool)

	return portsrepo.RepositoryProvider{
		ContactRepo:  contactRepo,
		LedgerRepo:   ledgerRepo,
		BalanceRepo:  balanceRepo,
		OutboxRepo:   outboxRepo,
		CurrencyRepo: currencyRepo,
		UserRepo:     userRepo,
	}
}
