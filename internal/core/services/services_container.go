package services

import (
	"time"

	portsrepo "github.com/owetrack/owetrack/internal/core/ports/repositories"
	portssvc "github.com/owetrack/owetrack/internal/core/ports/services"
)

// ContainerConfig carries the settings services need beyond repositories.
type ContainerConfig struct {
	JWTSecret           string
	JWTExpiry           time.Duration
	MirrorRetryInterval time.Duration
}

// NewServiceContainer wires every service against the repository provider.
func NewServiceContainer(repos portsrepo.RepositoryProvider, cfg ContainerConfig) portssvc.ServiceContainer {
	ledgerSvc := NewLedgerService(repos.LedgerRepo, repos.ContactRepo, repos.BalanceRepo, repos.OutboxRepo)
	userSvc := NewUserService(repos.UserRepo)

	return portssvc.ServiceContainer{
		Ledger:   ledgerSvc,
		Mirror:   NewMirrorService(ledgerSvc, repos.OutboxRepo, cfg.MirrorRetryInterval),
		Recalc:   NewRecalcService(repos.ContactRepo, repos.BalanceRepo),
		Contact:  NewContactService(repos.ContactRepo, repos.UserRepo),
		Currency: NewCurrencyService(repos.CurrencyRepo),
		User:     userSvc,
		Auth:     NewAuthService(userSvc, cfg.JWTSecret, cfg.JWTExpiry),
	}
}
