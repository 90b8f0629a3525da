package services

import (
	portsrepo "github.com/docledger/docledger/internal/core/ports/repositories"
	portssvc "github.com/docledger/docledger/internal/core/ports/services"
)

// NewServiceContainer wires the full service graph over one document store.
// publisher may be nil when no broker is configured; now may be nil to use
// wall-clock time.
func NewServiceContainer(repo portsrepo.DocumentRepositoryWithTx, publisher portssvc.ApprovedTrxPublisher, now portssvc.Clock) *portssvc.ServiceContainer {
	settings := NewSettingsService(repo, now)
	currency := NewCurrencyService(repo, now)
	balances := NewBalanceService(repo, now)
	transactions := NewTransactionService(repo, balances, publisher, now)
	accounts := NewAccountService(repo, transactions, now)
	ledgers := NewLedgerService(repo, now)
	events := NewEventService(repo, now)
	cleanup := NewCleanupService(repo, now)

	return &portssvc.ServiceContainer{
		Ledger:      ledgers,
		Account:     accounts,
		Balance:     balances,
		Transaction: transactions,
		Currency:    currency,
		Settings:    settings,
		Event:       events,
		Cleanup:     cleanup,
	}
}
