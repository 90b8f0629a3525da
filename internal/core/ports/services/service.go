package services

import (
	"context"
	"time"

	"github.com/docledger/docledger/internal/core/domain"
	"github.com/docledger/docledger/internal/dto"
)

// LedgerSvcFacade manages ledger roots and their default account trees.
type LedgerSvcFacade interface {
	CreateLedger(ctx context.Context, creator string, req dto.CreateLedgerRequest) (*dto.LedgerResponse, error)
	GetLedger(ctx context.Context, ledgerHash string) (*dto.LedgerResponse, error)
	ListLedgers(ctx context.Context) ([]dto.LedgerResponse, error)
}

// AccountSvcFacade manages the per-ledger account tree.
type AccountSvcFacade interface {
	CreateAccount(ctx context.Context, creator string, req dto.CreateAccountRequest) (*domain.Account, error)
	UpdateAccount(ctx context.Context, updater string, accountHash string, req dto.UpdateAccountRequest) (*domain.Account, error)
	DeleteAccount(ctx context.Context, deleter string, accountHash string) error
	GetAccount(ctx context.Context, accountHash string) (*domain.Account, error)
	GetAccountPath(ctx context.Context, accountHash string) (string, error)
	ListChildren(ctx context.Context, accountHash string) ([]domain.Account, error)
}

// BalanceSvcFacade is the balance store plus the propagation engine.
type BalanceSvcFacade interface {
	GetBalances(ctx context.Context, accountHash string) (*domain.Balance, error)
	GetLocalBalances(ctx context.Context, accountHash string) (map[string]domain.Asset, error)
	GetGlobalBalances(ctx context.Context, accountHash string) (map[string]domain.Asset, error)

	// ApplyDelta posts a signed amount at an account and propagates it up the
	// ownership chain to (but not including) the ledger. The local slot is
	// touched only when localAlso is set, and only at the originating account.
	// caller is recorded as the writer of every rewritten balance document.
	ApplyDelta(ctx context.Context, caller, accountHash, ledgerHash string, delta domain.Asset, localAlso bool) error

	// RecalculateGlobalBalances recomputes an account's global slice bottom-up
	// from its locals plus its direct children's globals, then continues to
	// the parent until the ledger is reached.
	RecalculateGlobalBalances(ctx context.Context, caller, accountHash, ledgerHash string) error
}

// TransactionSvcFacade is the transaction lifecycle controller.
type TransactionSvcFacade interface {
	// Upsert creates a transaction when trxHash is empty, otherwise replaces
	// the unapproved transaction at trxHash preserving its logical id. With
	// approve set the new version is balance-checked and applied immediately.
	Upsert(ctx context.Context, issuer, trxHash string, payload dto.TransactionPayload, approve bool) (*domain.Transaction, error)

	Delete(ctx context.Context, deleter, trxHash string) error

	// Approve validates balance closure, stamps the approver, applies balance
	// propagation for every component and moves the transaction from the
	// unapproved to the approved bucket partition.
	Approve(ctx context.Context, approver, trxHash string) (*domain.Transaction, error)

	GetTransaction(ctx context.Context, trxHash string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, ledgerHash string, approved bool) ([]domain.Transaction, error)
}

// CurrencySvcFacade is the currency allow-list gate and its administration.
type CurrencySvcFacade interface {
	EnsureAllowed(ctx context.Context, symbol string) error
	AddCurrency(ctx context.Context, updater string, symbol string, precision uint8) error
	RemoveCurrency(ctx context.Context, updater string, symbol string) error
	ListCurrencies(ctx context.Context) ([]dto.CurrencyResponse, error)
}

// SettingsSvcFacade owns the settings document: typed settings, the trusted
// account list, and monotonic id allocation.
type SettingsSvcFacade interface {
	SetSetting(ctx context.Context, updater, key string, value domain.Content) error
	RemoveSetting(ctx context.Context, updater, key string) error
	GetSettings(ctx context.Context) (domain.ContentGroups, error)
	AddTrustedAccount(ctx context.Context, updater, account string) error
	RemoveTrustedAccount(ctx context.Context, updater, account string) error
	RequireTrusted(ctx context.Context, account string) error
	NextTransactionID(ctx context.Context) (int64, error)
}

// EventSvcFacade handles external event ingestion and component bindings.
type EventSvcFacade interface {
	IngestEvent(ctx context.Context, issuer string, req dto.IngestEventRequest) (*domain.Event, error)
	BindEvent(ctx context.Context, updater, eventHash, componentHash string) error
	UnbindEvent(ctx context.Context, updater, eventHash, componentHash string) error
	GetEvent(ctx context.Context, eventHash string) (*domain.Event, error)
	ListCursors(ctx context.Context) ([]domain.Cursor, error)
}

// CleanupSvcFacade erases documents in bounded batches.
type CleanupSvcFacade interface {
	// Clean erases at most domain.MaxRemovableDocs documents of the given node
	// types and reports whether more work remains, so callers re-invoke
	// instead of looping unbounded.
	Clean(ctx context.Context, requester string, nodeTypes []string) (removed int, more bool, err error)
}

// ApprovedTrxPublisher emits a notification after a transaction is approved.
// Publishing is best-effort and happens outside the atomic unit of work.
type ApprovedTrxPublisher interface {
	PublishApproved(ctx context.Context, evt dto.TransactionApprovedEvent) error
}

// ServiceContainer bundles the service facades for handler wiring.
type ServiceContainer struct {
	Ledger      LedgerSvcFacade
	Account     AccountSvcFacade
	Balance     BalanceSvcFacade
	Transaction TransactionSvcFacade
	Currency    CurrencySvcFacade
	Settings    SettingsSvcFacade
	Event       EventSvcFacade
	Cleanup     CleanupSvcFacade
}

// Clock abstracts time for deterministic tests.
type Clock func() time.Time
