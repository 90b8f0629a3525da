package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docledger/docledger/internal/apperrors"
	"github.com/docledger/docledger/internal/core/domain"
	portsrepo "github.com/docledger/docledger/internal/core/ports/repositories"
	portssvc "github.com/docledger/docledger/internal/core/ports/services"
)

// BalanceService is the balance store plus the propagation engine. Balance
// documents are content-addressed, so every update writes a new document and
// repoints the per-account current-hash index in the same unit of work; the
// superseded version is erased.
type BalanceService struct {
	repo portsrepo.DocumentRepositoryWithTx
	now  portssvc.Clock
}

// NewBalanceService creates the balance service.
func NewBalanceService(repo portsrepo.DocumentRepositoryWithTx, now portssvc.Clock) *BalanceService {
	if now == nil {
		now = time.Now
	}
	return &BalanceService{repo: repo, now: now}
}

var _ portssvc.BalanceSvcFacade = (*BalanceService)(nil)

// loadBalance resolves an account's current balance document. A missing index
// entry for an existing account means account creation was incomplete, which
// is an integrity defect rather than a user error.
func loadBalance(ctx context.Context, repo portsrepo.DocumentRepository, accountHash string) (domain.Balance, error) {
	hash, err := repo.GetCurrentHash(ctx, balanceKey(accountHash))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.Balance{}, fmt.Errorf("%w: account %s has no balance document", apperrors.ErrIntegrity, accountHash)
		}
		return domain.Balance{}, err
	}
	doc, err := repo.FindDocumentByHash(ctx, hash)
	if err != nil {
		return domain.Balance{}, fmt.Errorf("%w: balance document %s for account %s is missing", apperrors.ErrIntegrity, hash, accountHash)
	}
	return domain.BalanceFromDocument(*doc)
}

// persistBalance writes a balance record: bumps the revision, stores the new
// document, repoints the index and the account's balances relation pair, and
// erases the superseded document. Callers must not cache the old hash.
func persistBalance(ctx context.Context, repo portsrepo.DocumentRepository, writer string, b domain.Balance, now time.Time) (domain.Balance, error) {
	oldHash := b.Hash
	b.Revision++
	doc := domain.NewDocument(writer, now, b.Groups())
	b.Hash = doc.Hash
	if err := repo.SaveDocument(ctx, doc); err != nil {
		return domain.Balance{}, err
	}
	if err := repo.SetCurrentHash(ctx, balanceKey(b.AccountHash), doc.Hash); err != nil {
		return domain.Balance{}, err
	}
	if oldHash != "" {
		if err := repo.Unlink(ctx, b.AccountHash, oldHash, domain.RelBalances, domain.RelRevBalances); err != nil {
			return domain.Balance{}, err
		}
		if err := repo.EraseDocument(ctx, oldHash, true); err != nil {
			return domain.Balance{}, err
		}
	}
	if err := repo.Link(ctx, writer, b.AccountHash, doc.Hash, domain.RelBalances, domain.RelRevBalances); err != nil {
		return domain.Balance{}, err
	}
	return b, nil
}

// createBalance seeds the empty balance document for a freshly created account.
func createBalance(ctx context.Context, repo portsrepo.DocumentRepository, creator, accountHash string, now time.Time) error {
	_, err := persistBalance(ctx, repo, creator, domain.NewBalance(accountHash), now)
	return err
}

// applyDelta is the incremental propagation walk: fold the signed amount into
// the originating account's slots, then into the global slot of every
// ancestor, stopping when the ledger node is reached. Iterative on purpose;
// depth is bounded by tree height, not by the call stack. writer is the acting
// account recorded on every rewritten balance document.
func (s *BalanceService) applyDelta(ctx context.Context, repo portsrepo.DocumentRepository, writer, accountHash, ledgerHash string, delta domain.Asset, localAlso bool) error {
	current := accountHash
	for current != ledgerHash {
		account, err := loadAccount(ctx, repo, current)
		if err != nil {
			return err
		}
		balance, err := loadBalance(ctx, repo, current)
		if err != nil {
			return err
		}
		if localAlso && current == accountHash {
			if err := balance.AddLocal(delta); err != nil {
				return err
			}
		}
		if err := balance.AddGlobal(delta); err != nil {
			return err
		}
		if _, err := persistBalance(ctx, repo, writer, balance, s.now()); err != nil {
			return err
		}
		if account.ParentHash == "" {
			return fmt.Errorf("%w: account %s has no parent and is not the ledger %s", apperrors.ErrIntegrity, current, ledgerHash)
		}
		current = account.ParentHash
	}
	return nil
}

// recalculate is the full bottom-up recompute: an account's global slice is
// replaced wholesale with its own locals plus the sum of its direct children's
// globals, then the walk continues to the parent until the ledger is reached.
// For any tree this must land on the same state as repeated applyDelta calls.
func (s *BalanceService) recalculate(ctx context.Context, repo portsrepo.DocumentRepository, writer, accountHash, ledgerHash string) error {
	current := accountHash
	for current != ledgerHash {
		account, err := loadAccount(ctx, repo, current)
		if err != nil {
			return err
		}
		balance, err := loadBalance(ctx, repo, current)
		if err != nil {
			return err
		}
		totals := domain.CloneAssets(balance.Local)
		children, err := repo.ListRelationsFrom(ctx, current, domain.RelAccount)
		if err != nil {
			return err
		}
		for _, child := range children {
			childBalance, err := loadBalance(ctx, repo, child.To)
			if err != nil {
				return err
			}
			for _, global := range childBalance.Global {
				totals, err = domain.SumBySymbol(totals, global)
				if err != nil {
					return err
				}
			}
		}
		balance.ReplaceGlobal(totals)
		if _, err := persistBalance(ctx, repo, writer, balance, s.now()); err != nil {
			return err
		}
		if account.ParentHash == "" {
			return fmt.Errorf("%w: account %s has no parent and is not the ledger %s", apperrors.ErrIntegrity, current, ledgerHash)
		}
		current = account.ParentHash
	}
	return nil
}

// GetBalances returns an account's full balance record.
func (s *BalanceService) GetBalances(ctx context.Context, accountHash string) (*domain.Balance, error) {
	balance, err := loadBalance(ctx, s.repo, accountHash)
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// GetLocalBalances returns the account's own postings per currency.
func (s *BalanceService) GetLocalBalances(ctx context.Context, accountHash string) (map[string]domain.Asset, error) {
	balance, err := loadBalance(ctx, s.repo, accountHash)
	if err != nil {
		return nil, err
	}
	return domain.CloneAssets(balance.Local), nil
}

// GetGlobalBalances returns the account-plus-descendants roll-up per currency.
func (s *BalanceService) GetGlobalBalances(ctx context.Context, accountHash string) (map[string]domain.Asset, error) {
	balance, err := loadBalance(ctx, s.repo, accountHash)
	if err != nil {
		return nil, err
	}
	return domain.CloneAssets(balance.Global), nil
}

// ApplyDelta posts a signed amount at an account and propagates it up to the
// ledger as one unit of work. caller is recorded as the writer of every
// rewritten balance document.
func (s *BalanceService) ApplyDelta(ctx context.Context, caller, accountHash, ledgerHash string, delta domain.Asset, localAlso bool) error {
	return s.repo.WithinTx(ctx, func(ctx context.Context, repo portsrepo.DocumentRepository) error {
		return s.applyDelta(ctx, repo, caller, accountHash, ledgerHash, delta, localAlso)
	})
}

// RecalculateGlobalBalances recomputes the global slices from accountHash up
// to the ledger as one unit of work.
func (s *BalanceService) RecalculateGlobalBalances(ctx context.Context, caller, accountHash, ledgerHash string) error {
	return s.repo.WithinTx(ctx, func(ctx context.Context, repo portsrepo.DocumentRepository) error {
		return s.recalculate(ctx, repo, caller, accountHash, ledgerHash)
	})
}
